package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/pagesnap/internal/snapshot"
)

// triggerDownloadJS turns the blob into an object URL and clicks a hidden
// anchor pointing at it. The anchor has to be attached to body for click()
// to start a download. Neither the anchor nor the URL is cleaned up.
const triggerDownloadJS = `(data, type, name) => {
	const blob = new Blob([data], {type: type});
	const a = document.createElement('a');
	a.href = window.URL.createObjectURL(blob);
	a.download = name;
	a.style = 'display: none;';
	document.body.appendChild(a);
	a.click();
}`

// AnchorDownloader triggers a real browser download from inside the page and
// moves the finished file into Dir.
type AnchorDownloader struct {
	Page *Page
	Dir  string

	last string
}

// Download implements snapshot.Downloader.
func (d *AnchorDownloader) Download(ctx context.Context, b snapshot.Blob) error {
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("browser: mkdir: %w", err)
	}
	staging, err := os.MkdirTemp(dir, ".pagesnap-dl-")
	if err != nil {
		return fmt.Errorf("browser: staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	rb := d.Page.browser.browser.Context(ctx).Timeout(d.Page.browser.opts.Timeout)
	defer rb.CancelTimeout()
	wait := rb.WaitDownload(staging)

	if _, err := d.Page.page.Context(ctx).Eval(triggerDownloadJS, string(b.Data), b.Type, b.Name); err != nil {
		return fmt.Errorf("browser: trigger download: %w", err)
	}

	info := wait()
	path, err := finishDownload(rb.GetContext().Err(), info, staging, dir, b.Name)
	if err != nil {
		return err
	}
	d.Page.browser.opts.Logger.Debug("browser: download complete",
		"file", path, "suggested", info.SuggestedFilename)
	d.last = path
	return nil
}

// finishDownload moves the GUID-named file Chrome wrote into staging to
// dir/name. WaitDownload hands back the start event even when the wait was
// cut short, so waitErr decides whether the staged file is complete.
func finishDownload(waitErr error, info *proto.PageDownloadWillBegin, staging, dir, name string) (string, error) {
	if waitErr != nil {
		return "", fmt.Errorf("browser: download of %q: %w", name, waitErr)
	}
	if info == nil || info.GUID == "" {
		return "", fmt.Errorf("browser: download of %q did not complete", name)
	}
	path := filepath.Join(dir, name)
	if err := os.Rename(filepath.Join(staging, info.GUID), path); err != nil {
		return "", fmt.Errorf("browser: move download: %w", err)
	}
	return path, nil
}

// LastPath returns the path of the most recent download.
func (d *AnchorDownloader) LastPath() string {
	return d.last
}
