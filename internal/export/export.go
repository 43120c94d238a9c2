// Package export writes snapshot blobs to disk and post-processes their
// markup.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/v0xg/pagesnap/internal/snapshot"
)

// Output formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// FileDownloader saves blobs into Dir under the blob's own name.
type FileDownloader struct {
	Dir string

	last string
}

// Download implements snapshot.Downloader. The name is used as given.
func (d *FileDownloader) Download(_ context.Context, b snapshot.Blob) error {
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}
	path := filepath.Join(dir, b.Name)
	if err := os.WriteFile(path, b.Data, 0o644); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	d.last = path
	return nil
}

// LastPath returns the path of the most recent file written.
func (d *FileDownloader) LastPath() string {
	return d.last
}

// documentPolicy is the UGC policy widened to a whole document: structure,
// charset, title, stylesheets and <style> survive; scripts and event handler
// attributes do not.
func documentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("html", "head", "body", "title")
	p.AllowAttrs("charset").OnElements("meta")
	p.AllowAttrs("name", "content").OnElements("meta")
	p.AllowAttrs("rel", "href", "type", "media").OnElements("link")
	// Unsafe only lets <style> text through unescaped; <script> is never
	// allowed so its content is still skipped.
	p.AllowUnsafe(true)
	p.AllowElements("style")
	return p
}

// TransformOptions selects the post-processing applied to a snapshot.
type TransformOptions struct {
	Sanitize bool
	Format   string
	// Domain resolves relative links when converting to markdown.
	Domain string
}

// Transform returns a snapshot.TransformFunc for opts, or nil when opts ask
// for nothing.
func Transform(opts TransformOptions) (snapshot.TransformFunc, error) {
	var steps []snapshot.TransformFunc

	if opts.Sanitize {
		policy := documentPolicy()
		steps = append(steps, func(markup string) (string, error) {
			return policy.Sanitize(markup), nil
		})
	}

	switch strings.ToLower(opts.Format) {
	case "", FormatHTML:
	case FormatMarkdown, "md":
		conv := converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
		steps = append(steps, func(markup string) (string, error) {
			var out string
			var err error
			if opts.Domain != "" {
				out, err = conv.ConvertString(markup, converter.WithDomain(opts.Domain))
			} else {
				out, err = conv.ConvertString(markup)
			}
			if err != nil {
				return "", fmt.Errorf("export: markdown: %w", err)
			}
			return strings.TrimSpace(out) + "\n", nil
		})
	default:
		return nil, fmt.Errorf("export: unknown format %q (supported: html, markdown)", opts.Format)
	}

	if len(steps) == 0 {
		return nil, nil
	}
	return func(markup string) (string, error) {
		var err error
		for _, step := range steps {
			if markup, err = step(markup); err != nil {
				return "", err
			}
		}
		return markup, nil
	}, nil
}
