// Package browser drives headless Chromium through Rod so that snapshots are
// taken from the page as it looks after its scripts have run.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Options configures the browser behavior
type Options struct {
	Width      int
	Height     int
	Timeout    time.Duration
	Settle     time.Duration // wait for network idle after load, 0 disables
	Bin        string        // Chrome/Chromium binary, empty = auto-detect
	ProfileDir string        // Chrome/Chromium profile directory for authenticated sessions
	Stealth    bool
	Logger     *slog.Logger
}

func (o *Options) defaults() {
	if o.Width == 0 {
		o.Width = 1280
	}
	if o.Height == 0 {
		o.Height = 720
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Browser wraps the Rod browser for reuse across pages
type Browser struct {
	browser *rod.Browser
	lnch    *launcher.Launcher
	opts    Options
}

// Launch starts a headless browser.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	opts.defaults()

	bin := opts.Bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}
	l := launcher.New().Context(ctx).Headless(true)
	if bin != "" {
		l = l.Bin(bin)
	}
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	opts.Logger.Debug("browser: launched", "url", u, "bin", bin, "stealth", opts.Stealth)

	return &Browser{browser: b, lnch: l, opts: opts}, nil
}

// Close cleans up browser resources
func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.lnch != nil {
		b.lnch.Kill()
	}
	return err
}

// Rod returns the underlying Rod browser
func (b *Browser) Rod() *rod.Browser {
	return b.browser
}

// Open creates a tab and navigates it to url. It does not wait for load;
// that is the load hook's job.
func (b *Browser) Open(ctx context.Context, url string) (*Page, error) {
	var page *rod.Page
	var err error

	if b.opts.Stealth {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.opts.Width,
		Height:            b.opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: viewport: %w", err)
	}

	np := page.Context(ctx).Timeout(b.opts.Timeout)
	err = np.Navigate(url)
	np.CancelTimeout()
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", url, err)
	}

	return &Page{page: page.Context(ctx), url: url, browser: b}, nil
}
