package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"github.com/v0xg/pagesnap/internal/snapshot"
)

// Page is an open tab. It satisfies hook.Loader and snapshot.Document; each
// document operation is a single in-page evaluation.
type Page struct {
	page    *rod.Page
	url     string
	browser *Browser
}

// URL returns the address the page was opened with.
func (p *Page) URL() string {
	return p.url
}

// Rod returns the underlying Rod page
func (p *Page) Rod() *rod.Page {
	return p.page
}

// Close closes the tab.
func (p *Page) Close() error {
	if p.page != nil {
		return p.page.Close()
	}
	return nil
}

// WaitLoad blocks until the page's load event has fired.
func (p *Page) WaitLoad() error {
	opts := p.browser.opts
	tp := p.page.Timeout(opts.Timeout)
	defer tp.CancelTimeout()
	if err := tp.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", p.url, err)
	}

	// Wait for network idle with timeout (don't hang on persistent connections)
	if opts.Settle > 0 {
		sp := p.page.Timeout(opts.Settle)
		defer sp.CancelTimeout()
		sp.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	}
	return nil
}

// Title returns document.title.
func (p *Page) Title(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.title`)
	if err != nil {
		return "", fmt.Errorf("browser: title: %w", err)
	}
	return res.Value.Str(), nil
}

// ElementText implements snapshot.Document.
func (p *Page) ElementText(ctx context.Context, id string) (string, bool, error) {
	res, err := p.page.Context(ctx).Eval(`(id) => {
		const e = document.getElementById(id);
		if (!e) return {ok: false, text: ''};
		return {ok: true, text: e.textContent};
	}`, id)
	if err != nil {
		return "", false, fmt.Errorf("browser: read #%s: %w", id, err)
	}
	if !res.Value.Get("ok").Bool() {
		return "", false, nil
	}
	return res.Value.Get("text").Str(), true, nil
}

// RemoveElement implements snapshot.Document.
func (p *Page) RemoveElement(ctx context.Context, id string) error {
	res, err := p.page.Context(ctx).Eval(`(id) => {
		const e = document.getElementById(id);
		if (!e || !e.parentNode) return false;
		e.parentNode.removeChild(e);
		return true;
	}`, id)
	if err != nil {
		return fmt.Errorf("browser: remove #%s: %w", id, err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("browser: #%s: %w", id, snapshot.ErrNotFound)
	}
	return nil
}

// RemoveBodyChild implements snapshot.Document.
func (p *Page) RemoveBodyChild(ctx context.Context, id string) error {
	res, err := p.page.Context(ctx).Eval(`(id) => {
		const e = document.getElementById(id);
		if (!e || !document.body || e.parentNode !== document.body) return false;
		document.body.removeChild(e);
		return true;
	}`, id)
	if err != nil {
		return fmt.Errorf("browser: remove #%s: %w", id, err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("browser: #%s is not a child of body: %w", id, snapshot.ErrNotFound)
	}
	return nil
}

// OuterHTML implements snapshot.Document.
func (p *Page) OuterHTML(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}
