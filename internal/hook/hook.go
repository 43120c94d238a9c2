// Package hook runs a callback once a page has finished loading.
package hook

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Loader is anything that can block until its page has loaded.
// *rod.Page and *htmldoc.Document both satisfy it.
type Loader interface {
	WaitLoad() error
}

// Func is the callback run on load.
type Func func(ctx context.Context) error

// Hook is a one-shot load listener. The zero value is ready to use.
type Hook struct {
	once  sync.Once
	fired atomic.Bool
}

// New returns an unfired Hook.
func New() *Hook {
	return &Hook{}
}

// OnLoad waits for target to load and then runs fn. Only the first call on a
// Hook does anything; later calls return nil without waiting.
func (h *Hook) OnLoad(ctx context.Context, target Loader, fn Func) error {
	var err error
	h.once.Do(func() {
		if err = ctx.Err(); err != nil {
			return
		}
		if err = target.WaitLoad(); err != nil {
			err = fmt.Errorf("hook: wait load: %w", err)
			return
		}
		h.fired.Store(true)
		err = fn(ctx)
	})
	return err
}

// Fired reports whether the callback has been invoked.
func (h *Hook) Fired() bool {
	return h.fired.Load()
}
