package hook

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	waits int
	err   error
}

func (f *fakeLoader) WaitLoad() error {
	f.waits++
	return f.err
}

func TestOnLoad_FiresOnce(t *testing.T) {
	h := New()
	l := &fakeLoader{}
	calls := 0
	fn := func(context.Context) error { calls++; return nil }

	require.NoError(t, h.OnLoad(context.Background(), l, fn))
	require.NoError(t, h.OnLoad(context.Background(), l, fn))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, l.waits)
	assert.True(t, h.Fired())
}

func TestOnLoad_CallbackError(t *testing.T) {
	boom := errors.New("boom")
	h := New()

	err := h.OnLoad(context.Background(), &fakeLoader{}, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, h.Fired())
}

func TestOnLoad_LoadFailureSkipsCallback(t *testing.T) {
	h := New()
	called := false

	err := h.OnLoad(context.Background(), &fakeLoader{err: errors.New("navigation aborted")}, func(context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
	assert.False(t, h.Fired())
}

func TestOnLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &fakeLoader{}

	err := New().OnLoad(ctx, l, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, l.waits)
}

func TestOnLoad_ConcurrentCallers(t *testing.T) {
	h := New()
	l := &fakeLoader{}
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Fired()
			_ = h.OnLoad(context.Background(), l, func(context.Context) error {
				calls.Add(1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, l.waits)
	assert.True(t, h.Fired())
}
