package loadable

import (
	"context"
	"time"
)

// LoadInfo describes one load started by an integrated slot.
type LoadInfo struct {
	Slot      string // slot name given to Integrate
	Request   any
	Refreshed bool
}

// Hooks observes the loads a slot performs. OnLoadStart and OnLoadEnd run
// on the effect's goroutine, around the loader call; OnCancel runs while
// the cancel action is reduced. Implementations must be safe for
// concurrent use.
type Hooks interface {
	// OnLoadStart may return a derived context that is passed to the
	// loader and to OnLoadEnd.
	OnLoadStart(ctx context.Context, info LoadInfo) context.Context
	OnLoadEnd(ctx context.Context, info LoadInfo, err error, duration time.Duration)
	OnCancel(slot string)
}

// NopHooks ignores every event.
type NopHooks struct{}

var _ Hooks = NopHooks{}

func (NopHooks) OnLoadStart(ctx context.Context, _ LoadInfo) context.Context { return ctx }

func (NopHooks) OnLoadEnd(context.Context, LoadInfo, error, time.Duration) {}

func (NopHooks) OnCancel(string) {}

// MultiHooks fans events out to several hooks in order.
type MultiHooks []Hooks

var _ Hooks = MultiHooks(nil)

func (m MultiHooks) OnLoadStart(ctx context.Context, info LoadInfo) context.Context {
	for _, h := range m {
		ctx = h.OnLoadStart(ctx, info)
	}
	return ctx
}

func (m MultiHooks) OnLoadEnd(ctx context.Context, info LoadInfo, err error, duration time.Duration) {
	for _, h := range m {
		h.OnLoadEnd(ctx, info, err, duration)
	}
}

func (m MultiHooks) OnCancel(slot string) {
	for _, h := range m {
		h.OnCancel(slot)
	}
}
