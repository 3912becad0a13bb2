package observability

import (
	"context"
	"sync"
	"time"

	"github.com/basecamp/loadable/loadable"
)

// Verify CLIHooks implements loadable.Hooks at compile time.
var _ loadable.Hooks = (*CLIHooks)(nil)

// CLIHooks implements loadable.Hooks for CLI observability.
// It supports configurable verbosity levels:
//   - 0: Silent (collect stats only, no output)
//   - 1: Loads only (trace load start, end and cancel)
//   - 2: Loads + fetches (also trace data source fetches)
type CLIHooks struct {
	mu        sync.Mutex
	level     int
	collector *SessionCollector
	writer    *TraceWriter
}

// NewCLIHooks creates a new CLIHooks with the given verbosity level.
// If collector is nil, metrics are not collected.
// If writer is nil, no trace output is produced.
func NewCLIHooks(level int, collector *SessionCollector, writer *TraceWriter) *CLIHooks {
	return &CLIHooks{
		level:     level,
		collector: collector,
		writer:    writer,
	}
}

// SetLevel changes the verbosity level at runtime.
func (h *CLIHooks) SetLevel(level int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

// Level returns the current verbosity level.
func (h *CLIHooks) Level() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level
}

func (h *CLIHooks) snapshot() (int, *SessionCollector, *TraceWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level, h.collector, h.writer
}

// OnLoadStart is called when a slot starts loading.
func (h *CLIHooks) OnLoadStart(ctx context.Context, info loadable.LoadInfo) context.Context {
	level, _, writer := h.snapshot()
	if level >= 1 && writer != nil {
		writer.WriteLoadStart(info)
	}
	return ctx
}

// OnLoadEnd is called when a load completes, successfully or not.
func (h *CLIHooks) OnLoadEnd(ctx context.Context, info loadable.LoadInfo, err error, duration time.Duration) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordLoadEnd(info, err, duration)
	}
	if level >= 1 && writer != nil {
		writer.WriteLoadEnd(info, err, duration)
	}
}

// OnCancel is called when a slot's load is cancelled.
func (h *CLIHooks) OnCancel(slot string) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordCancel(slot)
	}
	if level >= 1 && writer != nil {
		writer.WriteCancel(slot)
	}
}

// OnFetch is called after a data source fetch.
func (h *CLIHooks) OnFetch(m FetchMetrics) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordFetch(m)
	}
	if level >= 2 && writer != nil {
		writer.WriteFetch(m)
	}
}
