package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/basecamp/loadable/loadable"
)

func TestCLIHooks_SetLevel(t *testing.T) {
	h := NewCLIHooks(0, nil, nil)

	assert.Equal(t, 0, h.Level())

	h.SetLevel(2)
	assert.Equal(t, 2, h.Level())
}

func exercise(h *CLIHooks) {
	ctx := context.Background()
	info := loadable.LoadInfo{Slot: "page", Request: "bottom@c2"}
	ctx = h.OnLoadStart(ctx, info)
	h.OnFetch(FetchMetrics{Cursor: "c2", Count: 3, Duration: 45 * time.Millisecond})
	h.OnLoadEnd(ctx, info, nil, 50*time.Millisecond)
	h.OnCancel("page")
}

func TestCLIHooks_Level0_Silent(t *testing.T) {
	var buf bytes.Buffer
	writer := NewTraceWriterTo(&buf)
	collector := NewSessionCollector()
	h := NewCLIHooks(0, collector, writer)

	exercise(h)

	// Level 0 should produce no output
	assert.Equal(t, 0, buf.Len(), "expected no output at level 0")

	// But metrics should still be collected
	summary := collector.Summary()
	assert.Equal(t, 1, summary.TotalLoads)
	assert.Equal(t, 1, summary.TotalFetches)
	assert.Equal(t, 1, summary.Cancels)
}

func TestCLIHooks_Level1_LoadsOnly(t *testing.T) {
	var buf bytes.Buffer
	h := NewCLIHooks(1, nil, NewTraceWriterTo(&buf))

	exercise(h)

	output := buf.String()
	assert.Contains(t, output, "Loading page(bottom@c2)", "expected load start")
	assert.Contains(t, output, "Loaded page(bottom@c2)", "expected load end")
	assert.Contains(t, output, "Cancelled page", "expected cancel")
	assert.NotContains(t, output, "-> fetch", "unexpected fetch output at level 1")
}

func TestCLIHooks_Level2_LoadsAndFetches(t *testing.T) {
	var buf bytes.Buffer
	h := NewCLIHooks(2, nil, NewTraceWriterTo(&buf))

	exercise(h)

	output := buf.String()
	assert.Contains(t, output, "Loading page(bottom@c2)")
	assert.Contains(t, output, "-> fetch c2: 3 items (45ms)")
}

func TestCLIHooks_LoadError(t *testing.T) {
	var buf bytes.Buffer
	collector := NewSessionCollector()
	h := NewCLIHooks(1, collector, NewTraceWriterTo(&buf))

	info := loadable.LoadInfo{Slot: "counter", Request: "Hello", Refreshed: true}
	ctx := h.OnLoadStart(context.Background(), info)
	h.OnLoadEnd(ctx, info, errors.New("boom"), time.Millisecond)

	assert.Contains(t, buf.String(), "Refreshing counter(Hello)")
	assert.Contains(t, buf.String(), "Failed counter(Hello): boom")
	assert.Equal(t, 1, collector.Summary().FailedLoads)
	assert.Equal(t, 1, collector.Summary().Refreshes)
}

func TestCLIHooks_NilWriterAndCollector(t *testing.T) {
	h := NewCLIHooks(2, nil, nil)

	assert.NotPanics(t, func() { exercise(h) })
}
