package observability

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/basecamp/loadable/loadable"
)

// TraceWriter outputs human-readable trace information to stderr.
// It formats output with timestamps relative to session start.
type TraceWriter struct {
	mu        sync.Mutex
	writer    io.Writer
	startTime time.Time
}

// NewTraceWriter creates a new TraceWriter that writes to stderr.
func NewTraceWriter() *TraceWriter {
	return &TraceWriter{
		writer:    os.Stderr,
		startTime: time.Now(),
	}
}

// NewTraceWriterTo creates a new TraceWriter that writes to the given writer.
func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return &TraceWriter{
		writer:    w,
		startTime: time.Now(),
	}
}

func describeLoad(info loadable.LoadInfo) string {
	verb := "Loading"
	if info.Refreshed {
		verb = "Refreshing"
	}
	return fmt.Sprintf("%s %s(%v)", verb, info.Slot, info.Request)
}

// WriteLoadStart writes a load start trace line.
// Format: [0.234s] Loading page(bottom@c2)
func (t *TraceWriter) WriteLoadStart(info loadable.LoadInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.startTime).Seconds()
	fmt.Fprintf(t.writer, "[%.3fs] %s\n", elapsed, describeLoad(info))
}

// WriteLoadEnd writes a load completion trace line.
// Format: [0.234s] Loaded page(bottom@c2) (234ms)
func (t *TraceWriter) WriteLoadEnd(info loadable.LoadInfo, err error, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.startTime).Seconds()

	if err != nil {
		fmt.Fprintf(t.writer, "[%.3fs] Failed %s(%v): %v\n", elapsed, info.Slot, info.Request, err)
	} else {
		fmt.Fprintf(t.writer, "[%.3fs] Loaded %s(%v) (%dms)\n", elapsed, info.Slot, info.Request, duration.Milliseconds())
	}
}

// WriteCancel writes a cancellation trace line.
// Format: [0.234s] Cancelled page
func (t *TraceWriter) WriteCancel(slot string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.startTime).Seconds()
	fmt.Fprintf(t.writer, "[%.3fs] Cancelled %s\n", elapsed, slot)
}

// WriteFetch writes a data source fetch trace line.
// Format: [0.234s]   -> fetch c2: 20 items (45ms)
func (t *TraceWriter) WriteFetch(m FetchMetrics) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.startTime).Seconds()
	cursor := m.Cursor
	if cursor == "" {
		cursor = "start"
	}

	if m.Error != nil {
		fmt.Fprintf(t.writer, "[%.3fs]   -> fetch %s: ERROR: %v\n", elapsed, cursor, m.Error)
		return
	}
	fmt.Fprintf(t.writer, "[%.3fs]   -> fetch %s: %d items (%dms)\n", elapsed, cursor, m.Count, m.Duration.Milliseconds())
}

// Reset resets the start time for relative timestamps.
func (t *TraceWriter) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startTime = time.Now()
}
