package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/basecamp/loadable/loadable"
)

func TestTraceWriter_WriteLoadStart(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteLoadStart(loadable.LoadInfo{Slot: "counter", Request: "Hello"})

	output := buf.String()
	if !strings.Contains(output, "Loading counter(Hello)") {
		t.Errorf("expected 'Loading counter(Hello)', got: %s", output)
	}
	if !strings.HasPrefix(output, "[") {
		t.Errorf("expected timestamp prefix, got: %s", output)
	}
}

func TestTraceWriter_WriteLoadStart_Refresh(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteLoadStart(loadable.LoadInfo{Slot: "counter", Request: "Hello", Refreshed: true})

	if !strings.Contains(buf.String(), "Refreshing counter(Hello)") {
		t.Errorf("expected 'Refreshing counter(Hello)', got: %s", buf.String())
	}
}

func TestTraceWriter_WriteLoadEnd(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteLoadEnd(loadable.LoadInfo{Slot: "page", Request: "bottom@c2"}, nil, 50*time.Millisecond)

	output := buf.String()
	if !strings.Contains(output, "Loaded page(bottom@c2)") {
		t.Errorf("expected 'Loaded page(bottom@c2)', got: %s", output)
	}
	if !strings.Contains(output, "(50ms)") {
		t.Errorf("expected duration, got: %s", output)
	}
}

func TestTraceWriter_WriteLoadEnd_Error(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteLoadEnd(loadable.LoadInfo{Slot: "page", Request: "bottom@c2"}, errors.New("offline"), 50*time.Millisecond)

	output := buf.String()
	if !strings.Contains(output, "Failed page(bottom@c2)") {
		t.Errorf("expected 'Failed page(bottom@c2)', got: %s", output)
	}
	if !strings.Contains(output, "offline") {
		t.Errorf("expected error message, got: %s", output)
	}
}

func TestTraceWriter_WriteCancel(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteCancel("page")

	if !strings.Contains(buf.String(), "Cancelled page") {
		t.Errorf("expected 'Cancelled page', got: %s", buf.String())
	}
}

func TestTraceWriter_WriteFetch(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteFetch(FetchMetrics{Count: 20, Duration: 45 * time.Millisecond})
	w.WriteFetch(FetchMetrics{Cursor: "c3", Error: errors.New("timeout")})

	output := buf.String()
	if !strings.Contains(output, "-> fetch start: 20 items (45ms)") {
		t.Errorf("expected initial fetch line, got: %s", output)
	}
	if !strings.Contains(output, "-> fetch c3: ERROR: timeout") {
		t.Errorf("expected fetch error line, got: %s", output)
	}
}

func TestTraceWriter_Reset(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	time.Sleep(10 * time.Millisecond)
	w.Reset()
	w.WriteCancel("page")

	if !strings.HasPrefix(buf.String(), "[0.00") {
		t.Errorf("expected timestamp near zero after reset, got: %s", buf.String())
	}
}
