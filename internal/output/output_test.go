package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basecamp/loadable/internal/observability"
)

// =============================================================================
// Exit Codes Tests
// =============================================================================

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{CodeUsage, ExitUsage},
		{CodeNotFound, ExitNotFound},
		{CodeConfig, ExitConfig},
		{CodeLoad, ExitLoad},
		{CodeCancelled, ExitCancelled},
		{CodeJQ, ExitJQ},
		{CodeInternal, ExitInternal},
		{"unknown_code", ExitInternal}, // Unknown codes default to ExitInternal
		{"", ExitInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			result := ExitCodeFor(tt.code)
			if result != tt.expected {
				t.Errorf("ExitCodeFor(%q) = %d, want %d", tt.code, result, tt.expected)
			}
		})
	}
}

// =============================================================================
// Error Tests
// =============================================================================

func TestErrorMessage(t *testing.T) {
	e := ErrUsageHint("missing direction", "use --direction bottom")
	if e.Error() != "missing direction: use --direction bottom" {
		t.Errorf("unexpected message: %q", e.Error())
	}
	if ErrUsage("bad").Error() != "bad" {
		t.Errorf("expected bare message without hint")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("offline")
	e := ErrLoad("page", cause)

	assert.ErrorIs(t, e, cause)
	assert.True(t, e.Retryable)
	assert.Equal(t, ExitLoad, e.ExitCode())
	assert.Equal(t, "Loading page failed: offline", e.Error())
}

func TestAsError(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		orig := ErrNotFound("element", "42")
		wrapped := fmt.Errorf("selecting: %w", orig)
		assert.Same(t, orig, AsError(wrapped))
	})

	t.Run("cancelled", func(t *testing.T) {
		e := AsError(fmt.Errorf("run: %w", context.Canceled))
		assert.Equal(t, CodeCancelled, e.Code)
	})

	t.Run("plain", func(t *testing.T) {
		e := AsError(errors.New("boom"))
		assert.Equal(t, CodeInternal, e.Code)
		assert.Equal(t, "boom", e.Message)
	})
}

func TestErrConfigAndJQ(t *testing.T) {
	assert.Equal(t, ExitConfig, ErrConfig(errors.New("bad yaml")).ExitCode())
	assert.Equal(t, ExitJQ, ErrJQ(".[", errors.New("unexpected EOF")).ExitCode())
}

// =============================================================================
// Envelope Tests
// =============================================================================

type element struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Page  int    `json:"page"`
}

func sample() []element {
	return []element{
		{ID: "1", Title: "First", Page: 1},
		{ID: "2", Title: "Second", Page: 1},
		{ID: "3", Title: "Third", Page: 2},
	}
}

func TestWriterOKJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf})

	err := w.OK(sample(),
		WithSummary("3 elements"),
		WithContext("direction", "bottom"),
		WithMeta("pages", 2),
		WithBreadcrumbs(Breadcrumb{Action: "more", Cmd: "loadable pages --count 3"}),
	)
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "3 elements", resp["summary"])
	assert.Len(t, resp["data"], 3)
	assert.Equal(t, "bottom", resp["context"].(map[string]any)["direction"])
	assert.Equal(t, float64(2), resp["meta"].(map[string]any)["pages"])
	assert.Len(t, resp["breadcrumbs"], 1)
}

func TestWriterErrJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf})

	require.NoError(t, w.Err(ErrLoad("page", errors.New("offline"))))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, CodeLoad, resp.Code)
	assert.Equal(t, "offline", resp.Hint)
	assert.True(t, resp.Retryable)
}

func TestWriterQuiet(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatQuiet, Writer: &buf})

	require.NoError(t, w.OK(sample(), WithSummary("ignored")))

	var data []element
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, sample(), data)
	assert.NotContains(t, buf.String(), "ignored")
}

func TestWriterIDsAndCount(t *testing.T) {
	var ids bytes.Buffer
	require.NoError(t, New(Options{Format: FormatIDs, Writer: &ids}).OK(sample()))
	assert.Equal(t, "1\n2\n3\n", ids.String())

	var count bytes.Buffer
	require.NoError(t, New(Options{Format: FormatCount, Writer: &count}).OK(sample()))
	assert.Equal(t, "3\n", count.String())

	count.Reset()
	require.NoError(t, New(Options{Format: FormatCount, Writer: &count}).OK(nil))
	assert.Equal(t, "0\n", count.String())
}

func TestWriterAutoNonTTYIsJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatAuto, Writer: &buf})

	assert.Equal(t, FormatJSON, w.EffectiveFormat())
	require.NoError(t, w.OK("hello"))
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}

func TestNormalizeData(t *testing.T) {
	got := NormalizeData(sample())
	rows, ok := got.([]map[string]any)
	require.True(t, ok, "expected []map[string]any, got %T", got)
	assert.Equal(t, "Third", rows[2]["title"])

	raw := NormalizeData(json.RawMessage(`[{"id":"x"}]`))
	assert.Equal(t, []map[string]any{{"id": "x"}}, raw)

	assert.Equal(t, []any{"a", float64(1)}, NormalizeData([]any{"a", float64(1)}))
	assert.Nil(t, NormalizeData(nil))
}

// =============================================================================
// jq Tests
// =============================================================================

func TestWriterJQ(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatStyled, Writer: &buf, JQ: ".data[] | select(.page == 2) | .title"})

	assert.Equal(t, FormatJSON, w.EffectiveFormat())
	require.NoError(t, w.OK(sample()))
	assert.Equal(t, "Third\n", buf.String())
}

func TestWriterJQObjects(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Writer: &buf, JQ: "[.data[].id]"})

	require.NoError(t, w.OK(sample()))
	assert.Equal(t, `["1","2","3"]`+"\n", buf.String())
}

func TestApplyJQErrors(t *testing.T) {
	_, err := ApplyJQ(".[", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, CodeJQ, AsError(err).Code)

	_, err = ApplyJQ(".foo.bar", map[string]any{"foo": 1})
	require.Error(t, err)
	assert.Equal(t, CodeJQ, AsError(err).Code)
}

func TestApplyJQMultipleResults(t *testing.T) {
	results, err := ApplyJQ(".[] | .id", sample())
	require.NoError(t, err)
	assert.Equal(t, []any{"1", "2", "3"}, results)
}

// =============================================================================
// Renderer Tests
// =============================================================================

func plainRenderer() *Renderer {
	var buf bytes.Buffer
	return NewRenderer(&buf, false)
}

func TestRenderResponseTable(t *testing.T) {
	var buf bytes.Buffer
	r := plainRenderer()

	resp := &Response{OK: true, Data: sample(), Summary: "3 elements"}
	resp.Meta = map[string]any{"stats": observability.SessionMetrics{TotalLoads: 2, TotalLatency: 40 * time.Millisecond}.ToMap()}
	require.NoError(t, r.RenderResponse(&buf, resp))

	out := buf.String()
	assert.Contains(t, out, "3 elements")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "Second")
	assert.Contains(t, out, "Stats: 2 loads | 40ms loading")
	assert.Less(t, strings.Index(out, "Id"), strings.Index(out, "Title"), "id column comes first")
}

func TestRenderResponseEmptyAndNil(t *testing.T) {
	r := plainRenderer()

	var empty bytes.Buffer
	require.NoError(t, r.RenderResponse(&empty, &Response{OK: true, Data: []element{}}))
	assert.Contains(t, empty.String(), "(no results)")

	var none bytes.Buffer
	require.NoError(t, r.RenderResponse(&none, &Response{OK: true}))
	assert.Contains(t, none.String(), "(no data)")
}

func TestRenderObject(t *testing.T) {
	t.Setenv("LC_ALL", "en_US.UTF-8")
	var buf bytes.Buffer
	r := plainRenderer()

	require.NoError(t, r.RenderResponse(&buf, &Response{OK: true, Data: map[string]any{
		"title":  "Counter",
		"value":  float64(1234),
		"status": "success",
	}}))

	out := buf.String()
	assert.Contains(t, out, "Title ")
	assert.Contains(t, out, "1,234")
	assert.Less(t, strings.Index(out, "Title"), strings.Index(out, "Status"))
}

func TestRenderError(t *testing.T) {
	var buf bytes.Buffer
	r := plainRenderer()

	require.NoError(t, r.RenderError(&buf, &ErrorResponse{Error: "Loading page failed", Hint: "offline", Retryable: true}))

	out := buf.String()
	assert.Contains(t, out, "Error: Loading page failed")
	assert.Contains(t, out, "Hint: offline")
	assert.Contains(t, out, "try again")
}

func TestFormatHeader(t *testing.T) {
	assert.Equal(t, "Page Size", formatHeader("page_size"))
	assert.Equal(t, "Id", formatHeader("id"))
}

func TestLocaleFormatNumber(t *testing.T) {
	assert.Equal(t, "1,234", NewLocale("en_US.UTF-8").FormatNumber(1234))
	assert.Equal(t, "1.234", NewLocale("de_DE").FormatNumber(1234))
	assert.Equal(t, "1.5", NewLocale("").FormatNumber(1.5))
}
