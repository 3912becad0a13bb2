package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"

	"github.com/basecamp/loadable/internal/observability"
)

// Palette colors used by styled output.
const (
	colorPrimary = "#5EA1FF"
	colorMuted   = "#8A8F98"
	colorText    = "#E6E6E6"
	colorError   = "#FF6B6B"
	colorWarning = "#F5C26B"
	colorSuccess = "#7BD88F"
)

// Renderer handles styled terminal output.
type Renderer struct {
	width  int
	styled bool // whether to emit ANSI styling
	locale Locale

	// Text styles
	Summary lipgloss.Style
	Muted   lipgloss.Style
	Data    lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style

	// Table styles
	Header    lipgloss.Style
	Cell      lipgloss.Style
	CellMuted lipgloss.Style
}

// NewRenderer creates a renderer. Styling is enabled when writing to a TTY,
// or when forceStyled is true, unless NO_COLOR is set.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	width, isTTY := terminalInfo(w)
	styled := (isTTY || forceStyled) && os.Getenv("NO_COLOR") == ""

	r := &Renderer{
		width:  width,
		styled: styled,
		locale: DetectLocale(),
	}

	if styled {
		r.Summary = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPrimary)).Bold(true)
		r.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
		r.Data = lipgloss.NewStyle().Foreground(lipgloss.Color(colorText))
		r.Error = lipgloss.NewStyle().Foreground(lipgloss.Color(colorError)).Bold(true)
		r.Hint = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted)).Italic(true)
		r.Warning = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWarning))
		r.Success = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSuccess))
		r.Header = lipgloss.NewStyle().Foreground(lipgloss.Color(colorText)).Bold(true)
		r.Cell = lipgloss.NewStyle().Foreground(lipgloss.Color(colorText))
		r.CellMuted = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	} else {
		// Plain text - no styling
		r.Summary = lipgloss.NewStyle()
		r.Muted = lipgloss.NewStyle()
		r.Data = lipgloss.NewStyle()
		r.Error = lipgloss.NewStyle()
		r.Hint = lipgloss.NewStyle()
		r.Warning = lipgloss.NewStyle()
		r.Success = lipgloss.NewStyle()
		r.Header = lipgloss.NewStyle()
		r.Cell = lipgloss.NewStyle()
		r.CellMuted = lipgloss.NewStyle()
	}

	return r
}

// terminalInfo returns the terminal width and whether the writer is a TTY.
func terminalInfo(w io.Writer) (width int, isTTY bool) {
	width = 80 // default

	if f, ok := w.(*os.File); ok {
		if w, _, err := term.GetSize(f.Fd()); err == nil && w >= 40 {
			width = w
		}
		isTTY = term.IsTerminal(f.Fd())
	}

	return width, isTTY
}

// RenderResponse renders a success response to the writer.
func (r *Renderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	// Summary line
	if resp.Summary != "" {
		b.WriteString(r.Summary.Render(resp.Summary))
		b.WriteString("\n\n")
	}

	// Main data
	r.renderData(&b, NormalizeData(resp.Data))

	// Breadcrumbs
	if len(resp.Breadcrumbs) > 0 {
		b.WriteString("\n")
		r.renderBreadcrumbs(&b, resp.Breadcrumbs)
	}

	// Stats (from --stats flag)
	if stats := extractStats(resp.Meta); stats != nil {
		b.WriteString("\n")
		r.renderStats(&b, stats)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response to the writer.
func (r *Renderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder

	b.WriteString(r.Error.Render("Error: " + resp.Error))
	b.WriteString("\n")

	if resp.Hint != "" {
		b.WriteString(r.Hint.Render("Hint: " + resp.Hint))
		b.WriteString("\n")
	}
	if resp.Retryable {
		b.WriteString(r.Warning.Render("This may succeed if you try again."))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) renderData(b *strings.Builder, data any) {
	switch d := data.(type) {
	case []map[string]any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(no results)"))
			b.WriteString("\n")
			return
		}
		r.renderTable(b, d)

	case map[string]any:
		r.renderObject(b, d)

	case []any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(no results)"))
			b.WriteString("\n")
			return
		}
		r.renderList(b, d)

	case string:
		b.WriteString(r.Data.Render(d))
		b.WriteString("\n")

	case nil:
		b.WriteString(r.Muted.Render("(no data)"))
		b.WriteString("\n")

	default:
		b.WriteString(r.Data.Render(r.formatCell(data)))
		b.WriteString("\n")
	}
}

// Column priority for table rendering (lower = higher priority)
var columnPriority = map[string]int{
	"id":      1,
	"title":   2,
	"name":    2,
	"page":    3,
	"status":  4,
	"request": 5,
	"value":   6,
	"error":   7,
}

// Columns to render in muted style
var mutedColumns = map[string]bool{
	"id":   true,
	"page": true,
}

type column struct {
	key      string
	header   string
	priority int
	muted    bool
	width    int
}

func (r *Renderer) renderTable(b *strings.Builder, data []map[string]any) {
	columns := r.selectColumns(detectColumns(data), data)
	if len(columns) == 0 {
		return
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Header
			}
			if col < len(columns) && columns[col].muted {
				return r.CellMuted
			}
			return r.Cell
		})

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.header
	}
	t.Headers(headers...)

	for _, item := range data {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = r.formatCell(item[col.key])
		}
		t.Row(row...)
	}

	b.WriteString(t.String())
	b.WriteString("\n")
}

func detectColumns(data []map[string]any) []column {
	if len(data) == 0 {
		return nil
	}

	var cols []column
	for key, val := range data[0] {
		// Skip nested objects
		switch val.(type) {
		case map[string]any, []map[string]any, []any:
			continue
		}

		priority := columnPriority[key]
		if priority == 0 {
			priority = 50
		}

		cols = append(cols, column{
			key:      key,
			header:   formatHeader(key),
			priority: priority,
			muted:    mutedColumns[key],
		})
	}

	sort.Slice(cols, func(i, j int) bool {
		if cols[i].priority != cols[j].priority {
			return cols[i].priority < cols[j].priority
		}
		return cols[i].key < cols[j].key
	})

	return cols
}

func (r *Renderer) selectColumns(cols []column, data []map[string]any) []column {
	if len(cols) == 0 {
		return cols
	}

	for i := range cols {
		cols[i].width = lipgloss.Width(cols[i].header)
		for _, row := range data {
			if w := lipgloss.Width(r.formatCell(row[cols[i].key])); w > cols[i].width {
				cols[i].width = w
			}
		}
		// Cap width at 40 for long content
		if cols[i].width > 40 {
			cols[i].width = 40
		}
	}

	// Remove columns until we fit
	padding := 2
	selected := cols
	for len(selected) > 1 {
		total := 0
		for _, col := range selected {
			total += col.width + padding
		}
		if total <= r.width {
			break
		}
		selected = selected[:len(selected)-1]
	}

	return selected
}

func (r *Renderer) renderObject(b *strings.Builder, data map[string]any) {
	keys := make([]string, 0, len(data))
	for k, v := range data {
		switch v.(type) {
		case map[string]any, []map[string]any:
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		b.WriteString(r.Muted.Render("(no data)"))
		b.WriteString("\n")
		return
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := columnPriority[keys[i]], columnPriority[keys[j]]
		if pi == 0 {
			pi = 50
		}
		if pj == 0 {
			pj = 50
		}
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})

	maxLen := 0
	for _, k := range keys {
		if l := len(formatHeader(k)); l > maxLen {
			maxLen = l
		}
	}

	for _, k := range keys {
		label := r.Muted.Render(fmt.Sprintf("%-*s: ", maxLen, formatHeader(k)))
		value := r.Data.Render(r.formatCell(data[k]))
		if mutedColumns[k] {
			value = r.CellMuted.Render(r.formatCell(data[k]))
		}
		b.WriteString(label + value + "\n")
	}
}

func (r *Renderer) renderList(b *strings.Builder, data []any) {
	for _, item := range data {
		b.WriteString(r.Data.Render("• " + r.formatCell(item)))
		b.WriteString("\n")
	}
}

func (r *Renderer) renderBreadcrumbs(b *strings.Builder, crumbs []Breadcrumb) {
	b.WriteString(r.Muted.Render("Next:"))
	b.WriteString("\n")
	for _, bc := range crumbs {
		cmd := r.Muted.Render("  " + bc.Cmd)
		if bc.Description != "" {
			cmd += r.Muted.Render("  # " + bc.Description)
		}
		b.WriteString(cmd + "\n")
	}
}

// renderStats renders session statistics in a compact one-liner.
func (r *Renderer) renderStats(b *strings.Builder, stats map[string]any) {
	parts := observability.SessionMetricsFromMap(stats).FormatParts()
	if len(parts) > 0 {
		b.WriteString(r.Muted.Render("Stats: " + strings.Join(parts, " | ")))
		b.WriteString("\n")
	}
}

func formatHeader(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (r *Renderer) formatCell(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case float64:
		return r.locale.FormatNumber(v)
	case int:
		return r.locale.FormatNumber(float64(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}

// extractStats pulls stats from response meta if present.
func extractStats(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	stats, _ := meta["stats"].(map[string]any)
	return stats
}
