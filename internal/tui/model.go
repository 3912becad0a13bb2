package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/basecamp/loadable/loadable"
	"github.com/basecamp/loadable/pagination"
	"github.com/basecamp/loadable/reducer"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	// title, count, blank, status, help
	chromeLines = 5
)

// Model is the bubbletea model for the catalog browser.
type Model struct {
	store   *reducer.Store[State, Action]
	styles  *Styles
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width  int
	height int
	notice string
}

// NewModel wraps store in a browser model.
func NewModel(store *reducer.Store[State, Action], styles *Styles) Model {
	if styles == nil {
		styles = NewStyles()
	}
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(styles.Theme().Primary)

	h := help.New()
	h.Styles.ShortKey = styles.Subtitle
	h.Styles.ShortDesc = styles.Muted

	return Model{
		store:   store,
		styles:  styles,
		keys:    defaultKeyMap(),
		help:    h,
		spinner: s,
		width:   defaultWidth,
		height:  defaultHeight,
	}
}

// Store returns the store driving the model.
func (m Model) Store() *reducer.Store[State, Action] {
	return m.store
}

// Init starts the spinner and loads the count.
func (m Model) Init() tea.Cmd {
	filter := m.store.State().Filter
	return tea.Batch(
		m.spinner.Tick,
		m.store.Dispatch(LoadCount(filter)),
	)
}

// Update handles keys, window size and store messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, m.store.Update(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.store.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Down):
		return m.move(pagination.Bottom)
	case key.Matches(msg, m.keys.Up):
		return m.move(pagination.Top)
	case key.Matches(msg, m.keys.Right):
		return m.move(pagination.Trailing)
	case key.Matches(msg, m.keys.Left):
		return m.move(pagination.Leading)
	case key.Matches(msg, m.keys.Count):
		filter := m.store.State().Filter
		return m, m.store.Dispatch(LoadCount(filter))
	case key.Matches(msg, m.keys.Refresh):
		if m.store.State().Count.IsPending() {
			m.notice = "Nothing to refresh yet"
			return m, nil
		}
		return m, m.store.Dispatch(RefreshCount())
	case key.Matches(msg, m.keys.Cancel):
		return m, m.store.Dispatch(CancelAll{})
	}
	return m, nil
}

// move selects the neighbouring element, loading the next page when the
// selection is at the edge and the list can paginate that way.
func (m Model) move(direction pagination.Direction) (tea.Model, tea.Cmd) {
	s := m.store.State()
	elements := s.List.Elements()
	i := -1
	for j, e := range elements {
		if e.ID == s.List.Selection {
			i = j
			break
		}
	}
	atEdge := i < 0 ||
		(direction.IsNext() && i == len(elements)-1) ||
		(direction.IsPrevious() && i == 0)

	if atEdge {
		if !s.List.CanPaginate(direction) {
			m.notice = "No more items " + edgeName(direction)
			return m, nil
		}
		if s.List.Page.IsActive() {
			return m, nil
		}
	}
	return m, m.store.Dispatch(ListAction{Action: pagination.Select{Direction: direction}})
}

func edgeName(direction pagination.Direction) string {
	if direction.IsPrevious() {
		return "above"
	}
	return "below"
}

// View renders the browser.
func (m Model) View() string {
	s := m.store.State()
	var b strings.Builder

	b.WriteString(m.line(m.styles.Title.Render("Catalog") + m.styles.Muted.Render(" · "+s.Filter.String())))
	b.WriteString(m.line(m.renderCount(s)))
	b.WriteString("\n")

	for _, row := range m.visibleRows(s) {
		b.WriteString(m.line(row))
	}

	b.WriteString(m.line(m.renderStatus(s)))
	b.WriteString(m.help.ShortHelpView(m.keys.help()))
	return b.String()
}

func (m Model) line(s string) string {
	return ansi.Truncate(s, m.width, "…") + "\n"
}

func (m Model) renderCount(s State) string {
	switch {
	case s.Count.IsActive():
		label := "counting"
		if s.Count.IsRefreshing() {
			label = "refreshing"
		}
		if n, ok := s.Count.Value(); ok {
			return m.styles.RenderKeyValue("Count", fmt.Sprintf("%d", n)) + " " + m.spinner.View() + m.styles.Muted.Render(" "+label)
		}
		return m.styles.RenderKeyValue("Count", m.spinner.View()+" "+label)
	case s.Count.Current().Kind() == loadable.Failure:
		return m.styles.RenderKeyValue("Count", m.styles.Error.Render(s.Count.Err().Error()))
	}
	if n, ok := s.Count.Value(); ok {
		return m.styles.RenderKeyValue("Count", fmt.Sprintf("%d", n))
	}
	return m.styles.RenderKeyValue("Count", m.styles.Muted.Render("press c to count"))
}

func (m Model) renderStatus(s State) string {
	if m.notice != "" {
		return m.styles.Warning.Render(m.notice)
	}
	if s.List.Page.IsActive() {
		return m.spinner.View() + " " + m.styles.Muted.Render(s.Status)
	}
	if s.List.Page.Current().Kind() == loadable.Failure {
		return m.styles.Error.Render(s.Status)
	}
	return m.styles.Muted.Render(s.Status)
}

// visibleRows renders a window of elements that keeps the selection in view.
func (m Model) visibleRows(s State) []string {
	elements := s.List.Elements()
	rows := max(m.height-chromeLines, 1)

	selected := 0
	for i, e := range elements {
		if e.ID == s.List.Selection {
			selected = i
			break
		}
	}
	start := max(selected-rows/2, 0)
	end := min(start+rows, len(elements))
	start = max(end-rows, 0)

	out := make([]string, 0, end-start)
	for _, e := range elements[start:end] {
		id := m.styles.Muted.Render(fmt.Sprintf("%4s", e.ID))
		page := m.styles.Muted.Render(fmt.Sprintf("p%d", e.Page))
		if e.ID == s.List.Selection {
			out = append(out, m.styles.Cursor.Render("›")+" "+id+" "+m.styles.Selected.Render(e.Title)+" "+page)
			continue
		}
		out = append(out, "  "+id+" "+m.styles.Body.Render(e.Title)+" "+page)
	}
	return out
}
