package tui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrInterrupted is returned when the user quits a spinner before its work finishes.
var ErrInterrupted = fmt.Errorf("interrupted")

// spinnerModel is the bubbletea model for a spinner.
type spinnerModel struct {
	spinner  spinner.Model
	message  string
	done     bool
	err      error
	styles   *Styles
	quitting bool
}

func newSpinnerModel(message string, styles *Styles) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Theme().Primary)

	return spinnerModel{
		spinner: s,
		message: message,
		styles:  styles,
	}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

type spinnerDoneMsg struct {
	err error
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case spinnerDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.quitting || m.done {
		if m.err != nil {
			return m.styles.RenderStatus(false, m.err.Error()) + "\n"
		}
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.message)
}

// Spinner shows a spinner on a terminal while a function runs.
type Spinner struct {
	message string
	out     io.Writer
	in      io.Reader
	styles  *Styles
}

// NewSpinner creates a spinner writing to stderr.
func NewSpinner(message string) *Spinner {
	return &Spinner{message: message, out: os.Stderr, in: os.Stdin, styles: NewStyles()}
}

// Run executes fn while displaying the spinner. Quitting the spinner
// cancels the context passed to fn and returns ErrInterrupted.
func (s *Spinner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSpinnerModel(s.message, s.styles),
		tea.WithContext(ctx), tea.WithOutput(s.out), tea.WithInput(s.in))

	result := make(chan error, 1)
	go func() {
		err := fn(ctx)
		result <- err
		p.Send(spinnerDoneMsg{err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		cancel()
		<-result
		return err
	}

	final := finalModel.(spinnerModel) //nolint:errcheck // type assertion always succeeds here
	if final.quitting {
		cancel()
		<-result
		return ErrInterrupted
	}
	return <-result
}

// Load runs fn under a spinner and returns its value.
func Load[T any](ctx context.Context, s *Spinner, fn func(ctx context.Context) (T, error)) (T, error) {
	var value T
	err := s.Run(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		value = v
		return err
	})
	return value, err
}
