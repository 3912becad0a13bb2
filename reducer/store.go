package reducer

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// ActionMsg carries actions produced by a Store's effect back through the
// bubbletea program. Models forward it to Store.Update.
type ActionMsg[A any] struct {
	store    ID
	delivery Delivery[A]
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger zerolog.Logger
}

// WithLogger sets the logger used for action tracing and effect panics.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// Store owns a feature's state and drives its reducer. Actions are
// reduced one at a time; effect operations run as tea.Cmds and their
// actions come back as ActionMsg.
type Store[S, A any] struct {
	mu      sync.Mutex
	id      ID
	state   S
	reducer Reducer[S, A]
	exec    *Executor[A]
	logger  zerolog.Logger
}

// NewStore creates a store. Effects started by the store are cancelled
// when ctx is cancelled or Close is called.
func NewStore[S, A any](ctx context.Context, initial S, r Reducer[S, A], opts ...StoreOption) *Store[S, A] { //nolint:revive // context-as-argument: ctx scopes the store's effects
	o := storeOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[S, A]{
		id:      NewID(),
		state:   initial,
		reducer: r,
		exec:    NewExecutor[A](ctx, o.logger),
		logger:  o.logger,
	}
}

// State returns a copy of the current state.
func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces action, then every action its effects send
// immediately, in order. Operations are returned as a batched tea.Cmd,
// or nil when there are none.
func (s *Store[S, A]) Dispatch(action A) tea.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatch(action)
}

func (s *Store[S, A]) dispatch(action A) tea.Cmd {
	var cmds []tea.Cmd
	queue := []A{action}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		s.logger.Debug().Type("action", next).Msg("Reducing action")
		effect := s.reducer.Reduce(&s.state, next)

		immediate, jobs := s.exec.Apply(effect)
		queue = append(queue, immediate...)
		for _, job := range jobs {
			cmds = append(cmds, s.command(job))
		}
	}
	return tea.Batch(cmds...)
}

func (s *Store[S, A]) command(job Job[A]) tea.Cmd {
	return func() tea.Msg {
		d := job.Run()
		if len(d.Actions) == 0 {
			return nil
		}
		return ActionMsg[A]{store: s.id, delivery: d}
	}
}

// Update handles an ActionMsg addressed to this store and ignores every
// other message. Actions from cancelled operations are dropped.
func (s *Store[S, A]) Update(msg tea.Msg) tea.Cmd {
	m, ok := msg.(ActionMsg[A])
	if !ok || m.store != s.id {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exec.Accept(m.delivery) {
		s.logger.Debug().Int("actions", len(m.delivery.Actions)).Msg("Dropping actions from cancelled effect")
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(m.delivery.Actions))
	for _, a := range m.delivery.Actions {
		cmds = append(cmds, s.dispatch(a))
	}
	return tea.Batch(cmds...)
}

// InFlight returns the number of running effect operations.
func (s *Store[S, A]) InFlight() int {
	return s.exec.InFlight()
}

// Close cancels all running effects.
func (s *Store[S, A]) Close() {
	s.exec.Close()
}

// Settle runs cmd outside a bubbletea program, feeding the messages it
// produces back into the store until no work remains or ctx is done.
// Messages not addressed to the store are discarded.
func (s *Store[S, A]) Settle(ctx context.Context, cmd tea.Cmd) error {
	msgs := make(chan tea.Msg)
	done := make(chan struct{})
	defer close(done)

	pending := 0
	start := func(c tea.Cmd) {
		if c == nil {
			return
		}
		pending++
		go func() {
			select {
			case msgs <- c():
			case <-done:
			}
		}()
	}

	start(cmd)
	for pending > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			pending--
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, c := range batch {
					start(c)
				}
				continue
			}
			start(s.Update(msg))
		}
	}
	return nil
}
