// Package catalog is an in-memory paged data source with simulated
// latency and failures. It feeds the demo CLI and TUI.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/basecamp/loadable/internal/observability"
	"github.com/basecamp/loadable/internal/resilience"
	"github.com/basecamp/loadable/pagination"
)

// ErrUnavailable is returned when a fetch is chosen to fail.
var ErrUnavailable = errors.New("catalog: temporarily unavailable")

// ErrBadCursor is returned for cursors the catalog did not issue.
var ErrBadCursor = errors.New("catalog: bad cursor")

// ErrCircuitOpen is returned without fetching while the breaker is open.
var ErrCircuitOpen = errors.New("catalog: too many failures, try again shortly")

var words = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf",
	"hotel", "india", "juliet", "kilo", "lima", "mike", "november",
}

// Item is a single catalog entry.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Page  int    `json:"page"`
}

// Identity implements pagination.Identifiable.
func (i Item) Identity() string { return i.ID }

// Filter narrows the catalog to titles containing Query.
// It is used both as a pagination context and as a count request.
type Filter struct {
	Query string
}

// Equal implements pagination.Context.
func (f Filter) Equal(other pagination.Context) bool {
	o, ok := other.(Filter)
	return ok && o == f
}

func (f Filter) String() string {
	if f.Query == "" {
		return "all"
	}
	return strconv.Quote(f.Query)
}

func (f Filter) matches(title string) bool {
	return f.Query == "" || strings.Contains(title, strings.ToLower(f.Query))
}

// FetchObserver is notified after every fetch.
type FetchObserver interface {
	OnFetch(observability.FetchMetrics)
}

// Options configures a Source.
type Options struct {
	Total    int
	PageSize int
	Latency  time.Duration
	FailRate float64
	Seed     uint64
	Observer FetchObserver

	// Breaker, when set, fails fetches fast after repeated failures.
	Breaker *resilience.CircuitBreaker
}

// Source serves pages of generated items.
type Source struct {
	opts  Options
	items []Item

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Source with opts.Total generated items.
func New(opts Options) *Source {
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	items := make([]Item, opts.Total)
	for i := range items {
		items[i] = Item{
			ID:    strconv.Itoa(i + 1),
			Title: fmt.Sprintf("%s %d", words[i%len(words)], i+1),
		}
	}
	return &Source{
		opts:  opts,
		items: items,
		rng:   rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}
}

// PageSize returns the number of items per page.
func (s *Source) PageSize() int { return s.opts.PageSize }

// Cursor returns the cursor addressing page index n.
func Cursor(n int) pagination.Cursor {
	return pagination.Cursor("page:" + strconv.Itoa(n))
}

func parseCursor(c pagination.Cursor) (int, error) {
	if c == "" {
		return 0, nil
	}
	rest, ok := strings.CutPrefix(string(c), "page:")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadCursor, c)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadCursor, c)
	}
	return n, nil
}

func filterOf(ctx pagination.Context) (Filter, error) {
	switch c := ctx.(type) {
	case nil, pagination.NoContext:
		return Filter{}, nil
	case Filter:
		return c, nil
	default:
		return Filter{}, &pagination.UnexpectedContextError{Context: ctx}
	}
}

// LoadPage fetches the page a request's cursor points at.
// It satisfies pagination.LoadPageFunc.
func (s *Source) LoadPage(ctx context.Context, req pagination.PageRequest) (pagination.Page[Item], error) {
	filter, err := filterOf(req.Context)
	if err != nil {
		return pagination.Page[Item]{}, err
	}
	return s.Fetch(ctx, filter, req.Cursor)
}

// First fetches the first page for filter.
func (s *Source) First(ctx context.Context, filter Filter) (pagination.Page[Item], error) {
	return s.Fetch(ctx, filter, "")
}

// Fetch returns the page at cursor within the items matching filter.
func (s *Source) Fetch(ctx context.Context, filter Filter, cursor pagination.Cursor) (page pagination.Page[Item], err error) {
	start := time.Now()
	defer func() {
		if s.opts.Observer != nil {
			s.opts.Observer.OnFetch(observability.FetchMetrics{
				Cursor:   string(cursor),
				Count:    len(page.Elements),
				Duration: time.Since(start),
				Error:    err,
			})
		}
	}()

	n, err := parseCursor(cursor)
	if err != nil {
		return pagination.Page[Item]{}, err
	}
	if err := s.wait(ctx); err != nil {
		return pagination.Page[Item]{}, err
	}

	matching := s.matching(filter)
	size := s.opts.PageSize
	lo := n * size
	if lo > len(matching) || (lo == len(matching) && n > 0) {
		return pagination.Page[Item]{}, fmt.Errorf("%w: %q past end", ErrBadCursor, cursor)
	}
	hi := min(lo+size, len(matching))

	elements := make([]Item, 0, hi-lo)
	for _, item := range matching[lo:hi] {
		item.Page = n + 1
		elements = append(elements, item)
	}

	page = pagination.Page[Item]{Elements: elements}
	if n > 0 {
		page.Previous = Cursor(n - 1)
	}
	if hi < len(matching) {
		page.Next = Cursor(n + 1)
	}
	return page, nil
}

// Count returns the number of items matching filter.
func (s *Source) Count(ctx context.Context, filter Filter) (int, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	return len(s.matching(filter)), nil
}

func (s *Source) matching(filter Filter) []Item {
	if filter.Query == "" {
		return s.items
	}
	var out []Item
	for _, item := range s.items {
		if filter.matches(item.Title) {
			out = append(out, item)
		}
	}
	return out
}

// wait gates a fetch through the breaker, if any, and reports the outcome
// back to it. Cancellations are not held against the source.
func (s *Source) wait(ctx context.Context) error {
	b := s.opts.Breaker
	if b == nil {
		return s.simulate(ctx)
	}
	if !b.Allow() {
		return ErrCircuitOpen
	}
	err := s.simulate(ctx)
	switch {
	case err == nil:
		b.RecordSuccess()
	case errors.Is(err, ErrUnavailable):
		b.RecordFailure()
	default:
		b.Release()
	}
	return err
}

// simulate sleeps for the configured latency and then rolls for a failure.
func (s *Source) simulate(ctx context.Context) error {
	if s.opts.Latency > 0 {
		timer := time.NewTimer(s.opts.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if s.opts.FailRate <= 0 {
		return nil
	}
	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()
	if roll < s.opts.FailRate {
		return ErrUnavailable
	}
	return nil
}
