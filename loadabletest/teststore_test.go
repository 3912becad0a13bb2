package loadabletest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basecamp/loadable/reducer"
)

// recorder captures failures instead of failing the surrounding test.
type recorder struct {
	testing.TB
	failures []string
	cleanups []func()
}

type failedNow struct{}

func (r *recorder) Helper() {}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Errorf(format string, args ...any) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func (r *recorder) FailNow() { panic(failedNow{}) }

func (r *recorder) Cleanup(fn func()) { r.cleanups = append(r.cleanups, fn) }

func (r *recorder) runCleanups() {
	for _, fn := range r.cleanups {
		fn()
	}
}

func (r *recorder) failed(substr string) bool {
	for _, f := range r.failures {
		if strings.Contains(f, substr) {
			return true
		}
	}
	return false
}

func expectFailNow(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if p := recover(); p != nil {
			_, ok := p.(failedNow)
			require.True(t, ok, "unexpected panic: %v", p)
		}
	}()
	fn()
	t.Fatal("expected FailNow")
}

type op struct {
	name  string
	value int
}

func (o op) String() string { return fmt.Sprintf("%s(%d)", o.name, o.value) }

// counter adds on "add", echoes "add" with "added" when asked to report,
// and fetches asynchronously on "fetch".
var counter = reducer.ReduceFunc[int, op](func(n *int, a op) reducer.Effect[op] {
	switch a.name {
	case "add":
		*n += a.value
	case "report":
		return reducer.Send(op{name: "added", value: *n})
	case "fetch":
		return reducer.Run(func(ctx context.Context, send reducer.SendFunc[op]) error {
			send(op{name: "add", value: a.value})
			return nil
		}, nil)
	}
	return reducer.None[op]()
})

func TestSendAndReceive(t *testing.T) {
	store := New(t, 0, counter)

	store.Send(op{name: "add", value: 2}, func(n *int) { *n = 2 })
	store.Send(op{name: "report"}, nil)
	store.Receive(op{name: "added", value: 2}, nil)
	store.Send(op{name: "fetch", value: 3}, nil)
	store.Receive(op{name: "add", value: 3}, func(n *int) { *n = 5 })

	assert.Equal(t, 5, store.State())
}

func TestSendFailsOnStateMismatch(t *testing.T) {
	rec := &recorder{}
	store := New(rec, 0, counter)

	expectFailNow(t, func() {
		store.Send(op{name: "add", value: 1}, func(n *int) { *n = 2 })
	})
	assert.True(t, rec.failed("State mismatch"))
	rec.runCleanups()
}

func TestReceiveFailsOnUnexpectedAction(t *testing.T) {
	rec := &recorder{}
	store := New(rec, 0, counter)

	store.Send(op{name: "report"}, nil)
	expectFailNow(t, func() {
		store.Receive(op{name: "added", value: 9}, nil)
	})
	assert.True(t, rec.failed("Received unexpected action"))
	rec.runCleanups()
}

func TestSendFailsWithPendingActions(t *testing.T) {
	rec := &recorder{}
	store := New(rec, 0, counter)

	store.Send(op{name: "report"}, nil)
	expectFailNow(t, func() {
		store.Send(op{name: "add", value: 1}, func(n *int) { *n = 1 })
	})
	assert.True(t, rec.failed("Unreceived actions"))
	store.SkipReceived()
	rec.runCleanups()
}

func TestFinishReportsUnreceivedActions(t *testing.T) {
	rec := &recorder{}
	store := New(rec, 0, counter)

	store.Send(op{name: "fetch", value: 1}, nil)
	store.Finish()
	assert.True(t, rec.failed("never received"))
	assert.True(t, rec.failed("add(1)"))
	rec.runCleanups()
}

func TestNonExhaustiveFinish(t *testing.T) {
	rec := &recorder{}
	store := New(rec, 0, counter, NonExhaustive())

	store.Send(op{name: "fetch", value: 1}, nil)
	store.Finish()
	assert.Empty(t, rec.failures)
	rec.runCleanups()
}
