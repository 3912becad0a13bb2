package loadable

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// AssertionHandler receives usage errors: calls a correct program never
// makes, such as setting a value on a pending slot or inserting a page
// with no matching neighbour.
type AssertionHandler func(message string)

var (
	assertMu      sync.RWMutex
	assertHandler AssertionHandler = logAssertion
)

func logAssertion(message string) {
	log.Error().Str("component", "loadable").Msg(message)
}

// Strict panics on every usage error. Install it in development builds.
func Strict(message string) {
	panic("assertion failure: " + message)
}

// SetAssertionHandler replaces the process-wide assertion handler and
// returns a function restoring the previous one. A nil handler restores
// the default, which logs at error level.
func SetAssertionHandler(h AssertionHandler) (restore func()) {
	if h == nil {
		h = logAssertion
	}
	assertMu.Lock()
	prev := assertHandler
	assertHandler = h
	assertMu.Unlock()
	return func() {
		assertMu.Lock()
		assertHandler = prev
		assertMu.Unlock()
	}
}

// AssertionFailure reports a usage error to the installed handler.
func AssertionFailure(format string, args ...any) {
	assertMu.RLock()
	h := assertHandler
	assertMu.RUnlock()
	h(fmt.Sprintf(format, args...))
}
