// Package output provides JSON/styled output formatting and error handling.
package output

// Exit codes.
const (
	ExitOK        = 0 // Success
	ExitUsage     = 1 // Invalid arguments or flags
	ExitNotFound  = 2 // Element or page not found
	ExitConfig    = 3 // Configuration could not be loaded
	ExitLoad      = 4 // A load finished with a failure
	ExitCancelled = 5 // Interrupted or cancelled
	ExitJQ        = 6 // --jq expression failed
	ExitInternal  = 7 // Unexpected error
)

// Error codes for JSON envelope.
const (
	CodeUsage     = "usage"
	CodeNotFound  = "not_found"
	CodeConfig    = "config"
	CodeLoad      = "load_failed"
	CodeCancelled = "cancelled"
	CodeJQ        = "jq"
	CodeInternal  = "internal"
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage:
		return ExitUsage
	case CodeNotFound:
		return ExitNotFound
	case CodeConfig:
		return ExitConfig
	case CodeLoad:
		return ExitLoad
	case CodeCancelled:
		return ExitCancelled
	case CodeJQ:
		return ExitJQ
	default:
		return ExitInternal
	}
}
