// Package codes defines the stable wire error-code taxonomy shared between
// the command router connector and whatever routes commands to it.
package codes

// ErrorCode represents a structured transport error shared across services.
type ErrorCode struct {
	Numeric int32
	Symbol  string
	Message string
}

var (
	// CommandDispatchError indicates a failure attributable to the transport
	// or the client plumbing around a dispatch, rather than the handler
	// itself: a failed stub construction, a stream error, a decode failure,
	// or a stream that completed without ever producing a result.
	CommandDispatchError = ErrorCode{Numeric: 50010, Symbol: "COMMAND_DISPATCH_ERROR", Message: "command dispatch failed"}
	// CommandExecutionError indicates the local handler ran and failed with
	// a non-concurrency exception.
	CommandExecutionError = ErrorCode{Numeric: 50011, Symbol: "COMMAND_EXECUTION_ERROR", Message: "command execution failed"}
	// ConcurrencyException indicates the local handler failed with an
	// optimistic-concurrency style conflict.
	ConcurrencyException = ErrorCode{Numeric: 50012, Symbol: "CONCURRENCY_EXCEPTION", Message: "concurrency conflict"}
)

// Registry exposes a static list for validation or docs.
var Registry = []ErrorCode{
	CommandDispatchError,
	CommandExecutionError,
	ConcurrencyException,
}

// Lookup resolves a symbol back to its ErrorCode. The second return value is
// false if the symbol is not one of this taxonomy's three codes.
func Lookup(symbol string) (ErrorCode, bool) {
	for _, c := range Registry {
		if c.Symbol == symbol {
			return c, true
		}
	}
	return ErrorCode{}, false
}
