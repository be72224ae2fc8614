// Package localbus declares the in-process command bus collaborator that
// the command router dispatches to and receives subscriptions from. The bus
// itself - running handlers, managing handler state - is an external
// collaborator out of scope for this connector; only the interface it must
// satisfy is specified here, plus a small in-memory reference implementation
// used by this repository's own tests.
package localbus

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"
)

// Message is a command handed to, or received from, the local bus.
type Message struct {
	Identifier  string
	CommandName string
	PayloadType string
	Payload     []byte
	Metadata    *structpb.Struct
}

// Exception classifies a failed result with the wire error-code symbol
// (pkg/codes) it corresponds to, so the connector never has to infer
// COMMAND_DISPATCH_ERROR vs. COMMAND_EXECUTION_ERROR vs.
// CONCURRENCY_EXCEPTION from an error string.
type Exception struct {
	Code string
	Err  error
}

func (e *Exception) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// ResultMessage is the outcome of dispatching a Message, either locally or
// remotely. Exactly one of Payload/Exception is meaningful, selected by
// Exceptional.
type ResultMessage struct {
	PayloadType string
	Payload     []byte
	Exceptional bool
	Exception   *Exception
}

// AsExceptionalResult wraps err, tagged with the wire error-code symbol
// (pkg/codes) it should be reported under, into an exceptional ResultMessage.
func AsExceptionalResult(err error, code string) ResultMessage {
	return ResultMessage{
		Exceptional: true,
		Exception:   &Exception{Code: code, Err: err},
	}
}

// Callback receives the result of exactly one dispatch.
type Callback func(ResultMessage)

// Handler processes a command received from the bus.
type Handler func(ctx context.Context, msg Message, cb Callback)

// HandlerInterceptor wraps a Handler, e.g. for logging or validation.
type HandlerInterceptor func(Handler) Handler

// Registration is a cancellable subscription or interceptor registration.
type Registration interface {
	Cancel() error
}

// Bus is the local in-process command bus. Implementations run handlers;
// this connector only calls through this interface.
type Bus interface {
	Subscribe(commandName string, handler Handler) (Registration, error)
	Dispatch(ctx context.Context, msg Message, cb Callback)
	RegisterHandlerInterceptor(i HandlerInterceptor) Registration
}

type funcRegistration func() error

func (f funcRegistration) Cancel() error { return f() }
