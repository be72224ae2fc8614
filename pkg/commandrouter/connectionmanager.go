package commandrouter

import (
	"context"

	"google.golang.org/grpc"

	"github.com/Goden-Gun/command-connector/pkg/wire"
)

// ConnectionManager is the external collaborator that dials, multiplexes,
// and notifies of connect/disconnect. The subscriber and
// dispatcher only ever call through this interface; dialing, TLS, and
// reconnect backoff belong to the implementation (see dialer.go for a
// gRPC-backed reference one).
type ConnectionManager interface {
	// Channel returns the shared gRPC channel used for unary dispatch RPCs.
	Channel() grpc.ClientConnInterface
	// CommandStream opens (or re-opens) the bidirectional subscription
	// stream, installing inbound as the receiver of server-pushed messages,
	// and returns the send side.
	CommandStream(ctx context.Context, inbound InboundObserver) (wire.StreamClient, error)
	// AddReconnectListener registers cb to run after every successful
	// (re)connect.
	AddReconnectListener(cb func())
	// AddDisconnectListener registers cb to run on every disconnect
	// notification.
	AddDisconnectListener(cb func())
}

// InboundObserver receives events from the subscription stream's receive
// loop. Exactly one of OnError/OnCompleted is called to terminate it.
type InboundObserver interface {
	OnNext(*wire.ServerMessage)
	OnError(error)
	OnCompleted()
}
