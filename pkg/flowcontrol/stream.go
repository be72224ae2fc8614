// Package flowcontrol implements the credit-based flow control the command
// router applies to its inbound subscription stream: an initial permit
// grant on stream creation, and a further grant every time a configurable
// number of counted messages (here, command responses) has been sent.
package flowcontrol

import (
	"sync"

	"github.com/Goden-Gun/command-connector/pkg/wire"
)

// Sender is the minimal send-side of a wire.StreamClient this package wraps.
type Sender interface {
	Send(*wire.ClientMessage) error
	CloseSend() error
}

// Config controls the credit protocol.
type Config struct {
	ClientID string
	// InitialPermits is granted once, at stream creation.
	InitialPermits int64
	// NewPermitsThreshold is how many counted sends trigger a further grant.
	NewPermitsThreshold int64
	// NewPermits is the size of each further grant.
	NewPermits int64
}

// Stream serializes all sends on inner behind a single mutex and injects
// flow_control messages per Config. It is safe for concurrent use by many
// callers: a gRPC client stream does not allow concurrent Send calls, so
// every Send from the worker pool and the subscriber goes through this
// single mutex.
type Stream struct {
	inner Sender
	cfg   Config

	mu      sync.Mutex
	counted int64
}

// New wraps inner and sends the initial permit grant before returning, so no
// caller can observe a stream without credit. This mirrors
// FlowControllingStreamObserver.sendInitialPermits() in the original.
func New(inner Sender, cfg Config) (*Stream, error) {
	s := &Stream{inner: inner, cfg: cfg}
	if err := s.sendRaw(&wire.ClientMessage{
		FlowControl: &wire.FlowControl{ClientID: cfg.ClientID, Permits: cfg.InitialPermits},
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Send forwards msg on the wrapped stream. If msg is a counted kind (a
// command_response, the only inbound-acknowledgement kind this connector
// produces) the internal counter is incremented and, upon reaching
// NewPermitsThreshold, a flow_control grant of size NewPermits is sent and
// the counter resets.
func (s *Stream) Send(msg *wire.ClientMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.inner.Send(msg); err != nil {
		return err
	}
	if !isCounted(msg) {
		return nil
	}
	s.counted++
	if s.cfg.NewPermitsThreshold > 0 && s.counted >= s.cfg.NewPermitsThreshold {
		s.counted = 0
		return s.inner.Send(&wire.ClientMessage{
			FlowControl: &wire.FlowControl{ClientID: s.cfg.ClientID, Permits: s.cfg.NewPermits},
		})
	}
	return nil
}

func (s *Stream) sendRaw(msg *wire.ClientMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Send(msg)
}

// CloseSend half-closes the wrapped stream: no further Sends are valid on
// this handle, but the server may still finish delivering responses on it.
func (s *Stream) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.CloseSend()
}

func isCounted(msg *wire.ClientMessage) bool {
	return msg != nil && msg.CommandResponse != nil
}
