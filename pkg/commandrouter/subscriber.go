package commandrouter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/Goden-Gun/command-connector/pkg/flowcontrol"
	"github.com/Goden-Gun/command-connector/pkg/logger"
	"github.com/Goden-Gun/command-connector/pkg/queue"
	"github.com/Goden-Gun/command-connector/pkg/tracing"
	"github.com/Goden-Gun/command-connector/pkg/wire"
)

var subscriberTracer = tracing.Tracer("commandrouter.subscriber")

// subscriber is C5: the subscription registry and resubscriber, and owner
// of the lazily-created, flow-controlled stream handle (C2's creation is
// serialized here).
type subscriber struct {
	cm    ConnectionManager
	cfg   Config
	queue *queue.PriorityQueue

	ctx    context.Context
	cancel context.CancelFunc

	// streamMu serializes stream creation: at most one concurrent creator.
	streamMu sync.Mutex
	stream   atomic.Pointer[flowcontrol.Stream]

	namesMu sync.Mutex
	names   map[string]struct{}

	subscribing atomic.Bool
}

func newSubscriber(cm ConnectionManager, cfg Config, q *queue.PriorityQueue) *subscriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &subscriber{
		cm:     cm,
		cfg:    cfg,
		queue:  q,
		ctx:    ctx,
		cancel: cancel,
		names:  make(map[string]struct{}),
	}
}

// Subscribe adds name to the registry and best-effort sends a SUBSCRIBE
// frame. Failures are tolerated: name stays registered and the next
// reconnect (or an explicit re-entry below) retries it.
func (s *subscriber) Subscribe(name string) error {
	s.subscribing.Store(true)
	defer s.subscribing.Store(false)

	s.namesMu.Lock()
	s.names[name] = struct{}{}
	s.namesMu.Unlock()

	logger.WithSubscription(name).Debug("subscribing to command")
	err := s.sendSubscribe(name)
	if err != nil {
		logger.WithSubscription(name).WithError(err).Debug("subscribe failed, will retry on reconnect")
		// Re-enter resubscribe immediately after a failed subscribe rather
		// than waiting on the next reconnect, so a transient stream-creation
		// race does not silently drop this subscription until the next
		// connect event. The subscribing flag is cleared first, since
		// Resubscribe skips its work while it is set.
		s.subscribing.Store(false)
		s.Resubscribe()
	}
	return nil
}

func (s *subscriber) sendSubscribe(name string) error {
	stream, err := s.getOrCreateStream()
	if err != nil {
		return err
	}
	return stream.Send(&wire.ClientMessage{Subscribe: &wire.Subscribe{
		CommandName:   name,
		ClientID:      s.cfg.ClientID,
		ComponentName: s.cfg.ComponentName,
		MessageID:     uuid.NewString(),
	}})
}

// Unsubscribe removes name from the registry and best-effort sends an
// UNSUBSCRIBE frame, ignoring send failures.
func (s *subscriber) Unsubscribe(name string) error {
	s.namesMu.Lock()
	delete(s.names, name)
	s.namesMu.Unlock()

	stream, err := s.getOrCreateStream()
	if err != nil {
		return nil
	}
	_ = stream.Send(&wire.ClientMessage{Unsubscribe: &wire.Unsubscribe{
		CommandName: name,
		ClientID:    s.cfg.ClientID,
		MessageID:   uuid.NewString(),
	}})
	return nil
}

// Resubscribe is invoked by the connection manager on every successful
// (re)connect. If the registry is empty or a Subscribe call is already in
// flight, it does nothing.
func (s *subscriber) Resubscribe() {
	s.namesMu.Lock()
	if len(s.names) == 0 {
		s.namesMu.Unlock()
		return
	}
	if s.subscribing.Load() {
		s.namesMu.Unlock()
		return
	}
	names := make([]string, 0, len(s.names))
	for n := range s.names {
		names = append(names, n)
	}
	s.namesMu.Unlock()

	stream, err := s.getOrCreateStream()
	if err != nil {
		logger.Warn("error while resubscribing: ", err)
		return
	}
	for _, name := range names {
		if sendErr := stream.Send(&wire.ClientMessage{Subscribe: &wire.Subscribe{
			CommandName:   name,
			ClientID:      s.cfg.ClientID,
			ComponentName: s.cfg.ComponentName,
			MessageID:     uuid.NewString(),
		}}); sendErr != nil {
			logger.WithSubscription(name).WithError(sendErr).Warn("error while resubscribing")
		}
	}
}

// UnsubscribeAll is invoked on disconnect notifications: best-effort
// UNSUBSCRIBE for every registered name, then a half-close on the stream
// (the Go analogue of the original connector's onCompleted()) before the
// stream handle is cleared so the next access re-creates it.
func (s *subscriber) UnsubscribeAll() {
	s.namesMu.Lock()
	names := make([]string, 0, len(s.names))
	for n := range s.names {
		names = append(names, n)
	}
	s.namesMu.Unlock()

	if stream, err := s.getOrCreateStream(); err == nil {
		for _, name := range names {
			_ = stream.Send(&wire.ClientMessage{Unsubscribe: &wire.Unsubscribe{
				CommandName: name,
				ClientID:    s.cfg.ClientID,
				MessageID:   uuid.NewString(),
			}})
		}
		if err := stream.CloseSend(); err != nil {
			logger.WithError(err).Debug("error closing command stream")
		}
	}
	s.stream.Store(nil)
}

// getOrCreateStream returns the current stream handle, creating it if
// necessary. Creation is serialized by streamMu so readers never observe a
// stream without its initial permit grant.
func (s *subscriber) getOrCreateStream() (*flowcontrol.Stream, error) {
	if existing := s.stream.Load(); existing != nil {
		return existing, nil
	}

	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	if existing := s.stream.Load(); existing != nil {
		return existing, nil
	}

	ctx, span := subscriberTracer.Start(s.ctx, "commandrouter.Subscribe.createStream")
	defer span.End()

	observer := &inboundObserver{s: s}
	raw, err := s.cm.CommandStream(ctx, observer)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("commandrouter: open command stream: %w", err)
	}

	logger.Info("creating new command subscriber stream")
	wrapped, err := flowcontrol.New(raw, flowcontrol.Config{
		ClientID:            s.cfg.ClientID,
		InitialPermits:      s.cfg.InitialPermits,
		NewPermits:          s.cfg.NewPermits,
		NewPermitsThreshold: s.cfg.NewPermitsThreshold,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("commandrouter: send initial permits: %w", err)
	}
	s.stream.Store(wrapped)
	return wrapped, nil
}

// disconnect tears down the subscriber's own stream-observing context.
// UnsubscribeAll (always called first by the lifecycle controller) already
// half-closed the stream, so this only needs to stop the context that
// getOrCreateStream's stream creation and the inbound observer run under.
func (s *subscriber) disconnect() {
	s.cancel()
}

// inboundObserver implements InboundObserver, enqueuing received commands
// onto the priority queue and reacting to stream termination per the state
// machine below.
type inboundObserver struct {
	s *subscriber
}

func (o *inboundObserver) OnNext(msg *wire.ServerMessage) {
	if msg == nil || msg.Command == nil {
		return
	}
	logger.WithCommand(msg.Command.CommandName, msg.Command.MessageID).Debug("received command")
	o.s.queue.Add(msg.Command)
}

func (o *inboundObserver) OnError(err error) {
	logger.Warn("received error from server: ", err)
	o.s.stream.Store(nil)
	if isUnavailable(err) {
		// The connection manager drives reconnection in this case.
		return
	}
	o.s.Resubscribe()
}

func (o *inboundObserver) OnCompleted() {
	logger.Debug("received completed from server")
	o.s.stream.Store(nil)
}
