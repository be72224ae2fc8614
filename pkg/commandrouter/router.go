// Package commandrouter implements the command routing connector: a
// subscriber that routes inbound commands from a remote router to a local
// command bus (C3-C5), and a dispatcher that routes local commands to the
// remote router (C6-C7), tied together by Router (C8).
package commandrouter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Goden-Gun/command-connector/pkg/audit"
	"github.com/Goden-Gun/command-connector/pkg/localbus"
	"github.com/Goden-Gun/command-connector/pkg/logger"
	"github.com/Goden-Gun/command-connector/pkg/queue"
)

// Option configures optional Router behavior at construction time.
type Option func(*Router)

// WithAuditRecorder attaches an audit.Recorder that receives one record per
// inbound and outbound dispatch completion.
func WithAuditRecorder(rec *audit.Recorder) Option {
	return func(r *Router) { r.audit = rec }
}

// State is the connector's lifecycle state, mirroring the NONE/OPENING/
// OPEN/CLOSED state machine.
type State int32

const (
	StateNone State = iota
	StateOpening
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateOpening:
		return "OPENING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Router is the facade a host application constructs: it owns the
// subscriber (C5), worker pool (C4), and dispatcher (C6/C7), and drives
// them off the ConnectionManager's reconnect/disconnect notifications, the
// way AxonServerCommandBus composes its CommandRouterSubscriber and
// dispatch path around a single AxonServerConnection.
type Router struct {
	cfg Config
	bus localbus.Bus
	cm  ConnectionManager

	queue      *queue.PriorityQueue
	subscriber *subscriber
	workers    *workerPool
	dispatcher *dispatcher
	audit      *audit.Recorder

	state atomic.Int32

	startOnce sync.Once
}

// New constructs a Router. It does not connect or start workers until
// Start is called.
func New(cm ConnectionManager, bus localbus.Bus, cfg Config, opts ...Option) *Router {
	cfg.ApplyDefaults()
	r := &Router{cfg: cfg, bus: bus, cm: cm}
	for _, opt := range opts {
		opt(r)
	}

	q := queue.New()
	r.queue = q
	r.subscriber = newSubscriber(cm, cfg, q)
	r.dispatcher = newDispatcher(cm, cfg, r.audit)
	r.workers = newWorkerPool(bus, q, r.currentStream, r.audit)
	r.state.Store(int32(StateNone))
	return r
}

func (r *Router) currentStream() (flowControlSender, error) {
	return r.subscriber.getOrCreateStream()
}

// Start transitions the router to OPENING, registers reconnect/disconnect
// listeners with the connection manager, starts the worker pool, and then
// marks the router OPEN. It returns once the worker pool is running;
// subscription and stream
// creation happen asynchronously as Subscribe is called and as
// reconnects occur.
func (r *Router) Start(ctx context.Context) error {
	var startErr error
	r.startOnce.Do(func() {
		r.state.Store(int32(StateOpening))
		r.cm.AddReconnectListener(r.subscriber.Resubscribe)
		r.cm.AddDisconnectListener(r.subscriber.UnsubscribeAll)
		r.workers.Start(r.cfg.CommandThreads)
		r.state.Store(int32(StateOpen))
		logger.Info("command router started")
	})
	return startErr
}

// State reports the current lifecycle state.
func (r *Router) State() State {
	return State(r.state.Load())
}

// Subscribe registers a handler on the local bus for commandName and tells
// the remote router this client can handle it. The returned Registration
// cancels both the local subscription and the remote one.
func (r *Router) Subscribe(commandName string, handler localbus.Handler) (localbus.Registration, error) {
	localReg, err := r.bus.Subscribe(commandName, handler)
	if err != nil {
		return nil, fmt.Errorf("commandrouter: subscribe locally: %w", err)
	}
	if err := r.subscriber.Subscribe(commandName); err != nil {
		_ = localReg.Cancel()
		return nil, fmt.Errorf("commandrouter: subscribe remotely: %w", err)
	}
	return cancelFunc(func() error {
		_ = r.subscriber.Unsubscribe(commandName)
		return localReg.Cancel()
	}), nil
}

// Dispatch routes msg to the remote router, invoking cb exactly once with
// its result.
func (r *Router) Dispatch(ctx context.Context, msg localbus.Message, cb localbus.Callback) {
	r.dispatcher.Dispatch(ctx, msg, cb)
}

// DispatchAndForget routes msg to the remote router without a callback,
// for callers that have no interest in the result, mirroring the original
// connector's no-arg dispatch(CommandMessage) convenience.
func (r *Router) DispatchAndForget(ctx context.Context, msg localbus.Message) {
	r.dispatcher.Dispatch(ctx, msg, func(localbus.ResultMessage) {})
}

// RegisterDispatchInterceptor wraps every subsequent outbound Dispatch call.
func (r *Router) RegisterDispatchInterceptor(i DispatchInterceptor) localbus.Registration {
	return r.dispatcher.RegisterDispatchInterceptor(i)
}

// RegisterHandlerInterceptor wraps every inbound command this router hands
// to the local bus, passing through to the bus's own interceptor chain
// since handler execution is the bus's concern, not this connector's.
func (r *Router) RegisterHandlerInterceptor(i localbus.HandlerInterceptor) localbus.Registration {
	return r.bus.RegisterHandlerInterceptor(i)
}

// Disconnect stops accepting new inbound commands, drains in-flight ones,
// and tears down the subscription stream. It does not close the
// ConnectionManager's underlying channel, which may be shared.
func (r *Router) Disconnect() error {
	r.state.Store(int32(StateClosed))
	r.queue.Close()
	r.workers.Stop()
	r.subscriber.UnsubscribeAll()
	r.subscriber.disconnect()
	logger.Info("command router disconnected")
	return nil
}
