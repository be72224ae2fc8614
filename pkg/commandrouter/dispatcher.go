package commandrouter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.opentelemetry.io/otel/codes"

	"github.com/Goden-Gun/command-connector/pkg/audit"
	wirecodes "github.com/Goden-Gun/command-connector/pkg/codes"
	"github.com/Goden-Gun/command-connector/pkg/localbus"
	"github.com/Goden-Gun/command-connector/pkg/logger"
	"github.com/Goden-Gun/command-connector/pkg/tracing"
	"github.com/Goden-Gun/command-connector/pkg/wire"
)

var dispatchTracer = tracing.Tracer("commandrouter.dispatcher")

// DispatchInterceptor wraps an outbound dispatch, e.g. for logging or
// adding metadata. It is invoked around the whole dispatch, including
// encode and the RPC itself.
type DispatchInterceptor func(next DispatchFunc) DispatchFunc

// DispatchFunc performs one outbound dispatch.
type DispatchFunc func(ctx context.Context, msg localbus.Message, cb localbus.Callback)

// dispatcher is C6: the outbound half of the connector. It encodes a local
// Message, issues the unary RPC, and guarantees the caller's callback is
// invoked exactly once.
type dispatcher struct {
	cm    ConnectionManager
	cfg   Config
	audit *audit.Recorder

	mu           sync.Mutex
	interceptors []DispatchInterceptor
}

func newDispatcher(cm ConnectionManager, cfg Config, rec *audit.Recorder) *dispatcher {
	return &dispatcher{cm: cm, cfg: cfg, audit: rec}
}

// RegisterDispatchInterceptor appends i to the interceptor chain, applied
// in registration order around every subsequent Dispatch call. Returns a
// Registration that removes i on Cancel.
func (d *dispatcher) RegisterDispatchInterceptor(i DispatchInterceptor) localbus.Registration {
	d.mu.Lock()
	d.interceptors = append(d.interceptors, i)
	idx := len(d.interceptors) - 1
	d.mu.Unlock()

	return cancelFunc(func() error {
		d.mu.Lock()
		defer d.mu.Unlock()
		if idx < len(d.interceptors) {
			d.interceptors[idx] = noopInterceptor
		}
		return nil
	})
}

func noopInterceptor(next DispatchFunc) DispatchFunc { return next }

// cancelFunc adapts a plain func into a localbus.Registration.
type cancelFunc func() error

func (f cancelFunc) Cancel() error { return f() }

// Dispatch sends msg to the router and guarantees cb is invoked exactly
// once: on the RPC's response, on a transport-level error, or - if the RPC
// returns with no usable response at all - synthesizing a dispatch error,
// mirroring doDispatch's serverResponded latch in the original connector.
func (d *dispatcher) Dispatch(ctx context.Context, msg localbus.Message, cb localbus.Callback) {
	chain := d.chain()
	fn := func(ctx context.Context, msg localbus.Message, cb localbus.Callback) {
		d.dispatchOnce(ctx, msg, cb)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		fn = chain[i](fn)
	}
	fn(ctx, msg, cb)
}

func (d *dispatcher) chain() []DispatchInterceptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DispatchInterceptor, len(d.interceptors))
	copy(out, d.interceptors)
	return out
}

func (d *dispatcher) dispatchOnce(ctx context.Context, msg localbus.Message, cb localbus.Callback) {
	ctx, span := dispatchTracer.Start(ctx, "commandrouter.Dispatch")
	defer span.End()
	span.SetAttributes(tracing.CommandAttributes(msg.CommandName, "")...)

	start := time.Now()
	var responded sync.Once
	safeCB := func(result localbus.ResultMessage) {
		responded.Do(func() {
			if result.Exceptional {
				span.SetStatus(codes.Error, "command dispatch failed")
			}
			d.audit.RecordOutbound(ctx, msg, d.cfg.ClientID, d.cfg.ComponentName, result, time.Since(start))
			cb(result)
		})
	}

	if msg.Identifier == "" {
		msg.Identifier = uuid.NewString()
	}
	span.SetAttributes(tracing.CommandAttributes("", msg.Identifier)...)
	logger.WithCommand(msg.CommandName, msg.Identifier).Debug("dispatching command")
	routingKey := d.cfg.RoutingKey(msg)
	priority := d.cfg.Priority(msg)

	cmd, err := wire.EncodeCommand(msg, routingKey, priority)
	if err != nil {
		logger.WithCommand(msg.CommandName, msg.Identifier).WithError(err).Warn("failed to encode outbound command")
		safeCB(localbus.AsExceptionalResult(err, wirecodes.CommandDispatchError.Symbol))
		return
	}
	cmd.ClientID = d.cfg.ClientID
	cmd.ComponentName = d.cfg.ComponentName

	resp, err := wire.Dispatch(ctx, d.cm.Channel(), cmd)
	if err != nil {
		logger.WithCommand(msg.CommandName, msg.Identifier).WithError(err).Warn("command dispatch RPC failed")
		safeCB(localbus.AsExceptionalResult(err, wirecodes.CommandDispatchError.Symbol))
		return
	}
	if resp == nil {
		// No result from command executor: the RPC returned without error
		// but without a usable response either.
		safeCB(wire.DecodeResult(nil))
		return
	}
	safeCB(wire.DecodeResult(resp))
}
