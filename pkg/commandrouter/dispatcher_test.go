package commandrouter

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"

	"github.com/Goden-Gun/command-connector/pkg/codes"
	"github.com/Goden-Gun/command-connector/pkg/localbus"
	"github.com/Goden-Gun/command-connector/pkg/routing"
	"github.com/Goden-Gun/command-connector/pkg/wire"
)

// fakeChannel is a grpc.ClientConnInterface test double that answers unary
// Invoke calls from a scripted function, without any real network I/O.
type fakeChannel struct {
	invoke func(ctx context.Context, method string, args, reply interface{}) error
}

func (f *fakeChannel) Invoke(ctx context.Context, method string, args, reply interface{}, opts ...grpc.CallOption) error {
	return f.invoke(ctx, method, args, reply)
}

func (f *fakeChannel) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("not implemented")
}

type fakeConnManager struct {
	channel grpc.ClientConnInterface
}

func (f *fakeConnManager) Channel() grpc.ClientConnInterface { return f.channel }
func (f *fakeConnManager) CommandStream(ctx context.Context, inbound InboundObserver) (wire.StreamClient, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeConnManager) AddReconnectListener(cb func())  {}
func (f *fakeConnManager) AddDisconnectListener(cb func()) {}

func testConfig() Config {
	cfg := Config{ClientID: "client-1", ComponentName: "comp-1"}
	cfg.ApplyDefaults()
	cfg.RoutingKey = routing.ByCommandName
	cfg.Priority = routing.DefaultPriority
	return cfg
}

func TestDispatchInvokesCallbackExactlyOnceOnSuccess(t *testing.T) {
	cm := &fakeConnManager{channel: &fakeChannel{
		invoke: func(ctx context.Context, method string, args, reply interface{}) error {
			resp := reply.(*wire.CommandResponse)
			resp.PayloadType = "text/plain"
			resp.Payload = []byte("ok")
			return nil
		},
	}}
	d := newDispatcher(cm, testConfig(), nil)

	calls := 0
	d.Dispatch(context.Background(), localbus.Message{CommandName: "DoThing"}, func(r localbus.ResultMessage) {
		calls++
		if r.Exceptional {
			t.Fatalf("unexpected exceptional result: %+v", r)
		}
	})
	if calls != 1 {
		t.Fatalf("expected exactly 1 callback invocation, got %d", calls)
	}
}

func TestDispatchInvokesCallbackExactlyOnceOnRPCError(t *testing.T) {
	cm := &fakeConnManager{channel: &fakeChannel{
		invoke: func(ctx context.Context, method string, args, reply interface{}) error {
			return errors.New("unavailable")
		},
	}}
	d := newDispatcher(cm, testConfig(), nil)

	calls := 0
	d.Dispatch(context.Background(), localbus.Message{CommandName: "DoThing"}, func(r localbus.ResultMessage) {
		calls++
		if !r.Exceptional {
			t.Fatalf("expected exceptional result on RPC error")
		}
		if r.Exception.Code != codes.CommandDispatchError.Symbol {
			t.Fatalf("an RPC-level failure must carry COMMAND_DISPATCH_ERROR, got %s", r.Exception.Code)
		}
	})
	if calls != 1 {
		t.Fatalf("expected exactly 1 callback invocation, got %d", calls)
	}
}

func TestDispatchInterceptorChainRunsInRegistrationOrder(t *testing.T) {
	cm := &fakeConnManager{channel: &fakeChannel{
		invoke: func(ctx context.Context, method string, args, reply interface{}) error {
			return nil
		},
	}}
	d := newDispatcher(cm, testConfig(), nil)

	var order []string
	d.RegisterDispatchInterceptor(func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, msg localbus.Message, cb localbus.Callback) {
			order = append(order, "first")
			next(ctx, msg, cb)
		}
	})
	d.RegisterDispatchInterceptor(func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, msg localbus.Message, cb localbus.Callback) {
			order = append(order, "second")
			next(ctx, msg, cb)
		}
	})

	d.Dispatch(context.Background(), localbus.Message{CommandName: "DoThing"}, func(localbus.ResultMessage) {
		order = append(order, "dispatched")
	})

	want := []string{"first", "second", "dispatched"}
	if len(order) != len(want) {
		t.Fatalf("unexpected order: %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected order: %v", order)
		}
	}
}

func TestCancelledDispatchInterceptorIsNotApplied(t *testing.T) {
	cm := &fakeConnManager{channel: &fakeChannel{
		invoke: func(ctx context.Context, method string, args, reply interface{}) error {
			return nil
		},
	}}
	d := newDispatcher(cm, testConfig(), nil)

	ran := false
	reg := d.RegisterDispatchInterceptor(func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, msg localbus.Message, cb localbus.Callback) {
			ran = true
			next(ctx, msg, cb)
		}
	})
	_ = reg.Cancel()

	d.Dispatch(context.Background(), localbus.Message{CommandName: "DoThing"}, func(localbus.ResultMessage) {})
	if ran {
		t.Fatalf("cancelled interceptor must not run")
	}
}
