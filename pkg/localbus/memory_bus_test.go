package localbus

import (
	"context"
	"testing"
)

func TestMemoryBusDispatchesToSubscribedHandler(t *testing.T) {
	bus := NewMemoryBus()
	_, err := bus.Subscribe("Greet", func(ctx context.Context, msg Message, cb Callback) {
		cb(ResultMessage{Payload: []byte("hello " + string(msg.Payload))})
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var got ResultMessage
	bus.Dispatch(context.Background(), Message{CommandName: "Greet", Payload: []byte("world")}, func(r ResultMessage) {
		got = r
	})
	if string(got.Payload) != "hello world" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestMemoryBusDispatchWithNoHandlerIsExceptional(t *testing.T) {
	bus := NewMemoryBus()
	var got ResultMessage
	bus.Dispatch(context.Background(), Message{CommandName: "Missing"}, func(r ResultMessage) {
		got = r
	})
	if !got.Exceptional {
		t.Fatalf("expected exceptional result for unregistered command")
	}
}

func TestMemoryBusAppliesInterceptorsInRegistrationOrder(t *testing.T) {
	bus := NewMemoryBus()
	var order []string
	_, _ = bus.Subscribe("Cmd", func(ctx context.Context, msg Message, cb Callback) {
		order = append(order, "handler")
		cb(ResultMessage{})
	})
	bus.RegisterHandlerInterceptor(func(next Handler) Handler {
		return func(ctx context.Context, msg Message, cb Callback) {
			order = append(order, "first")
			next(ctx, msg, cb)
		}
	})
	bus.RegisterHandlerInterceptor(func(next Handler) Handler {
		return func(ctx context.Context, msg Message, cb Callback) {
			order = append(order, "second")
			next(ctx, msg, cb)
		}
	})

	bus.Dispatch(context.Background(), Message{CommandName: "Cmd"}, func(ResultMessage) {})

	want := []string{"first", "second", "handler"}
	if len(order) != len(want) {
		t.Fatalf("unexpected call order: %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected call order: %v", order)
		}
	}
}

func TestUnsubscribeRemovesHandler(t *testing.T) {
	bus := NewMemoryBus()
	reg, _ := bus.Subscribe("Cmd", func(ctx context.Context, msg Message, cb Callback) {
		cb(ResultMessage{})
	})
	if err := reg.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	var got ResultMessage
	bus.Dispatch(context.Background(), Message{CommandName: "Cmd"}, func(r ResultMessage) { got = r })
	if !got.Exceptional {
		t.Fatalf("expected exceptional result after unsubscribe")
	}
}
