package flowcontrol

import (
	"testing"

	"github.com/Goden-Gun/command-connector/pkg/wire"
)

type fakeSender struct {
	sent   []*wire.ClientMessage
	closed bool
}

func (f *fakeSender) Send(m *wire.ClientMessage) error {
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeSender) CloseSend() error {
	f.closed = true
	return nil
}

func TestNewSendsInitialPermitGrant(t *testing.T) {
	inner := &fakeSender{}
	_, err := New(inner, Config{ClientID: "c1", InitialPermits: 10, NewPermits: 5, NewPermitsThreshold: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.sent) != 1 {
		t.Fatalf("expected exactly one initial send, got %d", len(inner.sent))
	}
	fc := inner.sent[0].FlowControl
	if fc == nil || fc.Permits != 10 || fc.ClientID != "c1" {
		t.Fatalf("unexpected initial flow control message: %+v", fc)
	}
}

func TestSendGrantsNewPermitsAtThreshold(t *testing.T) {
	inner := &fakeSender{}
	s, err := New(inner, Config{ClientID: "c1", InitialPermits: 10, NewPermits: 5, NewPermitsThreshold: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Send(&wire.ClientMessage{CommandResponse: &wire.CommandResponse{MessageID: "1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.sent) != 2 {
		t.Fatalf("expected no grant yet after 1/2 counted sends, got %d sends", len(inner.sent))
	}

	if err := s.Send(&wire.ClientMessage{CommandResponse: &wire.CommandResponse{MessageID: "2"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.sent) != 4 {
		t.Fatalf("expected a grant after reaching threshold, got %d sends", len(inner.sent))
	}
	last := inner.sent[len(inner.sent)-1].FlowControl
	if last == nil || last.Permits != 5 {
		t.Fatalf("expected a new-permits grant of 5, got %+v", last)
	}
}

func TestCloseSendClosesTheWrappedStream(t *testing.T) {
	inner := &fakeSender{}
	s, err := New(inner, Config{ClientID: "c1", InitialPermits: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inner.closed {
		t.Fatalf("expected CloseSend to reach the wrapped stream")
	}
}

func TestSendDoesNotCountNonResponseMessages(t *testing.T) {
	inner := &fakeSender{}
	s, err := New(inner, Config{ClientID: "c1", InitialPermits: 10, NewPermits: 5, NewPermitsThreshold: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Send(&wire.ClientMessage{Subscribe: &wire.Subscribe{CommandName: "x"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.sent) != 2 {
		t.Fatalf("expected subscribe to pass through without triggering a grant, got %d sends", len(inner.sent))
	}
}
