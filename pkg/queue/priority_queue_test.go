package queue

import (
	"testing"
	"time"

	"github.com/Goden-Gun/command-connector/pkg/wire"
)

func TestPriorityQueueOrdersByPriorityThenArrival(t *testing.T) {
	q := New()
	q.Add(&wire.Command{MessageID: "low-1", Priority: 1})
	q.Add(&wire.Command{MessageID: "high-1", Priority: 9})
	q.Add(&wire.Command{MessageID: "low-2", Priority: 1})
	q.Add(&wire.Command{MessageID: "high-2", Priority: 9})

	want := []string{"high-1", "high-2", "low-1", "low-2"}
	for _, id := range want {
		got := q.Poll(time.Second)
		if got == nil || got.MessageID != id {
			t.Fatalf("want %s, got %v", id, got)
		}
	}
}

func TestPriorityQueuePollTimesOut(t *testing.T) {
	q := New()
	start := time.Now()
	got := q.Poll(50 * time.Millisecond)
	if got != nil {
		t.Fatalf("expected nil on empty queue, got %v", got)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Fatalf("returned before timeout elapsed")
	}
}

func TestPriorityQueueCloseUnblocksPoll(t *testing.T) {
	q := New()
	done := make(chan *wire.Command, 1)
	go func() { done <- q.Poll(5 * time.Second) }()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case got := <-done:
		if got != nil {
			t.Fatalf("expected nil after close, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Poll did not unblock after Close")
	}
}

func TestPriorityQueueCloseStillDrainsExisting(t *testing.T) {
	q := New()
	q.Add(&wire.Command{MessageID: "a", Priority: 0})
	q.Close()

	got := q.Poll(time.Second)
	if got == nil || got.MessageID != "a" {
		t.Fatalf("expected queued item to survive Close, got %v", got)
	}
	if got := q.Poll(time.Second); got != nil {
		t.Fatalf("expected nil once drained, got %v", got)
	}
}

func TestPriorityQueueLen(t *testing.T) {
	q := New()
	if q.Len() != 0 {
		t.Fatalf("expected empty queue")
	}
	q.Add(&wire.Command{MessageID: "a"})
	q.Add(&wire.Command{MessageID: "b"})
	if q.Len() != 2 {
		t.Fatalf("expected len 2, got %d", q.Len())
	}
}
