package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fikri2992/remote-coding-extension-sub009/internal/envelope"
)

func msg(msgType string) envelope.Envelope {
	return envelope.Envelope{Type: msgType, Timestamp: envelope.Now()}
}

func TestEnqueueCapacity(t *testing.T) {
	q := New(2, 1, nil, nil)

	if err := q.Enqueue(msg("a")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue(msg("b")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	err := q.Enqueue(msg("c"))
	if !errors.Is(err, ErrFull) {
		t.Errorf("Enqueue at capacity = %v, want ErrFull", err)
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
	if q.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", q.Dropped())
	}
}

func TestPriorityHeadInsertAndAllowance(t *testing.T) {
	q := New(2, 1, []string{"terminal.input"}, nil)

	// Fill base capacity with ordinary traffic.
	if err := q.Enqueue(msg("fs.read")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue(msg("fs.write")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// Priority message still fits via the allowance and jumps the line.
	if err := q.Enqueue(msg("terminal.input")); err != nil {
		t.Fatalf("priority Enqueue over base capacity failed: %v", err)
	}

	// Allowance is bounded: one more priority message must be rejected.
	if err := q.Enqueue(msg("terminal.input")); !errors.Is(err, ErrFull) {
		t.Errorf("priority Enqueue past allowance = %v, want ErrFull", err)
	}

	first, ok := q.Pop()
	if !ok || first.Env.Type != "terminal.input" {
		t.Errorf("front of queue = %+v, want the priority message", first)
	}
	second, _ := q.Pop()
	if second.Env.Type != "fs.read" {
		t.Errorf("second = %q, want fs.read", second.Env.Type)
	}
}

func TestPopOrder(t *testing.T) {
	q := New(10, 0, nil, nil)
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(msg(fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	for i := 0; i < 5; i++ {
		item, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop %d: queue empty", i)
		}
		if want := fmt.Sprintf("m%d", i); item.Env.Type != want {
			t.Errorf("Pop %d = %q, want %q", i, item.Env.Type, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("expected empty queue")
	}
}

func TestRequeueCeiling(t *testing.T) {
	q := New(10, 0, nil, nil)

	item := Item{Env: msg("git.push")}

	// Two failures requeue, the third drops.
	for i := 0; i < RetryCeiling-1; i++ {
		if !q.Requeue(item) {
			t.Fatalf("retry %d should requeue", i+1)
		}
		var ok bool
		item, ok = q.Pop()
		if !ok {
			t.Fatal("requeued item missing")
		}
	}

	if q.Requeue(item) {
		t.Error("item at retry ceiling should be dropped")
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after drop", q.Len())
	}
	if q.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", q.Dropped())
	}
}

func TestRequeueGoesToHead(t *testing.T) {
	q := New(10, 0, nil, nil)
	if err := q.Enqueue(msg("later")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if !q.Requeue(Item{Env: msg("retried")}) {
		t.Fatal("Requeue failed")
	}

	front, _ := q.Pop()
	if front.Env.Type != "retried" {
		t.Errorf("front = %q, want retried", front.Env.Type)
	}
}

func TestClear(t *testing.T) {
	q := New(10, 0, nil, nil)
	for i := 0; i < 3; i++ {
		q.Enqueue(msg("x"))
	}

	if n := q.Clear(); n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestSetCapacity(t *testing.T) {
	q := New(1, 0, nil, nil)
	if err := q.Enqueue(msg("a")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue(msg("b")); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}

	q.SetCapacity(2)
	if err := q.Enqueue(msg("b")); err != nil {
		t.Errorf("Enqueue after SetCapacity failed: %v", err)
	}
	if q.Capacity() != 2 {
		t.Errorf("Capacity() = %d, want 2", q.Capacity())
	}

	// Non-positive capacities are ignored.
	q.SetCapacity(0)
	if q.Capacity() != 2 {
		t.Errorf("Capacity() = %d, want 2 after ignored update", q.Capacity())
	}
}
