package stream

import (
	"errors"
	"testing"
)

func TestQueueSink_WriteAndCapacity(t *testing.T) {
	s := NewQueueSink(2)
	if s.ID() == "" {
		t.Fatal("expected generated ID")
	}
	if s.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", s.Capacity())
	}
	if err := s.Write([]byte("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Write([]byte("b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Capacity() != 0 {
		t.Errorf("expected capacity 0, got %d", s.Capacity())
	}
	if err := s.Write([]byte("c")); !errors.Is(err, ErrSinkFull) {
		t.Errorf("expected ErrSinkFull, got %v", err)
	}
	if got := string(<-s.Frames()); got != "a" {
		t.Errorf("expected 'a', got %q", got)
	}
}

func TestQueueSink_CloseIsIdempotent(t *testing.T) {
	s := NewQueueSink(4)
	_ = s.Write([]byte("queued"))

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
	if !s.Closed() {
		t.Error("expected sink to report closed")
	}
	select {
	case <-s.Done():
	default:
		t.Error("expected Done to be closed")
	}
	if err := s.Write([]byte("late")); !errors.Is(err, ErrSinkClosed) {
		t.Errorf("expected ErrSinkClosed, got %v", err)
	}
	if got := string(<-s.Frames()); got != "queued" {
		t.Errorf("expected queued frame to survive close, got %q", got)
	}
}

func TestQueueSink_UniqueIDs(t *testing.T) {
	a, b := NewQueueSink(1), NewQueueSink(1)
	if a.ID() == b.ID() {
		t.Error("expected distinct sink IDs")
	}
}
