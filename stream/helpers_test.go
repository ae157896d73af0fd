package stream

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kbukum/chatstream/chat"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func msgAt(id string, at time.Time) chat.Message {
	return chat.Message{
		ID:        id,
		Sender:    "1",
		Receiver:  "2",
		Content:   "hello " + id,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// memFinder is an in-memory message collection with the store's query
// semantics.
type memFinder struct {
	mu      sync.Mutex
	msgs    []chat.Message
	err     error
	queries []chat.Query
}

func (f *memFinder) add(msgs ...chat.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
}

// edit replaces message id's content and moves its updatedAt to at.
func (f *memFinder) edit(id, content string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.msgs {
		if f.msgs[i].ID == id {
			f.msgs[i].Content = content
			f.msgs[i].UpdatedAt = at
		}
	}
}

func (f *memFinder) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *memFinder) Find(_ context.Context, q chat.Query) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var out []chat.Message
	for _, m := range f.msgs {
		if q.Filter != nil {
			v := m.UpdatedAt
			if q.Filter.Field == chat.FieldCreatedAt {
				v = m.CreatedAt
			}
			switch q.Filter.Operator {
			case chat.OpGreaterThan:
				if !v.After(q.Filter.Value) {
					continue
				}
			case chat.OpGreaterThanEqual:
				if v.Before(q.Filter.Value) {
					continue
				}
			case chat.OpLessThan:
				if !v.Before(q.Filter.Value) {
					continue
				}
			}
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.Sort == chat.SortUpdatedAtAsc {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// fakeSink records frames and can be told to misbehave.
type fakeSink struct {
	id string

	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	capacity int
	writeErr error
	panics   bool
	closes   int
}

func newFakeSink(id string) *fakeSink {
	return &fakeSink{id: id, capacity: -1}
}

func (s *fakeSink) ID() string { return s.id }

func (s *fakeSink) Write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics {
		panic("sink exploded")
	}
	if s.closed {
		return ErrSinkClosed
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closes++
	return nil
}

func (s *fakeSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSink) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity
}

func (s *fakeSink) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

func sinks(n int) []*fakeSink {
	out := make([]*fakeSink, n)
	for i := range out {
		out[i] = newFakeSink(fmt.Sprintf("sink-%d", i))
	}
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
