package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// captureSink records every event it receives.
type captureSink struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{} // when non-nil, Write waits on it
	fail   bool
}

func (s *captureSink) Write(ctx context.Context, e Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) captured() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestRecorder_DeliversEvents(t *testing.T) {
	sink := &captureSink{}
	r := NewRecorder(sink, 16)

	r.Record(Event{
		Actor:    "user:42",
		Action:   "punch_item.close",
		Resource: "project:17/punch:903",
		Metadata: map[string]any{"reason": "verified on site"},
	})
	r.Close()

	events := sink.captured()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Actor != "user:42" || e.Action != "punch_item.close" {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.OccurredAt.IsZero() {
		t.Error("expected OccurredAt to be stamped")
	}
}

func TestRecorder_PreservesExplicitTimestamp(t *testing.T) {
	sink := &captureSink{}
	r := NewRecorder(sink, 16)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.Record(Event{Actor: "user:1", Action: "rfi.create", Resource: "rfi:5", OccurredAt: at})
	r.Close()

	events := sink.captured()
	if len(events) != 1 || !events[0].OccurredAt.Equal(at) {
		t.Errorf("expected explicit timestamp preserved, got %+v", events)
	}
}

func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	sink := &captureSink{block: block}
	r := NewRecorder(sink, 1)

	// First event occupies the writer, second fills the queue, third
	// must be dropped without blocking.
	done := make(chan struct{})
	go func() {
		r.Record(Event{Action: "a"})
		r.Record(Event{Action: "b"})
		r.Record(Event{Action: "c"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(block)
	r.Close()

	if n := len(sink.captured()); n > 2 {
		t.Errorf("expected at most 2 delivered events, got %d", n)
	}
}

func TestRecorder_SinkErrorsAreSwallowed(t *testing.T) {
	sink := &captureSink{fail: true}
	r := NewRecorder(sink, 16)

	r.Record(Event{Action: "daily_log.update"})
	r.Close() // must not panic or deadlock on sink failure
}

func TestRecorder_CloseIsIdempotent(t *testing.T) {
	r := NewRecorder(&captureSink{}, 16)
	r.Close()
	r.Close()

	// Record after Close is a no-op.
	r.Record(Event{Action: "noop"})
}
