// Package audit records who did what to which resource. Events are
// queued and written by a background goroutine so product code paths
// never block on the audit sink; when the queue is full events are
// dropped and counted rather than applying backpressure.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/buildgrid/siteops/backend/internal/logger"
	"github.com/buildgrid/siteops/backend/internal/metrics"
)

// writeTimeout bounds each sink write.
const writeTimeout = 5 * time.Second

// Event is one audit record.
type Event struct {
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Sink persists audit events.
type Sink interface {
	Write(ctx context.Context, e Event) error
}

// Recorder accepts events and hands them to a Sink asynchronously.
type Recorder struct {
	sink  Sink
	queue chan Event
	log   *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder creates a recorder with the given queue capacity and
// starts its writer goroutine.
func NewRecorder(sink Sink, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	r := &Recorder{
		sink:  sink,
		queue: make(chan Event, queueSize),
		log:   logger.WithComponent("audit"),
	}
	r.wg.Add(1)
	go r.writeLoop()
	return r
}

// Record queues an event. It never blocks: when the queue is full the
// event is dropped and counted. A zero OccurredAt is stamped with the
// current time.
func (r *Recorder) Record(e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- e:
		metrics.AuditEventsRecorded.WithLabelValues(e.Action).Inc()
		metrics.AuditQueueDepth.Set(float64(len(r.queue)))
	default:
		metrics.AuditEventsDropped.Inc()
		r.log.Warn("audit queue full, event dropped",
			"actor", e.Actor, "action", e.Action, "resource", e.Resource)
	}
}

// Close stops accepting events, drains the queue, and waits for the
// writer to finish. Safe to call more than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()

	for e := range r.queue {
		metrics.AuditQueueDepth.Set(float64(len(r.queue)))

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.sink.Write(ctx, e); err != nil {
			metrics.AuditSinkErrors.Inc()
			r.log.Error("audit sink write failed",
				"action", e.Action, "resource", e.Resource, "error", err)
		}
		cancel()
	}
}
