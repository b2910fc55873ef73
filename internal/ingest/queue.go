package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/volaticloud/pulse/internal/metrics"
	"github.com/volaticloud/pulse/internal/timeseries"
)

// DefaultFlushSize and DefaultFlushInterval are spec.md §4.2's stated
// batch writer defaults: flush on size >= N or age >= T, whichever
// comes first.
const (
	DefaultFlushSize     = 500
	DefaultFlushInterval = 2000 * time.Millisecond
)

// DefaultQueueDepth bounds the in-process channel between Accept and
// the batch writer goroutine. It is deliberately generous relative to
// DefaultFlushSize so a slow flush doesn't immediately start rejecting
// traffic.
const DefaultQueueDepth = 10000

// accepted is one record already past validation, dedup, and rate
// limiting, queued for the batch writer.
type accepted struct {
	record timeseries.TelemetryRecord
}

// Queue is the bounded in-process backpressure queue spec.md §4.2
// requires between the transport layer and persistence: Accept never
// blocks waiting for a database round trip, and a full queue is
// reported back to the caller as rejection rather than silently
// stalling, mirroring the teacher's pubsub.RedisPubSub
// drop-rather-than-block discipline except here the caller, not the
// queue, decides what "drop" means (quarantine vs. 503).
type Queue struct {
	ch     chan accepted
	writer *Writer

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewQueue constructs a Queue of the given depth, draining into writer.
func NewQueue(depth int, writer *Writer) *Queue {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Queue{
		ch:       make(chan accepted, depth),
		writer:   writer,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// TryEnqueue offers rec to the queue without blocking. It reports
// false when the queue is full, which the caller quarantines as
// rate_limited-adjacent backpressure (the queue, not the per-device
// bucket, is what's exhausted).
func (q *Queue) TryEnqueue(rec timeseries.TelemetryRecord) bool {
	select {
	case q.ch <- accepted{record: rec}:
		metrics.IngestQueueDepth.Set(float64(len(q.ch)))
		return true
	default:
		return false
	}
}

// Start begins the drain loop: every record pulled off the channel is
// handed to the writer's buffer, and a ticker triggers periodic
// flushes independent of the channel's own activity.
func (q *Queue) Start(ctx context.Context, flushInterval time.Duration) {
	go q.run(ctx, flushInterval)
}

// Stop drains any remaining buffered records with one final flush and
// waits for the run loop to exit.
func (q *Queue) Stop(ctx context.Context) {
	q.stopOnce.Do(func() { close(q.stopChan) })
	<-q.doneChan
}

func (q *Queue) run(ctx context.Context, flushInterval time.Duration) {
	defer close(q.doneChan)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.drainAndFlush(context.Background())
			return
		case <-q.stopChan:
			q.drainAndFlush(context.Background())
			return
		case item := <-q.ch:
			metrics.IngestQueueDepth.Set(float64(len(q.ch)))
			q.writer.Add(item.record)
			if q.writer.Len() >= DefaultFlushSize {
				q.writer.Flush(ctx)
			}
		case <-ticker.C:
			q.writer.Flush(ctx)
		}
	}
}

func (q *Queue) drainAndFlush(ctx context.Context) {
	for {
		select {
		case item := <-q.ch:
			q.writer.Add(item.record)
		default:
			q.writer.Flush(ctx)
			return
		}
	}
}
