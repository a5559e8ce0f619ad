package playback

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var ErrQueueClosed = errors.New("playback queue closed")

const idlePollInterval = 100 * time.Millisecond

// Queue serializes chunk playback: chunks play one at a time in enqueue
// order on the shared sink. The producer side is unbounded so enqueueing
// never waits on the playback worker, no matter how far synthesis runs
// ahead of the speaker. Playback errors are logged and the queue moves on,
// so one bad chunk never stalls the turn.
type Queue struct {
	sink Sink

	mu      sync.Mutex
	items   [][]byte
	pending int
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewQueue(ctx context.Context, sink Sink) *Queue {
	q := &Queue{
		sink: sink,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go q.run(ctx)
	return q
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	for {
		// Stop takes priority over queued chunks.
		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		default:
		}

		q.mu.Lock()
		var clip []byte
		haveClip := len(q.items) > 0
		if haveClip {
			clip = q.items[0]
			q.items = q.items[1:]
		}
		q.mu.Unlock()

		if !haveClip {
			select {
			case <-ctx.Done():
				return
			case <-q.stop:
				return
			case <-q.wake:
			}
			continue
		}

		if err := q.sink.Play(ctx, clip); err != nil && ctx.Err() == nil {
			log.Printf("playback: %v", err)
		}
		q.mu.Lock()
		q.pending--
		q.mu.Unlock()
	}
}

// Enqueue adds one chunk and returns immediately; it never waits on
// playback.
func (q *Queue) Enqueue(clip []byte) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, clip)
	q.pending++
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// WaitIdle blocks until every enqueued chunk has finished playing.
func (q *Queue) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()
	for {
		q.mu.Lock()
		pending := q.pending
		q.mu.Unlock()
		if pending == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return nil
		case <-ticker.C:
		}
	}
}

// Close stops the worker after the chunk currently playing. Queued chunks
// that have not started are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.stop)
	<-q.done
}
