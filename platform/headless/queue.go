package headless

import (
	"context"
	"sync"

	"github.com/comalice/framecore/platform"
)

// queue is an unbounded FIFO of platform events. The loop goroutine posts
// redraw requests to itself, so a bounded channel could deadlock.
type queue struct {
	mu     sync.Mutex
	items  []platform.Event
	notify chan struct{}
	closed bool
}

func newQueue() *queue {
	return &queue{notify: make(chan struct{}, 1)}
}

func (q *queue) push(ev platform.Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return platform.ErrLoopClosed
	}
	q.items = append(q.items, ev)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	q.mu.Unlock()
	return nil
}

// pop blocks until an event is queued, ctx is done, or the queue is closed.
func (q *queue) pop(ctx context.Context) (platform.Event, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, platform.ErrLoopClosed
		}
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev, nil
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	close(q.notify)
}
