package event

import "sync"

// Queue runs the invocations pushed to it one at a time, in push order.
//
// A worker goroutine exists only while invocations are pending.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	running bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) push(run func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, run)
	if q.running {
		return
	}

	q.running = true

	go q.drain()
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()

			return
		}

		run := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		run()
	}
}
