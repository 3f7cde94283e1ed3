// Package dispatch provides the queue that carries events from network
// goroutines to the single goroutine allowed to touch session state.
//
// Producers call Enqueue from any goroutine; exactly one consumer calls Drain,
// usually once per host tick. Actions run in arrival order, each at most once.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cyberinferno/dglab-ws/logger"
)

// Queue is an unbounded FIFO of deferred actions. It is safe for concurrent
// producers and one consumer.
type Queue struct {
	mu      sync.Mutex
	actions []func()
	log     logger.Logger
}

// NewQueue returns an empty queue. A nil logger discards panic reports.
//
// Parameters:
//   - log: Logger used to report actions that panic during Drain
//
// Returns:
//   - A new, empty *Queue
func NewQueue(log logger.Logger) *Queue {
	if log == nil {
		log = logger.NewNop()
	}

	return &Queue{log: log.With(logger.Field{Key: "component", Value: "dispatch"})}
}

// Enqueue appends action to the tail. It never blocks on the consumer.
// A nil action is ignored.
func (q *Queue) Enqueue(action func()) {
	if action == nil {
		return
	}

	q.mu.Lock()
	q.actions = append(q.actions, action)
	q.mu.Unlock()
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Drain pops and runs actions until the queue is empty, including actions
// enqueued by the actions themselves. It must not be called concurrently with
// itself. A panicking action is logged and skipped.
//
// Returns:
//   - The number of actions run
func (q *Queue) Drain() int {
	n := 0
	for {
		action, ok := q.pop()
		if !ok {
			return n
		}

		q.invoke(action)
		n++
	}
}

// Run drains the queue every interval until ctx is done, then drains once
// more so events queued during shutdown are not lost.
//
// Parameters:
//   - ctx: Stops the loop when cancelled
//   - interval: Tick period; must be positive
func (q *Queue) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.Drain()
			return
		case <-ticker.C:
			q.Drain()
		}
	}
}

func (q *Queue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return nil, false
	}

	action := q.actions[0]
	q.actions[0] = nil
	q.actions = q.actions[1:]
	if len(q.actions) == 0 {
		q.actions = nil
	}

	return action, true
}

func (q *Queue) invoke(action func()) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("deferred action panicked", logger.Field{Key: "panic", Value: fmt.Sprint(r)})
		}
	}()

	action()
}
