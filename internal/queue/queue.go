// Package queue holds outbound messages that cannot be written because the
// socket is not open, without unbounded growth.
package queue

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fikri2992/remote-coding-extension-sub009/internal/envelope"
)

// Defaults for a zero-valued configuration.
const (
	DefaultCapacity          = 100
	DefaultPriorityAllowance = 20

	// RetryCeiling is the per-message retry budget during a drain. A message
	// that fails this many sends is dropped; the loss is observable only via
	// logs and counters.
	RetryCeiling = 3
)

// ErrFull is returned when a non-priority message arrives at a queue that is
// at base capacity.
var ErrFull = errors.New("outbound queue full")

// Item is a queued message with its drain bookkeeping.
type Item struct {
	Env        envelope.Envelope
	EnqueuedAt time.Time
	RetryCount int
}

// Queue is a bounded, priority-aware holding area. Priority message types are
// inserted at the head and may exceed the base capacity by a small fixed
// allowance, never unbounded. All access is serialized by one mutex.
type Queue struct {
	mu        sync.Mutex
	items     []Item
	capacity  int
	allowance int
	priority  map[string]struct{}
	dropped   int64
	logger    *slog.Logger
}

// New creates a queue. capacity and allowance fall back to defaults when
// non-positive; priorityTypes lists the message types eligible for
// head-of-queue insertion and the extra allowance.
func New(capacity, allowance int, priorityTypes []string, logger *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if allowance <= 0 {
		allowance = DefaultPriorityAllowance
	}
	if logger == nil {
		logger = slog.Default()
	}

	prio := make(map[string]struct{}, len(priorityTypes))
	for _, t := range priorityTypes {
		prio[t] = struct{}{}
	}

	return &Queue{
		items:     make([]Item, 0, capacity),
		capacity:  capacity,
		allowance: allowance,
		priority:  prio,
		logger:    logger,
	}
}

// Enqueue adds a message. Non-priority messages are appended and rejected
// with ErrFull at base capacity; priority messages are inserted at the head
// and rejected only past capacity+allowance.
func (q *Queue) Enqueue(env envelope.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item := Item{Env: env, EnqueuedAt: time.Now()}

	if _, ok := q.priority[env.Type]; ok {
		if len(q.items) >= q.capacity+q.allowance {
			q.dropped++
			return ErrFull
		}
		q.items = append([]Item{item}, q.items...)
		return nil
	}

	if len(q.items) >= q.capacity {
		q.dropped++
		return ErrFull
	}
	q.items = append(q.items, item)
	return nil
}

// Pop removes the front item, if any.
func (q *Queue) Pop() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Item{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Requeue returns a drain-failed item to the head of the queue. It reports
// false when the item has exhausted its retry budget, in which case the
// message is dropped and logged.
func (q *Queue) Requeue(item Item) bool {
	item.RetryCount++

	q.mu.Lock()
	defer q.mu.Unlock()

	if item.RetryCount >= RetryCeiling {
		q.dropped++
		q.logger.Warn("dropping message after retry ceiling",
			"type", item.Env.Type,
			"retries", item.RetryCount,
			"queued_for", time.Since(item.EnqueuedAt),
		)
		return false
	}

	q.items = append([]Item{item}, q.items...)
	return true
}

// Len returns the current depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear discards all queued messages and returns how many were dropped.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = q.items[:0]
	return n
}

// SetCapacity adjusts the base capacity at runtime. Messages already queued
// above the new bound are kept; the bound applies to new enqueues.
func (q *Queue) SetCapacity(capacity int) {
	if capacity <= 0 {
		return
	}
	q.mu.Lock()
	q.capacity = capacity
	q.mu.Unlock()
}

// Capacity returns the current base capacity.
func (q *Queue) Capacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// Dropped returns how many messages were rejected or discarded so far.
func (q *Queue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
