// Package readingqueue is the handoff between the serial ingestion path and
// the delivery worker.
package readingqueue

import (
	"sync"

	"github.com/NotCoffee418/p1_forwarder/pkg/types"
)

// Queue is an unbounded FIFO of parsed readings, safe for one producer and
// one consumer running concurrently.
type Queue struct {
	mu       sync.Mutex
	readings []*types.Reading
}

func New() *Queue {
	return &Queue{}
}

// Append adds a reading at the tail. It never blocks on the consumer.
func (q *Queue) Append(reading *types.Reading) {
	q.mu.Lock()
	q.readings = append(q.readings, reading)
	q.mu.Unlock()
}

// DrainAll removes and returns everything queued at this instant.
// Returns nil when the queue is empty.
func (q *Queue) DrainAll() []*types.Reading {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := q.readings
	q.readings = nil
	return drained
}

// Requeue puts a failed batch back in front of anything queued since,
// keeping at most maxLen readings in total. The oldest are dropped first.
// Returns the number of readings dropped.
func (q *Queue) Requeue(batch []*types.Reading, maxLen int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	merged := make([]*types.Reading, 0, len(batch)+len(q.readings))
	merged = append(merged, batch...)
	merged = append(merged, q.readings...)

	dropped := 0
	if maxLen > 0 && len(merged) > maxLen {
		dropped = len(merged) - maxLen
		merged = merged[dropped:]
	}
	q.readings = merged
	return dropped
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.readings)
}
