package queue

import (
	"context"
	"fmt"
	"sync"
)

// MemoryPublisher keeps published messages in memory.
// This is useful for testing and development without external dependencies
type MemoryPublisher struct {
	messages map[string][][]byte
	closed   bool
	mu       sync.RWMutex
}

// newMemoryPublisher creates a new in-memory publisher
func newMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		messages: make(map[string][][]byte),
	}
}

// Publish stores a copy of data under subject
func (q *MemoryPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("publisher closed")
	}

	// Make a copy of data so callers may reuse their buffer
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	q.messages[subject] = append(q.messages[subject], dataCopy)
	return nil
}

// PublishBatch publishes multiple messages
func (q *MemoryPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	successCount := 0

	for _, msg := range messages {
		if err := q.Publish(ctx, msg.Subject, msg.Data); err != nil {
			return successCount, err
		}
		successCount++
	}

	return successCount, nil
}

// Close rejects further messages. Stored messages stay readable.
func (q *MemoryPublisher) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	return nil
}

// Messages returns the messages published to subject, in order
func (q *MemoryPublisher) Messages(subject string) [][]byte {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return append([][]byte(nil), q.messages[subject]...)
}

// GetPendingCount returns the number of messages stored for a subject
func (q *MemoryPublisher) GetPendingCount(subject string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return len(q.messages[subject])
}
