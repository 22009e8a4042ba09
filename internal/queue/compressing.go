package queue

import (
	"context"
	"fmt"

	"github.com/cardiacam/cardiacam/internal/compression"
)

// CompressingPublisher compresses every payload before handing it to the
// wrapped publisher
type CompressingPublisher struct {
	next       Publisher
	compressor compression.Compressor
}

// NewCompressingPublisher wraps next with payload compression
func NewCompressingPublisher(next Publisher, c compression.Compressor) *CompressingPublisher {
	return &CompressingPublisher{next: next, compressor: c}
}

// Publish compresses data and publishes it
func (p *CompressingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	payload, err := p.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("failed to compress message for %s: %w", subject, err)
	}
	return p.next.Publish(ctx, subject, payload)
}

// PublishBatch compresses every message and publishes the batch
func (p *CompressingPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	compressed := make([]BatchMessage, len(messages))
	for i, msg := range messages {
		payload, err := p.compressor.Compress(msg.Data)
		if err != nil {
			return 0, fmt.Errorf("failed to compress message for %s: %w", msg.Subject, err)
		}
		compressed[i] = BatchMessage{Subject: msg.Subject, Data: payload}
	}
	return p.next.PublishBatch(ctx, compressed)
}

// Close closes the wrapped publisher
func (p *CompressingPublisher) Close() error {
	return p.next.Close()
}
