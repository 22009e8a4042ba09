package queue

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSConfig represents NATS JetStream configuration
type NATSConfig struct {
	URL      string // NATS URL (e.g., nats://localhost:4222)
	Username string // Optional authentication
	Password string // Optional authentication
	Subject  string // Subject prefix captured by the stream (default: "cardiacam")
}

// NATSPublisher implements Publisher using NATS JetStream
type NATSPublisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	stream string
}

// newNATSPublisher connects to NATS and makes sure a stream captures the
// configured subject prefix
func newNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	var opts []nats.Option
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSPublisherWithConn(conn, cfg.Subject)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

// newNATSPublisherWithConn creates a publisher on an existing connection (used in tests)
func newNATSPublisherWithConn(conn *nats.Conn, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = "cardiacam"
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamName := sanitizeStreamName(subject)
	if _, err := js.StreamInfo(streamName); err != nil {
		// Stream doesn't exist, create it
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject + ".>"},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream for subject %s: %w", subject, err)
		}
	}

	return &NATSPublisher{
		conn:   conn,
		js:     js,
		stream: streamName,
	}, nil
}

// Publish publishes a message and waits for the JetStream acknowledgement
func (q *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := q.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch publishes multiple messages asynchronously and waits for all to complete.
// All messages are queued immediately and acknowledged in one wait.
func (q *NATSPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	futures := make([]nats.PubAckFuture, 0, len(messages))
	for _, msg := range messages {
		future, err := q.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			// If we fail to queue a message, continue with others
			continue
		}
		futures = append(futures, future)
	}

	// Wait for all pending messages with timeout from context
	select {
	case <-q.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	successCount := 0
	var lastErr error
	for _, future := range futures {
		select {
		case <-future.Ok():
			successCount++
		case err := <-future.Err():
			lastErr = err
		}
	}

	if successCount < len(messages) {
		if lastErr == nil {
			lastErr = fmt.Errorf("%d of %d messages not queued", len(messages)-len(futures), len(messages))
		}
		return successCount, fmt.Errorf("batch publish incomplete: %w", lastErr)
	}
	return successCount, nil
}

// Close closes the NATS connection
func (q *NATSPublisher) Close() error {
	q.conn.Close()
	return nil
}

// sanitizeStreamName replaces invalid characters for stream names.
// Stream names can only contain: A-Z, a-z, 0-9, dash (-) and underscore (_)
func sanitizeStreamName(subject string) string {
	result := make([]byte, 0, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
