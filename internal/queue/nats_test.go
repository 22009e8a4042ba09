package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestNATS creates an embedded NATS server for testing
func setupTestNATS(t *testing.T) (*server.Server, string, func()) {
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1, // Random port
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("Failed to create NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	cleanup := func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	}

	return ns, ns.ClientURL(), cleanup
}

func TestNewNATSPublisher(t *testing.T) {
	_, url, cleanup := setupTestNATS(t)
	defer cleanup()

	q, err := NewNATSPublisher(NATSConfig{URL: url, Subject: "cardiacam"})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	assert.NotNil(t, q.conn)
	assert.NotNil(t, q.js)
	assert.Equal(t, "cardiacam", q.stream)

	info, err := q.js.StreamInfo("cardiacam")
	require.NoError(t, err)
	assert.Equal(t, []string{"cardiacam.>"}, info.Config.Subjects)
}

func TestNewNATSPublisher_InvalidURL(t *testing.T) {
	q, err := NewNATSPublisher(NATSConfig{URL: "nats://invalid-host:9999"})
	if err == nil {
		_ = q.Close()
		t.Fatal("Expected error with invalid URL")
	}
}

func TestNewNATSPublisher_ExistingStream(t *testing.T) {
	_, url, cleanup := setupTestNATS(t)
	defer cleanup()

	first, err := NewNATSPublisher(NATSConfig{URL: url, Subject: "runs.rgb"})
	require.NoError(t, err)
	defer func() { _ = first.Close() }()

	second, err := NewNATSPublisher(NATSConfig{URL: url, Subject: "runs.rgb"})
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	assert.Equal(t, "runs_rgb", second.stream)
}

func TestNATSPublisher_Publish(t *testing.T) {
	_, url, cleanup := setupTestNATS(t)
	defer cleanup()

	conn, err := nats.Connect(url)
	require.NoError(t, err)
	defer conn.Close()

	q, err := NewNATSPublisherWithConn(conn, "cardiacam")
	require.NoError(t, err)

	sub, err := conn.SubscribeSync("cardiacam.summary")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Publish(ctx, "cardiacam.summary", []byte(`{"run_id":"r1"}`)))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"run_id":"r1"}`, string(msg.Data))

	info, err := q.js.StreamInfo(q.stream)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)
}

func TestNATSPublisher_PublishBatch(t *testing.T) {
	_, url, cleanup := setupTestNATS(t)
	defer cleanup()

	q, err := NewNATSPublisher(NATSConfig{URL: url, Subject: "cardiacam"})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	messages := make([]BatchMessage, 20)
	for i := range messages {
		messages[i] = BatchMessage{
			Subject: "cardiacam.components",
			Data:    []byte(fmt.Sprintf(`{"batch":%d}`, i)),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := q.PublishBatch(ctx, messages)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	info, err := q.js.StreamInfo(q.stream)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), info.State.Msgs)
}

func TestNATSPublisher_PublishBatch_Empty(t *testing.T) {
	_, url, cleanup := setupTestNATS(t)
	defer cleanup()

	q, err := NewNATSPublisher(NATSConfig{URL: url})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	n, err := q.PublishBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSanitizeStreamName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cardiacam", "cardiacam"},
		{"runs.rgb", "runs_rgb"},
		{"a*b>c", "a_b_c"},
		{"lab-1_x", "lab-1_x"},
	}
	for _, tt := range tests {
		if got := sanitizeStreamName(tt.in); got != tt.want {
			t.Errorf("sanitizeStreamName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
