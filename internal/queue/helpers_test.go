package queue

import "github.com/nats-io/nats.go"

// Test-only helpers to keep constructors unexported.

func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	return newNATSPublisher(cfg)
}

func NewNATSPublisherWithConn(conn *nats.Conn, subject string) (*NATSPublisher, error) {
	return newNATSPublisherWithConn(conn, subject)
}

func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	return newRedisPublisher(cfg)
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	return newKafkaPublisher(cfg)
}

func NewMemoryPublisher() *MemoryPublisher {
	return newMemoryPublisher()
}
