package queue

import (
	"fmt"
	"strings"

	"github.com/cardiacam/cardiacam/internal/compression"
	"github.com/cardiacam/cardiacam/internal/config"
	"github.com/cardiacam/cardiacam/internal/utils"
)

// NewPublisher creates a Publisher based on configuration.
// Default is the in-memory publisher if type is not specified
func NewPublisher(cfg config.PublishConfig) (Publisher, error) {
	pub, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	algo, err := compression.ParseAlgorithm(cfg.Compression)
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	if algo == compression.None {
		return pub, nil
	}

	comp, err := compression.GetCompressor(algo)
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	return NewCompressingPublisher(pub, comp), nil
}

func newBackend(cfg config.PublishConfig) (Publisher, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))
	if queueType == "" {
		queueType = utils.QueueTypeMemory
	}

	switch queueType {
	case utils.QueueTypeNATS:
		return newNATSPublisher(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
			Subject:  cfg.Subject,
		})

	case utils.QueueTypeRedis:
		return newRedisPublisher(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		})

	case utils.QueueTypeKafka:
		return newKafkaPublisher(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
		})

	case utils.QueueTypeMemory:
		return newMemoryPublisher(), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", queueType)
	}
}
