package queue

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"time"

	"streamgo/internal/config"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// kafkaQueue implements MessageQueue on top of segmentio/kafka-go.
// One instance (one connected writer) is owned per process and closed at
// process stop; per-call client construction causes connection storms.
type kafkaQueue struct {
	cfg    config.KafkaConfig
	writer *kafka.Writer
	sasl   sasl.Mechanism
	tls    *tls.Config
}

// NewKafkaQueue creates the process-wide broker client.
func NewKafkaQueue(cfg config.KafkaConfig) (MessageQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker address is required")
	}

	q := &kafkaQueue{cfg: cfg}
	if cfg.Username != "" {
		q.sasl = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}
	if cfg.TLSEnabled {
		q.tls = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	q.writer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Balancer: &kafka.LeastBytes{},
		// Auto-provision absent topics so producer and consumer deployment
		// order stays decoupled.
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		Transport: &kafka.Transport{
			ClientID:    cfg.ClientID,
			SASL:        q.sasl,
			TLS:         q.tls,
			DialTimeout: 10 * time.Second,
		},
	}

	log.Printf("INFO: Kafka client initialized for brokers %v", cfg.Brokers)
	return q, nil
}

// Publish sends one message, retrying briefly while a freshly auto-created
// topic elects a leader.
func (q *kafkaQueue) Publish(ctx context.Context, topic string, key, value []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
		Time:  time.Now().UTC(),
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = q.writer.WriteMessages(ctx, msg)
		if err == nil {
			return nil
		}
		// New topics report missing leaders until creation settles.
		if errors.Is(err, kafka.LeaderNotAvailable) || errors.Is(err, kafka.UnknownTopicOrPartition) {
			select {
			case <-time.After(250 * time.Millisecond):
				continue
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrPublishFailed, ctx.Err())
			}
		}
		break
	}
	log.Printf("ERROR: Failed to publish message to topic '%s': %v", topic, err)
	return fmt.Errorf("%w: %v", ErrPublishFailed, err)
}

// Subscribe consumes the topic in the given consumer group. Handler errors
// are swallowed per message; only connection-level faults end the loop.
func (q *kafkaQueue) Subscribe(ctx context.Context, topic, groupID string, handler Handler) error {
	dialer := &kafka.Dialer{
		ClientID:      q.cfg.ClientID,
		Timeout:       10 * time.Second,
		DualStack:     true,
		SASLMechanism: q.sasl,
		TLS:           q.tls,
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  q.cfg.Brokers,
		GroupID:  groupID,
		Topic:    topic,
		Dialer:   dialer,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  1 * time.Second,
	})
	defer reader.Close()

	log.Printf("INFO: Kafka consumer subscribed to topic '%s' (group '%s')", topic, groupID)

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			// Connection-level fault or cancelled context; surface it so
			// the supervisor can restart with backoff.
			log.Printf("ERROR: Kafka fetch on topic '%s' failed: %v", topic, err)
			return err
		}

		if herr := handler(ctx, m.Key, m.Value); herr != nil {
			// The message is still committed: one malformed message must
			// not halt processing of the topic.
			log.Printf("ERROR: Handler failed for message at %s/%d/%d: %v", m.Topic, m.Partition, m.Offset, herr)
		}

		if err := reader.CommitMessages(ctx, m); err != nil {
			log.Printf("ERROR: Commit on topic '%s' failed: %v", topic, err)
			return err
		}
	}
}

// Close disconnects the process-owned writer.
func (q *kafkaQueue) Close() error {
	return q.writer.Close()
}
