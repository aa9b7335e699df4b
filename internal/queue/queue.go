package queue

import (
	"context"
	"errors"
)

var (
	// ErrPublishFailed wraps a producer-side failure. Callers treat it as a
	// hard error: completeUpload rolls back the finalized object on it.
	ErrPublishFailed = errors.New("queue publish failed")
)

// Handler processes one delivered message. A non-nil error is logged and the
// message is committed anyway; one bad message must never halt the topic.
type Handler func(ctx context.Context, key, value []byte) error

// MessageQueue defines the durable publish/subscribe interface the pipeline
// components use, so the backing broker technology stays swappable.
type MessageQueue interface {
	// Publish sends one message at-least-once to the topic. Absent topics
	// are auto-provisioned by the broker so deployment order of producers
	// and consumers does not matter.
	Publish(ctx context.Context, topic string, key, value []byte) error

	// Subscribe runs a blocking consume loop with consumer-group delivery
	// (one copy per group). It returns only on a connection-level fault or
	// context cancellation; external supervision should restart it.
	Subscribe(ctx context.Context, topic, groupID string, handler Handler) error

	// Close releases the process-owned broker client.
	Close() error
}
