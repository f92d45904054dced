package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
)

func marshalCloudEvent(event *CloudEvent) ([]byte, error) {
	return json.Marshal(event)
}

// PubSubBus wraps the in-memory Bus and also republishes every merge event
// to a Google Cloud Pub/Sub topic for durable, cross-region relay fan-out.
// Adapted from the teacher's PubSubEventBus (internal/events/pubsub_bus.go),
// generalized from OCX governance verdicts to Gun's node_update/in topics.
//
// Fan-out strategy:
//   - Pub/Sub: durable, at-least-once delivery to other relays/regions
//   - In-memory: immediate push to local chain listeners
//
// Usage:
//
//	bus, err := events.NewPubSubBus("my-project", "gun-mesh-events", "gun-relay-1")
//	bus.Emit("node_update:abc123", mergedData)
//	defer bus.Close()
type PubSubBus struct {
	*Bus

	source string
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubBus creates a Pub/Sub-backed event bus. It creates the topic if
// it does not already exist.
func NewPubSubBus(projectID, topicID, source string) (*PubSubBus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewClient: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("topic.Exists: %w", err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("CreateTopic: %w", err)
		}
		slog.Info("created pub/sub topic for mesh fan-out", "topic_id", topicID)
	}

	bus := &PubSubBus{
		Bus:    NewBus(),
		source: source,
		client: client,
		topic:  topic,
	}
	slog.Info("connected to pub/sub topic", "project", projectID, "topic", topicID)
	return bus, nil
}

// Emit fans out to local listeners (with change-detection, via the
// embedded Bus) and durably republishes to Pub/Sub for other relays.
func (pb *PubSubBus) Emit(topic string, data any) {
	pb.Bus.Emit(topic, data)
	pb.publishToPubSub(topic, data)
}

func (pb *PubSubBus) publishToPubSub(topic string, data any) {
	pb.seq++
	event := NewCloudEvent(topic, pb.source, data, pb.seq)
	payload, err := marshalCloudEvent(event)
	if err != nil {
		slog.Error("failed to marshal mesh event", "type", topic, "err", err)
		return
	}

	msg := &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"ce-specversion": event.SpecVersion,
			"ce-type":        event.Type,
			"ce-source":      event.Source,
			"ce-id":          event.ID,
			"ce-time":        event.Time.Format(time.RFC3339Nano),
		},
	}

	result := pb.topic.Publish(context.Background(), msg)
	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			slog.Error("pub/sub publish failed", "id", event.ID, "err", err)
		}
	}()
}

// Close gracefully shuts down the Pub/Sub client.
func (pb *PubSubBus) Close() error {
	pb.topic.Stop()
	if err := pb.client.Close(); err != nil {
		return fmt.Errorf("pubsub client close: %w", err)
	}
	return nil
}

// HealthCheck verifies the Pub/Sub topic is reachable.
func (pb *PubSubBus) HealthCheck(ctx context.Context) error {
	exists, err := pb.topic.Exists(ctx)
	if err != nil {
		return fmt.Errorf("topic health check: %w", err)
	}
	if !exists {
		return fmt.Errorf("topic does not exist")
	}
	return nil
}
