package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/AmolSonawane1026/order-service/internal/domain"
)

// PubSubPublisher publishes events to a Google Cloud Pub/Sub topic, keyed by order id.
type PubSubPublisher struct {
	client    *pubsub.Client
	topic     *pubsub.Topic
	ownClient bool
}

// NewPubSubPublisher opens a client for projectID and binds it to topicID.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher: new client: %w", err)
	}
	p, err := NewPubSubTopicPublisher(client.Topic(topicID))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	p.client = client
	p.ownClient = true
	return p, nil
}

// NewPubSubTopicPublisher wraps an existing topic handle.
func NewPubSubTopicPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub publisher: topic is required")
	}
	topic.EnableMessageOrdering = true
	return &PubSubPublisher{topic: topic}, nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		Attributes:  attributes(event),
		OrderingKey: event.OrderID,
	})
	if _, err := result.Get(ctx); err != nil {
		p.topic.ResumePublish(event.OrderID)
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending messages and releases the client when owned.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	if p.ownClient {
		return p.client.Close()
	}
	return nil
}
