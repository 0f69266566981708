package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AmolSonawane1026/order-service/internal/domain"
)

func TestPubSubPublisherPublishesEvent(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "order-events")
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}

	publisher, err := NewPubSubTopicPublisher(topic)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer publisher.Close()

	event := domain.OrderEvent{
		Type:        domain.OrderEventCreated,
		OrderID:     "ord_01",
		OrderNumber: "ORD2410150001",
		Status:      domain.OrderStatusConfirmed,
		TotalAmount: 522,
		OccurredAt:  time.Date(2024, 10, 15, 9, 0, 0, 0, time.UTC),
	}
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msgs := srv.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	msg := msgs[0]
	if msg.Attributes["eventType"] != "order.created" || msg.Attributes["orderId"] != "ord_01" {
		t.Fatalf("unexpected attributes %v", msg.Attributes)
	}
	if msg.OrderingKey != "ord_01" {
		t.Fatalf("expected ordering key ord_01, got %q", msg.OrderingKey)
	}
	var got domain.OrderEvent
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.OrderNumber != event.OrderNumber || got.TotalAmount != 522 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestNewPubSubTopicPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubTopicPublisher(nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}
