// Package events publishes order lifecycle events to a message broker.
package events

import (
	"context"

	"github.com/AmolSonawane1026/order-service/internal/domain"
)

// Publisher sends order events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
	Close() error
}

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, domain.OrderEvent) error { return nil }
func (Noop) Close() error                                     { return nil }

func attributes(event domain.OrderEvent) map[string]string {
	return map[string]string{
		"eventType":   string(event.Type),
		"orderId":     event.OrderID,
		"orderNumber": event.OrderNumber,
		"status":      string(event.Status),
	}
}
