package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/AmolSonawane1026/order-service/orders"

// OrderMetrics records order lifecycle instruments on the global meter provider.
type OrderMetrics struct {
	created        metric.Int64Counter
	orderValue     metric.Int64Histogram
	transitions    metric.Int64Counter
	cancellations  metric.Int64Counter
	refundFailures metric.Int64Counter
	numberFallback metric.Int64Counter
	notifyFailures metric.Int64Counter
}

// NewOrderMetrics registers the instruments. A nil meter uses the global provider.
func NewOrderMetrics(meter metric.Meter) (*OrderMetrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	m := &OrderMetrics{}
	var err error
	if m.created, err = meter.Int64Counter("orders.created",
		metric.WithDescription("Orders placed, by payment method")); err != nil {
		return nil, err
	}
	if m.orderValue, err = meter.Int64Histogram("orders.value",
		metric.WithUnit("{INR}"),
		metric.WithDescription("Order totals at placement"),
		metric.WithExplicitBucketBoundaries(100, 250, 500, 1000, 2500, 5000, 10000, 50000)); err != nil {
		return nil, err
	}
	if m.transitions, err = meter.Int64Counter("orders.status_transitions",
		metric.WithDescription("Applied order status changes, by target status")); err != nil {
		return nil, err
	}
	if m.cancellations, err = meter.Int64Counter("orders.cancelled",
		metric.WithDescription("Customer cancellations")); err != nil {
		return nil, err
	}
	if m.refundFailures, err = meter.Int64Counter("orders.refund_failures",
		metric.WithDescription("Refunds that failed during cancellation")); err != nil {
		return nil, err
	}
	if m.numberFallback, err = meter.Int64Counter("orders.number_fallbacks",
		metric.WithDescription("Order numbers issued without the day counter")); err != nil {
		return nil, err
	}
	if m.notifyFailures, err = meter.Int64Counter("orders.notification_failures",
		metric.WithDescription("Mailer calls that failed")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *OrderMetrics) OrderCreated(ctx context.Context, paymentMethod string, total int64) {
	attrs := metric.WithAttributes(attribute.String("payment_method", paymentMethod))
	m.created.Add(ctx, 1, attrs)
	m.orderValue.Record(ctx, total, attrs)
}

func (m *OrderMetrics) StatusChanged(ctx context.Context, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *OrderMetrics) OrderCancelled(ctx context.Context, refunded bool) {
	m.cancellations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("refunded", refunded)))
}

func (m *OrderMetrics) RefundFailed(ctx context.Context) {
	m.refundFailures.Add(ctx, 1)
}

func (m *OrderMetrics) OrderNumberFallback(ctx context.Context) {
	m.numberFallback.Add(ctx, 1)
}

func (m *OrderMetrics) NotificationFailed(ctx context.Context, template string) {
	m.notifyFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("template", template)))
}
