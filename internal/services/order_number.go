package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

// orderNumbers issues ORD+YYMMDD+NNNN numbers from an atomic per-day counter.
// When the counter is unreachable it falls back to ORD+unix millis+4 random digits
// so order placement never blocks on the counter.
type orderNumbers struct {
	counters repositories.CounterRepository
	location *time.Location
	clock    func() time.Time
	random   func(n int) int
	logger   Logger
	metrics  OrderMetrics
}

func (g *orderNumbers) next(ctx context.Context) string {
	now := g.clock().In(g.location)
	day := now.Format("060102")

	seq, err := g.counters.Next(ctx, "orders:"+day, 1)
	if err == nil && seq > 0 {
		return fmt.Sprintf("ORD%s%04d", day, seq)
	}
	if err == nil {
		err = fmt.Errorf("counter returned %d", seq)
	}

	g.logger(ctx, "order.number.counter_failed", map[string]any{
		"day":   day,
		"error": err,
	})
	if g.metrics != nil {
		g.metrics.OrderNumberFallback(ctx)
	}
	return fmt.Sprintf("ORD%d%04d", now.UnixMilli(), g.random(10000))
}

func defaultRandom(n int) int {
	return rand.IntN(n)
}
