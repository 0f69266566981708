package firestore

import domain "github.com/AmolSonawane1026/order-service/internal/domain"

type statsAccumulator struct {
	byStatus map[domain.OrderStatus]*domain.StatusStat
	total    int64
	revenue  int64
}

func newStatsAccumulator() *statsAccumulator {
	return &statsAccumulator{byStatus: make(map[domain.OrderStatus]*domain.StatusStat)}
}

func (a *statsAccumulator) add(status domain.OrderStatus, amount int64, payment domain.PaymentStatus) {
	stat, ok := a.byStatus[status]
	if !ok {
		stat = &domain.StatusStat{Status: status}
		a.byStatus[status] = stat
	}
	stat.Count++
	stat.TotalAmount += amount
	a.total++
	if payment == domain.PaymentStatusSucceeded {
		a.revenue += amount
	}
}

// result lists known statuses in lifecycle order, then anything unexpected found in storage.
func (a *statsAccumulator) result() domain.OrderStats {
	out := domain.OrderStats{TotalOrders: a.total, TotalRevenue: a.revenue, ByStatus: make([]domain.StatusStat, 0, len(a.byStatus))}
	seen := make(map[domain.OrderStatus]struct{}, len(a.byStatus))
	for _, status := range domain.OrderStatuses() {
		if stat, ok := a.byStatus[status]; ok {
			out.ByStatus = append(out.ByStatus, *stat)
			seen[status] = struct{}{}
		}
	}
	for status, stat := range a.byStatus {
		if _, ok := seen[status]; !ok {
			out.ByStatus = append(out.ByStatus, *stat)
		}
	}
	return out
}
