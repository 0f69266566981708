package postgres

import (
	"fmt"
	"sort"
	"strings"

	domain "github.com/AmolSonawane1026/order-service/internal/domain"
	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

var sortColumns = map[domain.SortField]string{
	domain.SortFieldCreatedAt:   "created_at",
	domain.SortFieldTotalAmount: "total_amount",
}

// whereClause returns " WHERE ..." (or "") with positional args for the non-empty filters.
func whereClause(customerID, sellerID string, status domain.OrderStatus) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if customerID != "" {
		args = append(args, customerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if sellerID != "" {
		args = append(args, sellerID)
		conds = append(conds, fmt.Sprintf("$%d = ANY(seller_ids)", len(args)))
	}
	if status != "" {
		args = append(args, string(status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func listQuery(where string, args []any, filter repositories.OrderListFilter) (string, []any) {
	order := filter.Sort
	column, ok := sortColumns[order.Field]
	if !ok {
		order = domain.DefaultOrderSort
		column = sortColumns[order.Field]
	}
	direction := "ASC"
	if order.Descending {
		direction = "DESC"
	}

	var b strings.Builder
	b.WriteString("SELECT id, document FROM orders")
	b.WriteString(where)
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s", column, direction, direction)

	out := append([]any(nil), args...)
	if filter.Limit > 0 {
		out = append(out, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(out))
	}
	if offset := filter.Offset(); offset > 0 {
		out = append(out, offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(out))
	}
	return b.String(), out
}

func sortByLifecycle(stats []domain.StatusStat) {
	rank := make(map[domain.OrderStatus]int)
	for i, status := range domain.OrderStatuses() {
		rank[status] = i
	}
	position := func(status domain.OrderStatus) int {
		if r, ok := rank[status]; ok {
			return r
		}
		return len(rank)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return position(stats[i].Status) < position(stats[j].Status)
	})
}
