package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	domain "github.com/AmolSonawane1026/order-service/internal/domain"
	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

// OrderRepository implements repositories.OrderRepository on the orders table.
type OrderRepository struct {
	db *sql.DB
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(db *sql.DB) (*OrderRepository, error) {
	if db == nil {
		return nil, errors.New("order repository requires a database handle")
	}
	return &OrderRepository{db: db}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	doc := toDocument(order)
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", order.ID, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, customer_id, seller_ids, status, payment_status, total_amount, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, order.ID, doc.OrderNumber, doc.CustomerID, pq.Array(doc.SellerIDs), doc.Status, doc.PaymentInfo.Status,
		doc.TotalAmount, payload, doc.CreatedAt, doc.UpdatedAt)
	return wrapError("orders.insert", err)
}

// Update rewrites the mutable columns and the document. The order number and
// customer are immutable and left untouched.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	return updateRow(ctx, r.db, "orders.update", order)
}

// Mutate locks the row with SELECT ... FOR UPDATE, applies fn and writes the
// result in the same transaction.
func (r *OrderRepository) Mutate(ctx context.Context, orderID string, fn repositories.OrderMutation) (_ domain.Order, err error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, notFound("orders.mutate", orderID)
	}
	if fn == nil {
		return domain.Order{}, repositories.InvalidArgument("orders.mutate", "mutation is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, wrapError("orders.mutate", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var payload []byte
	if err := tx.QueryRowContext(ctx, `SELECT document FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&payload); err != nil {
		return domain.Order{}, wrapError("orders.mutate", err)
	}
	order, err := decodeRow(orderID, payload)
	if err != nil {
		return domain.Order{}, err
	}
	if err := fn(&order); err != nil {
		return domain.Order{}, err
	}
	order.ID = orderID
	if err := updateRow(ctx, tx, "orders.mutate", order); err != nil {
		return domain.Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Order{}, wrapError("orders.mutate", err)
	}
	return order, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateRow(ctx context.Context, db execer, op string, order domain.Order) error {
	doc := toDocument(order)
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", order.ID, err)
	}
	result, err := db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3, total_amount = $4, seller_ids = $5, document = $6, updated_at = $7
		WHERE id = $1
	`, order.ID, doc.Status, doc.PaymentInfo.Status, doc.TotalAmount, pq.Array(doc.SellerIDs), payload, doc.UpdatedAt)
	if err != nil {
		return wrapError(op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapError(op, err)
	}
	if affected == 0 {
		return notFound(op, order.ID)
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	return wrapError("orders.delete", err)
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, notFound("orders.find", orderID)
	}
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT document FROM orders WHERE id = $1`, orderID).Scan(&payload)
	if err != nil {
		return domain.Order{}, wrapError("orders.find", err)
	}
	return decodeRow(orderID, payload)
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	where, args := whereClause(filter.CustomerID, filter.SellerID, filter.Status)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return domain.Page[domain.Order]{}, wrapError("orders.count", err)
	}

	query, args := listQuery(where, args, filter)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Page[domain.Order]{}, wrapError("orders.list", err)
	}
	defer func() { _ = rows.Close() }()

	orders := make([]domain.Order, 0, filter.Limit)
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return domain.Page[domain.Order]{}, wrapError("orders.list", err)
		}
		order, err := decodeRow(id, payload)
		if err != nil {
			return domain.Page[domain.Order]{}, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Order]{}, wrapError("orders.list", err)
	}

	return domain.Page[domain.Order]{Items: orders, Page: filter.Page, Limit: filter.Limit, Total: total}, nil
}

func (r *OrderRepository) Stats(ctx context.Context, filter repositories.OrderStatsFilter) (domain.OrderStats, error) {
	where, args := whereClause("", filter.SellerID, "")
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(total_amount) FILTER (WHERE payment_status = 'succeeded'), 0)
		FROM orders`+where+`
		GROUP BY status`, args...)
	if err != nil {
		return domain.OrderStats{}, wrapError("orders.stats", err)
	}
	defer func() { _ = rows.Close() }()

	var stats domain.OrderStats
	for rows.Next() {
		var (
			stat    domain.StatusStat
			revenue int64
		)
		if err := rows.Scan(&stat.Status, &stat.Count, &stat.TotalAmount, &revenue); err != nil {
			return domain.OrderStats{}, wrapError("orders.stats", err)
		}
		stats.ByStatus = append(stats.ByStatus, stat)
		stats.TotalOrders += stat.Count
		stats.TotalRevenue += revenue
	}
	if err := rows.Err(); err != nil {
		return domain.OrderStats{}, wrapError("orders.stats", err)
	}
	sortByLifecycle(stats.ByStatus)
	return stats, nil
}

func decodeRow(id string, payload []byte) (domain.Order, error) {
	var doc orderDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s: %w", id, err)
	}
	return fromDocument(id, doc), nil
}
