//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	domain "github.com/AmolSonawane1026/order-service/internal/domain"
	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

func setupDatabase(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("orders"),
		tcpostgres.WithUsername("orders"),
		tcpostgres.WithPassword("orders"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	db, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCounterRepositoryConcurrentNext(t *testing.T) {
	db := setupDatabase(t)
	repo, err := NewCounterRepository(db)
	if err != nil {
		t.Fatalf("new counter repo: %v", err)
	}

	const workers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := repo.Next(context.Background(), "orders:241015", 1)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			mu.Lock()
			seen[next] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	for i := int64(1); i <= workers; i++ {
		if !seen[i] {
			t.Fatalf("missing sequence value %d in %v", i, seen)
		}
	}
}

func TestOrderRepositoryRoundTrip(t *testing.T) {
	db := setupDatabase(t)
	repo, err := NewOrderRepository(db)
	if err != nil {
		t.Fatalf("new order repo: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2024, 10, 15, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		seller := "seller-a"
		if i == 3 {
			seller = "seller-b"
		}
		payment := domain.PaymentStatusPending
		if i == 1 {
			payment = domain.PaymentStatusSucceeded
		}
		order := domain.Order{
			ID:          fmt.Sprintf("ord_%d", i),
			OrderNumber: fmt.Sprintf("ORD241015%04d", i),
			CustomerID:  "cust-1",
			Items:       []domain.OrderItem{{ProductID: "p", SellerID: seller, Price: 100, Quantity: i, Subtotal: int64(100 * i)}},
			TotalAmount: int64(100 * i),
			Status:      domain.OrderStatusConfirmed,
			Payment:     domain.PaymentInfo{Method: domain.PaymentMethodCOD, Status: payment, Currency: "inr"},
			Timeline:    []domain.TimelineEntry{{Status: domain.OrderStatusConfirmed, Message: "Order confirmed", Timestamp: base}},
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Insert(ctx, order); err != nil {
			t.Fatalf("insert %s: %v", order.ID, err)
		}
	}

	dup := domain.Order{ID: "ord_9", OrderNumber: "ORD2410150001", CustomerID: "cust-2"}
	var repoErr repositories.RepositoryError
	if err := repo.Insert(ctx, dup); !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict on duplicate order number, got %v", err)
	}

	page, err := repo.List(ctx, repositories.OrderListFilter{SellerID: "seller-a", Sort: domain.DefaultOrderSort, Page: 1, Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 1 || page.Items[0].ID != "ord_2" {
		t.Fatalf("unexpected page %+v", page)
	}

	got, err := repo.FindByID(ctx, "ord_2")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	got.Status = domain.OrderStatusShipped
	got.AppendTimeline(domain.OrderStatusShipped, base.Add(time.Hour))
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, err := repo.FindByID(ctx, "ord_2")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != domain.OrderStatusShipped || len(reloaded.Timeline) != 2 {
		t.Fatalf("update not persisted: %+v", reloaded)
	}

	stats, err := repo.Stats(ctx, repositories.OrderStatsFilter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalOrders != 3 || stats.TotalRevenue != 100 || len(stats.ByStatus) != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if err := repo.Delete(ctx, "ord_3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, "ord_3"); !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestOrderRepositoryMutateSerialisesWriters(t *testing.T) {
	db := setupDatabase(t)
	repo, err := NewOrderRepository(db)
	if err != nil {
		t.Fatalf("new order repo: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2024, 10, 15, 9, 0, 0, 0, time.UTC)

	order := domain.Order{
		ID:          "ord_m",
		OrderNumber: "ORD2410150042",
		CustomerID:  "cust-1",
		Status:      domain.OrderStatusConfirmed,
		Payment:     domain.PaymentInfo{Method: domain.PaymentMethodCOD, Status: domain.PaymentStatusPending, Currency: "inr"},
		Timeline:    []domain.TimelineEntry{{Status: domain.OrderStatusConfirmed, Message: "Order confirmed", Timestamp: base}},
		CreatedAt:   base,
		UpdatedAt:   base,
	}
	if err := repo.Insert(ctx, order); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Mutate(ctx, "ord_m", func(o *domain.Order) error {
				o.AppendTimeline(domain.OrderStatusProcessing, base.Add(time.Duration(i+1)*time.Minute))
				return nil
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d: %v", i, err)
		}
	}
	got, err := repo.FindByID(ctx, "ord_m")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got.Timeline) != writers+1 {
		t.Fatalf("expected %d timeline entries, got %d", writers+1, len(got.Timeline))
	}

	rejected := errors.New("rejected")
	if _, err := repo.Mutate(ctx, "ord_m", func(o *domain.Order) error {
		o.Status = domain.OrderStatusCancelled
		return rejected
	}); !errors.Is(err, rejected) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if got, _ := repo.FindByID(ctx, "ord_m"); got.Status != domain.OrderStatusConfirmed {
		t.Fatalf("rejected mutation was written: %s", got.Status)
	}

	var repoErr repositories.RepositoryError
	if _, err := repo.Mutate(ctx, "ord_missing", func(*domain.Order) error { return nil }); !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found, got %v", err)
	}
}
