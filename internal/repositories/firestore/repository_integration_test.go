//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	domain "github.com/AmolSonawane1026/order-service/internal/domain"
	pconfig "github.com/AmolSonawane1026/order-service/internal/platform/config"
	pfirestore "github.com/AmolSonawane1026/order-service/internal/platform/firestore"
	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"

func startEmulator(ctx context.Context, t *testing.T) *pfirestore.Provider {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        firestoreEmulatorImage,
			ExposedPorts: []string{"8080/tcp"},
			Cmd:          []string{"gcloud", "beta", "emulators", "firestore", "start", "--host-port=0.0.0.0:8080", "--quiet"},
			WaitingFor:   wait.ForLog("Dev App Server is now running").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("firestore emulator unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate emulator: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "8080/tcp", "")
	if err != nil {
		t.Fatalf("emulator endpoint: %v", err)
	}

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "orders-test", EmulatorHost: endpoint})
	t.Cleanup(func() { _ = provider.Close(context.Background()) })
	return provider
}

func TestCounterRepositoryConcurrentNext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo, err := NewCounterRepository(startEmulator(ctx, t))
	if err != nil {
		t.Fatalf("new counter repository: %v", err)
	}

	const workers = 12
	results := make([]int64, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.Next(ctx, "orders:250501", 1)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, v := range results {
		if v != int64(i+1) {
			t.Fatalf("expected gapless sequence, got %v", results)
		}
	}
}

func TestOrderRepositoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo, err := NewOrderRepository(startEmulator(ctx, t))
	if err != nil {
		t.Fatalf("new order repository: %v", err)
	}

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		order := domain.Order{
			ID:          fmt.Sprintf("ord_%d", i),
			OrderNumber: fmt.Sprintf("ORD25050100%02d", i+1),
			CustomerID:  "cust-1",
			Items:       []domain.OrderItem{{ProductID: "p1", SellerID: "seller-1", Name: "Mug", Price: 200, Quantity: 2, Subtotal: 400}},
			Subtotal:    400, Tax: 72, ShippingCharges: 50, TotalAmount: 522,
			Status:    domain.OrderStatusConfirmed,
			Payment:   domain.PaymentInfo{Method: domain.PaymentMethodCOD, Status: domain.PaymentStatusPending, Amount: 522, Currency: "inr"},
			Timeline:  []domain.TimelineEntry{{Status: domain.OrderStatusConfirmed, Message: "Order confirmed", Timestamp: base}},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Insert(ctx, order); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	page, err := repo.List(ctx, repositories.OrderListFilter{SellerID: "seller-1", Sort: domain.DefaultOrderSort, Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 || page.Items[0].ID != "ord_2" {
		t.Fatalf("unexpected page: total=%d items=%d", page.Total, len(page.Items))
	}

	if err := repo.Delete(ctx, "ord_0"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = repo.FindByID(ctx, "ord_0")
	repoErr, ok := err.(repositories.RepositoryError)
	if !ok || !repoErr.IsNotFound() {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	stats, err := repo.Stats(ctx, repositories.OrderStatsFilter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalOrders != 2 {
		t.Fatalf("expected 2 orders in stats, got %d", stats.TotalOrders)
	}
}

func TestOrderRepositoryUpdateAndMutate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo, err := NewOrderRepository(startEmulator(ctx, t))
	if err != nil {
		t.Fatalf("new order repository: %v", err)
	}

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	order := domain.Order{
		ID:          "ord_m",
		OrderNumber: "ORD2505010042",
		CustomerID:  "cust-1",
		Status:      domain.OrderStatusConfirmed,
		Payment:     domain.PaymentInfo{Method: domain.PaymentMethodCOD, Status: domain.PaymentStatusPending, Currency: "inr"},
		Timeline:    []domain.TimelineEntry{{Status: domain.OrderStatusConfirmed, Message: "Order confirmed", Timestamp: base}},
		CreatedAt:   base,
		UpdatedAt:   base,
	}

	var repoErr repositories.RepositoryError
	if err := repo.Update(ctx, order); !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found when updating a missing order, got %v", err)
	}
	if _, err := repo.FindByID(ctx, "ord_m"); !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("update must not create the order, got %v", err)
	}

	if err := repo.Insert(ctx, order); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const writers = 4
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
}
