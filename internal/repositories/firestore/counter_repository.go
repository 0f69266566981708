package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/AmolSonawane1026/order-service/internal/platform/firestore"
	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

const countersCollection = "counters"

type counterDocument struct {
	CurrentValue int64     `firestore:"currentValue"`
	Step         int64     `firestore:"step"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// CounterRepository implements repositories.CounterRepository backed by Firestore transactions.
type CounterRepository struct {
	provider *pfirestore.Provider
	clock    func() time.Time
}

var _ repositories.CounterRepository = (*CounterRepository)(nil)

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{provider: provider, clock: time.Now}, nil
}

// Next atomically increments the counter identified by counterID and returns the new value.
// A missing counter document starts at step.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("counter repository not initialised")
	}
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, repositories.InvalidArgument("counters.next", "counter id is required")
	}
	if step <= 0 {
		step = 1
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	ref := client.Collection(countersCollection).Doc(id)
	now := r.clock().UTC()

	var next int64
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			next = step
			return tx.Create(ref, counterDocument{CurrentValue: step, Step: step, UpdatedAt: now})
		}
		if err != nil {
			return err
		}

		var doc counterDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode counter %s: %w", id, err)
		}
		next = doc.CurrentValue + step
		return tx.Update(ref, []firestore.Update{
			{Path: "currentValue", Value: next},
			{Path: "step", Value: step},
			{Path: "updatedAt", Value: now},
		})
	})
	if err != nil {
		return 0, pfirestore.WrapError("counters.next", err)
	}
	return next, nil
}
