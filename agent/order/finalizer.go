package order

import (
	"context"
	"time"
)

// Store is the durable, append-only record of finalized orders. Append must
// serialize the read-count/assign-number/write cycle: the build callback is
// invoked with the current record count inside the store's critical section,
// so concurrent appends observe distinct counts.
type Store interface {
	Append(ctx context.Context, build func(count int) FinalizedOrder) (FinalizedOrder, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]FinalizedOrder, error)
}

// Finalizer converts a ledger into a numbered, persisted order and resets
// the ledger. All-or-nothing: a storage failure leaves the ledger untouched
// and consumes no order number.
type Finalizer struct {
	store Store
	now   func() time.Time
}

func NewFinalizer(store Store) *Finalizer {
	return &Finalizer{
		store: store,
		now:   time.Now,
	}
}

func (f *Finalizer) Finalize(ctx context.Context, ledger *Ledger) (FinalizedOrder, error) {
	snap := ledger.Snapshot()

	final, err := f.store.Append(ctx, func(count int) FinalizedOrder {
		return FinalizedOrder{
			OrderNumber: count + 1,
			Items:       snap.Items,
			Total:       snap.Total,
			PlacedAt:    f.now().UTC(),
		}
	})
	if err != nil {
		return FinalizedOrder{}, err
	}

	ledger.Clear()
	return final, nil
}
