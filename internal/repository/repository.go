// Package repository defines the narrow persistence contract the batch
// processor, executor, and payment finalizer depend on. Grounded on the
// teacher's domain/repository.go (interfaces in the domain layer, every
// method takes a context.Context first), restated per spec.md §4.10/§5 with
// one contract per aggregate instead of the teacher's per-entity sprawl.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/omniroute/work4food/internal/domain"
)

// CourierRepository persists couriers and supports the availability query
// the scheduler runs at the start of every window.
type CourierRepository interface {
	FindByID(ctx context.Context, courierID uuid.UUID) (*domain.Courier, error)

	// FindAvailable returns couriers currently eligible for assignment
	// (status == available), in no particular order.
	FindAvailable(ctx context.Context) ([]*domain.Courier, error)

	// Save creates or fully replaces a courier record.
	Save(ctx context.Context, courier *domain.Courier) error

	// CompareAndSwap persists courier only if the stored record's
	// UpdatedAt still equals expectedUpdatedAt; otherwise it returns
	// *domain.ConcurrencyConflict and leaves the store untouched. Callers
	// use this for the read-modify-write sequences in OrderExecutor and
	// PaymentFinalizer.
	CompareAndSwap(ctx context.Context, courier *domain.Courier, expectedUpdatedAt time.Time) error
}

// OrderRepository persists orders and supports the pending-intake query the
// scheduler runs at the start of every window.
type OrderRepository interface {
	FindByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)

	// FindPending returns orders with status == pending and
	// created_at in [windowStart, windowEnd), in no particular order.
	// Callers that want to carry forward orders from earlier windows pass
	// a zero windowStart to lift the lower bound instead of narrowing it.
	FindPending(ctx context.Context, windowStart, windowEnd time.Time) ([]*domain.Order, error)

	Save(ctx context.Context, order *domain.Order) error

	// CompareAndSwap persists order only if the stored record's UpdatedAt
	// still equals expectedUpdatedAt; otherwise it returns
	// *domain.ConcurrencyConflict and leaves the store untouched.
	CompareAndSwap(ctx context.Context, order *domain.Order, expectedUpdatedAt time.Time) error
}

// BatchRepository persists the append-only audit trail of completed windows.
type BatchRepository interface {
	Save(ctx context.Context, record *domain.BatchRecord) error
	FindByID(ctx context.Context, batchID string) (*domain.BatchRecord, error)
	// Recent returns the most recent batch records, newest first, bounded
	// by limit.
	Recent(ctx context.Context, limit int) ([]*domain.BatchRecord, error)
}
