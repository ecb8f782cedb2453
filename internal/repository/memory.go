package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omniroute/work4food/internal/domain"
)

// MemoryCourierRepository is an in-process CourierRepository backed by a
// mutex-guarded map, grounded on the teacher's sync.Map worker cache in
// allocation/engine.go but using a plain map + mutex since we need
// compare-and-swap across the whole record, not single-key atomics.
type MemoryCourierRepository struct {
	mu       sync.RWMutex
	couriers map[uuid.UUID]*domain.Courier
}

// NewMemoryCourierRepository creates an empty repository.
func NewMemoryCourierRepository() *MemoryCourierRepository {
	return &MemoryCourierRepository{couriers: make(map[uuid.UUID]*domain.Courier)}
}

func (r *MemoryCourierRepository) FindByID(ctx context.Context, courierID uuid.UUID) (*domain.Courier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.couriers[courierID]
	if !ok {
		return nil, fmt.Errorf("courier %s: %w", courierID, domain.ErrCourierNotFound)
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryCourierRepository) FindAvailable(ctx context.Context) ([]*domain.Courier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Courier, 0, len(r.couriers))
	for _, c := range r.couriers {
		if c.Status == domain.CourierStatusAvailable {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *MemoryCourierRepository) Save(ctx context.Context, courier *domain.Courier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *courier
	r.couriers[courier.ID] = &cp
	return nil
}

func (r *MemoryCourierRepository) CompareAndSwap(ctx context.Context, courier *domain.Courier, expectedUpdatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.couriers[courier.ID]
	if !ok {
		return fmt.Errorf("courier %s: %w", courier.ID, domain.ErrCourierNotFound)
	}
	if !existing.UpdatedAt.Equal(expectedUpdatedAt) {
		return &domain.ConcurrencyConflict{EntityID: courier.ID, Reason: "courier was modified since it was read"}
	}
	cp := *courier
	r.couriers[courier.ID] = &cp
	return nil
}

// MemoryOrderRepository is an in-process OrderRepository, mirroring
// MemoryCourierRepository's shape.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
}

// NewMemoryOrderRepository creates an empty repository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func (r *MemoryOrderRepository) FindByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotFound)
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryOrderRepository) FindPending(ctx context.Context, windowStart, windowEnd time.Time) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if o.Status != domain.OrderStatusPending {
			continue
		}
		if !windowStart.IsZero() && o.CreatedAt.Before(windowStart) {
			continue
		}
		if !windowEnd.IsZero() && !o.CreatedAt.Before(windowEnd) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *MemoryOrderRepository) CompareAndSwap(ctx context.Context, order *domain.Order, expectedUpdatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.orders[order.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrOrderNotFound)
	}
	if !existing.UpdatedAt.Equal(expectedUpdatedAt) {
		return &domain.ConcurrencyConflict{EntityID: order.ID, Reason: "order was modified since it was read"}
	}
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

// MemoryBatchRepository is an in-process BatchRepository.
type MemoryBatchRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.BatchRecord
	order   []string // insertion order, oldest first
}

// NewMemoryBatchRepository creates an empty repository.
func NewMemoryBatchRepository() *MemoryBatchRepository {
	return &MemoryBatchRepository{records: make(map[string]*domain.BatchRecord)}
}

func (r *MemoryBatchRepository) Save(ctx context.Context, record *domain.BatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.BatchID]; !exists {
		r.order = append(r.order, record.BatchID)
	}
	cp := *record
	r.records[record.BatchID] = &cp
	return nil
}

func (r *MemoryBatchRepository) FindByID(ctx context.Context, batchID string) (*domain.BatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[batchID]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", batchID, domain.ErrBatchNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (r *MemoryBatchRepository) Recent(ctx context.Context, limit int) ([]*domain.BatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.order)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*domain.BatchRecord, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.records[r.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}
