package batch_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/omniroute/work4food/internal/batch"
	"github.com/omniroute/work4food/internal/cost"
	"github.com/omniroute/work4food/internal/domain"
	"github.com/omniroute/work4food/internal/guarantee"
	"github.com/omniroute/work4food/internal/repository"
	"github.com/omniroute/work4food/internal/workestimate"
)

func newProcessor(t *testing.T) (*batch.Processor, *repository.MemoryCourierRepository, *repository.MemoryOrderRepository, *repository.MemoryBatchRepository) {
	t.Helper()
	couriers := repository.NewMemoryCourierRepository()
	orders := repository.NewMemoryOrderRepository()
	batches := repository.NewMemoryBatchRepository()

	est := workestimate.New(8, 25)
	calc := cost.New(est)
	pred := guarantee.New(guarantee.DefaultConfig())

	now := time.Now()
	p := batch.New(couriers, orders, batches, calc, pred, 3*time.Minute, nil, func() time.Time { return now })
	return p, couriers, orders, batches
}

func TestProcessor_ProcessBatch_AssignsAndPersists(t *testing.T) {
	ctx := context.Background()
	p, couriers, orders, batches := newProcessor(t)

	windowStart := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	courierID := uuid.New()
	courier := &domain.Courier{ID: courierID, Status: domain.CourierStatusAvailable, ActiveHours: 1, UpdatedAt: windowStart}
	couriers.Save(ctx, courier)

	orderID := uuid.New()
	order := &domain.Order{ID: orderID, Status: domain.OrderStatusPending, CreatedAt: windowStart.Add(time.Minute), UpdatedAt: windowStart}
	orders.Save(ctx, order)

	result, err := p.ProcessBatch(ctx, windowStart)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if result.TotalOrders != 1 || result.AssignedOrders != 1 || result.AvailableAgents != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	gotOrder, _ := orders.FindByID(ctx, orderID)
	if gotOrder.Status != domain.OrderStatusAssigned {
		t.Errorf("order status = %v, want assigned", gotOrder.Status)
	}
	if gotOrder.AssignedCourierID == nil || *gotOrder.AssignedCourierID != courierID {
		t.Errorf("order not assigned to expected courier")
	}
	if gotOrder.BatchID != result.BatchID {
		t.Errorf("order batch id = %v, want %v", gotOrder.BatchID, result.BatchID)
	}

	gotCourier, _ := couriers.FindByID(ctx, courierID)
	if gotCourier.Status != domain.CourierStatusEnRoute {
		t.Errorf("courier status = %v, want en_route", gotCourier.Status)
	}
	if gotCourier.ActiveHours <= 1 {
		t.Errorf("courier active hours = %v, want credited above the initial 1", gotCourier.ActiveHours)
	}

	rec, err := batches.FindByID(ctx, result.BatchID)
	if err != nil {
		t.Fatalf("batch record not saved: %v", err)
	}
	if rec.TotalOrders != 1 || rec.AssignedOrders != 1 || rec.AvailableAgents != 1 {
		t.Errorf("unexpected batch record: %+v", rec)
	}
}

func TestProcessor_ProcessBatch_NoOrdersOrCouriers_NoError(t *testing.T) {
	ctx := context.Background()
	p, _, _, _ := newProcessor(t)

	result, err := p.ProcessBatch(ctx, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if result.TotalOrders != 0 || result.AssignedOrders != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestProcessor_ProcessBatch_SurplusOrdersStayPending(t *testing.T) {
	ctx := context.Background()
	p, couriers, orders, _ := newProcessor(t)

	windowStart := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	courier := &domain.Courier{ID: uuid.New(), Status: domain.CourierStatusAvailable, ActiveHours: 1, UpdatedAt: windowStart}
	couriers.Save(ctx, courier)

	o1 := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending, CreatedAt: windowStart, UpdatedAt: windowStart}
	o2 := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending, CreatedAt: windowStart.Add(time.Minute), UpdatedAt: windowStart}
	orders.Save(ctx, o1)
	orders.Save(ctx, o2)

	result, err := p.ProcessBatch(ctx, windowStart)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if result.AssignedOrders != 1 {
		t.Fatalf("expected exactly 1 assignment with 1 courier, got %d", result.AssignedOrders)
	}

	pending, _ := orders.FindPending(ctx, time.Time{}, windowStart.Add(time.Hour))
	if len(pending) != 1 {
		t.Errorf("expected 1 order to remain pending, got %d", len(pending))
	}
}

func TestProcessor_ProcessBatch_CreditsActiveHoursEvenWithoutAssignment(t *testing.T) {
	ctx := context.Background()
	p, couriers, _, _ := newProcessor(t)

	windowStart := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	courierID := uuid.New()
	courier := &domain.Courier{ID: courierID, Status: domain.CourierStatusAvailable, ActiveHours: 0, UpdatedAt: windowStart}
	couriers.Save(ctx, courier)

	if _, err := p.ProcessBatch(ctx, windowStart); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	got, _ := couriers.FindByID(ctx, courierID)
	want := (3 * time.Minute).Minutes() / 60.0
	if got.ActiveHours != want {
		t.Errorf("ActiveHours = %v, want %v (courier never matched, still present for the window)", got.ActiveHours, want)
	}
	if got.Status != domain.CourierStatusAvailable {
		t.Errorf("unmatched courier status changed to %v, want unchanged available", got.Status)
	}
}

func TestProcessor_ProcessBatch_OrdersOutsideWindowStayPending(t *testing.T) {
	ctx := context.Background()
	p, couriers, orders, _ := newProcessor(t)

	windowStart := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	couriers.Save(ctx, &domain.Courier{ID: uuid.New(), Status: domain.CourierStatusAvailable, UpdatedAt: windowStart})

	stale := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending, CreatedAt: windowStart.Add(-time.Hour), UpdatedAt: windowStart}
	orders.Save(ctx, stale)

	result, err := p.ProcessBatch(ctx, windowStart)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if result.TotalOrders != 0 || result.AssignedOrders != 0 {
		t.Errorf("expected the stale order to be excluded from intake, got %+v", result)
	}

	got, _ := orders.FindByID(ctx, stale.ID)
	if got.Status != domain.OrderStatusPending {
		t.Errorf("stale order status = %v, want still pending", got.Status)
	}
}

func TestProcessor_ProcessBatch_CarryForwardPendingIncludesOlderOrders(t *testing.T) {
	ctx := context.Background()
	p, couriers, orders, _ := newProcessor(t)
	p.CarryForwardPending = true

	windowStart := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	couriers.Save(ctx, &domain.Courier{ID: uuid.New(), Status: domain.CourierStatusAvailable, UpdatedAt: windowStart})

	stale := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending, CreatedAt: windowStart.Add(-time.Hour), UpdatedAt: windowStart}
	orders.Save(ctx, stale)

	result, err := p.ProcessBatch(ctx, windowStart)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if result.TotalOrders != 1 || result.AssignedOrders != 1 {
		t.Errorf("expected the stale order to carry forward into intake, got %+v", result)
	}
}

func TestProcessor_ProcessBatch_ReinvocationReturnsExistingRecord(t *testing.T) {
	ctx := context.Background()
	p, couriers, orders, _ := newProcessor(t)

	windowStart := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	courier := &domain.Courier{ID: uuid.New(), Status: domain.CourierStatusAvailable, UpdatedAt: windowStart}
	couriers.Save(ctx, courier)
	order := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending, CreatedAt: windowStart, UpdatedAt: windowStart}
	orders.Save(ctx, order)

	first, err := p.ProcessBatch(ctx, windowStart)
	if err != nil {
		t.Fatalf("first ProcessBatch() error = %v", err)
	}

	// A second order arrives after the first tick; re-invoking with the
	// same windowStart must not pick it up or mutate the persisted totals.
	late := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending, CreatedAt: windowStart, UpdatedAt: windowStart}
	orders.Save(ctx, late)

	second, err := p.ProcessBatch(ctx, windowStart)
	if err != nil {
		t.Fatalf("second ProcessBatch() error = %v", err)
	}
	if second.BatchID != first.BatchID || second.TotalOrders != first.TotalOrders || second.AssignedOrders != first.AssignedOrders {
		t.Errorf("re-invocation returned a different result: first=%+v second=%+v", first, second)
	}

	gotLate, _ := orders.FindByID(ctx, late.ID)
	if gotLate.Status != domain.OrderStatusPending {
		t.Errorf("late order should not have been picked up by the re-invocation, status = %v", gotLate.Status)
	}
}
