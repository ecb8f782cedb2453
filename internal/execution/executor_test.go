package execution_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omniroute/work4food/internal/domain"
	"github.com/omniroute/work4food/internal/execution"
	"github.com/omniroute/work4food/internal/repository"
)

const testPayPerHour = 100.0

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func setup(t *testing.T) (*execution.Executor, *repository.MemoryCourierRepository, *repository.MemoryOrderRepository, *domain.Courier, *domain.Order) {
	t.Helper()
	ctx := context.Background()
	couriers := repository.NewMemoryCourierRepository()
	orders := repository.NewMemoryOrderRepository()

	courierID := uuid.New()
	orderID := uuid.New()
	now := time.Now()

	courier := &domain.Courier{ID: courierID, Status: domain.CourierStatusEnRoute, Earnings: decimal.Zero, UpdatedAt: now}
	order := &domain.Order{ID: orderID, Status: domain.OrderStatusAssigned, AssignedCourierID: &courierID, UpdatedAt: now}

	if err := couriers.Save(ctx, courier); err != nil {
		t.Fatalf("seed courier: %v", err)
	}
	if err := orders.Save(ctx, order); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	exec := execution.New(couriers, orders, testPayPerHour, nil, fixedClock(now))
	return exec, couriers, orders, courier, order
}

func TestExecutor_Accept_TransitionsCourierToEnRoute(t *testing.T) {
	ctx := context.Background()
	couriers := repository.NewMemoryCourierRepository()
	orders := repository.NewMemoryOrderRepository()

	courierID := uuid.New()
	orderID := uuid.New()
	now := time.Now()
	courier := &domain.Courier{ID: courierID, Status: domain.CourierStatusAvailable, UpdatedAt: now}
	order := &domain.Order{ID: orderID, Status: domain.OrderStatusAssigned, AssignedCourierID: &courierID, UpdatedAt: now}
	couriers.Save(ctx, courier)
	orders.Save(ctx, order)

	exec := execution.New(couriers, orders, testPayPerHour, nil, fixedClock(now))
	if err := exec.Accept(ctx, orderID, courierID); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	got, _ := couriers.FindByID(ctx, courierID)
	if got.Status != domain.CourierStatusEnRoute {
		t.Errorf("courier status = %v, want en_route", got.Status)
	}
}

func TestExecutor_Accept_RejectsWrongCourier(t *testing.T) {
	exec, _, _, _, order := setup(t)
	err := exec.Accept(context.Background(), order.ID, uuid.New())
	var pf *domain.PreconditionFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PreconditionFailure, got %v", err)
	}
}

func TestExecutor_Pickup_SetsPickedUpAtAndDeliveringStatus(t *testing.T) {
	exec, couriers, orders, courier, order := setup(t)
	ctx := context.Background()

	if err := exec.Pickup(ctx, order.ID); err != nil {
		t.Fatalf("Pickup() error = %v", err)
	}

	gotOrder, _ := orders.FindByID(ctx, order.ID)
	if gotOrder.Status != domain.OrderStatusPickedUp {
		t.Errorf("order status = %v, want picked_up", gotOrder.Status)
	}
	if gotOrder.PickedUpAt == nil {
		t.Error("PickedUpAt not set")
	}

	gotCourier, _ := couriers.FindByID(ctx, courier.ID)
	if gotCourier.Status != domain.CourierStatusDelivering {
		t.Errorf("courier status = %v, want delivering", gotCourier.Status)
	}
}

func TestExecutor_Pickup_RejectsFromWrongOrderStatus(t *testing.T) {
	exec, _, orders, _, order := setup(t)
	ctx := context.Background()

	order.Status = domain.OrderStatusPending
	orders.Save(ctx, order)

	err := exec.Pickup(ctx, order.ID)
	var pf *domain.PreconditionFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PreconditionFailure, got %v", err)
	}
}

func TestExecutor_Deliver_CreditsWorkHoursAndEarnings(t *testing.T) {
	exec, couriers, orders, courier, order := setup(t)
	ctx := context.Background()

	order.Status = domain.OrderStatusPickedUp
	orders.Save(ctx, order)
	courier.Status = domain.CourierStatusDelivering
	couriers.Save(ctx, courier)

	if err := exec.Deliver(ctx, order.ID, 0.5); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	gotCourier, _ := couriers.FindByID(ctx, courier.ID)
	if gotCourier.Status != domain.CourierStatusAvailable {
		t.Errorf("courier status = %v, want available", gotCourier.Status)
	}
	if gotCourier.WorkHours != 0.5 {
		t.Errorf("WorkHours = %v, want 0.5", gotCourier.WorkHours)
	}
	wantEarnings := decimal.NewFromFloat(testPayPerHour * 0.5)
	if !gotCourier.Earnings.Equal(wantEarnings) {
		t.Errorf("Earnings = %v, want %v", gotCourier.Earnings, wantEarnings)
	}

	gotOrder, _ := orders.FindByID(ctx, order.ID)
	if gotOrder.Status != domain.OrderStatusDelivered {
		t.Errorf("order status = %v, want delivered", gotOrder.Status)
	}
	if gotOrder.ActualWorkHours != 0.5 {
		t.Errorf("ActualWorkHours = %v, want 0.5", gotOrder.ActualWorkHours)
	}
	if gotOrder.DeliveredAt == nil {
		t.Error("DeliveredAt not set")
	}
}

func TestExecutor_Deliver_RejectsNegativeWorkHours(t *testing.T) {
	exec, couriers, orders, courier, order := setup(t)
	ctx := context.Background()
	order.Status = domain.OrderStatusPickedUp
	orders.Save(ctx, order)
	courier.Status = domain.CourierStatusDelivering
	couriers.Save(ctx, courier)

	err := exec.Deliver(ctx, order.ID, -1)
	var pf *domain.PreconditionFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PreconditionFailure, got %v", err)
	}
}

func TestExecutor_Deliver_RejectsAlreadyDelivered(t *testing.T) {
	exec, couriers, orders, courier, order := setup(t)
	ctx := context.Background()
	order.Status = domain.OrderStatusDelivered
	orders.Save(ctx, order)
	courier.Status = domain.CourierStatusAvailable
	couriers.Save(ctx, courier)

	err := exec.Deliver(ctx, order.ID, 0.5)
	var pf *domain.PreconditionFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PreconditionFailure, got %v", err)
	}
}
