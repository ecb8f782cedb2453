// Package execution implements the courier-facing order lifecycle:
// Accept, Pickup, and Deliver. Grounded on the original Python
// OrderExecutor (accept_order/pickup_order/deliver_order) and restated per
// spec.md §4.8, using the teacher's context-first, error-wrapped repository
// call convention throughout.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/omniroute/work4food/internal/domain"
	"github.com/omniroute/work4food/internal/events"
	"github.com/omniroute/work4food/internal/repository"
)

// Executor drives an order through accepted -> picked_up -> delivered,
// mutating the paired courier's work-hours and earnings along the way.
type Executor struct {
	Couriers   repository.CourierRepository
	Orders     repository.OrderRepository
	PayPerHour float64
	Logger     *zap.Logger
	Now        func() time.Time

	// Events is optional: a nil Publisher disables the OrderDelivered
	// event, letting unit tests and single-replica deployments run
	// without Kafka wired up.
	Events *events.Publisher
}

// New creates an Executor. now defaults to time.Now when nil. payPerHour is
// the hourly rate credited to a courier's earnings at delivery, sourced
// from config.Config.PayPerHour (spec.md §6).
func New(couriers repository.CourierRepository, orders repository.OrderRepository, payPerHour float64, logger *zap.Logger, now func() time.Time) *Executor {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{Couriers: couriers, Orders: orders, PayPerHour: payPerHour, Logger: logger, Now: now}
}

// Accept transitions an assigned order to picked-up-eligible state: it
// verifies the order is in assigned status and assigned to courierID, and
// moves the courier to en-route unless the courier is already en-route (as
// the batch processor leaves it at assignment). This mirrors the original's
// accept_order, which the dispatch core treats as an implicit step folded
// into assignment; spec.md §4.8 keeps it explicit so a courier app can
// distinguish "assigned" from "courier has acknowledged."
func (e *Executor) Accept(ctx context.Context, orderID, courierID uuid.UUID) error {
	order, err := e.Orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	if order.Status != domain.OrderStatusAssigned {
		return &domain.PreconditionFailure{Op: "Accept", Reason: "order is not assigned, status is " + string(order.Status)}
	}
	if order.AssignedCourierID == nil || *order.AssignedCourierID != courierID {
		return &domain.PreconditionFailure{Op: "Accept", Reason: "order is not assigned to this courier"}
	}

	courier, err := e.Couriers.FindByID(ctx, courierID)
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	if courier.Status == domain.CourierStatusEnRoute {
		e.Logger.Info("order accepted", zap.String("order_id", orderID.String()), zap.String("courier_id", courierID.String()))
		return nil
	}
	if !courier.Status.CanTransitionTo(domain.CourierStatusEnRoute) {
		return &domain.PreconditionFailure{Op: "Accept", Reason: "courier cannot transition to en_route from " + string(courier.Status)}
	}

	prevUpdated := courier.UpdatedAt
	courier.Status = domain.CourierStatusEnRoute
	courier.UpdatedAt = e.Now()
	if err := e.Couriers.CompareAndSwap(ctx, courier, prevUpdated); err != nil {
		return fmt.Errorf("accept: %w", err)
	}

	e.Logger.Info("order accepted", zap.String("order_id", orderID.String()), zap.String("courier_id", courierID.String()))
	return nil
}

// Pickup records that the courier has picked up the order from the
// restaurant and begins the drop-off leg.
func (e *Executor) Pickup(ctx context.Context, orderID uuid.UUID) error {
	order, err := e.Orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("pickup: %w", err)
	}
	if !order.Status.CanTransitionTo(domain.OrderStatusPickedUp) {
		return &domain.PreconditionFailure{Op: "Pickup", Reason: "order cannot transition to picked_up from " + string(order.Status)}
	}
	if order.AssignedCourierID == nil {
		return &domain.PreconditionFailure{Op: "Pickup", Reason: "order has no assigned courier"}
	}

	courier, err := e.Couriers.FindByID(ctx, *order.AssignedCourierID)
	if err != nil {
		return fmt.Errorf("pickup: %w", err)
	}
	if !courier.Status.CanTransitionTo(domain.CourierStatusDelivering) {
		return &domain.PreconditionFailure{Op: "Pickup", Reason: "courier cannot transition to delivering from " + string(courier.Status)}
	}

	now := e.Now()
	prevCourierUpdated := courier.UpdatedAt
	courier.Status = domain.CourierStatusDelivering
	courier.UpdatedAt = now
	if err := e.Couriers.CompareAndSwap(ctx, courier, prevCourierUpdated); err != nil {
		return fmt.Errorf("pickup: %w", err)
	}

	prevOrderUpdated := order.UpdatedAt
	order.Status = domain.OrderStatusPickedUp
	order.PickedUpAt = &now
	order.UpdatedAt = now
	if err := e.Orders.CompareAndSwap(ctx, order, prevOrderUpdated); err != nil {
		return fmt.Errorf("pickup: %w", err)
	}

	e.Logger.Info("order picked up", zap.String("order_id", orderID.String()))
	return nil
}

// Deliver completes the order: it credits the courier's work-hours with
// actualWorkHours and earnings with e.PayPerHour*actualWorkHours, frees the
// courier to available, and marks the order delivered. Mirrors the
// original's deliver_order, which is the only step that actually advances a
// courier's cumulative work_hours — acceptance and pickup are status-only.
func (e *Executor) Deliver(ctx context.Context, orderID uuid.UUID, actualWorkHours float64) error {
	if actualWorkHours < 0 {
		return &domain.PreconditionFailure{Op: "Deliver", Reason: "actualWorkHours must be non-negative"}
	}

	order, err := e.Orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	if !order.Status.CanTransitionTo(domain.OrderStatusDelivered) {
		return &domain.PreconditionFailure{Op: "Deliver", Reason: "order cannot transition to delivered from " + string(order.Status)}
	}
	if order.AssignedCourierID == nil {
		return &domain.PreconditionFailure{Op: "Deliver", Reason: "order has no assigned courier"}
	}

	courier, err := e.Couriers.FindByID(ctx, *order.AssignedCourierID)
	if err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	if !courier.Status.CanTransitionTo(domain.CourierStatusAvailable) {
		return &domain.PreconditionFailure{Op: "Deliver", Reason: "courier cannot transition to available from " + string(courier.Status)}
	}

	now := e.Now()

	prevCourierUpdated := courier.UpdatedAt
	courier.Status = domain.CourierStatusAvailable
	courier.WorkHours += actualWorkHours
	courier.Earnings = courier.Earnings.Add(decimal.NewFromFloat(e.PayPerHour * actualWorkHours))
	courier.UpdatedAt = now
	if err := e.Couriers.CompareAndSwap(ctx, courier, prevCourierUpdated); err != nil {
		return fmt.Errorf("deliver: %w", err)
	}

	prevOrderUpdated := order.UpdatedAt
	order.Status = domain.OrderStatusDelivered
	order.ActualWorkHours = actualWorkHours
	order.DeliveredAt = &now
	order.UpdatedAt = now
	if err := e.Orders.CompareAndSwap(ctx, order, prevOrderUpdated); err != nil {
		return fmt.Errorf("deliver: %w", err)
	}

	if e.Events != nil {
		if err := e.Events.PublishOrderDelivered(ctx, events.OrderDeliveredEvent{
			OrderID:         orderID.String(),
			CourierID:       courier.ID.String(),
			ActualWorkHours: actualWorkHours,
		}); err != nil {
			e.Logger.Warn("failed to publish order delivered event", zap.String("order_id", orderID.String()), zap.Error(err))
		}
	}

	e.Logger.Info("order delivered",
		zap.String("order_id", orderID.String()),
		zap.Float64("actual_work_hours", actualWorkHours),
	)
	return nil
}
