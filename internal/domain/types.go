// Package domain contains the core domain models for the WORK4FOOD dispatch
// core: couriers, orders, and the batch records the matcher produces.
// Following the teacher's DDD-ish conventions, validation lives alongside
// these types; the repository interfaces are in package repository.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CourierStatus represents the availability status of a courier.
type CourierStatus string

const (
	CourierStatusAvailable CourierStatus = "available"
	CourierStatusEnRoute   CourierStatus = "en_route"
	CourierStatusDelivering CourierStatus = "delivering"
	CourierStatusOffline   CourierStatus = "offline"
)

// CanTransitionTo reports whether a courier may move from this status to target.
func (s CourierStatus) CanTransitionTo(target CourierStatus) bool {
	transitions := map[CourierStatus][]CourierStatus{
		CourierStatusOffline:    {CourierStatusAvailable},
		CourierStatusAvailable:  {CourierStatusEnRoute, CourierStatusOffline},
		CourierStatusEnRoute:    {CourierStatusDelivering, CourierStatusAvailable},
		CourierStatusDelivering: {CourierStatusAvailable},
	}
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// OrderStatus represents the lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAssigned  OrderStatus = "assigned"
	OrderStatusPickedUp  OrderStatus = "picked_up"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// CanTransitionTo reports whether an order may move from this status to target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending:   {OrderStatusAssigned, OrderStatusCancelled},
		OrderStatusAssigned:  {OrderStatusPickedUp, OrderStatusCancelled},
		OrderStatusPickedUp:  {OrderStatusDelivered},
		OrderStatusDelivered: {},
		OrderStatusCancelled: {},
	}
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// GeoPoint is a (lat, lon) pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Courier is a gig worker available for order assignment.
type Courier struct {
	ID       uuid.UUID     `json:"id"`
	Location GeoPoint      `json:"location"`
	Status   CourierStatus `json:"status"`

	// SpeedKmph is the courier's own travel speed. Zero means "use the
	// configured global default" — see WorkEstimator.
	SpeedKmph float64 `json:"speed_kmph"`

	WorkHours   float64 `json:"work_hours"`   // W: cumulative hours actually worked
	ActiveHours float64 `json:"active_hours"` // A: cumulative hours available in a window

	Earnings decimal.Decimal `json:"earnings"`   // pay-for-work, credited at delivery
	Handout  decimal.Decimal `json:"handout"`     // guarantee shortfall payout, set by PaymentFinalizer
	TotalPay decimal.Decimal `json:"total_pay"`   // Earnings + Handout

	UpdatedAt time.Time `json:"updated_at"`
}

// Order is a delivery request the matcher assigns to a courier.
type Order struct {
	ID      uuid.UUID   `json:"id"`
	Pickup  GeoPoint    `json:"pickup"`
	Dropoff GeoPoint    `json:"dropoff"`
	Status  OrderStatus `json:"status"`

	AssignedCourierID *uuid.UUID `json:"assigned_courier_id,omitempty"`
	BatchID           string     `json:"batch_id,omitempty"`

	EstimatedWorkHours float64 `json:"estimated_work_hours"`
	ActualWorkHours    float64 `json:"actual_work_hours"`
	AssignmentCost     float64 `json:"assignment_cost"`

	CreatedAt   time.Time  `json:"created_at"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// BatchRecord is the append-only audit row written once per window tick.
type BatchRecord struct {
	BatchID         string    `json:"batch_id"`
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
	TotalOrders     int       `json:"total_orders"`
	AssignedOrders  int       `json:"assigned_orders"`
	AvailableAgents int       `json:"available_agents"`
	OmegaUsed       float64   `json:"omega_used"`
	CreatedAt       time.Time `json:"created_at"`
}

// BatchIDFromWindowStart derives a monotonically increasing batch id from a
// window's start time, matching the original implementation's
// "batch_" + strftime convention.
func BatchIDFromWindowStart(windowStart time.Time) string {
	return "batch_" + windowStart.UTC().Format("20060102_150405")
}
