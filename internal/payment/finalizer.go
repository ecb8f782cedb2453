// Package payment implements the end-of-window guarantee payout pass:
// for every courier, compute the guaranteed hours at the window's omega,
// the shortfall against actual work-hours, and a handout that tops
// earnings up to the guarantee. Grounded on the original Python
// PaymentProcessor.finalize_payments and restated per spec.md §4.9.
package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/omniroute/work4food/internal/domain"
	"github.com/omniroute/work4food/internal/repository"
)

// Result summarizes a single courier's finalized payment for a window.
type Result struct {
	CourierID        string
	GuaranteedHours   float64
	Shortfall         float64
	Handout           decimal.Decimal
	TotalPay          decimal.Decimal
	EffectiveWage     float64 // TotalPay / ActiveHours, 0 if ActiveHours == 0
	MinWageViolation  bool
}

// Finalizer computes and persists guarantee handouts across the courier
// roster at the end of a window.
type Finalizer struct {
	Couriers   repository.CourierRepository
	PayPerHour float64
	MinWage    float64
	Logger     *zap.Logger
}

// New creates a Finalizer. payPerHour is the same rate config.Config.PayPerHour
// feeds to execution.Executor, since handouts are paid at the rate as
// ordinary work. minWage is the floor effective hourly wage used to flag
// violations for observability; it does not affect the handout computation
// itself — the guarantee and the minimum wage floor are independent
// reporting concerns.
func New(couriers repository.CourierRepository, payPerHour, minWage float64, logger *zap.Logger) *Finalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finalizer{Couriers: couriers, PayPerHour: payPerHour, MinWage: minWage, Logger: logger}
}

// FinalizeAll runs the guarantee payout pass for every courier returned by
// FindAvailable-independent full-roster iteration. Since CourierRepository
// only exposes FindAvailable for the matcher's use, FinalizeAll takes the
// roster explicitly — the batch processor supplies the couriers it pulled
// for the window plus any others the caller wants finalized.
func (f *Finalizer) FinalizeAll(ctx context.Context, couriers []*domain.Courier, omega float64) ([]Result, error) {
	results := make([]Result, 0, len(couriers))
	for _, c := range couriers {
		res, err := f.finalizeOne(ctx, c, omega)
		if err != nil {
			return results, fmt.Errorf("finalize courier %s: %w", c.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (f *Finalizer) finalizeOne(ctx context.Context, courier *domain.Courier, omega float64) (Result, error) {
	guaranteedHours := omega * courier.ActiveHours

	shortfall := guaranteedHours - courier.WorkHours
	if shortfall < 0 {
		shortfall = 0
	}
	handout := decimal.NewFromFloat(f.PayPerHour * shortfall)

	prevUpdated := courier.UpdatedAt
	courier.Handout = handout
	courier.TotalPay = courier.Earnings.Add(handout)

	if err := f.Couriers.CompareAndSwap(ctx, courier, prevUpdated); err != nil {
		return Result{}, err
	}

	var effectiveWage float64
	if courier.ActiveHours > 0 {
		totalPayFloat, _ := courier.TotalPay.Float64()
		effectiveWage = totalPayFloat / courier.ActiveHours
	}
	violation := courier.ActiveHours > 0 && effectiveWage < f.MinWage

	if violation {
		f.Logger.Warn("courier effective wage below floor",
			zap.String("courier_id", courier.ID.String()),
			zap.Float64("effective_wage", effectiveWage),
			zap.Float64("min_wage", f.MinWage),
		)
	}

	return Result{
		CourierID:       courier.ID.String(),
		GuaranteedHours: guaranteedHours,
		Shortfall:       shortfall,
		Handout:         handout,
		TotalPay:        courier.TotalPay,
		EffectiveWage:   effectiveWage,
		MinWageViolation: violation,
	}, nil
}
