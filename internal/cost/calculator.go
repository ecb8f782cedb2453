// Package cost builds the per-window guarantee-aware cost matrix the
// assignment engine optimizes over. Grounded directly on the original
// Python CostCalculator.compute_cost_matrix (Equation 3 in the source's own
// comment) and restated per spec.md §4.3.
package cost

import (
	"github.com/omniroute/work4food/internal/domain"
	"github.com/omniroute/work4food/internal/workestimate"
)

// Calculator computes the guarantee-aware cost for (courier, order) pairs.
//
// cost(i, j) =
//
//	w_b(i,j)                       if G_i <= W_i
//	max(W_i + w_b(i,j) - G_i, 0)   if G_i >  W_i
//
// where G_i = omega * courier.ActiveHours, W_i = courier.WorkHours, and
// w_b(i,j) is the estimated work-hours for courier i to complete order j.
// When a courier is below guarantee (G_i > W_i), the cost is discounted by
// the shortfall so the matcher is biased toward closing that gap; once the
// guarantee is already covered, cost is raw estimated work.
type Calculator struct {
	Estimator *workestimate.Estimator
}

// New creates a Calculator backed by the given work estimator.
func New(estimator *workestimate.Estimator) *Calculator {
	return &Calculator{Estimator: estimator}
}

// Cost returns the guarantee-aware cost for a single (courier, order) pair
// at the given omega, plus the estimated work-hours it was derived from.
func (c *Calculator) Cost(courier *domain.Courier, order *domain.Order, omega float64) (cost, workHours float64) {
	w := c.Estimator.Estimate(courier, order)
	guaranteedHours := omega * courier.ActiveHours

	if guaranteedHours <= courier.WorkHours {
		return w, w
	}
	shortfall := courier.WorkHours + w - guaranteedHours
	if shortfall < 0 {
		shortfall = 0
	}
	return shortfall, w
}

// Matrix is an n_couriers x n_orders real-valued cost matrix; row i, column
// j holds Cost(couriers[i], orders[j], omega). Entries are non-negative and,
// for finite courier WorkHours and ActiveHours, finite; a NaN in either
// field yields a NaN entry.
type Matrix struct {
	Couriers  []*domain.Courier
	Orders    []*domain.Order
	Costs     [][]float64 // Costs[i][j]
	WorkHours [][]float64 // WorkHours[i][j], the w_b(i,j) each cost was derived from
}

// BuildMatrix computes the full cost matrix for the given roster and intake
// at the given omega. An empty roster or intake yields an empty matrix.
func (c *Calculator) BuildMatrix(couriers []*domain.Courier, orders []*domain.Order, omega float64) *Matrix {
	m := &Matrix{
		Couriers:  couriers,
		Orders:    orders,
		Costs:     make([][]float64, len(couriers)),
		WorkHours: make([][]float64, len(couriers)),
	}
	for i, courier := range couriers {
		m.Costs[i] = make([]float64, len(orders))
		m.WorkHours[i] = make([]float64, len(orders))
		for j, order := range orders {
			cost, w := c.Cost(courier, order, omega)
			m.Costs[i][j] = cost
			m.WorkHours[i][j] = w
		}
	}
	return m
}
