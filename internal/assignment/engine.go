// Package assignment implements the rectangular minimum-cost bipartite
// matching step of a dispatch window: given the guarantee-aware cost matrix
// from package cost, it pads to a square matrix with a high sentinel cost,
// solves for a minimum-weight perfect matching, and filters the solution
// back down to real courier/order pairs. Grounded on the original Python
// AssignmentEngine.assign_batch (scipy.optimize.linear_sum_assignment over
// a sentinel-padded square matrix) and restated per spec.md §4.5.
package assignment

import (
	"math"

	"github.com/omniroute/work4food/internal/cost"
	"github.com/omniroute/work4food/internal/domain"
)

// sentinelCost marks a pairing that does not exist in the original
// rectangular problem. It must exceed any real cost the CostCalculator can
// produce so the solver never prefers a padded pairing over a real one.
const sentinelCost = 1e6

// Pairing is one courier matched to one order by Assign.
type Pairing struct {
	CourierIndex int
	OrderIndex   int
	Courier      *domain.Courier
	Order        *domain.Order
	Cost         float64
	WorkHours    float64 // w_b(i,j), the estimated work-hours the cost was derived from
}

// Engine solves the bipartite matching problem for a single batch window.
type Engine struct {
	Calculator *cost.Calculator
}

// New creates an Engine backed by the given cost calculator.
func New(calculator *cost.Calculator) *Engine {
	return &Engine{Calculator: calculator}
}

// Assign computes the guarantee-aware cost matrix for couriers x orders at
// the given omega, solves the minimum-cost assignment, and returns one
// Pairing per matched courier/order pair. When couriers and orders differ
// in count, the unmatched side's surplus entries are silently dropped: a
// surplus courier gets no pairing, a surplus order carries forward
// unassigned. Returns no pairings (without error) if either side is empty.
func (e *Engine) Assign(couriers []*domain.Courier, orders []*domain.Order, omega float64) []Pairing {
	if len(couriers) == 0 || len(orders) == 0 {
		return nil
	}

	matrix := e.Calculator.BuildMatrix(couriers, orders, omega)
	square := padToSquare(matrix.Costs)

	rowToCol, _ := solveHungarian(square)

	n := len(couriers)
	k := len(orders)
	pairings := make([]Pairing, 0, minInt(n, k))
	for i := 0; i < n; i++ {
		j := rowToCol[i]
		if j >= k {
			continue // courier matched to a padding column: stays unassigned
		}
		cellCost := matrix.Costs[i][j]
		if math.IsNaN(cellCost) || cellCost >= sentinelCost {
			continue // degenerate cell: treat as sentinel, order stays pending
		}
		pairings = append(pairings, Pairing{
			CourierIndex: i,
			OrderIndex:   j,
			Courier:      couriers[i],
			Order:        orders[j],
			Cost:         cellCost,
			WorkHours:    matrix.WorkHours[i][j],
		})
	}
	return pairings
}

// padToSquare embeds an n x k cost matrix into a max(n,k) x max(n,k) square
// matrix, filling the padding with sentinelCost so the solver only ever
// picks a padded cell once every real option at that row or column is
// exhausted. A NaN or infinite real cell is also given sentinelCost, so the
// solver never sees a non-finite value.
func padToSquare(costs [][]float64) [][]float64 {
	n := len(costs)
	k := 0
	if n > 0 {
		k = len(costs[0])
	}
	dim := maxInt(n, k)

	square := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		square[i] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			if i < n && j < k && !math.IsNaN(costs[i][j]) && !math.IsInf(costs[i][j], 0) {
				square[i][j] = costs[i][j]
			} else {
				square[i][j] = sentinelCost
			}
		}
	}
	return square
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
