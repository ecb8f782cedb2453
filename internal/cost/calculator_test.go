package cost_test

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/omniroute/work4food/internal/cost"
	"github.com/omniroute/work4food/internal/domain"
	"github.com/omniroute/work4food/internal/workestimate"
)

func courierAt(w, a float64) *domain.Courier {
	return &domain.Courier{
		ID:          uuid.New(),
		Location:    domain.GeoPoint{Lat: 0, Lon: 0},
		SpeedKmph:   25,
		WorkHours:   w,
		ActiveHours: a,
	}
}

func sameLocOrder() *domain.Order {
	return &domain.Order{
		ID:      uuid.New(),
		Pickup:  domain.GeoPoint{Lat: 0, Lon: 0},
		Dropoff: domain.GeoPoint{Lat: 0, Lon: 0},
	}
}

// Scenario 1 from spec.md §8: below-guarantee courier, zero prep/distance
// tuned so w_b = 0.2h exactly.
func TestCalculator_BelowGuarantee_ZeroCostWhenDiscounted(t *testing.T) {
	est := workestimate.New(12, 25) // 12 min prep => 0.2h exactly, zero distance
	calc := cost.New(est)

	courier := courierAt(0, 1) // W=0, A=1 => G = 0.25*1 = 0.25 at default-ish omega
	order := sameLocOrder()

	gotCost, w := calc.Cost(courier, order, 0.25)
	if math.Abs(w-0.2) > 1e-9 {
		t.Fatalf("expected w_b=0.2, got %v", w)
	}
	// G=0.25, W=0, w=0.2 => max(0+0.2-0.25,0) = 0
	if gotCost != 0 {
		t.Errorf("Cost() = %v, want 0", gotCost)
	}
}

// Scenario 2: above-guarantee courier pays raw work, no discount.
func TestCalculator_AboveGuarantee_NoDiscount(t *testing.T) {
	est := workestimate.New(12, 25)
	calc := cost.New(est)

	courier := courierAt(1, 1) // W=1, A=1 => G=0.25 <= W=1
	order := sameLocOrder()

	gotCost, w := calc.Cost(courier, order, 0.25)
	if gotCost != w {
		t.Errorf("Cost() = %v, want raw work %v (no discount above guarantee)", gotCost, w)
	}
}

// Scenario 3: two couriers, one below and one above guarantee, same w_b;
// below-guarantee courier must get the lower (here zero) cost.
func TestCalculator_PrefersBelowGuaranteeCourier(t *testing.T) {
	est := workestimate.New(18, 25) // tuned so w_b=0.3h at zero distance
	calc := cost.New(est)

	order := sameLocOrder()

	c1 := courierAt(0, 2)   // G = 0.25*2 = 0.5, W=0 below guarantee
	c2 := courierAt(0.5, 0.8) // G = 0.25*0.8 = 0.2, W=0.5 above guarantee

	cost1, _ := calc.Cost(c1, order, 0.25)
	cost2, _ := calc.Cost(c2, order, 0.25)

	if cost1 != 0 {
		t.Errorf("c1 cost = %v, want 0 (max(0+0.3-0.5,0))", cost1)
	}
	if math.Abs(cost2-0.3) > 1e-9 {
		t.Errorf("c2 cost = %v, want 0.3 (no discount)", cost2)
	}
	if !(cost1 < cost2) {
		t.Errorf("below-guarantee courier should have strictly lower cost: %v vs %v", cost1, cost2)
	}
}

func TestCalculator_CostNeverNegative(t *testing.T) {
	est := workestimate.New(8, 25)
	calc := cost.New(est)
	order := sameLocOrder()

	// Deeply below guarantee: shortfall would be huge and negative cost
	// must clamp to zero, never go negative.
	courier := courierAt(0, 1000)
	gotCost, _ := calc.Cost(courier, order, 0.9)
	if gotCost < 0 {
		t.Errorf("Cost() = %v, want >= 0", gotCost)
	}
}

func TestCalculator_BuildMatrix_Shape(t *testing.T) {
	est := workestimate.New(8, 25)
	calc := cost.New(est)

	couriers := []*domain.Courier{courierAt(0, 1), courierAt(1, 1)}
	orders := []*domain.Order{sameLocOrder(), sameLocOrder(), sameLocOrder()}

	m := calc.BuildMatrix(couriers, orders, 0.25)
	if len(m.Costs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m.Costs))
	}
	for _, row := range m.Costs {
		if len(row) != 3 {
			t.Fatalf("expected 3 columns, got %d", len(row))
		}
		for _, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("matrix entry %v is not finite and non-negative", v)
			}
		}
	}
}

func TestCalculator_BuildMatrix_EmptyInputs(t *testing.T) {
	est := workestimate.New(8, 25)
	calc := cost.New(est)

	m := calc.BuildMatrix(nil, []*domain.Order{sameLocOrder()}, 0.25)
	if len(m.Costs) != 0 {
		t.Errorf("expected empty matrix with no couriers, got %d rows", len(m.Costs))
	}

	m2 := calc.BuildMatrix([]*domain.Courier{courierAt(0, 1)}, nil, 0.25)
	if len(m2.Costs) != 1 || len(m2.Costs[0]) != 0 {
		t.Errorf("expected 1x0 matrix with no orders, got %dx%d", len(m2.Costs), len(m2.Costs[0]))
	}
}
