// Package workestimate computes estimated work-hours for a courier to
// complete an order: travel to pickup, preparation wait, travel to dropoff.
// Grounded on the original Python CostCalculator._estimate_work_hours /
// BatchProcessor._calculate_work_hours, restated directly in terms of order
// pickup/dropoff coordinates per spec.md §9's Open Question about the
// source's user_id-keyed Restaurant lookup (sidestepped entirely here).
package workestimate

import (
	"github.com/omniroute/work4food/internal/domain"
	"github.com/omniroute/work4food/internal/geokit"
)

// Estimator computes estimated work-hours for a (courier, order) pair.
type Estimator struct {
	// PrepTimeMinutes is the fixed preparation wait baked into every order.
	PrepTimeMinutes float64
	// DefaultSpeedKmph is used when a courier has no speed of its own.
	DefaultSpeedKmph float64
}

// New creates an Estimator with the given configuration.
func New(prepTimeMinutes, defaultSpeedKmph float64) *Estimator {
	return &Estimator{
		PrepTimeMinutes:  prepTimeMinutes,
		DefaultSpeedKmph: defaultSpeedKmph,
	}
}

// speedFor returns the courier's own speed if set, else the configured
// default — per-courier speed is authoritative (spec.md §9).
func (e *Estimator) speedFor(c *domain.Courier) float64 {
	if c.SpeedKmph > 0 {
		return c.SpeedKmph
	}
	return e.DefaultSpeedKmph
}

// Estimate returns estimated work-hours for courier c to complete order o:
// (travel to pickup + prep time + travel to dropoff) / 60.
func (e *Estimator) Estimate(c *domain.Courier, o *domain.Order) float64 {
	speed := e.speedFor(c)

	toPickup := geokit.TravelTimeMinutes(c.Location.Lat, c.Location.Lon, o.Pickup.Lat, o.Pickup.Lon, speed)
	toDropoff := geokit.TravelTimeMinutes(o.Pickup.Lat, o.Pickup.Lon, o.Dropoff.Lat, o.Dropoff.Lon, speed)

	totalMinutes := toPickup + e.PrepTimeMinutes + toDropoff
	return totalMinutes / 60.0
}
