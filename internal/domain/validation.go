package domain

import "github.com/google/uuid"

// Validate checks a Courier's required fields and coordinate bounds.
func (c *Courier) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCourierIDRequired
	}
	return c.Location.Validate()
}

// Validate checks an Order's required fields and coordinate bounds.
func (o *Order) Validate() error {
	if o.ID == uuid.Nil {
		return ErrOrderIDRequired
	}
	if err := o.Pickup.Validate(); err != nil {
		return err
	}
	return o.Dropoff.Validate()
}

// Validate checks that a GeoPoint's coordinates are within range.
func (p GeoPoint) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return ErrInvalidLocation
	}
	if p.Lon < -180 || p.Lon > 180 {
		return ErrInvalidLocation
	}
	return nil
}

// IsTerminal reports whether an order status is a final state.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}
