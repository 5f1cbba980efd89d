package entities

import "time"

// ReservationType distinguishes inventory holds from staging-capacity holds
type ReservationType int

const (
	InventoryReservation ReservationType = iota
	LocationReservation
)

func (t ReservationType) String() string {
	switch t {
	case InventoryReservation:
		return "Inventory"
	case LocationReservation:
		return "Location"
	default:
		return "Unknown"
	}
}

// ReservationState represents the lifecycle of a reservation
type ReservationState int

const (
	ReservationActive ReservationState = iota
	ReservationConsumed
	ReservationReleased
)

func (s ReservationState) String() string {
	switch s {
	case ReservationActive:
		return "Active"
	case ReservationConsumed:
		return "Consumed"
	case ReservationReleased:
		return "Released"
	default:
		return "Unknown"
	}
}

// Reservation is a soft hold tied to a kit: either inventory for a part or
// capacity on a staging location. Created when a kit enters Staging,
// converted to consumption on Issue, released back to the pool on Cancel.
type Reservation struct {
	ID         string
	KitID      string
	Type       ReservationType
	Part       PartNumber // inventory reservations only
	LocationID string     // location reservations only
	Quantity   Quantity
	State      ReservationState
	CreatedAt  time.Time
	ClosedAt   time.Time
}
