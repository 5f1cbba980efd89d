package events

import (
	"github.com/machshop/kitting/pkg/domain/entities"
)

const (
	KitCreatedEvent         = "kit.created"
	KitStatusChangedEvent   = "kit.status.changed"
	KitShortageChangedEvent = "kit.shortage.changed"
	KitItemScannedEvent     = "kit.item.scanned"

	LocationAllocatedEvent = "location.allocated"
	LocationReleasedEvent  = "location.released"

	ReservationBookedEvent   = "reservation.booked"
	ReservationReleasedEvent = "reservation.released"
)

type KitCreated struct {
	Kit       entities.Kit              `json:"kit"`
	Shortages []entities.ShortageRecord `json:"shortages,omitempty"`
}

type KitStatusChanged struct {
	KitID string             `json:"kit_id"`
	From  entities.KitStatus `json:"from"`
	To    entities.KitStatus `json:"to"`
	Actor string             `json:"actor,omitempty"`
}

type KitShortageChanged struct {
	KitID     string                    `json:"kit_id"`
	Summary   entities.ShortageSummary  `json:"summary"`
	Shortages []entities.ShortageRecord `json:"shortages"`
}

type KitItemScanned struct {
	KitID     string                 `json:"kit_id"`
	Part      entities.PartNumber    `json:"part"`
	Quantity  entities.Quantity      `json:"quantity"`
	Condition entities.ConditionCode `json:"condition"`
	Actor     string                 `json:"actor,omitempty"`
}

type LocationAllocated struct {
	KitID      string            `json:"kit_id"`
	LocationID string            `json:"location_id"`
	Capacity   entities.Quantity `json:"capacity"`
}

type LocationReleased struct {
	KitID      string            `json:"kit_id"`
	LocationID string            `json:"location_id"`
	Capacity   entities.Quantity `json:"capacity"`
}

type ReservationBooked struct {
	Reservation entities.Reservation `json:"reservation"`
}

type ReservationReleased struct {
	Reservation entities.Reservation `json:"reservation"`
	Consumed    bool                 `json:"consumed"`
}

func NewKitCreatedEvent(kit entities.Kit, shortages []entities.ShortageRecord) Event {
	return NewEvent(KitCreatedEvent, kit.ID, KitCreated{Kit: kit, Shortages: shortages})
}

func NewKitStatusChangedEvent(kitID string, from, to entities.KitStatus, actor string) Event {
	return NewEvent(KitStatusChangedEvent, kitID, KitStatusChanged{
		KitID: kitID,
		From:  from,
		To:    to,
		Actor: actor,
	})
}

func NewKitShortageChangedEvent(kitID string, summary entities.ShortageSummary, shortages []entities.ShortageRecord) Event {
	return NewEvent(KitShortageChangedEvent, kitID, KitShortageChanged{
		KitID:     kitID,
		Summary:   summary,
		Shortages: shortages,
	})
}

func NewKitItemScannedEvent(kitID string, part entities.PartNumber, qty entities.Quantity, condition entities.ConditionCode, actor string) Event {
	return NewEvent(KitItemScannedEvent, kitID, KitItemScanned{
		KitID:     kitID,
		Part:      part,
		Quantity:  qty,
		Condition: condition,
		Actor:     actor,
	})
}

func NewLocationAllocatedEvent(kitID, locationID string, capacity entities.Quantity) Event {
	return NewEvent(LocationAllocatedEvent, locationID, LocationAllocated{
		KitID:      kitID,
		LocationID: locationID,
		Capacity:   capacity,
	})
}

func NewLocationReleasedEvent(kitID, locationID string, capacity entities.Quantity) Event {
	return NewEvent(LocationReleasedEvent, locationID, LocationReleased{
		KitID:      kitID,
		LocationID: locationID,
		Capacity:   capacity,
	})
}

func NewReservationBookedEvent(r entities.Reservation) Event {
	return NewEvent(ReservationBookedEvent, r.KitID, ReservationBooked{Reservation: r})
}

func NewReservationReleasedEvent(r entities.Reservation, consumed bool) Event {
	return NewEvent(ReservationReleasedEvent, r.KitID, ReservationReleased{Reservation: r, Consumed: consumed})
}
