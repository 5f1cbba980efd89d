// Package ledger implements the reservation ledger: soft holds on inventory
// and staging capacity tied to a kit, booked when the kit enters Staging,
// converted to consumption on Issue, and released back to the pool on
// Cancel.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/machshop/kitting/pkg/application/services/availability"
	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
	"github.com/machshop/kitting/pkg/infrastructure/events"
)

// Ledger books and releases reservations. Callers serialize calls per kit;
// the ledger itself holds no locks.
type Ledger struct {
	reservations repositories.ReservationRepository
	inventory    repositories.InventoryGateway
	locations    repositories.LocationRepository
	store        events.EventStore
	log          *slog.Logger
}

// NewLedger creates a reservation ledger.
func NewLedger(
	reservations repositories.ReservationRepository,
	inventory repositories.InventoryGateway,
	locations repositories.LocationRepository,
	store events.EventStore,
	log *slog.Logger,
) *Ledger {
	return &Ledger{
		reservations: reservations,
		inventory:    inventory,
		locations:    locations,
		store:        store,
		log:          log,
	}
}

// BookInventory creates inventory reservations for every kit item with known
// availability. Each hold is capped at the part's net-available quantity and
// the gateway accepts it conditionally, so the sum of active reservations
// never exceeds on-hand even when the snapshot went stale between the
// availability read and the commit; a hold rejected by the gateway surfaces
// as a retryable ConflictError. Items with unknown availability are skipped
// and picked up on the next refresh.
//
// On any failure the holds already created are released again, so an
// interrupted booking never leaves orphaned reservations.
func (l *Ledger) BookInventory(ctx context.Context, kit *entities.Kit, avail *availability.Result) ([]*entities.Reservation, error) {
	var booked []*entities.Reservation

	for i := range kit.Items {
		item := &kit.Items[i]

		snap := avail.Snapshot(item.Part)
		if snap.Unknown {
			continue
		}

		qty := item.Required
		if snap.NetAvailable.Cmp(qty) < 0 {
			qty = snap.NetAvailable
		}
		if !qty.IsPositive() {
			continue
		}

		r := &entities.Reservation{
			ID:        fmt.Sprintf("RSV-%s-%d", kit.ID, len(booked)+1),
			KitID:     kit.ID,
			Type:      entities.InventoryReservation,
			Part:      item.Part,
			Quantity:  qty,
			State:     entities.ReservationActive,
			CreatedAt: time.Now().UTC(),
		}

		if err := l.inventory.CreateReservation(ctx, r); err != nil {
			l.rollback(ctx, booked)
			return nil, fmt.Errorf("failed to reserve %s of %s for kit %s: %w", qty, item.Part, kit.ID, err)
		}
		if err := l.reservations.SaveReservation(ctx, r); err != nil {
			_ = l.inventory.ReleaseReservation(ctx, r.ID, false)
			l.rollback(ctx, booked)
			return nil, fmt.Errorf("failed to record reservation %s: %w", r.ID, err)
		}

		booked = append(booked, r)
		_ = l.store.Append(kit.ID, events.NewReservationBookedEvent(*r))
	}

	return booked, nil
}

// BookLocation records the staging-capacity hold for an already-occupied
// location. The occupancy increment itself happened atomically inside the
// allocator.
func (l *Ledger) BookLocation(ctx context.Context, kit *entities.Kit, locationID string, capacity entities.Quantity) (*entities.Reservation, error) {
	r := &entities.Reservation{
		ID:         fmt.Sprintf("RSV-%s-LOC", kit.ID),
		KitID:      kit.ID,
		Type:       entities.LocationReservation,
		LocationID: locationID,
		Quantity:   capacity,
		State:      entities.ReservationActive,
		CreatedAt:  time.Now().UTC(),
	}

	if err := l.reservations.SaveReservation(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to record location reservation for kit %s: %w", kit.ID, err)
	}

	_ = l.store.Append(kit.ID, events.NewReservationBookedEvent(*r))
	return r, nil
}

// ReleaseKit returns every active reservation of the kit to its pool:
// inventory holds back to the inventory service, location capacity back to
// the staging location.
func (l *Ledger) ReleaseKit(ctx context.Context, kitID string) error {
	return l.closeKit(ctx, kitID, false)
}

// ConsumeKit converts the kit's inventory holds into committed consumption
// and frees its staging capacity. Called on Issue.
func (l *Ledger) ConsumeKit(ctx context.Context, kitID string) error {
	return l.closeKit(ctx, kitID, true)
}

func (l *Ledger) closeKit(ctx context.Context, kitID string, consume bool) error {
	all, err := l.reservations.ListByKit(ctx, kitID)
	if err != nil {
		return fmt.Errorf("failed to list reservations for kit %s: %w", kitID, err)
	}

	for _, r := range all {
		if r.State != entities.ReservationActive {
			continue
		}

		switch r.Type {
		case entities.InventoryReservation:
			if err := l.inventory.ReleaseReservation(ctx, r.ID, consume); err != nil {
				return fmt.Errorf("failed to release inventory reservation %s: %w", r.ID, err)
			}
			if consume {
				r.State = entities.ReservationConsumed
			} else {
				r.State = entities.ReservationReleased
			}

		case entities.LocationReservation:
			if err := l.locations.Release(ctx, r.LocationID, r.Quantity); err != nil {
				return fmt.Errorf("failed to release capacity on location %s: %w", r.LocationID, err)
			}
			r.State = entities.ReservationReleased
			_ = l.store.Append(kitID, events.NewLocationReleasedEvent(kitID, r.LocationID, r.Quantity))
		}

		r.ClosedAt = time.Now().UTC()
		if err := l.reservations.UpdateReservation(ctx, r); err != nil {
			return fmt.Errorf("failed to update reservation %s: %w", r.ID, err)
		}

		_ = l.store.Append(kitID, events.NewReservationReleasedEvent(*r, consume && r.Type == entities.InventoryReservation))
	}

	return nil
}

// rollback releases partially-booked holds after a failed booking.
func (l *Ledger) rollback(ctx context.Context, booked []*entities.Reservation) {
	for _, r := range booked {
		if err := l.inventory.ReleaseReservation(ctx, r.ID, false); err != nil {
			l.log.Error("failed to roll back reservation",
				slog.String("reservation", r.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		r.State = entities.ReservationReleased
		r.ClosedAt = time.Now().UTC()
		if err := l.reservations.UpdateReservation(ctx, r); err != nil {
			l.log.Error("failed to update rolled-back reservation",
				slog.String("reservation", r.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
