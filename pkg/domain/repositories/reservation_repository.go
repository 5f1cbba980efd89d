package repositories

import (
	"context"

	"github.com/machshop/kitting/pkg/domain/entities"
)

// ReservationRepository stores the engine's reservation ledger entries.
type ReservationRepository interface {
	SaveReservation(ctx context.Context, r *entities.Reservation) error
	UpdateReservation(ctx context.Context, r *entities.Reservation) error
	ListByKit(ctx context.Context, kitID string) ([]*entities.Reservation, error)

	// ActiveReservedQuantity sums active inventory reservations for a part,
	// excluding those held by excludeKit (empty excludes nothing).
	ActiveReservedQuantity(ctx context.Context, part entities.PartNumber, excludeKit string) (entities.Quantity, error)
}
