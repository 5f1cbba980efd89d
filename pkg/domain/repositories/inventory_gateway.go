package repositories

import (
	"context"

	"github.com/machshop/kitting/pkg/domain/entities"
)

// InventoryGateway is the boundary to the external inventory service. Reads
// have no side effects; reservation calls are issued only by the reservation
// ledger once a kit is confirmed.
type InventoryGateway interface {
	// GetStock returns on-hand, reserved and in-transit quantities for a
	// part. A transient failure is reported as AvailabilityUnknownError so
	// callers can distinguish "unknown, re-verify" from a definite failure.
	GetStock(ctx context.Context, part entities.PartNumber) (*entities.StockLevels, error)

	// CreateReservation registers an inventory hold with the collaborator.
	CreateReservation(ctx context.Context, r *entities.Reservation) error

	// ReleaseReservation closes a hold; consumed converts it into actual
	// consumption instead of returning quantity to the pool.
	ReleaseReservation(ctx context.Context, reservationID string, consumed bool) error
}
