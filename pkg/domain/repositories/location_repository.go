package repositories

import (
	"context"

	"github.com/machshop/kitting/pkg/domain/entities"
)

// LocationRepository stores staging locations. Occupancy changes are
// serialized per location by the implementation so that concurrent
// allocations can never push occupancy past capacity.
type LocationRepository interface {
	GetLocation(ctx context.Context, id string) (*entities.StagingLocation, error)
	ListLocations(ctx context.Context) ([]*entities.StagingLocation, error)
	SaveLocation(ctx context.Context, loc *entities.StagingLocation) error
	SetStatus(ctx context.Context, id string, status entities.LocationStatus) error

	// TryOccupy atomically increments occupancy by qty if the location is
	// Available and the result stays within capacity. It returns false, nil
	// when the increment would not fit; the caller moves to the next
	// candidate.
	TryOccupy(ctx context.Context, id string, qty entities.Quantity) (bool, error)

	// Release decrements occupancy by qty, never below zero, and flips an
	// AtCapacity location back to Available.
	Release(ctx context.Context, id string, qty entities.Quantity) error
}
