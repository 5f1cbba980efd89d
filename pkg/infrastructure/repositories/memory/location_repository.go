package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// LocationRepository provides in-memory staging-location storage. Occupancy
// changes run under the repository mutex, so TryOccupy's check-and-increment
// is atomic with respect to concurrent allocators.
type LocationRepository struct {
	mutex     sync.RWMutex
	locations map[string]*entities.StagingLocation
}

// NewLocationRepository creates a new in-memory location repository.
func NewLocationRepository() *LocationRepository {
	return &LocationRepository{locations: make(map[string]*entities.StagingLocation)}
}

// Verify interface compliance
var _ repositories.LocationRepository = (*LocationRepository)(nil)

// GetLocation returns a copy of the location.
func (r *LocationRepository) GetLocation(ctx context.Context, id string) (*entities.StagingLocation, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	loc, exists := r.locations[id]
	if !exists {
		return nil, fmt.Errorf("location not found: %s", id)
	}
	return copyLocation(loc), nil
}

// ListLocations returns all locations ordered by id.
func (r *LocationRepository) ListLocations(ctx context.Context) ([]*entities.StagingLocation, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]*entities.StagingLocation, 0, len(r.locations))
	for _, loc := range r.locations {
		out = append(out, copyLocation(loc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveLocation stores or replaces a location.
func (r *LocationRepository) SaveLocation(ctx context.Context, loc *entities.StagingLocation) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.locations[loc.ID] = copyLocation(loc)
	return nil
}

// SetStatus changes the operational status of a location.
func (r *LocationRepository) SetStatus(ctx context.Context, id string, status entities.LocationStatus) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	loc, exists := r.locations[id]
	if !exists {
		return fmt.Errorf("location not found: %s", id)
	}
	loc.Status = status
	return nil
}

// TryOccupy atomically increments occupancy by qty when the location is
// Available and the result stays within capacity.
func (r *LocationRepository) TryOccupy(ctx context.Context, id string, qty entities.Quantity) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	loc, exists := r.locations[id]
	if !exists {
		return false, fmt.Errorf("location not found: %s", id)
	}
	if loc.Status != entities.LocationAvailable {
		return false, nil
	}

	next := loc.Occupancy.Add(qty)
	if next.Cmp(loc.Capacity) > 0 {
		return false, nil
	}

	loc.Occupancy = next
	if next.Cmp(loc.Capacity) == 0 {
		loc.Status = entities.LocationAtCapacity
	}
	return true, nil
}

// Release decrements occupancy by qty, never below zero, and flips an
// AtCapacity location back to Available.
func (r *LocationRepository) Release(ctx context.Context, id string, qty entities.Quantity) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	loc, exists := r.locations[id]
	if !exists {
		return fmt.Errorf("location not found: %s", id)
	}

	next := loc.Occupancy.Sub(qty)
	if next.IsNegative() {
		next = entities.Qty(0)
	}
	loc.Occupancy = next

	if loc.Status == entities.LocationAtCapacity && next.Cmp(loc.Capacity) < 0 {
		loc.Status = entities.LocationAvailable
	}
	return nil
}

func copyLocation(loc *entities.StagingLocation) *entities.StagingLocation {
	out := *loc
	out.Attributes = make([]entities.LocationAttribute, len(loc.Attributes))
	copy(out.Attributes, loc.Attributes)
	return &out
}
