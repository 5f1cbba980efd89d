package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// ReservationRepository provides in-memory reservation ledger storage.
type ReservationRepository struct {
	mutex        sync.RWMutex
	reservations map[string]entities.Reservation
}

// NewReservationRepository creates a new in-memory reservation repository.
func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{reservations: make(map[string]entities.Reservation)}
}

// Verify interface compliance
var _ repositories.ReservationRepository = (*ReservationRepository)(nil)

// SaveReservation stores a new reservation.
func (r *ReservationRepository) SaveReservation(ctx context.Context, res *entities.Reservation) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.reservations[res.ID]; exists {
		return fmt.Errorf("reservation already exists: %s", res.ID)
	}
	r.reservations[res.ID] = *res
	return nil
}

// UpdateReservation replaces a stored reservation.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, res *entities.Reservation) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.reservations[res.ID]; !exists {
		return fmt.Errorf("reservation not found: %s", res.ID)
	}
	r.reservations[res.ID] = *res
	return nil
}

// ListByKit returns the kit's reservations ordered by id.
func (r *ReservationRepository) ListByKit(ctx context.Context, kitID string) ([]*entities.Reservation, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []*entities.Reservation
	for _, res := range r.reservations {
		if res.KitID == kitID {
			copied := res
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ActiveReservedQuantity sums active inventory reservations for a part,
// excluding those held by excludeKit.
func (r *ReservationRepository) ActiveReservedQuantity(ctx context.Context, part entities.PartNumber, excludeKit string) (entities.Quantity, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	total := entities.Qty(0)
	for _, res := range r.reservations {
		if res.Type != entities.InventoryReservation || res.State != entities.ReservationActive {
			continue
		}
		if res.Part != part {
			continue
		}
		if excludeKit != "" && res.KitID == excludeKit {
			continue
		}
		total = total.Add(res.Quantity)
	}
	return total, nil
}
