package sqlite

import (
	"context"
	"fmt"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// ReservationStore persists reservation ledger entries.
type ReservationStore struct {
	*Storage
}

// NewReservationStore creates a reservation store over the shared storage.
func NewReservationStore(s *Storage) *ReservationStore {
	return &ReservationStore{Storage: s}
}

// Verify interface compliance
var _ repositories.ReservationRepository = (*ReservationStore)(nil)

type reservationRow struct {
	ID         string `db:"id"`
	KitID      string `db:"kit_id"`
	Type       int    `db:"type"`
	Part       string `db:"part"`
	LocationID string `db:"location_id"`
	Quantity   string `db:"quantity"`
	State      int    `db:"state"`
	CreatedAt  string `db:"created_at"`
	ClosedAt   string `db:"closed_at"`
}

// SaveReservation stores a new reservation.
func (s *ReservationStore) SaveReservation(ctx context.Context, r *entities.Reservation) error {
	const op = "sqlite.SaveReservation"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reservations (id, kit_id, type, part, location_id, quantity, state, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.KitID, int(r.Type), string(r.Part), r.LocationID,
		r.Quantity.String(), int(r.State), formatTime(r.CreatedAt), formatTime(r.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to insert reservation %s: %w", op, r.ID, err)
	}
	return nil
}

// UpdateReservation replaces a stored reservation.
func (s *ReservationStore) UpdateReservation(ctx context.Context, r *entities.Reservation) error {
	const op = "sqlite.UpdateReservation"

	res, err := s.db.ExecContext(ctx, `
		UPDATE reservations SET kit_id = ?, type = ?, part = ?, location_id = ?,
			quantity = ?, state = ?, created_at = ?, closed_at = ?
		WHERE id = ?`,
		r.KitID, int(r.Type), string(r.Part), r.LocationID,
		r.Quantity.String(), int(r.State), formatTime(r.CreatedAt), formatTime(r.ClosedAt),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update reservation %s: %w", op, r.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: reservation not found: %s", op, r.ID)
	}
	return nil
}

// ListByKit returns the kit's reservations ordered by id.
func (s *ReservationStore) ListByKit(ctx context.Context, kitID string) ([]*entities.Reservation, error) {
	const op = "sqlite.ListByKit"

	var rows []reservationRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM reservations WHERE kit_id = ? ORDER BY id`, kitID); err != nil {
		return nil, fmt.Errorf("%s: failed to list reservations for kit %s: %w", op, kitID, err)
	}

	out := make([]*entities.Reservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entities.Reservation{
			ID:         row.ID,
			KitID:      row.KitID,
			Type:       entities.ReservationType(row.Type),
			Part:       entities.PartNumber(row.Part),
			LocationID: row.LocationID,
			Quantity:   parseQty(row.Quantity),
			State:      entities.ReservationState(row.State),
			CreatedAt:  parseTime(row.CreatedAt),
			ClosedAt:   parseTime(row.ClosedAt),
		})
	}
	return out, nil
}

// ActiveReservedQuantity sums active inventory reservations for a part,
// excluding those held by excludeKit.
func (s *ReservationStore) ActiveReservedQuantity(ctx context.Context, part entities.PartNumber, excludeKit string) (entities.Quantity, error) {
	const op = "sqlite.ActiveReservedQuantity"

	var quantities []string
	err := s.db.SelectContext(ctx, &quantities, `
		SELECT quantity FROM reservations
		WHERE part = ? AND type = ? AND state = ? AND kit_id != ?`,
		string(part), int(entities.InventoryReservation), int(entities.ReservationActive), excludeKit,
	)
	if err != nil {
		return entities.Qty(0), fmt.Errorf("%s: failed to sum reservations for %s: %w", op, part, err)
	}

	// Quantities are stored as decimal strings, so the sum runs in Go
	// rather than SQL.
	total := entities.Qty(0)
	for _, q := range quantities {
		total = total.Add(parseQty(q))
	}
	return total, nil
}
