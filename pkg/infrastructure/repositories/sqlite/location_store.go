package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// LocationStore persists staging locations. TryOccupy runs the
// check-and-increment inside one transaction, so SQLite's writer lock
// serializes concurrent allocators and occupancy can never pass capacity.
type LocationStore struct {
	*Storage
}

// NewLocationStore creates a location store over the shared storage.
func NewLocationStore(s *Storage) *LocationStore {
	return &LocationStore{Storage: s}
}

// Verify interface compliance
var _ repositories.LocationRepository = (*LocationStore)(nil)

type locationRow struct {
	ID         string `db:"id"`
	Capacity   string `db:"capacity"`
	Occupancy  string `db:"occupancy"`
	Attributes string `db:"attributes"`
	Status     int    `db:"status"`
	Proximity  int    `db:"proximity"`
}

// GetLocation returns the location by id.
func (s *LocationStore) GetLocation(ctx context.Context, id string) (*entities.StagingLocation, error) {
	const op = "sqlite.GetLocation"

	var row locationRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM locations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: location not found: %s", op, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read location %s: %w", op, id, err)
	}
	return rowToLocation(row), nil
}

// ListLocations returns all locations ordered by id.
func (s *LocationStore) ListLocations(ctx context.Context) ([]*entities.StagingLocation, error) {
	const op = "sqlite.ListLocations"

	var rows []locationRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM locations ORDER BY id`); err != nil {
		return nil, fmt.Errorf("%s: failed to list locations: %w", op, err)
	}

	out := make([]*entities.StagingLocation, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToLocation(row))
	}
	return out, nil
}

// SaveLocation stores or replaces a location.
func (s *LocationStore) SaveLocation(ctx context.Context, loc *entities.StagingLocation) error {
	const op = "sqlite.SaveLocation"

	attrs := make([]string, len(loc.Attributes))
	for i, a := range loc.Attributes {
		attrs[i] = string(a)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (id, capacity, occupancy, attributes, status, proximity)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			capacity = excluded.capacity,
			occupancy = excluded.occupancy,
			attributes = excluded.attributes,
			status = excluded.status,
			proximity = excluded.proximity`,
		loc.ID, loc.Capacity.String(), loc.Occupancy.String(),
		strings.Join(attrs, ","), int(loc.Status), loc.Proximity,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to save location %s: %w", op, loc.ID, err)
	}
	return nil
}

// SetStatus changes the operational status of a location.
func (s *LocationStore) SetStatus(ctx context.Context, id string, status entities.LocationStatus) error {
	const op = "sqlite.SetStatus"

	res, err := s.db.ExecContext(ctx, `UPDATE locations SET status = ? WHERE id = ?`, int(status), id)
	if err != nil {
		return fmt.Errorf("%s: failed to update location %s: %w", op, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: location not found: %s", op, id)
	}
	return nil
}

// TryOccupy atomically increments occupancy by qty when the location is
// Available and the result stays within capacity.
func (s *LocationStore) TryOccupy(ctx context.Context, id string, qty entities.Quantity) (bool, error) {
	const op = "sqlite.TryOccupy"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var row locationRow
	err = tx.GetContext(ctx, &row, `SELECT * FROM locations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%s: location not found: %s", op, id)
	}
	if err != nil {
		return false, fmt.Errorf("%s: failed to read location %s: %w", op, id, err)
	}

	if entities.LocationStatus(row.Status) != entities.LocationAvailable {
		return false, nil
	}

	capacity := parseQty(row.Capacity)
	next := parseQty(row.Occupancy).Add(qty)
	if next.Cmp(capacity) > 0 {
		return false, nil
	}

	status := entities.LocationAvailable
	if next.Cmp(capacity) == 0 {
		status = entities.LocationAtCapacity
	}

	if _, err := tx.ExecContext(ctx, `UPDATE locations SET occupancy = ?, status = ? WHERE id = ?`,
		next.String(), int(status), id); err != nil {
		return false, fmt.Errorf("%s: failed to update location %s: %w", op, id, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Release decrements occupancy by qty, never below zero, and flips an
// AtCapacity location back to Available.
func (s *LocationStore) Release(ctx context.Context, id string, qty entities.Quantity) error {
	const op = "sqlite.Release"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var row locationRow
	err = tx.GetContext(ctx, &row, `SELECT * FROM locations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: location not found: %s", op, id)
	}
	if err != nil {
		return fmt.Errorf("%s: failed to read location %s: %w", op, id, err)
	}

	next := parseQty(row.Occupancy).Sub(qty)
	if next.IsNegative() {
		next = entities.Qty(0)
	}

	status := entities.LocationStatus(row.Status)
	if status == entities.LocationAtCapacity && next.Cmp(parseQty(row.Capacity)) < 0 {
		status = entities.LocationAvailable
	}

	if _, err := tx.ExecContext(ctx, `UPDATE locations SET occupancy = ?, status = ? WHERE id = ?`,
		next.String(), int(status), id); err != nil {
		return fmt.Errorf("%s: failed to update location %s: %w", op, id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func rowToLocation(row locationRow) *entities.StagingLocation {
	var attrs []entities.LocationAttribute
	if row.Attributes != "" {
		for _, a := range strings.Split(row.Attributes, ",") {
			attrs = append(attrs, entities.LocationAttribute(a))
		}
	}
	return &entities.StagingLocation{
		ID:         row.ID,
		Capacity:   parseQty(row.Capacity),
		Occupancy:  parseQty(row.Occupancy),
		Attributes: attrs,
		Status:     entities.LocationStatus(row.Status),
		Proximity:  row.Proximity,
	}
}
