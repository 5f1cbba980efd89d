package sqlite

import (
	"context"
	"fmt"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// ShortageStore persists derived shortage records, replaced per kit on each
// refresh.
type ShortageStore struct {
	*Storage
}

// NewShortageStore creates a shortage store over the shared storage.
func NewShortageStore(s *Storage) *ShortageStore {
	return &ShortageStore{Storage: s}
}

// Verify interface compliance
var _ repositories.ShortageRepository = (*ShortageStore)(nil)

type shortageRow struct {
	KitID       string `db:"kit_id"`
	WorkOrder   string `db:"work_order"`
	Part        string `db:"part"`
	Required    string `db:"required"`
	Available   string `db:"available"`
	Shortfall   string `db:"shortfall"`
	Severity    int    `db:"severity"`
	Substitute  string `db:"substitute"`
	Provisional bool   `db:"provisional"`
	DetectedAt  string `db:"detected_at"`
}

// ReplaceForKit swaps the kit's shortage records for the fresh set.
func (s *ShortageStore) ReplaceForKit(ctx context.Context, kitID string, workOrderID string, records []entities.ShortageRecord) error {
	const op = "sqlite.ReplaceForKit"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shortages WHERE kit_id = ?`, kitID); err != nil {
		return fmt.Errorf("%s: failed to clear shortages for kit %s: %w", op, kitID, err)
	}

	for _, rec := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shortages (kit_id, work_order, part, required, available, shortfall, severity, substitute, provisional, detected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			kitID, workOrderID, string(rec.Part),
			rec.Required.String(), rec.Available.String(), rec.Shortfall.String(),
			int(rec.Severity), string(rec.Substitute), rec.Provisional, formatTime(rec.DetectedAt),
		)
		if err != nil {
			return fmt.Errorf("%s: failed to insert shortage %s for kit %s: %w", op, rec.Part, kitID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Query returns shortage records matching the filter, ordered by part then
// kit.
func (s *ShortageStore) Query(ctx context.Context, filter repositories.ShortageFilter) ([]entities.ShortageRecord, error) {
	const op = "sqlite.QueryShortages"

	query := `SELECT * FROM shortages WHERE 1=1`
	var args []interface{}

	if filter.WorkOrderID != "" {
		query += ` AND work_order = ?`
		args = append(args, filter.WorkOrderID)
	}
	if filter.Part != "" {
		query += ` AND part = ?`
		args = append(args, string(filter.Part))
	}
	if filter.HasSeverity {
		query += ` AND severity = ?`
		args = append(args, int(filter.Severity))
	}
	query += ` ORDER BY part, kit_id`

	var rows []shortageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to query shortages: %w", op, err)
	}

	out := make([]entities.ShortageRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, entities.ShortageRecord{
			Part:        entities.PartNumber(row.Part),
			Required:    parseQty(row.Required),
			Available:   parseQty(row.Available),
			Shortfall:   parseQty(row.Shortfall),
			Severity:    entities.ShortageSeverity(row.Severity),
			Substitute:  entities.PartNumber(row.Substitute),
			Provisional: row.Provisional,
			Kits:        []string{row.KitID},
			DetectedAt:  parseTime(row.DetectedAt),
		})
	}
	return out, nil
}
