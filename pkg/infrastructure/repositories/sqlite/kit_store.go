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

// KitStore persists kits and their items.
type KitStore struct {
	*Storage
}

// NewKitStore creates a kit store over the shared storage.
func NewKitStore(s *Storage) *KitStore {
	return &KitStore{Storage: s}
}

// Verify interface compliance
var _ repositories.KitRepository = (*KitStore)(nil)

type kitRow struct {
	ID                string `db:"id"`
	WorkOrder         string `db:"work_order"`
	Stage             string `db:"stage"`
	Priority          int    `db:"priority"`
	DueDate           string `db:"due_date"`
	Status            int    `db:"status"`
	LocationID        string `db:"location_id"`
	AssignedTo        string `db:"assigned_to"`
	ResumeTo          int    `db:"resume_to"`
	OpenShortages     int    `db:"open_shortages"`
	MajorShortages    int    `db:"major_shortages"`
	BlockingShortages int    `db:"blocking_shortages"`
	CreatedAt         string `db:"created_at"`
	StagedAt          string `db:"staged_at"`
	IssuedAt          string `db:"issued_at"`
}

type kitItemRow struct {
	KitID       string `db:"kit_id"`
	Part        string `db:"part"`
	Required    string `db:"required"`
	Confirmed   string `db:"confirmed"`
	UOM         string `db:"uom"`
	Condition   int    `db:"condition"`
	Exception   bool   `db:"exception"`
	Substitutes string `db:"substitutes"`
}

// SaveKit stores a new kit and its items in one transaction.
func (s *KitStore) SaveKit(ctx context.Context, kit *entities.Kit) error {
	const op = "sqlite.SaveKit"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if err := insertKit(ctx, tx, kit); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetKit returns the kit with its items, or UnknownKitError.
func (s *KitStore) GetKit(ctx context.Context, id string) (*entities.Kit, error) {
	const op = "sqlite.GetKit"

	var row kitRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM kits WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entities.UnknownKitError{KitID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read kit %s: %w", op, id, err)
	}

	var itemRows []kitItemRow
	if err := s.db.SelectContext(ctx, &itemRows, `SELECT * FROM kit_items WHERE kit_id = ? ORDER BY part`, id); err != nil {
		return nil, fmt.Errorf("%s: failed to read items for kit %s: %w", op, id, err)
	}

	return rowToKit(row, itemRows), nil
}

// UpdateKit replaces the kit and rewrites its items.
func (s *KitStore) UpdateKit(ctx context.Context, kit *entities.Kit) error {
	const op = "sqlite.UpdateKit"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE kits SET
			work_order = ?, stage = ?, priority = ?, due_date = ?, status = ?,
			location_id = ?, assigned_to = ?, resume_to = ?,
			open_shortages = ?, major_shortages = ?, blocking_shortages = ?,
			created_at = ?, staged_at = ?, issued_at = ?
		WHERE id = ?`,
		kit.WorkOrder, kit.Stage, int(kit.Priority), formatTime(kit.DueDate), int(kit.Status),
		kit.LocationID, kit.AssignedTo, int(kit.ResumeTo),
		kit.Shortages.Open, kit.Shortages.Major, kit.Shortages.Blocking,
		formatTime(kit.CreatedAt), formatTime(kit.StagedAt), formatTime(kit.IssuedAt),
		kit.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update kit %s: %w", op, kit.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return &entities.UnknownKitError{KitID: kit.ID}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM kit_items WHERE kit_id = ?`, kit.ID); err != nil {
		return fmt.Errorf("%s: failed to clear items for kit %s: %w", op, kit.ID, err)
	}
	if err := insertItems(ctx, tx, kit); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListKitsByWorkOrder returns the kits created for a work order, ordered by
// kit id.
func (s *KitStore) ListKitsByWorkOrder(ctx context.Context, workOrderID string) ([]*entities.Kit, error) {
	const op = "sqlite.ListKitsByWorkOrder"

	kits, err := s.listKits(ctx, `SELECT * FROM kits WHERE work_order = ? ORDER BY id`, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return kits, nil
}

// ListOpenKits returns kits in a non-terminal status, ordered by kit id.
func (s *KitStore) ListOpenKits(ctx context.Context) ([]*entities.Kit, error) {
	const op = "sqlite.ListOpenKits"

	kits, err := s.listKits(ctx, `SELECT * FROM kits WHERE status NOT IN (?, ?) ORDER BY id`,
		int(entities.KitConsumed), int(entities.KitCancelled))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return kits, nil
}

func (s *KitStore) listKits(ctx context.Context, query string, args ...interface{}) ([]*entities.Kit, error) {
	var rows []kitRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list kits: %w", err)
	}

	kits := make([]*entities.Kit, 0, len(rows))
	for _, row := range rows {
		var itemRows []kitItemRow
		if err := s.db.SelectContext(ctx, &itemRows, `SELECT * FROM kit_items WHERE kit_id = ? ORDER BY part`, row.ID); err != nil {
			return nil, fmt.Errorf("failed to read items for kit %s: %w", row.ID, err)
		}
		kits = append(kits, rowToKit(row, itemRows))
	}
	return kits, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertKit(ctx context.Context, tx execer, kit *entities.Kit) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO kits (
			id, work_order, stage, priority, due_date, status,
			location_id, assigned_to, resume_to,
			open_shortages, major_shortages, blocking_shortages,
			created_at, staged_at, issued_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		kit.ID, kit.WorkOrder, kit.Stage, int(kit.Priority), formatTime(kit.DueDate), int(kit.Status),
		kit.LocationID, kit.AssignedTo, int(kit.ResumeTo),
		kit.Shortages.Open, kit.Shortages.Major, kit.Shortages.Blocking,
		formatTime(kit.CreatedAt), formatTime(kit.StagedAt), formatTime(kit.IssuedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert kit %s: %w", kit.ID, err)
	}
	return insertItems(ctx, tx, kit)
}

func insertItems(ctx context.Context, tx execer, kit *entities.Kit) error {
	for i := range kit.Items {
		item := &kit.Items[i]
		subs := make([]string, len(item.Substitutes))
		for j, sub := range item.Substitutes {
			subs[j] = string(sub)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kit_items (kit_id, part, required, confirmed, uom, condition, exception, substitutes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			kit.ID, string(item.Part), item.Required.String(), item.Confirmed.String(),
			item.UnitOfMeasure, int(item.Condition), item.Exception, strings.Join(subs, ","),
		)
		if err != nil {
			return fmt.Errorf("failed to insert item %s for kit %s: %w", item.Part, kit.ID, err)
		}
	}
	return nil
}

func rowToKit(row kitRow, itemRows []kitItemRow) *entities.Kit {
	kit := &entities.Kit{
		ID:         row.ID,
		WorkOrder:  row.WorkOrder,
		Stage:      row.Stage,
		Priority:   entities.Priority(row.Priority),
		DueDate:    parseTime(row.DueDate),
		Status:     entities.KitStatus(row.Status),
		LocationID: row.LocationID,
		AssignedTo: row.AssignedTo,
		ResumeTo:   entities.KitStatus(row.ResumeTo),
		Shortages: entities.ShortageSummary{
			Open:     row.OpenShortages,
			Major:    row.MajorShortages,
			Blocking: row.BlockingShortages,
		},
		CreatedAt: parseTime(row.CreatedAt),
		StagedAt:  parseTime(row.StagedAt),
		IssuedAt:  parseTime(row.IssuedAt),
	}

	kit.Items = make([]entities.KitItem, 0, len(itemRows))
	for _, ir := range itemRows {
		var subs []entities.PartNumber
		if ir.Substitutes != "" {
			for _, sub := range strings.Split(ir.Substitutes, ",") {
				subs = append(subs, entities.PartNumber(sub))
			}
		}
		kit.Items = append(kit.Items, entities.KitItem{
			Part:          entities.PartNumber(ir.Part),
			Required:      parseQty(ir.Required),
			Confirmed:     parseQty(ir.Confirmed),
			UnitOfMeasure: ir.UOM,
			Condition:     entities.ConditionCode(ir.Condition),
			Exception:     ir.Exception,
			Substitutes:   subs,
		})
	}
	return kit
}
