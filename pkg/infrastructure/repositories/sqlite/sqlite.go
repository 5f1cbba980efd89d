// Package sqlite persists kits, locations, reservations and shortage
// records in a SQLite database. The in-memory repositories back the test
// suites; this package backs the deployed engine.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/machshop/kitting/pkg/domain/entities"
)

// Storage wraps the SQLite handle shared by the store types.
type Storage struct {
	db *sqlx.DB
}

// New opens (and creates, if needed) the database at path and applies the
// schema.
func New(path string) (*Storage, error) {
	const op = "sqlite.New"

	db, err := sqlx.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database: %w", op, err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// churn under concurrent allocation.
	db.SetMaxOpenConns(1)

	s := &Storage{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// Close closes the database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initSchema() error {
	const op = "sqlite.initSchema"

	schema := `
	CREATE TABLE IF NOT EXISTS kits (
		id          TEXT PRIMARY KEY,
		work_order  TEXT NOT NULL,
		stage       TEXT NOT NULL,
		priority    INTEGER NOT NULL,
		due_date    TEXT NOT NULL,
		status      INTEGER NOT NULL,
		location_id TEXT NOT NULL DEFAULT '',
		assigned_to TEXT NOT NULL DEFAULT '',
		resume_to   INTEGER NOT NULL DEFAULT 0,
		open_shortages     INTEGER NOT NULL DEFAULT 0,
		major_shortages    INTEGER NOT NULL DEFAULT 0,
		blocking_shortages INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		staged_at   TEXT NOT NULL DEFAULT '',
		issued_at   TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_kits_work_order ON kits(work_order);
	CREATE INDEX IF NOT EXISTS idx_kits_status ON kits(status);

	CREATE TABLE IF NOT EXISTS kit_items (
		kit_id      TEXT NOT NULL REFERENCES kits(id),
		part        TEXT NOT NULL,
		required    TEXT NOT NULL,
		confirmed   TEXT NOT NULL,
		uom         TEXT NOT NULL DEFAULT '',
		condition   INTEGER NOT NULL DEFAULT 0,
		exception   INTEGER NOT NULL DEFAULT 0,
		substitutes TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (kit_id, part)
	);

	CREATE TABLE IF NOT EXISTS locations (
		id         TEXT PRIMARY KEY,
		capacity   TEXT NOT NULL,
		occupancy  TEXT NOT NULL,
		attributes TEXT NOT NULL DEFAULT '',
		status     INTEGER NOT NULL DEFAULT 0,
		proximity  INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS reservations (
		id          TEXT PRIMARY KEY,
		kit_id      TEXT NOT NULL,
		type        INTEGER NOT NULL,
		part        TEXT NOT NULL DEFAULT '',
		location_id TEXT NOT NULL DEFAULT '',
		quantity    TEXT NOT NULL,
		state       INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		closed_at   TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_reservations_kit ON reservations(kit_id);
	CREATE INDEX IF NOT EXISTS idx_reservations_part ON reservations(part);

	CREATE TABLE IF NOT EXISTS shortages (
		kit_id      TEXT NOT NULL,
		work_order  TEXT NOT NULL,
		part        TEXT NOT NULL,
		required    TEXT NOT NULL,
		available   TEXT NOT NULL,
		shortfall   TEXT NOT NULL,
		severity    INTEGER NOT NULL,
		substitute  TEXT NOT NULL DEFAULT '',
		provisional INTEGER NOT NULL DEFAULT 0,
		detected_at TEXT NOT NULL,
		PRIMARY KEY (kit_id, part)
	);
	CREATE INDEX IF NOT EXISTS idx_shortages_work_order ON shortages(work_order);
	CREATE INDEX IF NOT EXISTS idx_shortages_part ON shortages(part);

	CREATE TABLE IF NOT EXISTS code_sequences (
		name    TEXT PRIMARY KEY,
		last_no INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO code_sequences (name, last_no) VALUES ('KIT', 0);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%s: failed to apply schema: %w", op, err)
	}
	return nil
}

// NextKitID allocates the next kit id from the KIT sequence.
func (s *Storage) NextKitID(ctx context.Context) (string, error) {
	const op = "sqlite.NextKitID"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var lastNo int
	if err := tx.GetContext(ctx, &lastNo, `SELECT last_no FROM code_sequences WHERE name = 'KIT'`); err != nil {
		return "", fmt.Errorf("%s: failed to read sequence: %w", op, err)
	}

	newNo := lastNo + 1
	if _, err := tx.ExecContext(ctx, `UPDATE code_sequences SET last_no = ? WHERE name = 'KIT'`, newNo); err != nil {
		return "", fmt.Errorf("%s: failed to advance sequence: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Sprintf("KIT-%06d", newNo), nil
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseQty(s string) entities.Quantity {
	q, err := entities.QtyFromString(s)
	if err != nil {
		return entities.Qty(0)
	}
	return q
}
