/*
Package sqlite provides a SQLite-backed implementation of doors.Store.

PURPOSE:
  Lets the service run without the remote backend: standalone demos,
  scenario fixtures and integration tests. Site data (units) and tower
  requirements are seeded; the two ledgers are append-only.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on supplied_doors or installed_doors
  - No DELETE statements on either, except Reset() for demo scenarios
  - Both appends run inside one SQL transaction

KEY TABLES:
  units:            Site units (project, tower, floor, unit type)
  door_requirements: Required count per tower cell
  supplied_doors:   Supply ledger
  installed_doors:  Installation ledger

INDEXES:
  - idx_installed_slot: UNIQUE (unit, door type, set, component). The
    builder already rejects duplicates; this is the storage-side check
    for concurrent writers validating against stale snapshots.
  - idx_supplied_scope / idx_installed_scope: snapshot hot path

CONCURRENCY:
  sync.RWMutex around every call plus WAL mode, as for the time-off
  ledger this store grew out of.

USAGE:
  store, err := sqlite.New("./data/doors.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := doors.NewService(store, logger)

SEE ALSO:
  - doors/store.go: Interface definition
  - doors/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/doorworks/doors"
)

// Store implements doors.Store using SQLite.
type Store struct {
	db *sqlx.DB
	mu sync.RWMutex
}

var _ doors.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		tower_id TEXT NOT NULL,
		floor_id TEXT NOT NULL,
		unit_type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_units_scope
		ON units(project_id, tower_id);

	CREATE TABLE IF NOT EXISTS door_requirements (
		project_id TEXT NOT NULL,
		tower_id TEXT NOT NULL,
		door_type TEXT NOT NULL,
		thickness TEXT NOT NULL,
		component TEXT NOT NULL,
		required_count INTEGER NOT NULL,
		PRIMARY KEY (project_id, tower_id, door_type, thickness, component)
	);

	-- Supply ledger (append-only)
	CREATE TABLE IF NOT EXISTS supplied_doors (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		tower_id TEXT NOT NULL,
		door_type TEXT NOT NULL,
		thickness TEXT NOT NULL,
		component TEXT NOT NULL,
		supplied_on TEXT NOT NULL,
		count INTEGER NOT NULL CHECK (count > 0),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_supplied_scope
		ON supplied_doors(project_id, tower_id);

	-- Installation ledger (append-only)
	CREATE TABLE IF NOT EXISTS installed_doors (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		tower_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		floor_id TEXT NOT NULL,
		door_type TEXT NOT NULL,
		thickness TEXT NOT NULL,
		component TEXT NOT NULL,
		set_no INTEGER NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_installed_scope
		ON installed_doors(project_id, tower_id);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_installed_slot
		ON installed_doors(unit_id, door_type, set_no, component);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROW TYPES
// =============================================================================

type unitRow struct {
	ID        string `db:"id"`
	ProjectID string `db:"project_id"`
	TowerID   string `db:"tower_id"`
	FloorID   string `db:"floor_id"`
	UnitType  string `db:"unit_type"`
	CreatedAt string `db:"created_at"`
}

type requirementRow struct {
	ProjectID string `db:"project_id"`
	TowerID   string `db:"tower_id"`
	DoorType  string `db:"door_type"`
	Thickness string `db:"thickness"`
	Component string `db:"component"`
	Count     int    `db:"required_count"`
}

type suppliedRow struct {
	ID         string `db:"id"`
	ProjectID  string `db:"project_id"`
	TowerID    string `db:"tower_id"`
	DoorType   string `db:"door_type"`
	Thickness  string `db:"thickness"`
	Component  string `db:"component"`
	SuppliedOn string `db:"supplied_on"`
	Count      int    `db:"count"`
	CreatedAt  string `db:"created_at"`
}

type installedRow struct {
	ID        string `db:"id"`
	ProjectID string `db:"project_id"`
	TowerID   string `db:"tower_id"`
	UnitID    string `db:"unit_id"`
	FloorID   string `db:"floor_id"`
	DoorType  string `db:"door_type"`
	Thickness string `db:"thickness"`
	Component string `db:"component"`
	SetNo     int    `db:"set_no"`
	Quantity  int    `db:"quantity"`
	CreatedAt string `db:"created_at"`
}

func toCell(d, t, c string) doors.Cell {
	return doors.Cell{DoorType: doors.DoorType(d), Thickness: doors.Thickness(t), Component: doors.Component(c)}
}

// =============================================================================
// SITE DATA
// =============================================================================

// SaveUnits upserts units.
func (s *Store) SaveUnits(ctx context.Context, units []doors.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(units) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	rows := make([]unitRow, len(units))
	for i, u := range units {
		rows[i] = unitRow{
			ID:        string(u.ID),
			ProjectID: string(u.ProjectID),
			TowerID:   string(u.TowerID),
			FloorID:   string(u.FloorID),
			UnitType:  u.Type,
			CreatedAt: now,
		}
	}

	return s.upsert(ctx, `
		INSERT INTO units (id, project_id, tower_id, floor_id, unit_type, created_at)
		VALUES (:id, :project_id, :tower_id, :floor_id, :unit_type, :created_at)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			tower_id = excluded.tower_id,
			floor_id = excluded.floor_id,
			unit_type = excluded.unit_type
	`, len(rows), func(i int) any { return rows[i] })
}

// SaveRequirements upserts tower requirements.
func (s *Store) SaveRequirements(ctx context.Context, reqs []doors.Requirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(reqs) == 0 {
		return nil
	}
	rows := make([]requirementRow, len(reqs))
	for i, r := range reqs {
		rows[i] = requirementRow{
			ProjectID: string(r.ProjectID),
			TowerID:   string(r.TowerID),
			DoorType:  string(r.Cell.DoorType),
			Thickness: string(r.Cell.Thickness),
			Component: string(r.Cell.Component),
			Count:     r.Count,
		}
	}

	return s.upsert(ctx, `
		INSERT INTO door_requirements (project_id, tower_id, door_type, thickness, component, required_count)
		VALUES (:project_id, :tower_id, :door_type, :thickness, :component, :required_count)
		ON CONFLICT(project_id, tower_id, door_type, thickness, component)
		DO UPDATE SET required_count = excluded.required_count
	`, len(rows), func(i int) any { return rows[i] })
}

// upsert runs a named statement once per row inside one transaction.
func (s *Store) upsert(ctx context.Context, query string, n int, row func(int) any) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Towers lists every (project, tower) that has units or requirements.
func (s *Store) Towers(ctx context.Context) ([]doors.Scope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []struct {
		ProjectID string `db:"project_id"`
		TowerID   string `db:"tower_id"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT project_id, tower_id FROM units
		UNION
		SELECT project_id, tower_id FROM door_requirements
		ORDER BY project_id, tower_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list towers: %w", err)
	}

	out := make([]doors.Scope, len(rows))
	for i, r := range rows {
		out[i] = doors.Scope{ProjectID: doors.ProjectID(r.ProjectID), TowerID: doors.TowerID(r.TowerID)}
	}
	return out, nil
}

// =============================================================================
// LEDGER (doors.Store interface)
// =============================================================================

// Snapshot loads everything for one tower.
func (s *Store) Snapshot(ctx context.Context, scope doors.Scope) (doors.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := doors.Ledger{Scope: scope}
	args := []any{string(scope.ProjectID), string(scope.TowerID)}

	var units []unitRow
	if err := s.db.SelectContext(ctx, &units, `
		SELECT id, project_id, tower_id, floor_id, unit_type, created_at
		FROM units WHERE project_id = ? AND tower_id = ?
		ORDER BY floor_id, id
	`, args...); err != nil {
		return l, fmt.Errorf("failed to load units: %w", err)
	}
	for _, u := range units {
		l.Units = append(l.Units, doors.Unit{
			ID:        doors.UnitID(u.ID),
			ProjectID: doors.ProjectID(u.ProjectID),
			TowerID:   doors.TowerID(u.TowerID),
			FloorID:   doors.FloorID(u.FloorID),
			Type:      u.UnitType,
		})
	}

	var reqs []requirementRow
	if err := s.db.SelectContext(ctx, &reqs, `
		SELECT project_id, tower_id, door_type, thickness, component, required_count
		FROM door_requirements WHERE project_id = ? AND tower_id = ?
	`, args...); err != nil {
		return l, fmt.Errorf("failed to load requirements: %w", err)
	}
	for _, r := range reqs {
		l.Requirements = append(l.Requirements, doors.Requirement{
			ProjectID: doors.ProjectID(r.ProjectID),
			TowerID:   doors.TowerID(r.TowerID),
			Cell:      toCell(r.DoorType, r.Thickness, r.Component),
			Count:     r.Count,
		})
	}

	var supplied []suppliedRow
	if err := s.db.SelectContext(ctx, &supplied, `
		SELECT id, project_id, tower_id, door_type, thickness, component, supplied_on, count, created_at
		FROM supplied_doors WHERE project_id = ? AND tower_id = ?
		ORDER BY supplied_on ASC, created_at ASC
	`, args...); err != nil {
		return l, fmt.Errorf("failed to load supplied doors: %w", err)
	}
	for _, r := range supplied {
		date, _ := time.Parse(time.RFC3339, r.SuppliedOn)
		l.Supplied = append(l.Supplied, doors.SuppliedRecord{
			ID:        r.ID,
			ProjectID: doors.ProjectID(r.ProjectID),
			TowerID:   doors.TowerID(r.TowerID),
			Cell:      toCell(r.DoorType, r.Thickness, r.Component),
			Date:      date,
			Count:     r.Count,
		})
	}

	var installed []installedRow
	if err := s.db.SelectContext(ctx, &installed, `
		SELECT id, project_id, tower_id, unit_id, floor_id, door_type, thickness, component, set_no, quantity, created_at
		FROM installed_doors WHERE project_id = ? AND tower_id = ?
		ORDER BY created_at ASC
	`, args...); err != nil {
		return l, fmt.Errorf("failed to load installed doors: %w", err)
	}
	for _, r := range installed {
		createdAt, _ := time.Parse(time.RFC3339, r.CreatedAt)
		l.Installed = append(l.Installed, doors.InstalledRecord{
			ID:        r.ID,
			ProjectID: doors.ProjectID(r.ProjectID),
			TowerID:   doors.TowerID(r.TowerID),
			UnitID:    doors.UnitID(r.UnitID),
			FloorID:   doors.FloorID(r.FloorID),
			Cell:      toCell(r.DoorType, r.Thickness, r.Component),
			SetNo:     r.SetNo,
			Quantity:  r.Quantity,
			CreatedAt: createdAt,
		})
	}

	return l, nil
}

// AppendInstalled adds installation rows atomically.
func (s *Store) AppendInstalled(ctx context.Context, rows []doors.InstalledRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	dbRows := make([]installedRow, len(rows))
	for i, r := range rows {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		qty := r.Quantity
		if qty <= 0 {
			qty = 1
		}
		dbRows[i] = installedRow{
			ID:        recordID(r.ID, "inst", i, now),
			ProjectID: string(r.ProjectID),
			TowerID:   string(r.TowerID),
			UnitID:    string(r.UnitID),
			FloorID:   string(r.FloorID),
			DoorType:  string(r.Cell.DoorType),
			Thickness: string(r.Cell.Thickness),
			Component: string(r.Cell.Component),
			SetNo:     r.SetNo,
			Quantity:  qty,
			CreatedAt: createdAt.Format(time.RFC3339),
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range dbRows {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO installed_doors
			(id, project_id, tower_id, unit_id, floor_id, door_type, thickness, component, set_no, quantity, created_at)
			VALUES (:id, :project_id, :tower_id, :unit_id, :floor_id, :door_type, :thickness, :component, :set_no, :quantity, :created_at)
		`, r)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: unit %s %s set %d %s", doors.ErrDuplicateRecord, r.UnitID, r.DoorType, r.SetNo, r.Component)
			}
			return fmt.Errorf("failed to append installed door: %w", err)
		}
	}

	return tx.Commit()
}

// AppendSupply adds the plan's supply rows atomically.
func (s *Store) AppendSupply(ctx context.Context, plan doors.SupplyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := plan.Records()
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, r := range records {
		date := r.Date
		if date.IsZero() {
			date = now
		}
		row := suppliedRow{
			ID:         recordID(r.ID, "sup", i, now),
			ProjectID:  string(r.ProjectID),
			TowerID:    string(r.TowerID),
			DoorType:   string(r.Cell.DoorType),
			Thickness:  string(r.Cell.Thickness),
			Component:  string(r.Cell.Component),
			SuppliedOn: date.Format(time.RFC3339),
			Count:      r.Count,
			CreatedAt:  now.Format(time.RFC3339),
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO supplied_doors
			(id, project_id, tower_id, door_type, thickness, component, supplied_on, count, created_at)
			VALUES (:id, :project_id, :tower_id, :door_type, :thickness, :component, :supplied_on, :count, :created_at)
		`, row)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: supply %s", doors.ErrDuplicateRecord, row.ID)
			}
			return fmt.Errorf("failed to append supplied door: %w", err)
		}
	}

	return tx.Commit()
}

// Reset clears all data. Only used by demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"installed_doors", "supplied_doors", "door_requirements", "units"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// recordID keeps caller-assigned IDs and derives one otherwise.
func recordID(id, prefix string, i int, now time.Time) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("%s-%d-%d", prefix, now.UnixNano(), i)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
