package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Context snapshots ---

func (s *LibSQLStore) SaveSnapshot(ctx context.Context, name string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO context_snapshots (name, payload, created_at, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET payload=excluded.payload, updated_at=CURRENT_TIMESTAMP`,
		name, string(payload),
	)
	return err
}

func (s *LibSQLStore) GetSnapshot(ctx context.Context, name string) (*Snapshot, error) {
	snap := &Snapshot{}
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, payload, created_at, updated_at FROM context_snapshots WHERE name = ?`, name,
	).Scan(&snap.Name, &payload, &snap.CreatedAt, &snap.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %q not found", name)
	}
	if err != nil {
		return nil, err
	}
	snap.Payload = []byte(payload)
	return snap, nil
}

func (s *LibSQLStore) ListSnapshots(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM context_snapshots ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *LibSQLStore) DeleteSnapshot(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM context_snapshots WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("snapshot %q not found", name)
	}
	return nil
}

// --- Fuse queue ---

func (s *LibSQLStore) EnqueueFuse(ctx context.Context, fuse *FuseRecord) error {
	createdAt := fuse.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trigger_fuses (id, trigger_name, params, created_at) VALUES (?, ?, ?, ?)`,
		fuse.ID, fuse.TriggerName, string(fuse.Params), createdAt,
	)
	return err
}

func (s *LibSQLStore) PendingFuses(ctx context.Context) ([]*FuseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger_name, params, created_at FROM trigger_fuses
		 WHERE consumed_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fuses []*FuseRecord
	for rows.Next() {
		fuse := &FuseRecord{}
		var params string
		if err := rows.Scan(&fuse.ID, &fuse.TriggerName, &params, &fuse.CreatedAt); err != nil {
			return nil, err
		}
		fuse.Params = []byte(params)
		fuses = append(fuses, fuse)
	}
	return fuses, rows.Err()
}

func (s *LibSQLStore) MarkFuseConsumed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trigger_fuses SET consumed_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND consumed_at IS NULL`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("fuse %q not found or already consumed", id)
	}
	return nil
}

var _ Store = (*LibSQLStore)(nil)
