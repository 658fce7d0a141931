// Package journal keeps local sync bookkeeping: a log of remote KV
// operations ('kvsync log') and the set of storage keys whose deletion
// was deferred until the next --prune run. Losing the journal never
// corrupts anything; at worst stale keys linger in the namespace until
// they are deferred again.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stevelr/kv-assets/internal/logging"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Entry is one remote operation outcome to record.
type Entry struct {
	Key    string
	Op     string // "put" or "delete"
	OK     bool
	Detail string // error text for failures, empty on success
}

// Row is a recorded entry as read back for display.
type Row struct {
	ID        int64
	Key       string
	Op        string
	OK        bool
	Detail    string
	CreatedAt time.Time
}

type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path and runs
// pending migrations.
func Open(ctx context.Context, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create journal directory: %w", err)
	}
	sqlDb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open journal database: %w", err)
	}
	j := &Journal{sqlDb}
	err = j.runMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}
	return j, nil
}

func (j *Journal) runMigrations(ctx context.Context) error {
	err := goose.SetDialect("sqlite")
	if err != nil {
		return fmt.Errorf("could not set dialect 'sqlite': %w", err)
	}
	goose.SetLogger(logging.GooseLogger{})
	goose.SetBaseFS(embedMigrations)

	if err = goose.UpContext(ctx, j.db, "migrations"); err != nil {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// Record inserts one row per entry.
func (j *Journal) Record(ctx context.Context, entries []Entry) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin journal transaction: %w", err)
	}
	defer tx.Rollback()

	for _, entry := range entries {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sync_log (key, op, ok, detail) VALUES (?, ?, ?, ?)`,
			entry.Key, entry.Op, entry.OK, entry.Detail,
		)
		if err != nil {
			return fmt.Errorf("could not record journal entry for key '%s': %w", entry.Key, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit rows, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Row, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, key, op, ok, detail, created_at FROM sync_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query journal: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var r Row
		if err = rows.Scan(&r.ID, &r.Key, &r.Op, &r.OK, &r.Detail, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("could not scan journal row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// AddPendingDeletes remembers storage keys whose deletion was deferred
// (a sync without --prune). Keys already pending are kept.
func (j *Journal) AddPendingDeletes(ctx context.Context, keys []string) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin journal transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO pending_delete (key) VALUES (?)`, key)
		if err != nil {
			return fmt.Errorf("could not record pending deletion of key '%s': %w", key, err)
		}
	}
	return tx.Commit()
}

// PendingDeletes returns all storage keys with a deferred deletion.
func (j *Journal) PendingDeletes(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT key FROM pending_delete ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("could not query pending deletions: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("could not scan pending deletion: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// ClearPendingDeletes drops keys that were deleted remotely or became
// referenced again.
func (j *Journal) ClearPendingDeletes(ctx context.Context, keys []string) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin journal transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err = tx.ExecContext(ctx, `DELETE FROM pending_delete WHERE key = ?`, key); err != nil {
			return fmt.Errorf("could not clear pending deletion of key '%s': %w", key, err)
		}
	}
	return tx.Commit()
}

func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}
