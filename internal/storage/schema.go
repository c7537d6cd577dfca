package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; the database's PRAGMA user_version records how many ran.
// Append only.
var migrations = [][]string{
	// 1: snapshots. One row per (file, content) version; the newest row per file is the baseline.
	{
		`CREATE TABLE snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			contracts_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX idx_snapshots_file ON snapshots(file, id)`,
	},
	// 2: classified changes, grouped by analysis run.
	{
		`CREATE TABLE changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			file TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			method TEXT NOT NULL,
			change_type TEXT NOT NULL CHECK(change_type IN ('ADDED', 'REMOVED', 'MODIFIED', 'BREAKING')),
			severity TEXT NOT NULL,
			details_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX idx_changes_run ON changes(run_id, id)`,
	},
}

func schemaVersion(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}) (int, error) {
	var v int
	err := q.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v)
	return v, err
}

// migrate brings the schema up to date in a single transaction.
func (db *DB) migrate(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		from, err := schemaVersion(ctx, tx)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		switch {
		case from == len(migrations):
			db.logger.Debug("Database schema is up to date", "version", from)
			return nil
		case from > len(migrations):
			return fmt.Errorf("database schema version %d is newer than supported version %d", from, len(migrations))
		}

		for v := from; v < len(migrations); v++ {
			for _, stmt := range migrations[v] {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migration %d: %w", v+1, err)
				}
			}
		}
		// PRAGMA takes no bind parameters
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
			return err
		}
		db.logger.Info("Database schema migrated", "from", from, "to", len(migrations))
		return nil
	})
}
