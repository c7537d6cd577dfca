package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"apiguard/internal/compare"
	"apiguard/internal/contract"
)

// NewRunID returns a fresh identifier for one analysis run.
func NewRunID() string {
	return uuid.NewString()
}

// ContentHash fingerprints file content for snapshot deduplication.
func ContentHash(src []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(src))
}

// Snapshot is a stored contract list for one file version.
type Snapshot struct {
	ID          int64
	File        string
	ContentHash string
	Contracts   []contract.Contract
	CreatedAt   time.Time
}

// ChangeRecord is one persisted change.
type ChangeRecord struct {
	ID        int64                  `json:"id" yaml:"id"`
	RunID     string                 `json:"runId" yaml:"runId"`
	File      string                 `json:"file" yaml:"file"`
	Change    compare.ContractChange `json:"change" yaml:"change"`
	CreatedAt time.Time              `json:"createdAt" yaml:"createdAt"`
}

// Store reads and writes snapshots and changes
type Store struct {
	db  *DB
	now func() time.Time
}

// NewStore creates a store over an open database
func NewStore(db *DB) *Store {
	return &Store{db: db, now: time.Now}
}

// LatestSnapshot returns the newest snapshot's contracts for file.
func (s *Store) LatestSnapshot(ctx context.Context, file string) ([]contract.Contract, bool, error) {
	snap, ok, err := s.latest(ctx, file)
	if err != nil || !ok {
		return nil, false, err
	}
	return snap.Contracts, true, nil
}

func (s *Store) latest(ctx context.Context, file string) (Snapshot, bool, error) {
	var (
		snap      Snapshot
		payload   string
		createdAt string
	)
	err := s.db.conn.QueryRowContext(ctx, `
		SELECT id, file, content_hash, contracts_json, created_at
		FROM snapshots
		WHERE file = ?
		ORDER BY id DESC
		LIMIT 1
	`, file).Scan(&snap.ID, &snap.File, &snap.ContentHash, &payload, &createdAt)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to query snapshot for %s: %w", file, err)
	}

	if err := json.Unmarshal([]byte(payload), &snap.Contracts); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to decode snapshot %d: %w", snap.ID, err)
	}
	snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return snap, true, nil
}

// SaveSnapshot records contracts as the new baseline for file. Saving the same content hash as
// the current baseline is a no-op.
func (s *Store) SaveSnapshot(ctx context.Context, file, contentHash string, contracts []contract.Contract) error {
	if contracts == nil {
		contracts = []contract.Contract{}
	}
	payload, err := json.Marshal(contracts)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `
			SELECT content_hash FROM snapshots WHERE file = ? ORDER BY id DESC LIMIT 1
		`, file).Scan(&current)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if err == nil && current == contentHash {
			s.db.logger.Debug("Snapshot unchanged", "file", file, "hash", contentHash)
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshots (file, content_hash, contracts_json, created_at)
			VALUES (?, ?, ?, ?)
		`, file, contentHash, string(payload), s.now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to insert snapshot for %s: %w", file, err)
		}
		return nil
	})
}

// SaveChanges appends the changes classified for file in run runID.
func (s *Store) SaveChanges(ctx context.Context, runID, file string, changes []compare.ContractChange) error {
	if len(changes) == 0 {
		return nil
	}
	createdAt := s.now().UTC().Format(time.RFC3339Nano)

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO changes (run_id, file, endpoint, method, change_type, severity, details_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range changes {
			details, err := json.Marshal(c.Details)
			if err != nil {
				return fmt.Errorf("failed to encode change details: %w", err)
			}
			_, err = stmt.ExecContext(ctx, runID, file, c.Endpoint, string(c.Method),
				string(c.ChangeType), string(c.Details.Severity), string(details), createdAt)
			if err != nil {
				return fmt.Errorf("failed to insert change %s %s: %w", c.Method, c.Endpoint, err)
			}
		}
		return nil
	})
}

// ListChanges returns every change saved under runID in insertion order.
func (s *Store) ListChanges(ctx context.Context, runID string) ([]ChangeRecord, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, run_id, file, endpoint, method, change_type, details_json, created_at
		FROM changes
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	records := []ChangeRecord{}
	for rows.Next() {
		var (
			rec                         ChangeRecord
			method, changeType, details string
			createdAt                   string
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.File, &rec.Change.Endpoint, &method, &changeType, &details, &createdAt); err != nil {
			return nil, err
		}
		rec.Change.Method = contract.Method(method)
		rec.Change.ChangeType = compare.ChangeType(changeType)
		if err := json.Unmarshal([]byte(details), &rec.Change.Details); err != nil {
			return nil, fmt.Errorf("failed to decode change %d: %w", rec.ID, err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestRunID returns the run that saved changes most recently.
func (s *Store) LatestRunID(ctx context.Context) (string, bool, error) {
	var runID string
	err := s.db.conn.QueryRowContext(ctx, `SELECT run_id FROM changes ORDER BY id DESC LIMIT 1`).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return runID, true, nil
}
