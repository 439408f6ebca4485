// Package store persists workflow run snapshots in SQLite so runs can be
// listed, inspected and resumed after the process exits.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sethvargo/go-retry"

	"github.com/harrison/researchflow/internal/models"
)

// ErrNotFound is returned when no run has the requested id.
var ErrNotFound = errors.New("run not found")

// Store manages the SQLite run history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the database at dbPath and applies
// migrations. ":memory:" opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// Connection-scoped settings go in the DSN so every pooled connection gets them
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(context.Background(), db, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// execWithRetry retries a statement with exponential backoff while SQLite
// reports the database as locked.
func execWithRetry(ctx context.Context, db *sql.DB, stmt string) error {
	backoff := retry.WithMaxRetries(4, retry.NewExponential(10*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := db.ExecContext(ctx, stmt)
		if err != nil && isLocked(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isLocked(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Checkpoint upserts the run row and its recorded outcomes in one
// transaction. Outcomes are write-once, so existing outcome rows are kept.
func (s *Store) Checkpoint(ctx context.Context, snap models.Snapshot) error {
	if snap.RunID == "" {
		return errors.New("checkpoint: snapshot has no run id")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	var stage, message sql.NullString
	if snap.Error != nil {
		stage = sql.NullString{String: string(snap.Error.Stage), Valid: true}
		message = sql.NullString{String: snap.Error.Message, Valid: true}
	}
	done, total := snap.Progress()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, subject, query, phase, planned, recorded, error_stage, error_message, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			phase = excluded.phase,
			planned = excluded.planned,
			recorded = excluded.recorded,
			error_stage = excluded.error_stage,
			error_message = excluded.error_message,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at`,
		snap.RunID, snap.Request.Subject, snap.Request.Query, string(snap.Phase),
		total, done, stage, message, string(data),
		unixMillis(snap.CreatedAt), unixMillis(snap.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", snap.RunID, err)
	}

	for _, o := range models.SortedOutcomes(snap.Outcomes) {
		var kind, errMsg sql.NullString
		if o.Error != nil {
			kind = sql.NullString{String: string(o.Error.Kind), Valid: true}
			errMsg = sql.NullString{String: o.Error.Message, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_outcomes
			(run_id, task_id, capability, status, duration_ms, attempts, error_kind, error_message, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.RunID, o.TaskID, string(o.Capability), string(o.Status),
			o.Duration.Milliseconds(), o.Attempts, kind, errMsg, unixMillis(o.CompletedAt))
		if err != nil {
			return fmt.Errorf("insert outcome %s/%s: %w", snap.RunID, o.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// Get loads the latest snapshot of a run.
func (s *Store) Get(ctx context.Context, runID string) (models.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM runs WHERE run_id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("query run %s: %w", runID, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return snap, nil
}

// Delete removes a run and its outcomes.
func (s *Store) Delete(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}

// Prune deletes terminal runs last updated before cutoff and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE updated_at < ? AND phase IN (?, ?)`,
		unixMillis(cutoff), string(models.PhaseCompleted), string(models.PhaseFailed))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
