// Package history persists training runs and their per-epoch metrics
// to SQLite, so past runs can be compared after the process exits.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/UNO-CSCI4830/SureSight/training"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the schema changes; old databases are
// rejected rather than silently misread.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different
// schema version.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

// Run is one training run
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time // zero until the run finishes
	DatasetRoot string
	NumClasses  int
	StopReason  string
	BestEpoch   int
	BestValLoss float64
}

// Epoch is one recorded epoch of a run
type Epoch struct {
	RunID         string
	Epoch         int
	TrainLoss     float64
	TrainAccuracy float64
	ValLoss       float64
	ValAccuracy   float64
	Duration      time.Duration
}

// Store is the SQLite-backed run history
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// BeginRun registers a new run and returns its ID
func (s *Store) BeginRun(ctx context.Context, datasetRoot string, numClasses int) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, dataset_root, num_classes) VALUES (?, ?, ?, ?)",
		id, time.Now().UTC().Format(time.RFC3339Nano), datasetRoot, numClasses)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// AppendEpoch records one epoch of a run
func (s *Store) AppendEpoch(ctx context.Context, runID string, stats training.EpochStats) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO epochs (run_id, epoch, train_loss, train_accuracy, val_loss, val_accuracy, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, stats.Epoch, stats.TrainLoss, stats.TrainAccuracy, stats.ValLoss, stats.ValAccuracy,
		stats.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("append epoch %d to run %s: %w", stats.Epoch, runID, err)
	}
	return nil
}

// FinishRun marks a run complete with its outcome
func (s *Store) FinishRun(ctx context.Context, runID string, reason training.StopReason, bestEpoch int, bestValLoss float64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, stop_reason = ?, best_epoch = ?, best_val_loss = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339Nano), string(reason), bestEpoch, bestValLoss, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: no run with id %s", runID)
	}
	return nil
}

// Run fetches one run by ID
func (s *Store) Run(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, dataset_root, num_classes, stop_reason, best_epoch, best_val_loss
		 FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	return run, nil
}

// Runs lists all runs, most recent first
func (s *Store) Runs(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, dataset_root, num_classes, stop_reason, best_epoch, best_val_loss
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Epochs returns a run's recorded epochs in order
func (s *Store) Epochs(ctx context.Context, runID string) ([]Epoch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, epoch, train_loss, train_accuracy, val_loss, val_accuracy, duration_ms
		 FROM epochs WHERE run_id = ? ORDER BY epoch`, runID)
	if err != nil {
		return nil, fmt.Errorf("load epochs for run %s: %w", runID, err)
	}
	defer rows.Close()

	var epochs []Epoch
	for rows.Next() {
		var e Epoch
		var durationMS int64
		if err := rows.Scan(&e.RunID, &e.Epoch, &e.TrainLoss, &e.TrainAccuracy, &e.ValLoss, &e.ValAccuracy, &durationMS); err != nil {
			return nil, fmt.Errorf("scan epoch: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		epochs = append(epochs, e)
	}
	return epochs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt string
	var finishedAt, stopReason sql.NullString
	var bestEpoch sql.NullInt64
	var bestValLoss sql.NullFloat64

	if err := row.Scan(&run.ID, &startedAt, &finishedAt, &run.DatasetRoot, &run.NumClasses,
		&stopReason, &bestEpoch, &bestValLoss); err != nil {
		return nil, err
	}

	var err error
	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if finishedAt.Valid {
		run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
	}
	run.StopReason = stopReason.String
	run.BestEpoch = int(bestEpoch.Int64)
	run.BestValLoss = bestValLoss.Float64
	return &run, nil
}

// Recorder adapts the store to the trainer's per-epoch hook for one run
type Recorder struct {
	store *Store
	runID string
}

// Recorder returns a trainer hook that appends epochs to the given run
func (s *Store) Recorder(runID string) *Recorder {
	return &Recorder{store: s, runID: runID}
}

// RecordEpoch appends one epoch to the recorder's run
func (r *Recorder) RecordEpoch(stats training.EpochStats) error {
	return r.store.AppendEpoch(context.Background(), r.runID, stats)
}
