// Package journal keeps a local SQLite history of batches and road outcomes.
// The history is written for operators only; nothing reads it back to make
// processing decisions.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/leapstack-labs/roadsync/pkg/core"
)

// Journal records batch runs in a SQLite file.
type Journal struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// BatchRecord is a journaled batch.
type BatchRecord struct {
	ID          string
	Command     string
	Status      core.BatchStatus
	Amount      int64
	Errors      int
	Message     string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// OutcomeRecord is a journaled road outcome.
type OutcomeRecord struct {
	Road     core.RoadCode
	Status   core.OutcomeStatus
	Kind     string
	Phase    string
	Error    string
	Tasks    []string
	Duration time.Duration
}

// Open opens (creating if needed) the journal at path and migrates it.
// If logger is nil, a discard logger is used.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("journal opened", slog.String("path", path))
	return &Journal{db: db, path: path, logger: logger}, nil
}

// Close closes the journal.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// BeginBatch records the start of a batch.
func (j *Journal) BeginBatch(ctx context.Context, r *core.Report) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO batches (id, command, status, amount, started_at) VALUES (?, ?, ?, ?, ?)`,
		r.BatchID, r.Command, string(core.BatchStatusRunning), r.AmountMeters, r.StartedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record batch start: %w", err)
	}
	return nil
}

// RecordOutcome records the result of one road.
func (j *Journal) RecordOutcome(ctx context.Context, batchID string, o core.Outcome) error {
	var kind, errMsg string
	if !o.OK() {
		kind = o.Kind.String()
		if o.Err != nil {
			errMsg = o.Err.Error()
		}
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO road_outcomes (batch_id, road_code, status, kind, phase, error, tasks, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		batchID, int(o.Road), string(o.Status), kind, o.Phase, errMsg,
		strings.Join(o.Tasks, ","), o.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome of road %d: %w", o.Road, err)
	}
	return nil
}

// CompleteBatch records the final state of a batch.
func (j *Journal) CompleteBatch(ctx context.Context, r *core.Report) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE batches SET status = ?, error_count = ?, message = ?, amount = ?, completed_at = ? WHERE id = ?`,
		string(r.Status), r.Errors, r.Message, r.AmountMeters, r.CompletedAt.UnixMilli(), r.BatchID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch by ID.
func (j *Journal) GetBatch(ctx context.Context, id string) (*BatchRecord, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, command, status, amount, error_count, message, started_at, completed_at
		 FROM batches WHERE id = ?`, id)

	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return b, nil
}

// RecentBatches returns the newest batches first.
func (j *Journal) RecentBatches(ctx context.Context, limit int) ([]*BatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, command, status, amount, error_count, message, started_at, completed_at
		 FROM batches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []*BatchRecord
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Outcomes returns the road outcomes of a batch in processing order.
func (j *Journal) Outcomes(ctx context.Context, batchID string) ([]OutcomeRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT road_code, status, kind, phase, error, tasks, duration_ms
		 FROM road_outcomes WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []OutcomeRecord
	for rows.Next() {
		var (
			o        OutcomeRecord
			road     int
			status   string
			tasks    string
			duration int64
		)
		if err := rows.Scan(&road, &status, &o.Kind, &o.Phase, &o.Error, &tasks, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Road = core.RoadCode(road)
		o.Status = core.OutcomeStatus(status)
		if tasks != "" {
			o.Tasks = strings.Split(tasks, ",")
		}
		o.Duration = time.Duration(duration) * time.Millisecond
		out = append(out, o)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(s scanner) (*BatchRecord, error) {
	var (
		b         BatchRecord
		status    string
		started   int64
		completed sql.NullInt64
	)
	if err := s.Scan(&b.ID, &b.Command, &status, &b.Amount, &b.Errors, &b.Message, &started, &completed); err != nil {
		return nil, err
	}
	b.Status = core.BatchStatus(status)
	b.StartedAt = time.UnixMilli(started)
	if completed.Valid {
		t := time.UnixMilli(completed.Int64)
		b.CompletedAt = &t
	}
	return &b, nil
}
