// Package ledger records enumeration runs and their per-generation counts in SQLite.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lukaszgryglicki/polycubes/internal/polycubes"
)

// schema.sql creates the runs and generations tables.
//
//go:embed schema.sql
var schemaSQL string

// ErrUnknownRun is returned when a run ID has no row in the ledger.
var ErrUnknownRun = errors.New("unknown run")

// Ledger is a run ledger backed by a SQLite database. It embeds *sql.DB for ad hoc
// queries and Close.
type Ledger struct {
	*sql.DB
}

// RunInfo describes the engine configuration a run used.
type RunInfo struct {
	Symmetry      string
	Canonicalizer string
	Store         string
	Strict        bool
	Workers       int
}

// Open opens (or creates) the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize ledger schema: %w", err)
	}
	return &Ledger{db}, nil
}

// StartRun creates a run row and returns its ID.
func (l *Ledger) StartRun(ctx context.Context, info RunInfo) (string, error) {
	id := uuid.NewString()
	_, err := l.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, symmetry, canonicalizer, store, strict, workers)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, time.Now().UnixNano(), info.Symmetry, info.Canonicalizer, info.Store, info.Strict, info.Workers)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// RecordGeneration stores one generation's count. Recording the same generation twice
// overwrites the earlier row.
func (l *Ledger) RecordGeneration(ctx context.Context, runID string, p polycubes.Progress) error {
	_, err := l.ExecContext(ctx, `
		INSERT OR REPLACE INTO generations (run_id, generation, count, duration_ns, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, runID, p.Generation, p.Count, p.Duration.Nanoseconds(), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert generation %d: %w", p.Generation, err)
	}
	return nil
}

// FinishRun stamps the run as finished, recording runErr when it is not nil.
func (l *Ledger) FinishRun(ctx context.Context, runID string, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := l.ExecContext(ctx, `UPDATE runs SET finished_at = ?, error = ? WHERE run_id = ?`,
		time.Now().UnixNano(), msg, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return nil
}

// Counts returns a run's counts ordered by generation, starting at generation 0.
func (l *Ledger) Counts(ctx context.Context, runID string) ([]int, error) {
	rows, err := l.QueryContext(ctx, `SELECT count FROM generations WHERE run_id = ? ORDER BY generation`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var counts []int
	for rows.Next() {
		var c int
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Reporter returns a progress callback that records every generation under runID.
func (l *Ledger) Reporter(ctx context.Context, runID string) func(polycubes.Progress) error {
	return func(p polycubes.Progress) error {
		return l.RecordGeneration(ctx, runID, p)
	}
}
