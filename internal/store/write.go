package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// WriteRun inserts a run and its node results in a single transaction and
// returns the run with its assigned seq.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing a run id that
// already exists leaves the stored run untouched and returns it as stored.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&existing)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return Run{}, fmt.Errorf("write run: commit: %w", err)
		}
		slog.Debug("run already recorded", "run_id", run.ID, "seq", existing)
		return s.ReadRun(ctx, run.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return Run{}, fmt.Errorf("write run: lookup: %w", err)
	}

	// Logical clock: next seq is one past the highest stored
	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}
	run.Seq = seq

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, program, program_hash, seq, solved, failed, deferred, ir_version, tool_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Program,
		run.ProgramHash,
		run.Seq,
		run.Solved,
		run.Failed,
		run.Deferred,
		run.IRVersion,
		run.ToolVersion,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: insert run: %w", err)
	}

	for _, n := range run.Nodes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO node_results
			(run_id, position, name, op, call_hash, outcome, code, message, output_type, attrs)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			n.Position,
			n.Name,
			n.Op,
			n.CallHash,
			n.Outcome,
			n.Code,
			n.Message,
			n.OutputType,
			n.Attrs,
		)
		if err != nil {
			return Run{}, fmt.Errorf("write run: insert node %q: %w", n.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}

	slog.Debug("run recorded", "run_id", run.ID, "program", run.Program, "seq", run.Seq)
	return run, nil
}
