package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadRun retrieves a run and its node results by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, program, program_hash, seq, solved, failed, deferred, ir_version, tool_version
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		return Run{}, err
	}

	nodes, err := s.readNodes(ctx, id)
	if err != nil {
		return Run{}, err
	}
	run.Nodes = nodes

	return run, nil
}

// ListRuns returns all runs without their node results, ordered by seq.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program, program_hash, seq, solved, failed, deferred, ir_version, tool_version
		FROM runs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// ReadCallHistory returns every stored result of the call with the given
// content hash, oldest run first.
func (s *Store) ReadCallHistory(ctx context.Context, callHash string) ([]CallRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.program, r.seq,
		       n.position, n.name, n.op, n.call_hash, n.outcome, n.code, n.message, n.output_type, n.attrs
		FROM node_results n
		JOIN runs r ON n.run_id = r.id
		WHERE n.call_hash = ?
		ORDER BY r.seq ASC, n.position ASC
	`, callHash)
	if err != nil {
		return nil, fmt.Errorf("query call history: %w", err)
	}
	defer rows.Close()

	records := []CallRecord{}
	for rows.Next() {
		var rec CallRecord
		n := &rec.Node
		if err := rows.Scan(
			&rec.RunID, &rec.Program, &rec.Seq,
			&n.Position, &n.Name, &n.Op, &n.CallHash, &n.Outcome, &n.Code, &n.Message, &n.OutputType, &n.Attrs,
		); err != nil {
			return nil, fmt.Errorf("scan call record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call history: %w", err)
	}

	return records, nil
}

// readNodes returns the node results of a run in declaration order.
func (s *Store) readNodes(ctx context.Context, runID string) ([]NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, name, op, call_hash, outcome, code, message, output_type, attrs
		FROM node_results
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query node results: %w", err)
	}
	defer rows.Close()

	nodes := []NodeRecord{}
	for rows.Next() {
		var n NodeRecord
		if err := rows.Scan(
			&n.Position, &n.Name, &n.Op, &n.CallHash, &n.Outcome, &n.Code, &n.Message, &n.OutputType, &n.Attrs,
		); err != nil {
			return nil, fmt.Errorf("scan node result: %w", err)
		}
		nodes = append(nodes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate node results: %w", err)
	}

	return nodes, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun scans a runs row. A missing row is returned as sql.ErrNoRows
// unwrapped so callers can compare against it directly.
func scanRun(row rowScanner) (Run, error) {
	var run Run
	err := row.Scan(
		&run.ID, &run.Program, &run.ProgramHash, &run.Seq,
		&run.Solved, &run.Failed, &run.Deferred, &run.IRVersion, &run.ToolVersion,
	)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}
