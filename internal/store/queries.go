package store

import (
	"context"
	"database/sql"
	"fmt"
)

// LatestRun returns the most recent run, or false when there is none.
func (s *Store) LatestRun(ctx context.Context) (Run, bool, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, "SELECT id, module, created_at FROM runs ORDER BY id DESC LIMIT 1").
		Scan(&r.ID, &r.Module, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("query latest run: %w", err)
	}
	return r, true, nil
}

const positionColumns = "COALESCE(f.path, ''), start_line, start_col, end_line, end_col"

func scanPosition(p *Position) []any {
	return []any{&p.File, &p.StartLine, &p.StartCol, &p.EndLine, &p.EndCol}
}

// Declarations lists the declarations of a run in source order. A
// non-empty name keeps only declarations with that simple name.
func (s *Store) Declarations(ctx context.Context, runID int64, name string) ([]Declaration, error) {
	q := `SELECT d.id, d.run_id, d.kind, d.name, COALESCE(d.owner, ''), d.rendered, ` + positionColumns + `
		FROM declarations d LEFT JOIN files f ON f.id = d.file_id
		WHERE d.run_id = ? AND (? = '' OR d.name = ?) ORDER BY d.id`
	rows, err := s.db.QueryContext(ctx, q, runID, name, name)
	if err != nil {
		return nil, fmt.Errorf("query declarations: %w", err)
	}
	defer rows.Close()
	var out []Declaration
	for rows.Next() {
		var d Declaration
		dest := append([]any{&d.ID, &d.RunID, &d.Kind, &d.Name, &d.Owner, &d.Rendered}, scanPosition(&d.Pos)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ResolvedCalls lists the call sites of a run in source order.
func (s *Store) ResolvedCalls(ctx context.Context, runID int64) ([]ResolvedCall, error) {
	q := `SELECT c.id, c.run_id, c.name, c.callee, c.callee_kind, COALESCE(c.result_type, ''),
		COALESCE(c.type_arguments, ''), c.completed, ` + positionColumns + `
		FROM resolved_calls c LEFT JOIN files f ON f.id = c.file_id
		WHERE c.run_id = ? ORDER BY c.id`
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("query resolved calls: %w", err)
	}
	defer rows.Close()
	var out []ResolvedCall
	for rows.Next() {
		var c ResolvedCall
		var targs string
		dest := append([]any{&c.ID, &c.RunID, &c.Name, &c.Callee, &c.CalleeKind, &c.ResultType, &targs, &c.Completed},
			scanPosition(&c.Pos)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan resolved call: %w", err)
		}
		c.TypeArguments = unmarshalStrings(targs)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Diagnostics lists the diagnostics of a run in the order they were
// exported.
func (s *Store) Diagnostics(ctx context.Context, runID int64) ([]Diagnostic, error) {
	q := `SELECT d.id, d.run_id, d.code, d.severity, d.message, ` + positionColumns + `
		FROM diagnostics d LEFT JOIN files f ON f.id = d.file_id
		WHERE d.run_id = ? ORDER BY d.id`
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()
	var out []Diagnostic
	for rows.Next() {
		var d Diagnostic
		dest := append([]any{&d.ID, &d.RunID, &d.Code, &d.Severity, &d.Message}, scanPosition(&d.Pos)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
