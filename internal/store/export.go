package store

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"frontcore/internal/binding"
	"frontcore/internal/calls"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/resolve"
	"frontcore/internal/source"
	"frontcore/internal/types"
)

// Snapshot is what Export writes. Session may be nil for a run served
// from the cache; only its diagnostics are exported then.
type Snapshot struct {
	Module      string
	Files       *source.FileSet
	Session     *resolve.Session
	Diagnostics []diag.Diagnostic
}

// Export writes snap as a new run in one transaction and returns its id.
func (s *Store) Export(ctx context.Context, snap Snapshot) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO runs (module, created_at) VALUES (?, ?)",
		snap.Module, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	w := &exporter{ctx: ctx, tx: tx, run: runID, fs: snap.Files, fileIDs: make(map[source.FileID]int64)}
	if err := w.files(); err != nil {
		return 0, err
	}
	if snap.Session != nil {
		if err := w.declarations(snap.Session); err != nil {
			return 0, err
		}
		if err := w.callSites(snap.Session); err != nil {
			return 0, err
		}
	}
	if err := w.diagnostics(snap.Diagnostics); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

type exporter struct {
	ctx     context.Context
	tx      *sql.Tx
	run     int64
	fs      *source.FileSet
	fileIDs map[source.FileID]int64
}

func (w *exporter) files() error {
	if w.fs == nil {
		return nil
	}
	stmt, err := w.tx.PrepareContext(w.ctx, "INSERT INTO files (run_id, path, hash) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare files: %w", err)
	}
	defer stmt.Close()
	for id := source.FileID(1); int(id) <= w.fs.Len(); id++ {
		f := w.fs.Get(id)
		if f == nil {
			continue
		}
		res, err := stmt.ExecContext(w.ctx, w.run, f.Path, hex.EncodeToString(f.Hash[:]))
		if err != nil {
			return fmt.Errorf("insert file %s: %w", f.Path, err)
		}
		if w.fileIDs[id], err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}

// position returns the file row and line/column range of span.
func (w *exporter) position(span source.Span) (fileID any, pos Position) {
	if w.fs == nil || !span.IsValid() {
		return nil, pos
	}
	id, ok := w.fileIDs[span.File]
	if !ok {
		return nil, pos
	}
	start, end := w.fs.Resolve(span)
	return id, Position{
		File:      w.fs.Get(span.File).Path,
		StartLine: int(start.Line),
		StartCol:  int(start.Col),
		EndLine:   int(end.Line),
		EndCol:    int(end.Col),
	}
}

type declRow struct {
	span source.Span
	d    descriptors.Descriptor
}

// declarations writes every declaration the session bound to a
// descriptor, in source order.
func (w *exporter) declarations(sess *resolve.Session) error {
	tr := sess.Trace()
	var rows []declRow
	for _, key := range binding.Keys(tr, binding.Declaration) {
		d, ok := binding.Get(tr, binding.Declaration, key)
		if !ok || d == nil {
			continue
		}
		rows = append(rows, declRow{span: d.Source(), d: d})
	}
	slices.SortStableFunc(rows, func(a, b declRow) int {
		return cmp.Or(cmp.Compare(a.span.File, b.span.File), cmp.Compare(a.span.Start, b.span.Start), cmp.Compare(a.span.End, b.span.End))
	})

	stmt, err := w.tx.PrepareContext(w.ctx, `INSERT INTO declarations
		(run_id, file_id, kind, name, owner, rendered, start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare declarations: %w", err)
	}
	defer stmt.Close()
	nt := sess.Names()
	for _, r := range rows {
		fileID, pos := w.position(r.span)
		_, err := stmt.ExecContext(w.ctx, w.run, fileID, r.d.Kind().String(), nt.MustLookup(r.d.Name()),
			ownerName(nt, r.d.Owner()), descriptors.Render(r.d),
			pos.StartLine, pos.StartCol, pos.EndLine, pos.EndCol)
		if err != nil {
			return fmt.Errorf("insert declaration: %w", err)
		}
	}
	return nil
}

func ownerName(nt *names.Table, owner descriptors.Descriptor) string {
	switch o := owner.(type) {
	case nil:
		return ""
	case *descriptors.ClassDescriptor:
		return nt.ClassString(o.ID())
	case *descriptors.PackageDescriptor:
		return nt.FqString(o.FqName())
	default:
		return nt.MustLookup(o.Name())
	}
}

// callSites writes the resolved call of every call site, in source order.
func (w *exporter) callSites(sess *resolve.Session) error {
	tr := sess.Trace()
	var list []*calls.ResolvedCall
	for _, key := range binding.Keys(tr, calls.Resolved) {
		if rc, ok := binding.Get(tr, calls.Resolved, key); ok && rc != nil && rc.Call != nil {
			list = append(list, rc)
		}
	}
	slices.SortStableFunc(list, func(a, b *calls.ResolvedCall) int {
		sa, sb := a.Call.Span, b.Call.Span
		return cmp.Or(cmp.Compare(sa.File, sb.File), cmp.Compare(sa.Start, sb.Start), cmp.Compare(sa.End, sb.End))
	})

	stmt, err := w.tx.PrepareContext(w.ctx, `INSERT INTO resolved_calls
		(run_id, file_id, name, callee, callee_kind, result_type, type_arguments, completed,
		 start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare resolved calls: %w", err)
	}
	defer stmt.Close()
	nt, in := sess.Names(), sess.Types()
	for _, rc := range list {
		fileID, pos := w.position(rc.Call.Span)
		callee, kind := "", ""
		if rc.Candidate != nil {
			callee, kind = descriptors.Render(rc.Candidate), rc.Candidate.Kind().String()
		}
		var result string
		if rc.ResultType != types.NoTypeID {
			result = in.String(rc.ResultType)
		}
		targs := make([]string, len(rc.TypeArguments))
		for i, t := range rc.TypeArguments {
			targs[i] = in.String(t)
		}
		_, err := stmt.ExecContext(w.ctx, w.run, fileID, nt.MustLookup(rc.Call.Name), callee, kind,
			result, marshalStrings(targs), rc.Completed,
			pos.StartLine, pos.StartCol, pos.EndLine, pos.EndCol)
		if err != nil {
			return fmt.Errorf("insert resolved call: %w", err)
		}
	}
	return nil
}

func (w *exporter) diagnostics(list []diag.Diagnostic) error {
	stmt, err := w.tx.PrepareContext(w.ctx, `INSERT INTO diagnostics
		(run_id, file_id, code, severity, message, start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare diagnostics: %w", err)
	}
	defer stmt.Close()
	for _, d := range list {
		fileID, pos := w.position(d.Primary)
		_, err := stmt.ExecContext(w.ctx, w.run, fileID, d.Code.ID(), d.Severity.String(), d.Message,
			pos.StartLine, pos.StartCol, pos.EndLine, pos.EndCol)
		if err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}
	return nil
}

// marshalStrings converts []string to JSON text for storage.
func marshalStrings(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func unmarshalStrings(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}
