// Package testkit checks structural invariants of analysis results. Tests
// across the module run these after every analysis they drive.
package testkit

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/calls"
	"frontcore/internal/descriptors"
	"frontcore/internal/resolve"
	"frontcore/internal/source"
	"frontcore/internal/types"
)

// CheckSpanInvariants verifies the spans of one lowered file: the file span
// stays within the content and every declaration, nested ones included, lies
// inside it.
func CheckSpanInvariants(b *ast.Builder, fileID ast.FileID, sf *source.File) error {
	if b == nil || sf == nil {
		return errors.New("nil builder or file")
	}
	f := b.Files.Get(fileID)
	if f == nil {
		return fmt.Errorf("file node %d not found", fileID)
	}
	if f.Span.File != sf.ID {
		return fmt.Errorf("file span points to different file id: got=%d want=%d", f.Span.File, sf.ID)
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if f.Span.Start > f.Span.End || f.Span.End > lenContent {
		return fmt.Errorf("file span %v outside content of %d bytes", f.Span, lenContent)
	}
	var check func(id ast.DeclID) error
	check = func(id ast.DeclID) error {
		d := b.Decls.Get(id)
		if d == nil {
			return fmt.Errorf("nil declaration for id=%d", id)
		}
		sp := d.Span
		if sp.File != sf.ID {
			return fmt.Errorf("declaration span file mismatch: got=%d want=%d", sp.File, sf.ID)
		}
		if !f.Span.Contains(sp) {
			return fmt.Errorf("declaration span %v is outside file span %v", sp, f.Span)
		}
		if cls, ok := b.Decls.Class(id); ok {
			for _, m := range cls.Members {
				if err := check(m); err != nil {
					return err
				}
			}
			for _, e := range cls.EnumEntries {
				if err := check(e); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, id := range f.Decls {
		if err := check(id); err != nil {
			return err
		}
	}
	return nil
}

// CheckResolvedCalls verifies that every call recorded as resolved was
// completed with a candidate, a result type and fully inferred type
// arguments.
func CheckResolvedCalls(sess *resolve.Session) error {
	tr := sess.Trace()
	var errs []error
	for _, key := range binding.Keys(tr, calls.Resolved) {
		rc, _ := binding.Get(tr, calls.Resolved, key)
		switch {
		case rc == nil || rc.Call == nil:
			errs = append(errs, fmt.Errorf("expr %d: resolved call without a call", key))
			continue
		case !rc.Completed || rc.State != calls.Completed:
			errs = append(errs, fmt.Errorf("expr %d: call %s recorded before completion", key, sess.Names().MustLookup(rc.Call.Name)))
		case rc.Candidate == nil:
			errs = append(errs, fmt.Errorf("expr %d: call %s has no candidate", key, sess.Names().MustLookup(rc.Call.Name)))
		case rc.ResultType == types.NoTypeID:
			errs = append(errs, fmt.Errorf("expr %d: call %s has no result type", key, sess.Names().MustLookup(rc.Call.Name)))
		}
		for i, t := range rc.TypeArguments {
			if t == types.NoTypeID {
				errs = append(errs, fmt.Errorf("expr %d: type argument %d of %s was never inferred", key, i, sess.Names().MustLookup(rc.Call.Name)))
			}
		}
	}
	return errors.Join(errs...)
}

// CheckOwnership verifies that every descriptor created for a source
// declaration is owned, transitively, by the session's module.
func CheckOwnership(sess *resolve.Session) error {
	tr := sess.Trace()
	var errs []error
	for _, key := range binding.Keys(tr, binding.Declaration) {
		d, _ := binding.Get(tr, binding.Declaration, key)
		if d == nil {
			errs = append(errs, fmt.Errorf("declaration %d bound to nil", key))
			continue
		}
		if m := descriptors.ModuleOf(d); m != sess.Module() {
			errs = append(errs, fmt.Errorf("%s is not owned by the analyzed module", descriptors.Render(d)))
		}
	}
	return errors.Join(errs...)
}

// CheckSession runs every session-level check.
func CheckSession(sess *resolve.Session) error {
	return errors.Join(CheckResolvedCalls(sess), CheckOwnership(sess))
}
