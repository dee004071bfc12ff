package diag

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"frontcore/internal/source"
)

type renderedDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatShort renders diagnostics one per line, "SEV CODE path:line:col msg",
// in a deterministic order suitable for golden files and CLI output.
// Diagnostics without a source location render as "<builtin>:0:0".
func FormatShort(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	rendered := make([]renderedDiagnostic, 0, len(diags))
	for i := range diags {
		rendered = appendRendered(rendered, &diags[i], fs, includeNotes)
	}
	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.Severity, d.Code, d.Path, d.Line, d.Column, d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func appendRendered(out []renderedDiagnostic, d *Diagnostic, fs *source.FileSet, includeNotes bool) []renderedDiagnostic {
	path, lc := locate(fs, d.Primary)
	out = append(out, renderedDiagnostic{
		Severity: d.Severity.String(),
		Code:     d.Code.ID(),
		Path:     path,
		Line:     lc.Line,
		Column:   lc.Col,
		Message:  sanitizeMessage(d.Message),
	})
	if !includeNotes {
		return out
	}
	for _, note := range d.Notes {
		npath, nlc := locate(fs, note.Span)
		out = append(out, renderedDiagnostic{
			Severity: "note",
			Code:     d.Code.ID(),
			Path:     npath,
			Line:     nlc.Line,
			Column:   nlc.Col,
			Message:  sanitizeMessage(note.Msg),
		})
	}
	return out
}

func locate(fs *source.FileSet, span source.Span) (string, source.LineCol) {
	if fs == nil || !span.IsValid() {
		return "<builtin>", source.LineCol{}
	}
	f := fs.Get(span.File)
	if f == nil {
		return "<builtin>", source.LineCol{}
	}
	start, _ := fs.Resolve(span)
	return f.Path, start
}

func sanitizeMessage(msg string) string {
	return strings.Join(strings.Fields(msg), " ")
}

// Pretty writes diagnostics with colored severities and the offending source
// line. Coloring follows color.NoColor.
func Pretty(w io.Writer, diags []Diagnostic, fs *source.FileSet) error {
	errLabel := color.New(color.FgRed, color.Bold).SprintFunc()
	warnLabel := color.New(color.FgYellow, color.Bold).SprintFunc()
	infoLabel := color.New(color.FgCyan).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for i := range diags {
		d := &diags[i]
		label := infoLabel(d.Severity.String())
		switch d.Severity {
		case SevError:
			label = errLabel(d.Severity.String())
		case SevWarning:
			label = warnLabel(d.Severity.String())
		}
		path, lc := locate(fs, d.Primary)
		if _, err := fmt.Fprintf(w, "%s[%s]: %s\n  --> %s:%d:%d\n", label, d.Code.ID(), d.Message, path, lc.Line, lc.Col); err != nil {
			return err
		}
		if fs != nil && d.Primary.IsValid() {
			if line := fs.Get(d.Primary.File).GetLine(lc.Line); line != "" {
				if _, err := fmt.Fprintf(w, "   | %s\n", line); err != nil {
					return err
				}
			}
		}
		for _, n := range d.Notes {
			npath, nlc := locate(fs, n.Span)
			if _, err := fmt.Fprintf(w, "   = %s %s %s\n", dim("note:"), n.Msg, dim(fmt.Sprintf("(%s:%d:%d)", npath, nlc.Line, nlc.Col))); err != nil {
				return err
			}
		}
	}
	return nil
}
