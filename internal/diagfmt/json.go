package diagfmt

import (
	"encoding/json"
	"io"

	"frontcore/internal/diag"
	"frontcore/internal/source"
)

// LocationJSON is a location inside a source file. File is empty for
// diagnostics without a source position.
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of the JSON output. Count is the number of
// diagnostics written, Total the number before truncation.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Total       int              `json:"total"`
}

func makeLocation(span source.Span, fs *source.FileSet, paths Paths, positions bool) LocationJSON {
	if fs == nil || !span.IsValid() {
		return LocationJSON{}
	}
	f := fs.Get(span.File)
	if f == nil {
		return LocationJSON{}
	}
	loc := LocationJSON{
		File:      paths.Format(f.Path),
		StartByte: span.Start,
		EndByte:   span.End,
	}
	if positions {
		start, end := fs.Resolve(span)
		loc.StartLine, loc.StartCol = start.Line, start.Col
		loc.EndLine, loc.EndCol = end.Line, end.Col
	}
	return loc
}

// BuildDiagnosticsOutput builds the JSON document without encoding it.
func BuildDiagnosticsOutput(diags []diag.Diagnostic, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	n := len(diags)
	if opts.Max > 0 && opts.Max < n {
		n = opts.Max
	}
	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, 0, n), Total: len(diags)}
	for _, d := range diags[:n] {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Location: makeLocation(d.Primary, fs, opts.Paths, opts.IncludePositions),
		}
		if opts.IncludeNotes {
			for _, note := range d.Notes {
				dj.Notes = append(dj.Notes, NoteJSON{
					Message:  note.Msg,
					Location: makeLocation(note.Span, fs, opts.Paths, opts.IncludePositions),
				})
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	out.Count = len(out.Diagnostics)
	return out
}

// JSON writes diagnostics as one indented JSON document.
func JSON(w io.Writer, diags []diag.Diagnostic, fs *source.FileSet, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDiagnosticsOutput(diags, fs, opts))
}
