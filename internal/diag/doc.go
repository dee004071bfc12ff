// Package diag is the ordered diagnostic sink of the analysis core.
//
// Phases never return expected semantic failures as errors; they report them
// through a Reporter and continue with placeholder descriptors or types:
//
//	diag.ReportError(r, diag.TypMismatch, span, "type mismatch: expected Int, found String").
//		WithNote(declSpan, "parameter declared here").
//		Emit()
//
// A Bag collects the diagnostics of a run. Wrapping its reporter in Once
// keeps a re-run memoized pass from adding entries twice.
package diag
