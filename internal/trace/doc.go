// Package trace records execution spans of an analysis run.
//
// A Tracer travels through the pipeline in a context:
//
//	ctx = trace.WithTracer(ctx, tr)
//	sp := trace.Begin(trace.FromContext(ctx), trace.ScopePackage, "resolve:app.core", trace.CurrentSpan(ctx))
//	defer sp.End("")
//
// Each Scope is recorded only when the Level admits it. Phase keeps driver
// and pass spans, detail adds packages and declarations, debug adds call
// sites and storage computations.
package trace
