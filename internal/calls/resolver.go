package calls

import (
	"fmt"

	"frontcore/internal/binding"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/trace"
	"frontcore/internal/types"
)

// Resolver resolves call sites against the descriptors of one module.
type Resolver struct {
	module  *descriptors.ModuleDescriptor
	in      *types.Interner
	checker *types.Checker
	names   *names.Table
	invoke  names.Name
}

func NewResolver(module *descriptors.ModuleDescriptor) *Resolver {
	return &Resolver{
		module:  module,
		in:      module.Types(),
		checker: module.Checker(),
		names:   module.Names(),
		invoke:  module.Names().Intern("invoke"),
	}
}

// ResolveCall picks the descriptor call denotes. The winner is completed and
// recorded in ctx.Trace; failures are reported once to ctx.Reporter and
// leave no completed call behind. A call site is resolved at most once.
func (r *Resolver) ResolveCall(ctx *Context, call *Call) *Results {
	if res := r.cached(ctx, call); res != nil {
		return res
	}
	var span *trace.Span
	if ctx.Tracer != nil && ctx.Tracer.Level() >= trace.LevelDebug {
		span = trace.Begin(ctx.Tracer, trace.ScopeNode, "resolve_call", ctx.Parent)
		span.WithExtra("name", r.names.MustLookup(call.Name))
		span.WithExtra("args", fmt.Sprintf("%d", len(call.Args)))
	}
	res := r.resolve(ctx, call)
	if span != nil {
		span.End(res.Failure.String())
	}
	return res
}

func (r *Resolver) cached(ctx *Context, call *Call) *Results {
	if rc, ok := binding.Get(ctx.Trace, Resolved, call.Expr); ok {
		return &Results{Calls: []*ResolvedCall{rc}}
	}
	kind, ok := binding.Get(ctx.Trace, Failure, call.Expr)
	if !ok {
		return nil
	}
	res := &Results{Failure: kind}
	if kind == Ambiguity {
		res.Calls, _ = binding.Get(ctx.Trace, AmbiguousCandidates, call.Expr)
	} else {
		res.Calls, _ = binding.Get(ctx.Trace, FailedCandidates, call.Expr)
	}
	return res
}

func (r *Resolver) resolve(ctx *Context, call *Call) *Results {
	var all []*ResolvedCall
	for _, t := range r.collect(ctx, call) {
		var applicable, incomplete []*ResolvedCall
		for _, cand := range t {
			rc := r.resolveCandidate(ctx, call, cand)
			all = append(all, rc)
			switch {
			case rc.applicable():
				applicable = append(applicable, rc)
			case rc.Mismatch == MismatchUninferred:
				incomplete = append(incomplete, rc)
			}
		}
		if len(applicable) > 0 {
			best := r.mostSpecific(applicable)
			if len(best) == 1 {
				return r.complete(ctx, best[0])
			}
			return r.ambiguous(ctx, call, best)
		}
		if len(incomplete) > 0 {
			return r.cannotComplete(ctx, call, incomplete)
		}
	}
	return r.failed(ctx, call, all)
}

func (r *Resolver) complete(ctx *Context, rc *ResolvedCall) *Results {
	if rc.Variable != nil {
		r.finish(ctx, rc.Variable)
	}
	r.finish(ctx, rc)
	if rc.unsafeCall {
		recv := rc.DispatchReceiver
		if rc.ExtensionReceiver != nil {
			recv = rc.ExtensionReceiver
		}
		diag.ReportError(ctx.Reporter, diag.TypUnsafeCall, rc.Call.Span,
			fmt.Sprintf("only safe (?.) calls are allowed on a nullable receiver of type %s", r.in.String(recv.Type))).Emit()
	}
	binding.Record(ctx.Trace, Resolved, rc.Call.Expr, rc)
	ref := rc.Candidate
	if rc.Variable != nil {
		ref = rc.Variable.Candidate
	}
	binding.Record(ctx.Trace, binding.Reference, rc.Call.Expr, ref)
	return &Results{Calls: []*ResolvedCall{rc}}
}

func (r *Resolver) finish(ctx *Context, rc *ResolvedCall) {
	rc.trace.Commit()
	for _, c := range rc.casts {
		if c.stable {
			continue
		}
		diag.ReportError(ctx.Reporter, diag.TypSmartCastImpossible, c.span,
			fmt.Sprintf("smart cast to %s is impossible because the value could have changed", r.in.String(c.to))).Emit()
	}
	rc.State = Completed
	rc.Completed = true
}

func (r *Resolver) ambiguous(ctx *Context, call *Call, calls []*ResolvedCall) *Results {
	b := diag.ReportError(ctx.Reporter, diag.TypOverloadResolutionAmbiguity, call.Span,
		fmt.Sprintf("overload resolution ambiguity for %s", r.names.MustLookup(call.Name)))
	for _, rc := range calls {
		b.WithNote(rc.Candidate.Source(), descriptors.Render(rc.Candidate))
	}
	b.Emit()
	binding.Record(ctx.Trace, AmbiguousCandidates, call.Expr, calls)
	binding.Record(ctx.Trace, Failure, call.Expr, Ambiguity)
	return &Results{Failure: Ambiguity, Calls: calls}
}

func (r *Resolver) cannotComplete(ctx *Context, call *Call, calls []*ResolvedCall) *Results {
	if len(calls) == 1 && len(calls[0].Problems) > 0 {
		r.reportProblems(ctx, calls[0])
		binding.Record(ctx.Trace, binding.Reference, call.Expr, calls[0].Candidate)
	} else {
		b := diag.ReportError(ctx.Reporter, diag.TypCannotCompleteResolve, call.Span,
			fmt.Sprintf("cannot choose among candidates for %s without more type information", r.names.MustLookup(call.Name)))
		for _, rc := range calls {
			b.WithNote(rc.Candidate.Source(), descriptors.Render(rc.Candidate))
		}
		b.Emit()
	}
	return r.recordFailure(ctx, call, CannotCompleteResolve, calls)
}

func (r *Resolver) failed(ctx *Context, call *Call, all []*ResolvedCall) *Results {
	name := r.names.MustLookup(call.Name)
	if len(all) == 0 {
		diag.ReportError(ctx.Reporter, diag.ResUnresolvedReference, call.Span,
			fmt.Sprintf("unresolved reference: %s", name)).Emit()
		return r.recordFailure(ctx, call, Unresolved, nil)
	}
	var relevant []*ResolvedCall
	for _, rc := range all {
		if rc.Mismatch != MismatchReceiver {
			relevant = append(relevant, rc)
		}
	}
	if len(relevant) == 0 {
		b := diag.ReportError(ctx.Reporter, diag.TypUnresolvedReferenceWrongRecv, call.Span,
			fmt.Sprintf("unresolved reference %s: none of the candidates accepts this receiver", name))
		for _, rc := range all {
			b.WithNote(rc.Candidate.Source(), descriptors.Render(rc.Candidate))
		}
		b.Emit()
		return r.recordFailure(ctx, call, WrongReceiver, all)
	}
	if len(relevant) == 1 {
		r.reportProblems(ctx, relevant[0])
		binding.Record(ctx.Trace, binding.Reference, call.Expr, relevant[0].Candidate)
		return r.recordFailure(ctx, call, NoneApplicable, relevant)
	}
	b := diag.ReportError(ctx.Reporter, diag.TypNoneApplicable, call.Span,
		fmt.Sprintf("none of the following candidates is applicable for %s", name))
	for _, rc := range relevant {
		b.WithNote(rc.Candidate.Source(), descriptors.Render(rc.Candidate))
	}
	b.Emit()
	return r.recordFailure(ctx, call, NoneApplicable, relevant)
}

func (r *Resolver) reportProblems(ctx *Context, rc *ResolvedCall) {
	for _, p := range rc.Problems {
		diag.ReportError(ctx.Reporter, p.Code, p.Span, p.Msg).Emit()
	}
}

func (r *Resolver) recordFailure(ctx *Context, call *Call, kind FailureKind, calls []*ResolvedCall) *Results {
	binding.Record(ctx.Trace, FailedCandidates, call.Expr, calls)
	binding.Record(ctx.Trace, Failure, call.Expr, kind)
	return &Results{Failure: kind, Calls: calls}
}
