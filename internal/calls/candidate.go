package calls

import (
	"fmt"
	"slices"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/dataflow"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/inference"
	"frontcore/internal/source"
	"frontcore/internal/types"
)

// typeParamsOf returns the type parameters inferred at a call of c.
// Constructors infer the type parameters of their class.
func typeParamsOf(c *descriptors.CallableDescriptor) []*descriptors.TypeParameter {
	if c.CallableKind() == descriptors.CallableConstructor {
		if cls := descriptors.ContainingClass(c); cls != nil {
			return slices.Concat(cls.TypeParameters(), c.TypeParameters())
		}
	}
	return c.TypeParameters()
}

func resultTypeOf(c *descriptors.CallableDescriptor) types.TypeID {
	if c.CallableKind() == descriptors.CallableConstructor {
		if cls := descriptors.ContainingClass(c); cls != nil {
			return cls.DefaultType()
		}
	}
	return c.ReturnType()
}

// parameterType is the type an argument passed to p is checked against.
func parameterType(p *descriptors.ValueParameter, spread bool) types.TypeID {
	if p.IsVararg() && !spread {
		return p.VarargElementType()
	}
	return p.Type()
}

func (r *Resolver) newResolved(ctx *Context, call *Call, cand candidate) *ResolvedCall {
	return &ResolvedCall{
		Call:        call,
		Candidate:   cand.desc,
		State:       ResolvingArguments,
		Substitutor: types.EmptySubstitutor(r.in),
		trace:       ctx.Trace.Temporary(),
	}
}

func (r *Resolver) resolveCandidate(ctx *Context, call *Call, cand candidate) *ResolvedCall {
	if cand.invokeOn != nil {
		rc := r.resolveCallable(ctx, call, cand, cand.desc.(*descriptors.CallableDescriptor), true)
		rc.Variable = cand.invokeOn
		return rc
	}
	var rc *ResolvedCall
	switch d := cand.desc.(type) {
	case *descriptors.CallableDescriptor:
		isFunction := d.CallableKind() != descriptors.CallableProperty
		if isFunction || call.Kind == CallVariable {
			return r.resolveCallable(ctx, call, cand, d, isFunction)
		}
		rc = r.resolveCallable(ctx, variableRead(call), cand, d, false)
	case descriptors.Variable:
		rc = r.newResolved(ctx, variableRead(call), cand)
		if cand.wrongReceiver {
			return rc.fail(MismatchReceiver, r.wrongReceiver(call))
		}
		rc.ResultType = d.Type()
		rc.State = Completing
		if call.Kind == CallVariable {
			rc.Call = call
			return rc
		}
	case *descriptors.ClassDescriptor:
		rc = r.newResolved(ctx, variableRead(call), cand)
		rc.ResultType = r.ObjectType(d)
		rc.State = Completing
		if call.Kind == CallVariable {
			rc.Call = call
			return rc
		}
	default:
		rc = r.newResolved(ctx, call, cand)
		return rc.fail(MismatchType, Problem{
			Code: diag.TypFunctionExpected,
			Span: call.Span,
			Msg:  fmt.Sprintf("%s cannot be invoked as a function", r.names.MustLookup(call.Name)),
		})
	}
	if !rc.applicable() {
		return rc
	}
	return r.resolveInvoke(ctx, call, rc)
}

// ObjectType is the type of the value a class name denotes. Enum entries
// have the type of their enum class.
func (r *Resolver) ObjectType(cls *descriptors.ClassDescriptor) types.TypeID {
	obj := ObjectValue(cls)
	if obj == nil {
		return r.in.Error("class " + r.names.MustLookup(cls.Name()) + " has no companion object")
	}
	if obj.ClassKind() == descriptors.ClassEnumEntry {
		if enum, ok := obj.Owner().(*descriptors.ClassDescriptor); ok {
			return enum.DefaultType()
		}
	}
	return obj.DefaultType()
}

func variableRead(call *Call) *Call {
	read := *call
	read.Kind = CallVariable
	read.Args = nil
	read.TypeArgs = nil
	return &read
}

// resolveInvoke resolves name(args) where name holds a value with an invoke
// operator.
func (r *Resolver) resolveInvoke(ctx *Context, call *Call, variable *ResolvedCall) *ResolvedCall {
	value := dataflow.Value{Type: variable.ResultType, Nullability: dataflow.Unknown}
	var failed *ResolvedCall
	for _, cand := range r.invokeCandidates(variable, value) {
		rc := r.resolveCandidate(ctx, call, cand)
		if rc.applicable() {
			return rc
		}
		if failed == nil {
			failed = rc
		}
	}
	if failed != nil {
		return failed
	}
	rc := r.newResolved(ctx, call, candidate{desc: variable.Candidate})
	rc.Variable = variable
	return rc.fail(MismatchType, Problem{
		Code: diag.TypFunctionExpected,
		Span: call.Span,
		Msg:  fmt.Sprintf("expression of type %s cannot be invoked as a function", r.in.String(variable.ResultType)),
	})
}

func (r *Resolver) wrongReceiver(call *Call) Problem {
	return Problem{
		Code: diag.TypUnresolvedReferenceWrongRecv,
		Span: call.Span,
		Msg:  fmt.Sprintf("unresolved reference %s: none of the candidates accepts this receiver", r.names.MustLookup(call.Name)),
	}
}

// resolveCallable runs the argument, inference and receiver stages for one
// function, constructor or property candidate.
func (r *Resolver) resolveCallable(ctx *Context, call *Call, cand candidate, c *descriptors.CallableDescriptor, withArgs bool) *ResolvedCall {
	rc := r.newResolved(ctx, call, cand)
	if cand.wrongReceiver {
		return rc.fail(MismatchReceiver, r.wrongReceiver(call))
	}
	if c.IsExtension() && cand.extension == nil {
		return rc.fail(MismatchReceiver, r.wrongReceiver(call))
	}

	var params []*descriptors.ValueParameter
	if withArgs {
		params = c.ValueParameters()
		m := mapArguments(r.names, call, params)
		rc.ValueArguments = m.byParam
		rc.UsesVararg = m.usesVararg
		if len(m.problems) > 0 {
			return rc.fail(MismatchArguments, m.problems...)
		}
	}

	rc.State = CheckingConstraints
	base := types.EmptySubstitutor(r.in)
	if cand.classSubst != nil {
		base = cand.classSubst
	}
	subst := base
	ret := resultTypeOf(c)
	if tps := typeParamsOf(c); len(tps) > 0 {
		var ok bool
		if len(call.TypeArgs) > 0 {
			subst, ok = r.explicitTypeArguments(rc, call, tps, base)
		} else {
			subst, ok = r.inferTypeArguments(ctx, rc, call, cand, c, tps, params, base, ret)
		}
		if !ok {
			return rc
		}
	}
	rc.Substitutor = subst

	if cand.dispatch != nil && !r.checkDispatch(ctx, rc, call, cand) {
		return rc
	}
	if c.IsExtension() {
		rc.ExtensionReceiver = cand.extension
		if !r.checkExtension(ctx, rc, call, cand, subst.Substitute(c.ExtensionReceiver())) {
			return rc
		}
	}

	rc.ExpectedArgTypes = make([]types.TypeID, len(call.Args))
	var problems []Problem
	for idx, args := range rc.ValueArguments {
		for _, i := range args {
			arg := call.Args[i]
			expected := subst.Substitute(parameterType(params[idx], arg.Spread))
			rc.ExpectedArgTypes[i] = expected
			if arg.Type == types.NoTypeID {
				continue
			}
			if !r.checkValue(ctx, rc, arg.Expr, arg.Span, arg.Value, arg.Type, expected) {
				problems = append(problems, r.mismatch(arg.Span, expected, arg.Type))
			}
		}
	}
	if len(problems) > 0 {
		return rc.fail(MismatchType, problems...)
	}

	rc.ResultType = subst.Substitute(ret)
	if rc.Mismatch == MismatchUninferred {
		rc.State = Failed
		return rc
	}
	rc.State = Completing
	return rc
}

func (r *Resolver) mismatch(span source.Span, expected, actual types.TypeID) Problem {
	return Problem{
		Code: diag.TypMismatch,
		Span: span,
		Msg:  fmt.Sprintf("type mismatch: inferred type is %s but %s was expected", r.in.String(actual), r.in.String(expected)),
	}
}

func (r *Resolver) explicitTypeArguments(rc *ResolvedCall, call *Call, tps []*descriptors.TypeParameter, base *types.Substitutor) (*types.Substitutor, bool) {
	if len(call.TypeArgs) != len(tps) {
		rc.fail(MismatchTypeArguments, Problem{
			Code: diag.ResWrongTypeArgCount,
			Span: call.Span,
			Msg:  fmt.Sprintf("%d type arguments expected, got %d", len(tps), len(call.TypeArgs)),
		})
		return nil, false
	}
	ids := make([]types.TypeParamID, len(tps))
	args := make([]types.Projection, len(tps))
	for i, tp := range tps {
		ids[i] = tp.ID()
		args[i] = types.Invariant(call.TypeArgs[i])
	}
	subst := base.With(ids, args)
	for i, tp := range tps {
		for _, bound := range tp.UpperBounds() {
			b := subst.Substitute(bound)
			if !r.checker.IsSubtype(call.TypeArgs[i], b) {
				rc.fail(MismatchTypeArguments, Problem{
					Code: diag.TypUpperBoundViolated,
					Span: call.Span,
					Msg:  fmt.Sprintf("type argument %s is not within its bound %s", r.in.String(call.TypeArgs[i]), r.in.String(b)),
				})
				return nil, false
			}
		}
	}
	rc.TypeArguments = call.TypeArgs
	return subst, true
}

func (r *Resolver) inferTypeArguments(
	ctx *Context,
	rc *ResolvedCall,
	call *Call,
	cand candidate,
	c *descriptors.CallableDescriptor,
	tps []*descriptors.TypeParameter,
	params []*descriptors.ValueParameter,
	base *types.Substitutor,
	ret types.TypeID,
) (*types.Substitutor, bool) {
	ids := make([]types.TypeParamID, len(tps))
	for i, tp := range tps {
		ids[i] = tp.ID()
	}
	sys := inference.NewSystem(r.checker, ids)
	if c.IsExtension() {
		recv := r.receiverType(ctx, call, cand.extension)
		sys.AddSubtypeConstraint(recv, base.Substitute(c.ExtensionReceiver()), inference.Receiver())
	}
	for idx, args := range rc.ValueArguments {
		for _, i := range args {
			arg := call.Args[i]
			if arg.Type == types.NoTypeID {
				continue
			}
			pt := base.Substitute(parameterType(params[idx], arg.Spread))
			sys.AddSubtypeConstraint(r.argumentType(ctx, arg, pt), pt, inference.ValueParameter(idx))
		}
	}
	sys.ProcessDeclaredBounds()
	if ctx.Expected != types.NoTypeID {
		withExpected := sys.Copy()
		withExpected.AddSupertypeConstraint(ctx.Expected, base.Substitute(ret), inference.ExpectedType())
		withExpected.ProcessDeclaredBounds()
		if withExpected.Status().IsSuccessful() {
			sys = withExpected
		}
	}
	rc.System = sys

	st := sys.Status()
	if st.HasContradiction() || st.ViolatedUpperBound {
		var problems []Problem
		for idx, args := range rc.ValueArguments {
			if !sys.HasErrorAt(inference.ValueParameter(idx)) {
				continue
			}
			for _, i := range args {
				problems = append(problems, Problem{
					Code: diag.TypMismatch,
					Span: call.Args[i].Span,
					Msg:  fmt.Sprintf("type mismatch: %s does not satisfy the inferred constraints", r.in.String(call.Args[i].Type)),
				})
			}
		}
		if st.ViolatedUpperBound || len(problems) == 0 {
			problems = append(problems, Problem{
				Code: diag.TypUpperBoundViolated,
				Span: call.Span,
				Msg:  "inferred type arguments do not satisfy their bounds",
			})
		}
		rc.fail(MismatchType, problems...)
		return nil, false
	}
	if st.UnknownParameters {
		rc.Mismatch = MismatchUninferred
		for _, tp := range tps {
			if _, ok := sys.TypeBounds(tp.ID()).Value(r.checker); !ok {
				rc.Problems = append(rc.Problems, Problem{
					Code: diag.TypUninferredTypeParameter,
					Span: call.Span,
					Msg:  fmt.Sprintf("not enough information to infer type parameter %s", r.names.MustLookup(tp.Name())),
				})
			}
		}
	}

	solved := sys.ResultingSubstitutor()
	args := make([]types.Projection, len(ids))
	rc.TypeArguments = make([]types.TypeID, len(ids))
	for i, id := range ids {
		args[i] = solved.Map[id]
		rc.TypeArguments[i] = args[i].Type
	}
	return base.With(ids, args), true
}

// argumentType narrows an argument for inference when data flow knows a
// type that fits the parameter better than the static one.
func (r *Resolver) argumentType(ctx *Context, arg Argument, param types.TypeID) types.TypeID {
	if ctx.DataFlow == nil || r.checker.IsSubtype(arg.Type, param) {
		return arg.Type
	}
	for _, t := range ctx.DataFlow.PossibleTypes(arg.Value) {
		if r.checker.IsSubtype(t, param) {
			return t
		}
	}
	return arg.Type
}

// receiverType is the type an extension receiver is offered as. A safe
// call or a known non-null value drops nullability.
func (r *Resolver) receiverType(ctx *Context, call *Call, recv *Receiver) types.TypeID {
	if recv == call.Receiver && call.Safe {
		return r.in.MakeNotNullable(recv.Type)
	}
	if ctx.DataFlow != nil && ctx.DataFlow.Nullability(recv.Value) == dataflow.NotNull {
		return r.in.MakeNotNullable(recv.Type)
	}
	return recv.Type
}

// checkValue reports whether a value of type actual fits expected, using
// data flow facts when the static type does not. A narrowing it relies on
// is recorded in the candidate's trace.
func (r *Resolver) checkValue(ctx *Context, rc *ResolvedCall, expr ast.ExprID, span source.Span, v dataflow.Value, actual, expected types.TypeID) bool {
	if r.checker.IsSubtype(actual, expected) {
		return true
	}
	if ctx.DataFlow == nil {
		return false
	}
	for _, t := range ctx.DataFlow.PossibleTypes(v) {
		if r.checker.IsSubtype(t, expected) {
			r.castTo(rc, expr, span, v, t)
			return true
		}
	}
	return false
}

func (r *Resolver) castTo(rc *ResolvedCall, expr ast.ExprID, span source.Span, v dataflow.Value, t types.TypeID) {
	cast := smartCast{expr: expr, span: span, to: t, stable: v.IsStable()}
	rc.casts = append(rc.casts, cast)
	if cast.stable && expr != ast.NoExprID {
		binding.Record(rc.trace, binding.SmartCast, expr, t)
	}
}

func (r *Resolver) checkDispatch(ctx *Context, rc *ResolvedCall, call *Call, cand candidate) bool {
	recv := cand.dispatch
	rc.DispatchReceiver = recv
	actual := recv.Type
	if recv == call.Receiver && call.Safe {
		actual = r.in.MakeNotNullable(actual)
	}
	target := actual
	if cand.castTo != types.NoTypeID {
		target = cand.castTo
	}
	if r.checkValue(ctx, rc, recv.Expr, call.Span, recv.Value, actual, r.in.MakeNotNullable(target)) {
		return true
	}
	if recv.IsImplicit() {
		rc.fail(MismatchReceiver, r.wrongReceiver(call))
		return false
	}
	rc.unsafeCall = true
	return true
}

func (r *Resolver) checkExtension(ctx *Context, rc *ResolvedCall, call *Call, cand candidate, expected types.TypeID) bool {
	recv := cand.extension
	actual := recv.Type
	if recv == call.Receiver && call.Safe {
		actual = r.in.MakeNotNullable(actual)
	}
	if r.checkValue(ctx, rc, recv.Expr, call.Span, recv.Value, actual, expected) {
		return true
	}
	if !recv.IsImplicit() && r.checker.IsSubtype(r.in.MakeNotNullable(actual), expected) {
		rc.unsafeCall = true
		return true
	}
	rc.fail(MismatchReceiver, Problem{
		Code: diag.TypUnresolvedReferenceWrongRecv,
		Span: call.Span,
		Msg:  fmt.Sprintf("receiver of type %s does not match %s", r.in.String(recv.Type), r.in.String(expected)),
	})
	return false
}
