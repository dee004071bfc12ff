package sema

import (
	"fmt"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/calls"
	"frontcore/internal/dataflow"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/types"
)

func (c *Checker) typeName(f *frame, id ast.ExprID, expr *ast.Expr, ctx Context) TypeInfo {
	data, _ := c.builder.Exprs.Name(id)
	call := &calls.Call{Kind: calls.CallVariable, Expr: id, Span: expr.Span, Name: data.Name}
	res := c.calls.ResolveCall(c.callContext(f, ctx.DataFlow, ctx.Expected), call)
	return TypeInfo{Type: c.readResult(id, res, false), DataFlow: ctx.DataFlow}
}

// readResult records the data flow identity of a resolved name or member
// read and returns its type.
func (c *Checker) readResult(id ast.ExprID, res *calls.Results, safe bool) types.TypeID {
	rc := res.ResultingCall()
	if rc == nil {
		return types.NoTypeID
	}
	t := rc.ResultType
	if safe {
		t = c.in.MakeNullable(t)
	}
	switch d := rc.Candidate.(type) {
	case *descriptors.ClassDescriptor:
		if obj := calls.ObjectValue(d); obj != nil {
			binding.Record(c.trace, DataFlowValue, id, c.values.ForThis(obj, t))
		}
	case descriptors.Variable:
		var recv *dataflow.Value
		switch {
		case rc.DispatchReceiver != nil:
			recv = &rc.DispatchReceiver.Value
		case rc.ExtensionReceiver != nil:
			recv = &rc.ExtensionReceiver.Value
		}
		binding.Record(c.trace, DataFlowValue, id, c.values.ForVariable(d, recv, t))
	}
	return t
}

func (c *Checker) typeMember(f *frame, id ast.ExprID, expr *ast.Expr, ctx Context) TypeInfo {
	data, _ := c.builder.Exprs.Member(id)
	if t, ok := c.typeQualified(f, id, expr, data.Receiver, data.Name, ctx); ok {
		return TypeInfo{Type: t, DataFlow: ctx.DataFlow}
	}
	recv, flow := c.receiver(f, data.Receiver, ctx.DataFlow)
	call := &calls.Call{
		Kind:     calls.CallVariable,
		Expr:     id,
		Span:     expr.Span,
		Name:     data.Name,
		Receiver: recv,
		Safe:     data.Safe,
	}
	res := c.calls.ResolveCall(c.callContext(f, flow, ctx.Expected), call)
	return TypeInfo{Type: c.readResult(id, res, data.Safe), DataFlow: flow}
}

// receiver types an explicit receiver expression.
func (c *Checker) receiver(f *frame, id ast.ExprID, flow *dataflow.Info) (*calls.Receiver, *dataflow.Info) {
	info := c.typeExpr(f, id, Context{DataFlow: flow})
	return &calls.Receiver{Expr: id, Type: info.Type, Value: c.valueOf(id, info.Type)}, info.DataFlow
}

// typeQualified handles Class.Nested and Class.member where the receiver
// names a class rather than a value. ok is false when the receiver is a
// value.
func (c *Checker) typeQualified(f *frame, id ast.ExprID, expr *ast.Expr, recvExpr ast.ExprID, name names.Name, ctx Context) (types.TypeID, bool) {
	cls := c.classQualifier(f, recvExpr)
	if cls == nil {
		return types.NoTypeID, false
	}
	binding.Record(c.trace, binding.Reference, recvExpr, descriptors.Descriptor(cls))
	if nested := cls.NestedClass(name); nested != nil && calls.ObjectValue(nested) != nil {
		t := c.calls.ObjectType(nested)
		binding.Record(c.trace, binding.Reference, id, descriptors.Descriptor(nested))
		binding.Record(c.trace, DataFlowValue, id, c.values.ForThis(calls.ObjectValue(nested), t))
		return t, true
	}
	obj := calls.ObjectValue(cls)
	if obj == nil {
		diag.ReportError(c.reporter, diag.ResUnresolvedReference, expr.Span,
			fmt.Sprintf("unresolved reference: %s", c.builder.Names.MustLookup(name))).Emit()
		return c.errorType("unresolved qualified reference"), true
	}
	t := obj.DefaultType()
	binding.Record(c.trace, binding.ExpressionType, recvExpr, t)
	value := c.values.ForThis(obj, t)
	binding.Record(c.trace, DataFlowValue, recvExpr, value)
	call := &calls.Call{
		Kind:     calls.CallVariable,
		Expr:     id,
		Span:     expr.Span,
		Name:     name,
		Receiver: &calls.Receiver{Expr: recvExpr, Type: t, Value: value},
	}
	res := c.calls.ResolveCall(c.callContext(f, ctx.DataFlow, ctx.Expected), call)
	return c.readResult(id, res, false), true
}

// classQualifier returns the class a receiver name denotes when no value
// of that name is visible.
func (c *Checker) classQualifier(f *frame, recv ast.ExprID) *descriptors.ClassDescriptor {
	data, ok := c.builder.Exprs.Name(recv)
	if !ok {
		return nil
	}
	scopes := append(f.locals(), f.env.TopLevel...)
	for _, r := range f.env.Implicit {
		if cls := c.module.ClassOfType(r.Type); cls != nil {
			scopes = append(scopes, cls.MemberScope())
		}
	}
	for _, s := range scopes {
		if len(s.Variables(data.Name)) > 0 {
			return nil
		}
	}
	for _, s := range scopes {
		d := s.Classifier(data.Name)
		if d == nil {
			continue
		}
		cls, _ := d.(*descriptors.ClassDescriptor)
		if cls != nil && cls.ClassKind().IsSingleton() {
			return nil
		}
		return cls
	}
	return nil
}

func (c *Checker) typeCall(f *frame, id ast.ExprID, expr *ast.Expr, ctx Context) TypeInfo {
	data, _ := c.builder.Exprs.Call(id)
	flow := ctx.DataFlow
	call := &calls.Call{
		Kind: calls.CallFunction,
		Expr: id,
		Span: expr.Span,
		Name: data.Name,
		Safe: data.Safe,
	}
	switch {
	case data.Callee.IsValid():
		call.Name = c.builder.Names.Intern("invoke")
		call.Receiver, flow = c.receiver(f, data.Callee, flow)
	case data.Receiver.IsValid():
		if cls := c.classQualifier(f, data.Receiver); cls != nil {
			call.Receiver = c.qualifierReceiver(data.Receiver, cls)
		} else {
			call.Receiver, flow = c.receiver(f, data.Receiver, flow)
		}
	}
	for _, ref := range data.TypeArgs {
		call.TypeArgs = append(call.TypeArgs, c.resolveType(f, ref))
	}
	call.Args, flow = c.arguments(f, data.Args, flow)
	res := c.calls.ResolveCall(c.callContext(f, flow, ctx.Expected), call)
	rc := res.ResultingCall()
	if rc == nil {
		return TypeInfo{Type: types.NoTypeID, DataFlow: flow}
	}
	for i, arg := range call.Args {
		if i < len(rc.ExpectedArgTypes) && rc.ExpectedArgTypes[i] != types.NoTypeID {
			binding.Record(c.trace, binding.ExpectedType, c.deparenthesize(arg.Expr), rc.ExpectedArgTypes[i])
		}
	}
	t := rc.ResultType
	if data.Safe {
		t = c.in.MakeNullable(t)
	}
	return TypeInfo{Type: t, DataFlow: flow}
}

// qualifierReceiver is the receiver of Class.f(): the companion or the
// object itself.
func (c *Checker) qualifierReceiver(recvExpr ast.ExprID, cls *descriptors.ClassDescriptor) *calls.Receiver {
	binding.Record(c.trace, binding.Reference, recvExpr, descriptors.Descriptor(cls))
	obj := calls.ObjectValue(cls)
	if obj == nil {
		t := c.errorType("class " + c.builder.Names.MustLookup(cls.Name()) + " has no companion object")
		binding.Record(c.trace, binding.ExpressionType, recvExpr, t)
		return &calls.Receiver{Expr: recvExpr, Type: t, Value: c.values.ForExpression(recvExpr, t)}
	}
	t := obj.DefaultType()
	v := c.values.ForThis(obj, t)
	binding.Record(c.trace, binding.ExpressionType, recvExpr, t)
	binding.Record(c.trace, DataFlowValue, recvExpr, v)
	return &calls.Receiver{Expr: recvExpr, Type: t, Value: v}
}

// arguments types call arguments left to right without an expected type;
// parameter types are applied by call resolution.
func (c *Checker) arguments(f *frame, args []ast.Arg, flow *dataflow.Info) ([]calls.Argument, *dataflow.Info) {
	out := make([]calls.Argument, 0, len(args))
	for _, a := range args {
		info := c.typeExpr(f, a.Value, Context{DataFlow: flow})
		flow = info.DataFlow
		span := c.builder.Exprs.Get(a.Value).Span
		out = append(out, calls.Argument{
			Name:   a.Name,
			Expr:   a.Value,
			Span:   span,
			Spread: a.Spread,
			Type:   info.Type,
			Value:  c.valueOf(a.Value, info.Type),
		})
	}
	return out, flow
}
