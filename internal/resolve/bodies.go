package resolve

import (
	"fmt"

	"frontcore/internal/ast"
	"frontcore/internal/calls"
	"frontcore/internal/descriptors"
	"frontcore/internal/sema"
	"frontcore/internal/trace"
	"frontcore/internal/types"
)

// checkBody types the code of decl and returns the type it produces: the
// result of a function or the type of a property. Each declaration is
// checked once; a second request during the check is a cycle.
func (s *Session) checkBody(decl ast.DeclID) (types.TypeID, error) {
	t := s.target(decl)
	if t == nil {
		return types.NoTypeID, fmt.Errorf("declaration %d has no descriptor", decl)
	}
	var span *trace.Span
	parent := uint64(0)
	if s.tracer.Level() >= trace.LevelDebug {
		span = trace.Begin(s.tracer, trace.ScopeDeclaration, "body "+s.names.MustLookup(t.callable.Name()), 0)
		parent = span.ID()
	}
	var out types.TypeID
	switch t.kind {
	case bodyFunction:
		out = s.checkFunction(t, parent)
	case bodyProperty:
		out = s.checkProperty(t, parent)
	case bodyClass:
		s.checkDefaults(s.env(t, t.callable, parent), t.ctor.Params, t.callable.ValueParameters())
	}
	if span != nil {
		span.End(s.in.String(out))
	}
	return out, nil
}

func (s *Session) checkFunction(t *bodyTarget, parent uint64) types.TypeID {
	c := t.callable
	env := s.env(t, c, parent)
	s.checkDefaults(env, t.fn.Params, c.ValueParameters())
	switch {
	case t.fn.Body.IsValid():
		ret := s.in.Builtins().UnitType
		if t.fn.Return.IsValid() {
			ret = c.ReturnType()
		}
		env.ReturnType = ret
		env.AllowReturn = true
		s.checker.CheckBlockBody(env, t.fn.Body)
		return ret
	case t.fn.ExprBody.IsValid():
		if t.fn.Return.IsValid() {
			ret := c.ReturnType()
			s.checker.CheckExpression(env, t.fn.ExprBody, ret)
			return ret
		}
		return s.orError(s.checker.CheckExpression(env, t.fn.ExprBody, types.NoTypeID))
	}
	return s.in.Builtins().UnitType
}

// checkProperty types the initializer and accessors. The setter parameter
// is a local so that typing it never asks for the inferred property type.
func (s *Session) checkProperty(t *bodyTarget, parent uint64) types.TypeID {
	c := t.callable
	data := t.prop
	declared := types.NoTypeID
	if data.Type.IsValid() {
		declared = c.ReturnType()
	}
	env := s.env(t, c, parent)
	inferred := types.NoTypeID
	if data.Init.IsValid() {
		inferred = s.checker.CheckExpression(env, data.Init, declared)
	}
	if g := data.Getter; g != nil && g.Body.IsValid() {
		gt := s.checker.CheckExpression(env, g.Body, declared)
		if inferred == types.NoTypeID {
			inferred = gt
		}
	}
	typ := declared
	if typ == types.NoTypeID {
		typ = s.orError(inferred)
	}
	if st := data.Setter; st != nil && st.Body.IsValid() {
		value := descriptors.NewStaticScope()
		value.Add(descriptors.NewLocalVariable(c, s.names.Intern("value"), typ, false, st.Span))
		setterEnv := *env
		setterEnv.Locals = append([]descriptors.Scope{value}, env.Locals...)
		s.checker.CheckExpression(&setterEnv, st.Body, types.NoTypeID)
	}
	return typ
}

func (s *Session) checkDefaults(env *sema.Env, params []ast.Param, vps []*descriptors.ValueParameter) {
	for i := range params {
		if params[i].Default.IsValid() && i < len(vps) {
			s.checker.CheckExpression(env, params[i].Default, vps[i].Type())
		}
	}
}

func (s *Session) orError(t types.TypeID) types.TypeID {
	if t == types.NoTypeID {
		return s.in.Error("cannot infer a type")
	}
	return t
}

// env builds the lexical environment of a body owned by c.
func (s *Session) env(t *bodyTarget, c *descriptors.CallableDescriptor, parent uint64) *sema.Env {
	params := descriptors.NewStaticScope()
	for _, p := range c.ValueParameters() {
		params.Add(p)
	}
	fr, tc := t.fr, t.tc
	return &sema.Env{
		Owner:    c,
		Locals:   []descriptors.Scope{params},
		Implicit: s.implicitReceivers(c),
		TopLevel: fr.topLevel(),
		ResolveType: func(ref ast.TypeRefID) types.TypeID {
			return fr.resolveType(ref, tc)
		},
		Parent: parent,
	}
}

// implicitReceivers lists the receivers a body of c sees, innermost first:
// the extension receiver, then each enclosing class followed by its
// companion. Only inner classes see the instance of their outer class.
func (s *Session) implicitReceivers(c *descriptors.CallableDescriptor) []*calls.Receiver {
	var out []*calls.Receiver
	add := func(owner descriptors.Descriptor, t types.TypeID) {
		out = append(out, &calls.Receiver{Type: t, Value: s.values.ForThis(owner, t), Owner: owner})
	}
	if ext := c.ExtensionReceiver(); ext != types.NoTypeID {
		add(c, ext)
	}
	for cls := descriptors.ContainingClass(c); cls != nil; cls = descriptors.ContainingClass(cls) {
		add(cls, cls.DefaultType())
		if comp := cls.Companion(); comp != nil {
			add(comp, comp.DefaultType())
		}
		if !cls.IsInner() {
			break
		}
	}
	return out
}
