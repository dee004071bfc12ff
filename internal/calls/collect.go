package calls

import (
	"frontcore/internal/dataflow"
	"frontcore/internal/descriptors"
	"frontcore/internal/types"
)

// candidate is one descriptor a call site may denote, before resolution.
type candidate struct {
	desc descriptors.Descriptor
	// classSubst maps the type parameters of the dispatch receiver class to
	// the receiver's type arguments.
	classSubst *types.Substitutor
	dispatch   *Receiver
	// extension is the receiver offered to an extension callable.
	extension *Receiver
	// castTo is the narrowed receiver type the member was found through.
	castTo types.TypeID
	// invokeOn is set for the invoke member of a function value.
	invokeOn *ResolvedCall
	// wrongReceiver candidates are collected only to diagnose the site.
	wrongReceiver bool
}

// tier is a group of candidates of equal priority. The first tier with an
// applicable candidate decides the call.
type tier []candidate

type offer struct {
	desc descriptors.Descriptor
	recv *Receiver
}

type collector struct {
	r    *Resolver
	ctx  *Context
	call *Call
	// seen dedups a descriptor per receiver; offered holds every descriptor
	// handed to some receiver.
	seen    map[offer]bool
	offered map[descriptors.Descriptor]bool
	tiers   []tier
}

func (r *Resolver) collect(ctx *Context, call *Call) []tier {
	c := &collector{
		r:       r,
		ctx:     ctx,
		call:    call,
		seen:    make(map[offer]bool),
		offered: make(map[descriptors.Descriptor]bool),
	}
	if call.Receiver != nil {
		c.withExplicitReceiver(call.Receiver)
	} else {
		c.withoutReceiver()
	}
	return c.tiers
}

func (c *collector) push(t tier) {
	if len(t) > 0 {
		c.tiers = append(c.tiers, t)
	}
}

func original(d descriptors.Descriptor) descriptors.Descriptor {
	if cd, ok := d.(*descriptors.CallableDescriptor); ok {
		return cd.Original()
	}
	return d
}

func (c *collector) fresh(d descriptors.Descriptor, recv *Receiver) bool {
	key := offer{desc: original(d), recv: recv}
	if c.seen[key] {
		return false
	}
	c.seen[key] = true
	c.offered[key.desc] = true
	return true
}

// unoffered returns the candidates of s no receiver was offered.
func (c *collector) unoffered(ext bool) tier {
	var out tier
	for _, s := range c.allScopes() {
		for _, d := range c.named(s, ext) {
			o := original(d.desc)
			if c.offered[o] {
				continue
			}
			c.offered[o] = true
			d.wrongReceiver = true
			out = append(out, d)
		}
	}
	return out
}

func (c *collector) withExplicitReceiver(recv *Receiver) {
	var members tier
	c.addMembers(&members, recv, recv.Type, types.NoTypeID)
	if c.ctx.DataFlow != nil {
		for _, t := range c.ctx.DataFlow.PossibleTypes(recv.Value) {
			c.addMembers(&members, recv, t, t)
		}
	}
	c.push(members)

	for _, s := range c.ctx.Locals {
		c.push(c.extensions(s, recv))
	}
	for _, s := range c.ctx.TopLevel {
		c.push(c.extensions(s, recv))
	}

	c.push(c.unoffered(false))
}

func (c *collector) withoutReceiver() {
	for _, s := range c.ctx.Locals {
		c.push(c.plain(s))
	}
	for _, recv := range c.ctx.Implicit {
		var members tier
		c.addMembers(&members, recv, recv.Type, types.NoTypeID)
		c.push(members)
	}
	for _, recv := range c.ctx.Implicit {
		var ext tier
		for _, s := range c.allScopes() {
			ext = append(ext, c.extensions(s, recv)...)
		}
		c.push(ext)
	}
	for _, s := range c.ctx.TopLevel {
		c.push(c.plain(s))
	}

	c.push(c.unoffered(true))
}

func (c *collector) allScopes() []descriptors.Scope {
	out := make([]descriptors.Scope, 0, len(c.ctx.Locals)+len(c.ctx.TopLevel))
	out = append(out, c.ctx.Locals...)
	return append(out, c.ctx.TopLevel...)
}

// named returns the callables of s matching the call name whose extension
// flag is ext. Constructors are never extensions.
func (c *collector) named(s descriptors.Scope, ext bool) tier {
	var out tier
	name := c.call.Name
	if c.call.Kind == CallFunction {
		for _, f := range s.Functions(name) {
			if f.IsExtension() == ext {
				out = append(out, candidate{desc: f})
			}
		}
	}
	for _, v := range s.Variables(name) {
		if isExtensionVariable(v) == ext {
			out = append(out, candidate{desc: v})
		}
	}
	return out
}

// plain collects non-extension functions, variables and constructors of s.
func (c *collector) plain(s descriptors.Scope) tier {
	var out tier
	for _, d := range c.named(s, false) {
		if c.fresh(d.desc, nil) {
			out = append(out, d)
		}
	}
	cls, ok := s.Classifier(c.call.Name).(*descriptors.ClassDescriptor)
	if !ok {
		return out
	}
	if c.call.Kind == CallFunction {
		for _, ctor := range cls.Constructors() {
			if c.fresh(ctor, nil) {
				out = append(out, candidate{desc: ctor})
			}
		}
		return out
	}
	if ObjectValue(cls) != nil && c.fresh(cls, nil) {
		out = append(out, candidate{desc: cls})
	}
	return out
}

// ObjectValue returns the object a class name denotes when used as a
// value: the object itself or the companion of a class.
func ObjectValue(cls *descriptors.ClassDescriptor) *descriptors.ClassDescriptor {
	if cls.ClassKind().IsSingleton() {
		return cls
	}
	return cls.Companion()
}

// extensions collects the extension callables of s offered recv.
func (c *collector) extensions(s descriptors.Scope, recv *Receiver) tier {
	var out tier
	for _, d := range c.named(s, true) {
		if c.fresh(d.desc, recv) {
			d.extension = recv
			out = append(out, d)
		}
	}
	return out
}

// addMembers collects the members of t named like the call. castTo is the
// narrowed type when t comes from data flow.
func (c *collector) addMembers(out *tier, recv *Receiver, t, castTo types.TypeID) {
	cls, subst := c.r.classOf(t)
	if cls == nil {
		return
	}
	scope := cls.MemberScope()
	name := c.call.Name
	if c.call.Kind == CallFunction {
		for _, f := range scope.Functions(name) {
			if !f.IsExtension() && c.fresh(f, recv) {
				*out = append(*out, candidate{desc: f, classSubst: subst, dispatch: recv, castTo: castTo})
			}
		}
	}
	for _, v := range scope.Variables(name) {
		if !isExtensionVariable(v) && c.fresh(v, recv) {
			*out = append(*out, candidate{desc: v, classSubst: subst, dispatch: recv, castTo: castTo})
		}
	}
}

func isExtensionVariable(v descriptors.Variable) bool {
	p, ok := v.(*descriptors.CallableDescriptor)
	return ok && p.IsExtension()
}

// classOf returns the class a receiver of type t dispatches to, with the
// substitution of the class type parameters by the type arguments of t.
// Type parameters dispatch through their first upper bound.
func (r *Resolver) classOf(t types.TypeID) (*descriptors.ClassDescriptor, *types.Substitutor) {
	return r.classOfDepth(t, 0)
}

func (r *Resolver) classOfDepth(t types.TypeID, depth int) (*descriptors.ClassDescriptor, *types.Substitutor) {
	if t == types.NoTypeID || depth > maxBoundDepth {
		return nil, nil
	}
	typ, ok := r.in.Lookup(r.in.MakeNotNullable(t))
	if !ok {
		return nil, nil
	}
	if typ.Kind == types.KindFlexible {
		return r.classOfDepth(typ.Lower, depth)
	}
	if typ.Kind != types.KindSimple {
		return nil, nil
	}
	switch typ.Ctor.Kind {
	case types.CtorTypeParam:
		bounds := r.checker.Hierarchy().UpperBounds(typ.Ctor.Param)
		if len(bounds) == 0 {
			return nil, nil
		}
		return r.classOfDepth(bounds[0], depth+1)
	case types.CtorClass:
		cls := r.module.FindClass(typ.Ctor.Class)
		if cls == nil {
			return nil, nil
		}
		return cls, types.NewSubstitutor(r.in, cls.TypeParamIDs(), typ.Args)
	}
	return nil, nil
}

const maxBoundDepth = 16

// invokeCandidates turns a resolved variable read into invoke candidates
// on its value.
func (r *Resolver) invokeCandidates(variable *ResolvedCall, value dataflow.Value) tier {
	cls, subst := r.classOf(variable.ResultType)
	if cls == nil {
		return nil
	}
	recv := &Receiver{
		Expr:  variable.Call.Expr,
		Type:  variable.ResultType,
		Value: value,
		Owner: variable.Candidate,
	}
	var out tier
	for _, f := range cls.MemberScope().Functions(r.invoke) {
		if f.IsOperator() && !f.IsExtension() {
			out = append(out, candidate{desc: f, classSubst: subst, dispatch: recv, invokeOn: variable})
		}
	}
	return out
}
