package sema

import (
	"frontcore/internal/ast"
	"frontcore/internal/calls"
	"frontcore/internal/dataflow"
	"frontcore/internal/descriptors"
	"frontcore/internal/names"
	"frontcore/internal/types"
)

// frame is the state of one body being checked.
type frame struct {
	env    *Env
	blocks []*descriptors.StaticScope // innermost last
	start  *dataflow.Info
	parent uint64
}

func (c *Checker) newFrame(env *Env) *frame {
	start := env.DataFlow
	if start == nil {
		start = dataflow.Empty(c.in)
	}
	return &frame{env: env, start: start, parent: env.Parent}
}

func (f *frame) entry() *dataflow.Info {
	return f.start
}

func (f *frame) push() {
	f.blocks = append(f.blocks, descriptors.NewStaticScope())
}

func (f *frame) pop() {
	f.blocks = f.blocks[:len(f.blocks)-1]
}

func (f *frame) innermost() *descriptors.StaticScope {
	return f.blocks[len(f.blocks)-1]
}

// locals returns the block scopes followed by the enclosing ones, innermost
// first.
func (f *frame) locals() []descriptors.Scope {
	out := make([]descriptors.Scope, 0, len(f.blocks)+len(f.env.Locals))
	for i := len(f.blocks) - 1; i >= 0; i-- {
		out = append(out, f.blocks[i])
	}
	return append(out, f.env.Locals...)
}

// lookupLocal finds the innermost local variable or parameter called name.
func (f *frame) lookupLocal(name names.Name) descriptors.Variable {
	for _, s := range f.locals() {
		for _, v := range s.Variables(name) {
			switch v.(type) {
			case *descriptors.LocalVariable, *descriptors.ValueParameter:
				return v
			}
		}
	}
	return nil
}

func (f *frame) thisReceiver() *calls.Receiver {
	if len(f.env.Implicit) == 0 {
		return nil
	}
	return f.env.Implicit[0]
}

func (c *Checker) callContext(f *frame, flow *dataflow.Info, expected types.TypeID) *calls.Context {
	return &calls.Context{
		Trace:    c.trace,
		Reporter: c.reporter,
		DataFlow: flow,
		Expected: expected,
		Locals:   f.locals(),
		Implicit: f.env.Implicit,
		TopLevel: f.env.TopLevel,
		Tracer:   c.tracer,
		Parent:   f.parent,
	}
}

func (c *Checker) resolveType(f *frame, ref ast.TypeRefID) types.TypeID {
	if f.env.ResolveType == nil {
		return c.errorType("no type resolver")
	}
	return f.env.ResolveType(ref)
}
