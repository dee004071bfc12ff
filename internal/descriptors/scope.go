package descriptors

import "frontcore/internal/names"

// Scope maps names to descriptors. Functions and variables form overload
// sets; a classifier (class or type parameter) is unique per name.
type Scope interface {
	Classifier(name names.Name) Descriptor
	Functions(name names.Name) []*CallableDescriptor
	Variables(name names.Name) []Variable
	All() []Descriptor
}

// EmptyScope contains nothing.
var EmptyScope Scope = NewStaticScope()

// StaticScope is a map backed scope. It is filled while its owner computes
// it and never changes after being published.
type StaticScope struct {
	classifiers map[names.Name]Descriptor
	functions   map[names.Name][]*CallableDescriptor
	variables   map[names.Name][]Variable
	all         []Descriptor
}

func NewStaticScope() *StaticScope {
	return &StaticScope{
		classifiers: make(map[names.Name]Descriptor),
		functions:   make(map[names.Name][]*CallableDescriptor),
		variables:   make(map[names.Name][]Variable),
	}
}

// Add files d under its name. It returns false when d is a classifier whose
// name is already taken; the earlier classifier is kept.
func (s *StaticScope) Add(d Descriptor) bool {
	name := d.Name()
	switch d := d.(type) {
	case *ClassDescriptor, *TypeParameter:
		if _, ok := s.classifiers[name]; ok {
			return false
		}
		s.classifiers[name] = d
	case *CallableDescriptor:
		switch d.CallableKind() {
		case CallableFunction:
			s.functions[name] = append(s.functions[name], d)
		case CallableProperty:
			s.variables[name] = append(s.variables[name], d)
		default:
			return false
		}
	case Variable:
		s.variables[name] = append(s.variables[name], d)
	default:
		return false
	}
	s.all = append(s.all, d)
	return true
}

func (s *StaticScope) Classifier(name names.Name) Descriptor {
	return s.classifiers[name]
}

func (s *StaticScope) Functions(name names.Name) []*CallableDescriptor {
	return s.functions[name]
}

func (s *StaticScope) Variables(name names.Name) []Variable {
	return s.variables[name]
}

// All returns descriptors in insertion order.
func (s *StaticScope) All() []Descriptor {
	return s.all
}

// ChainedScope layers scopes; earlier layers shadow later classifiers.
type ChainedScope struct {
	layers []Scope
}

func NewChainedScope(layers ...Scope) *ChainedScope {
	out := &ChainedScope{layers: make([]Scope, 0, len(layers))}
	for _, l := range layers {
		if l != nil {
			out.layers = append(out.layers, l)
		}
	}
	return out
}

// Layers returns the scopes innermost first.
func (c *ChainedScope) Layers() []Scope { return c.layers }

func (c *ChainedScope) Classifier(name names.Name) Descriptor {
	for _, l := range c.layers {
		if d := l.Classifier(name); d != nil {
			return d
		}
	}
	return nil
}

func (c *ChainedScope) Functions(name names.Name) []*CallableDescriptor {
	var out []*CallableDescriptor
	for _, l := range c.layers {
		out = append(out, l.Functions(name)...)
	}
	return out
}

func (c *ChainedScope) Variables(name names.Name) []Variable {
	var out []Variable
	for _, l := range c.layers {
		out = append(out, l.Variables(name)...)
	}
	return out
}

func (c *ChainedScope) All() []Descriptor {
	var out []Descriptor
	for _, l := range c.layers {
		out = append(out, l.All()...)
	}
	return out
}

// MemberScope is the scope of a class: declared members, fake overrides of
// inherited members and nested classes.
type MemberScope struct {
	*StaticScope
	owner      *ClassDescriptor
	callables  []*CallableDescriptor
	overridden map[*CallableDescriptor][]*CallableDescriptor
}

var emptyMemberScope = newMemberScope(nil)

func newMemberScope(owner *ClassDescriptor) *MemberScope {
	return &MemberScope{
		StaticScope: NewStaticScope(),
		owner:       owner,
		overridden:  make(map[*CallableDescriptor][]*CallableDescriptor),
	}
}

func (s *MemberScope) addCallable(c *CallableDescriptor) {
	s.callables = append(s.callables, c)
	s.Add(c)
}

// Callables returns functions and properties, declared ones first.
func (s *MemberScope) Callables() []*CallableDescriptor { return s.callables }

// Overridden returns the inherited members c overrides.
func (s *MemberScope) Overridden(c *CallableDescriptor) []*CallableDescriptor {
	return s.overridden[c]
}

// FakeOverrides returns the synthesized inherited members.
func (s *MemberScope) FakeOverrides() []*CallableDescriptor {
	var out []*CallableDescriptor
	for _, c := range s.callables {
		if c.MemberKind() == MemberFakeOverride {
			out = append(out, c)
		}
	}
	return out
}
