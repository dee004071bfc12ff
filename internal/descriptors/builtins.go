package descriptors

import (
	"frontcore/internal/names"
	"frontcore/internal/types"
)

// BuiltIns owns the descriptors of the "lang" package. One instance is built
// per session and passed to every component that needs built-in classes.
type BuiltIns struct {
	module  *ModuleDescriptor
	types   *types.Builtins
	pkg     *PackageDescriptor
	classes map[names.ClassId]*ClassDescriptor
	order   []*ClassDescriptor
}

type builtinClass struct {
	id       names.ClassId
	kind     ClassKind
	modality Modality
	params   []builtinParam
	supers   func(c *ClassDescriptor) []types.TypeID
	members  func(c *ClassDescriptor) []*CallableDescriptor
}

type builtinParam struct {
	name     string
	variance types.Variance
}

type paramSpec struct {
	name string
	typ  types.TypeID
}

// NewBuiltIns creates the built-in classes inside module.
func NewBuiltIns(module *ModuleDescriptor) *BuiltIns {
	b := &BuiltIns{
		module:  module,
		types:   module.Builtins(),
		classes: make(map[names.ClassId]*ClassDescriptor),
	}
	b.pkg = NewPackage(module, b.types.Package, b.packageScope)
	for _, spec := range b.specs() {
		cls := NewClass(b.pkg, ClassSpec{
			Header:    Header{Name: module.names.ShortName(spec.id.Relative), Modality: spec.modality},
			ID:        spec.id,
			ClassKind: spec.kind,
		}, &builtinSource{b: b, spec: spec})
		b.classes[spec.id] = cls
		b.order = append(b.order, cls)
	}
	return b
}

func (b *BuiltIns) Types() *types.Builtins          { return b.types }
func (b *BuiltIns) Package() *PackageDescriptor     { return b.pkg }
func (b *BuiltIns) Classes() []*ClassDescriptor     { return b.order }
func (b *BuiltIns) Module() *ModuleDescriptor       { return b.module }
func (b *BuiltIns) IsBuiltin(id names.ClassId) bool { return b.classes[id] != nil }

// Class returns the built-in class id or nil.
func (b *BuiltIns) Class(id names.ClassId) *ClassDescriptor {
	return b.classes[id]
}

// FunctionType builds FunctionN<P1, ..., R>; ok is false past the maximum arity.
func (b *BuiltIns) FunctionType(params []types.TypeID, ret types.TypeID) (types.TypeID, bool) {
	cls, ok := b.types.FunctionClass(len(params))
	if !ok {
		return types.NoTypeID, false
	}
	args := make([]types.Projection, 0, len(params)+1)
	for _, p := range params {
		args = append(args, types.Invariant(p))
	}
	args = append(args, types.Invariant(ret))
	return b.module.types.Class(cls, args...), true
}

// ArrayType builds Array<elem>, or Array<out elem> for vararg parameters.
func (b *BuiltIns) ArrayType(elem types.TypeID, out bool) types.TypeID {
	p := types.Invariant(elem)
	if out {
		p.Variance = types.VarOut
	}
	return b.module.types.Class(b.types.Array, p)
}

func (b *BuiltIns) packageScope(p *PackageDescriptor) (Scope, error) {
	s := NewStaticScope()
	for _, c := range b.order {
		s.Add(c)
	}
	t := b.types
	s.Add(b.function(p, "println", Final, false, []paramSpec{{"message", t.NullableAnyType}}, t.UnitType))
	s.Add(b.arrayOf(p))
	return s, nil
}

// arrayOf is fun <T> arrayOf(vararg elements: T): Array<T>.
func (b *BuiltIns) arrayOf(owner Descriptor) *CallableDescriptor {
	nt := b.module.names
	return NewCallable(owner, CallableSpec{
		Header:       Header{Name: nt.Intern("arrayOf")},
		CallableKind: CallableFunction,
	}, func(c *CallableDescriptor) Signature {
		tp := NewTypeParameter(c, 0, Header{Name: nt.Intern("T")}, types.VarInvariant, false, nil)
		elems := NewValueParameter(c, 0, Header{Name: nt.Intern("elements")}, b.ArrayType(tp.Type(), true), tp.Type(), false)
		ret := b.ArrayType(tp.Type(), false)
		return Signature{
			TypeParameters:  []*TypeParameter{tp},
			ValueParameters: []*ValueParameter{elems},
			ReturnType:      func() (types.TypeID, error) { return ret, nil },
		}
	})
}

func (b *BuiltIns) function(owner Descriptor, name string, mod Modality, operator bool, params []paramSpec, ret types.TypeID) *CallableDescriptor {
	nt := b.module.names
	return NewCallable(owner, CallableSpec{
		Header:       Header{Name: nt.Intern(name), Modality: mod},
		CallableKind: CallableFunction,
		Operator:     operator,
	}, func(c *CallableDescriptor) Signature {
		vps := make([]*ValueParameter, len(params))
		for i, p := range params {
			vps[i] = NewValueParameter(c, i, Header{Name: nt.Intern(p.name)}, p.typ, types.NoTypeID, false)
		}
		return Signature{
			ValueParameters: vps,
			ReturnType:      func() (types.TypeID, error) { return ret, nil },
		}
	})
}

func (b *BuiltIns) property(owner Descriptor, name string, typ types.TypeID) *CallableDescriptor {
	nt := b.module.names
	return NewCallable(owner, CallableSpec{
		Header:       Header{Name: nt.Intern(name)},
		CallableKind: CallableProperty,
	}, func(c *CallableDescriptor) Signature {
		return Signature{
			ReturnType: func() (types.TypeID, error) { return typ, nil },
			Getter:     NewPropertyAccessor(c, Header{Name: nt.Intern(name)}, false, true),
		}
	})
}

func (b *BuiltIns) comparable(arg types.TypeID) types.TypeID {
	return b.module.types.Class(b.types.Comparable, types.Invariant(arg))
}

var numericRank = map[string]int{"Byte": 0, "Short": 1, "Int": 2, "Long": 3, "Float": 4, "Double": 5}

func (b *BuiltIns) specs() []builtinClass {
	t := b.types
	anySuper := func(*ClassDescriptor) []types.TypeID { return []types.TypeID{t.AnyType} }
	none := func(*ClassDescriptor) []*CallableDescriptor { return nil }

	numerics := []names.ClassId{t.Byte, t.Short, t.Int, t.Long, t.Float, t.Double}
	numericType := map[names.ClassId]types.TypeID{
		t.Byte: t.ByteType, t.Short: t.ShortType, t.Int: t.IntType,
		t.Long: t.LongType, t.Float: t.FloatType, t.Double: t.DoubleType,
	}
	rank := func(id names.ClassId) int { return numericRank[b.module.names.FqString(id.Relative)] }
	widen := func(x, y names.ClassId) types.TypeID {
		w := x
		if rank(y) > rank(w) {
			w = y
		}
		if rank(w) < rank(t.Int) {
			w = t.Int
		}
		return numericType[w]
	}

	out := []builtinClass{
		{
			id: t.Any, modality: Open,
			supers: func(*ClassDescriptor) []types.TypeID { return nil },
			members: func(c *ClassDescriptor) []*CallableDescriptor {
				return []*CallableDescriptor{
					b.function(c, "equals", Open, true, []paramSpec{{"other", t.NullableAnyType}}, t.BooleanType),
					b.function(c, "hashCode", Open, false, nil, t.IntType),
					b.function(c, "toString", Open, false, nil, t.StringType),
				}
			},
		},
		{id: t.Nothing, supers: func(*ClassDescriptor) []types.TypeID { return nil }, members: none},
		{id: t.Unit, kind: ClassObject, supers: anySuper, members: none},
		{
			id: t.Boolean,
			supers: func(*ClassDescriptor) []types.TypeID {
				return []types.TypeID{b.comparable(t.BooleanType)}
			},
			members: func(c *ClassDescriptor) []*CallableDescriptor {
				other := []paramSpec{{"other", t.BooleanType}}
				return []*CallableDescriptor{
					b.function(c, "not", Final, true, nil, t.BooleanType),
					b.function(c, "and", Final, false, other, t.BooleanType),
					b.function(c, "or", Final, false, other, t.BooleanType),
					b.function(c, "compareTo", Final, true, other, t.IntType),
				}
			},
		},
		{
			id: t.Char,
			supers: func(*ClassDescriptor) []types.TypeID {
				return []types.TypeID{b.comparable(t.CharType)}
			},
			members: func(c *ClassDescriptor) []*CallableDescriptor {
				return []*CallableDescriptor{
					b.function(c, "compareTo", Final, true, []paramSpec{{"other", t.CharType}}, t.IntType),
					b.function(c, "plus", Final, true, []paramSpec{{"other", t.IntType}}, t.CharType),
					b.function(c, "minus", Final, true, []paramSpec{{"other", t.CharType}}, t.IntType),
					b.function(c, "minus", Final, true, []paramSpec{{"other", t.IntType}}, t.CharType),
					b.function(c, "toInt", Final, false, nil, t.IntType),
				}
			},
		},
		{
			id: t.Number, modality: Abstract, supers: anySuper,
			members: func(c *ClassDescriptor) []*CallableDescriptor {
				return []*CallableDescriptor{
					b.function(c, "toInt", Abstract, false, nil, t.IntType),
					b.function(c, "toLong", Abstract, false, nil, t.LongType),
					b.function(c, "toDouble", Abstract, false, nil, t.DoubleType),
				}
			},
		},
	}
	for _, x := range numerics {
		self := x
		out = append(out, builtinClass{
			id: self,
			supers: func(*ClassDescriptor) []types.TypeID {
				return []types.TypeID{t.NumberType, b.comparable(numericType[self])}
			},
			members: func(c *ClassDescriptor) []*CallableDescriptor {
				var ms []*CallableDescriptor
				for _, y := range numerics {
					other := []paramSpec{{"other", numericType[y]}}
					for _, op := range []string{"plus", "minus", "times", "div", "rem"} {
						ms = append(ms, b.function(c, op, Final, true, other, widen(self, y)))
					}
					ms = append(ms, b.function(c, "compareTo", Final, true, other, t.IntType))
				}
				ms = append(ms,
					b.function(c, "unaryMinus", Final, true, nil, widen(self, self)),
					b.function(c, "unaryPlus", Final, true, nil, widen(self, self)),
					b.function(c, "toInt", Final, false, nil, t.IntType),
					b.function(c, "toLong", Final, false, nil, t.LongType),
					b.function(c, "toDouble", Final, false, nil, t.DoubleType),
				)
				return ms
			},
		})
	}
	out = append(out,
		builtinClass{
			id: t.String,
			supers: func(*ClassDescriptor) []types.TypeID {
				return []types.TypeID{b.comparable(t.StringType)}
			},
			members: func(c *ClassDescriptor) []*CallableDescriptor {
				return []*CallableDescriptor{
					b.property(c, "length", t.IntType),
					b.function(c, "plus", Final, true, []paramSpec{{"other", t.NullableAnyType}}, t.StringType),
					b.function(c, "get", Final, true, []paramSpec{{"index", t.IntType}}, t.CharType),
					b.function(c, "compareTo", Final, true, []paramSpec{{"other", t.StringType}}, t.IntType),
				}
			},
		},
		builtinClass{
			id: t.Comparable, kind: ClassInterface, modality: Abstract,
			params: []builtinParam{{"T", types.VarIn}},
			supers: anySuper,
			members: func(c *ClassDescriptor) []*CallableDescriptor {
				tp := c.TypeParameters()[0].Type()
				return []*CallableDescriptor{
					b.function(c, "compareTo", Abstract, true, []paramSpec{{"other", tp}}, t.IntType),
				}
			},
		},
		builtinClass{
			id:     t.Array,
			params: []builtinParam{{"T", types.VarInvariant}},
			supers: anySuper,
			members: func(c *ClassDescriptor) []*CallableDescriptor {
				tp := c.TypeParameters()[0].Type()
				return []*CallableDescriptor{
					b.property(c, "size", t.IntType),
					b.function(c, "get", Final, true, []paramSpec{{"index", t.IntType}}, tp),
					b.function(c, "set", Final, true, []paramSpec{{"index", t.IntType}, {"value", tp}}, t.UnitType),
				}
			},
		},
	)
	for arity, fn := range t.Functions {
		n := arity
		params := make([]builtinParam, 0, n+1)
		for i := 1; i <= n; i++ {
			params = append(params, builtinParam{"P" + string(rune('0'+i)), types.VarIn})
		}
		params = append(params, builtinParam{"R", types.VarOut})
		out = append(out, builtinClass{
			id: fn, kind: ClassInterface, modality: Abstract,
			params: params,
			supers: anySuper,
			members: func(c *ClassDescriptor) []*CallableDescriptor {
				tps := c.TypeParameters()
				ps := make([]paramSpec, n)
				for i := 0; i < n; i++ {
					ps[i] = paramSpec{"p" + string(rune('1'+i)), tps[i].Type()}
				}
				return []*CallableDescriptor{
					b.function(c, "invoke", Abstract, true, ps, tps[n].Type()),
				}
			},
		})
	}
	return out
}

type builtinSource struct {
	b    *BuiltIns
	spec builtinClass
}

func (s *builtinSource) TypeParameters(c *ClassDescriptor) ([]*TypeParameter, error) {
	nt := s.b.module.names
	out := make([]*TypeParameter, len(s.spec.params))
	for i, p := range s.spec.params {
		out[i] = NewTypeParameter(c, i, Header{Name: nt.Intern(p.name)}, p.variance, false, nil)
	}
	return out, nil
}

func (s *builtinSource) Supertypes(c *ClassDescriptor) ([]types.TypeID, error) {
	return s.spec.supers(c), nil
}

func (s *builtinSource) Members(c *ClassDescriptor) ([]*CallableDescriptor, error) {
	return s.spec.members(c), nil
}

func (s *builtinSource) Constructors(*ClassDescriptor) ([]*CallableDescriptor, error) {
	return nil, nil
}

func (s *builtinSource) NestedClasses(*ClassDescriptor) ([]*ClassDescriptor, error) {
	return nil, nil
}
