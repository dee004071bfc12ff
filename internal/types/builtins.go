package types

import (
	"frontcore/internal/names"
)

// MaxFunctionArity is the highest FunctionN class provided as a built-in.
const MaxFunctionArity = 3

// Builtins identifies the built-in classes of the "lang" package and their
// most used types.
type Builtins struct {
	Package names.FqName

	Any, Nothing, Unit, Boolean, Char, Byte, Short, Int, Long, Float, Double, Number, String, Array, Comparable names.ClassId

	// Functions holds Function0..FunctionN.
	Functions []names.ClassId

	AnyType, NullableAnyType, NothingType, NullableNothingType, UnitType, BooleanType, CharType TypeID

	ByteType, ShortType, IntType, LongType, FloatType, DoubleType, StringType, NumberType TypeID
}

func newBuiltins(nt *names.Table, in *Interner) Builtins {
	pkg := nt.ParseFq("lang")
	cls := func(name string) names.ClassId { return nt.TopLevel(pkg, nt.Intern(name)) }
	b := Builtins{
		Package:    pkg,
		Any:        cls("Any"),
		Nothing:    cls("Nothing"),
		Unit:       cls("Unit"),
		Boolean:    cls("Boolean"),
		Char:       cls("Char"),
		Byte:       cls("Byte"),
		Short:      cls("Short"),
		Int:        cls("Int"),
		Long:       cls("Long"),
		Float:      cls("Float"),
		Double:     cls("Double"),
		Number:     cls("Number"),
		String:     cls("String"),
		Array:      cls("Array"),
		Comparable: cls("Comparable"),
	}
	for i := 0; i <= MaxFunctionArity; i++ {
		b.Functions = append(b.Functions, cls(functionName(i)))
	}
	b.AnyType = in.Class(b.Any)
	b.NullableAnyType = in.MakeNullable(b.AnyType)
	b.NothingType = in.Class(b.Nothing)
	b.NullableNothingType = in.MakeNullable(b.NothingType)
	b.UnitType = in.Class(b.Unit)
	b.BooleanType = in.Class(b.Boolean)
	b.CharType = in.Class(b.Char)
	b.ByteType = in.Class(b.Byte)
	b.ShortType = in.Class(b.Short)
	b.IntType = in.Class(b.Int)
	b.LongType = in.Class(b.Long)
	b.FloatType = in.Class(b.Float)
	b.DoubleType = in.Class(b.Double)
	b.StringType = in.Class(b.String)
	b.NumberType = in.Class(b.Number)
	return b
}

func functionName(arity int) string {
	return "Function" + string(rune('0'+arity))
}

// FunctionClass returns FunctionN for arity, or false past MaxFunctionArity.
func (b *Builtins) FunctionClass(arity int) (names.ClassId, bool) {
	if arity < 0 || arity >= len(b.Functions) {
		return names.NoClassId, false
	}
	return b.Functions[arity], true
}

// FunctionArity reports whether id is a FunctionN class and its arity.
func (b *Builtins) FunctionArity(id names.ClassId) (int, bool) {
	for i, f := range b.Functions {
		if f == id {
			return i, true
		}
	}
	return 0, false
}

// IsRoot reports the two classes without supertypes.
func (b *Builtins) IsRoot(id names.ClassId) bool {
	return id == b.Any || id == b.Nothing
}

// IsPrimitiveNumber reports the integral and floating point classes.
func (b *Builtins) IsPrimitiveNumber(id names.ClassId) bool {
	switch id {
	case b.Byte, b.Short, b.Int, b.Long, b.Float, b.Double:
		return true
	}
	return false
}
