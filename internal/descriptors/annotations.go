package descriptors

import (
	"fmt"
	"strconv"
	"strings"

	"frontcore/internal/names"
)

// ConstKind enumerates compile-time constant shapes usable as annotation
// arguments.
type ConstKind uint8

const (
	ConstNull ConstKind = iota
	ConstBool
	ConstByte
	ConstChar
	ConstShort
	ConstInt
	ConstLong
	ConstFloat
	ConstDouble
	ConstString
	ConstEnum
	ConstClass
	ConstArray
	ConstAnnotation
)

// ConstantValue is a compile-time constant. Integral kinds and Char use Int,
// floating kinds use Float.
type ConstantValue struct {
	Kind  ConstKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	// ConstEnum and ConstClass
	Class names.ClassId
	Entry names.Name
	// ConstArray
	Elems []ConstantValue
	// ConstAnnotation
	Annotation *Annotation
}

// Annotation is an applied annotation with its named arguments.
type Annotation struct {
	Class names.ClassId
	Args  []AnnotationArg
}

type AnnotationArg struct {
	Name  names.Name
	Value ConstantValue
}

// Arg returns the argument called name.
func (a Annotation) Arg(name names.Name) (ConstantValue, bool) {
	for _, arg := range a.Args {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return ConstantValue{}, false
}

// HasAnnotation reports whether d carries an annotation of class id.
func HasAnnotation(d Descriptor, id names.ClassId) bool {
	for _, a := range d.Annotations() {
		if a.Class == id {
			return true
		}
	}
	return false
}

// RenderConstant renders v the way it would be written in source.
func RenderConstant(nt *names.Table, v ConstantValue) string {
	switch v.Kind {
	case ConstNull:
		return "null"
	case ConstBool:
		return strconv.FormatBool(v.Bool)
	case ConstChar:
		return strconv.QuoteRune(rune(v.Int))
	case ConstByte, ConstShort, ConstInt:
		return strconv.FormatInt(v.Int, 10)
	case ConstLong:
		return strconv.FormatInt(v.Int, 10) + "L"
	case ConstFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 32) + "f"
	case ConstDouble:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ConstString:
		return strconv.Quote(v.Str)
	case ConstEnum:
		return nt.ClassString(v.Class) + "." + nt.MustLookup(v.Entry)
	case ConstClass:
		return nt.ClassString(v.Class) + "::class"
	case ConstArray:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = RenderConstant(nt, e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ConstAnnotation:
		if v.Annotation == nil {
			return "@<nil>"
		}
		return RenderAnnotation(nt, *v.Annotation)
	}
	return fmt.Sprintf("<const %d>", v.Kind)
}

// RenderAnnotation renders a as "@pkg/Name(arg = value)".
func RenderAnnotation(nt *names.Table, a Annotation) string {
	var sb strings.Builder
	sb.WriteByte('@')
	sb.WriteString(nt.ClassString(a.Class))
	if len(a.Args) > 0 {
		sb.WriteByte('(')
		for i, arg := range a.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(nt.MustLookup(arg.Name))
			sb.WriteString(" = ")
			sb.WriteString(RenderConstant(nt, arg.Value))
		}
		sb.WriteByte(')')
	}
	return sb.String()
}
