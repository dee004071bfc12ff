package types

import (
	"strings"
)

// String renders id the way it would be written in source, e.g.
// "Box<out Int>?" with class names relative to their package.
func (in *Interner) String(id TypeID) string {
	var sb strings.Builder
	in.render(&sb, id)
	return sb.String()
}

func (in *Interner) render(sb *strings.Builder, id TypeID) {
	t, ok := in.Lookup(id)
	if !ok {
		sb.WriteString("<no type>")
		return
	}
	switch t.Kind {
	case KindError:
		sb.WriteString("[ERROR: ")
		sb.WriteString(t.Message)
		sb.WriteString("]")
		return
	case KindFlexible:
		in.render(sb, t.Lower)
		sb.WriteString("..")
		in.render(sb, t.Upper)
		return
	}
	switch t.Ctor.Kind {
	case CtorClass:
		sb.WriteString(in.names.FqString(t.Ctor.Class.Relative))
	case CtorTypeParam:
		sb.WriteString(in.names.MustLookup(in.TypeParam(t.Ctor.Param).Name))
	case CtorCaptured:
		p := in.CapturedProjection(t.Ctor)
		sb.WriteString("Captured(")
		in.renderProjection(sb, p)
		sb.WriteString(")")
	case CtorDontCare:
		sb.WriteString("???")
	}
	if len(t.Args) > 0 {
		sb.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			in.renderProjection(sb, a)
		}
		sb.WriteByte('>')
	}
	if t.Nullable {
		sb.WriteByte('?')
	}
}

func (in *Interner) renderProjection(sb *strings.Builder, p Projection) {
	if p.Star {
		sb.WriteByte('*')
		return
	}
	if p.Variance != VarInvariant {
		sb.WriteString(p.Variance.String())
		sb.WriteByte(' ')
	}
	in.render(sb, p.Type)
}
