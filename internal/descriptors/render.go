package descriptors

import (
	"strings"

	"frontcore/internal/types"
)

// Render prints a one-line description of d, used in diagnostics and dumps.
func Render(d Descriptor) string {
	mod := ModuleOf(d)
	if mod == nil {
		return "<detached " + d.Kind().String() + ">"
	}
	r := renderer{mod: mod, in: mod.types}
	var sb strings.Builder
	switch d := d.(type) {
	case *ModuleDescriptor:
		sb.WriteString("module <")
		sb.WriteString(mod.names.MustLookup(d.Name()))
		sb.WriteString(">")
	case *PackageDescriptor:
		sb.WriteString("package ")
		sb.WriteString(mod.names.FqString(d.FqName()))
	case *ClassDescriptor:
		if d.Modality() != Final && d.ClassKind() == ClassPlain {
			sb.WriteString(d.Modality().String())
			sb.WriteByte(' ')
		}
		sb.WriteString(d.ClassKind().String())
		sb.WriteByte(' ')
		sb.WriteString(mod.names.ClassString(d.ID()))
		r.typeParams(&sb, d.TypeParameters())
		if st := d.Supertypes(); len(st) > 0 {
			sb.WriteString(" : ")
			for i, t := range st {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(r.in.String(t))
			}
		}
	case *CallableDescriptor:
		r.callable(&sb, d)
	case *PropertyAccessor:
		if d.IsSetter() {
			sb.WriteString("set ")
		} else {
			sb.WriteString("get ")
		}
		r.callable(&sb, d.Property())
	case *ValueParameter:
		r.param(&sb, d)
	case *TypeParameter:
		r.typeParam(&sb, d)
	case *LocalVariable:
		if d.IsVar() {
			sb.WriteString("var ")
		} else {
			sb.WriteString("val ")
		}
		sb.WriteString(mod.names.MustLookup(d.Name()))
		sb.WriteString(": ")
		sb.WriteString(r.in.String(d.Type()))
	}
	return sb.String()
}

type renderer struct {
	mod *ModuleDescriptor
	in *types.Interner
}

func (r renderer) name(d Descriptor) string {
	return r.mod.names.MustLookup(d.Name())
}

func (r renderer) callable(sb *strings.Builder, c *CallableDescriptor) {
	switch c.CallableKind() {
	case CallableConstructor:
		sb.WriteString("constructor ")
		if cls, ok := c.Owner().(*ClassDescriptor); ok {
			sb.WriteString(r.name(cls))
		}
	case CallableProperty:
		if c.IsVar() {
			sb.WriteString("var ")
		} else {
			sb.WriteString("val ")
		}
	default:
		sb.WriteString("fun ")
	}
	if c.CallableKind() != CallableConstructor {
		if len(c.TypeParameters()) > 0 {
			r.typeParams(sb, c.TypeParameters())
			sb.WriteByte(' ')
		}
		if c.IsExtension() {
			sb.WriteString(r.in.String(c.ExtensionReceiver()))
			sb.WriteByte('.')
		} else if cls, ok := c.Owner().(*ClassDescriptor); ok {
			sb.WriteString(r.name(cls))
			sb.WriteByte('.')
		}
		sb.WriteString(r.name(c))
	}
	if c.CallableKind() != CallableProperty {
		sb.WriteByte('(')
		for i, p := range c.ValueParameters() {
			if i > 0 {
				sb.WriteString(", ")
			}
			r.param(sb, p)
		}
		sb.WriteByte(')')
	}
	if c.CallableKind() != CallableConstructor {
		sb.WriteString(": ")
		sb.WriteString(r.in.String(c.ReturnType()))
	}
}

func (r renderer) param(sb *strings.Builder, p *ValueParameter) {
	if p.IsVararg() {
		sb.WriteString("vararg ")
	}
	sb.WriteString(r.name(p))
	sb.WriteString(": ")
	if p.IsVararg() {
		sb.WriteString(r.in.String(p.VarargElementType()))
	} else {
		sb.WriteString(r.in.String(p.Type()))
	}
	if p.HasDefault() {
		sb.WriteString(" = ...")
	}
}

func (r renderer) typeParams(sb *strings.Builder, tps []*TypeParameter) {
	if len(tps) == 0 {
		return
	}
	sb.WriteByte('<')
	for i, tp := range tps {
		if i > 0 {
			sb.WriteString(", ")
		}
		r.typeParam(sb, tp)
	}
	sb.WriteByte('>')
}

func (r renderer) typeParam(sb *strings.Builder, tp *TypeParameter) {
	if tp.IsReified() {
		sb.WriteString("reified ")
	}
	if v := tp.Variance(); v != types.VarInvariant {
		sb.WriteString(v.String())
		sb.WriteByte(' ')
	}
	sb.WriteString(r.name(tp))
	bounds := tp.DeclaredUpperBounds()
	if len(bounds) == 1 {
		sb.WriteString(" : ")
		sb.WriteString(r.in.String(bounds[0]))
	}
}
