package declsrc

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"

	"frontcore/internal/ast"
	"frontcore/internal/names"
	"frontcore/internal/source"
)

// typeParser reads the type syntax of declaration sources:
//
//	a.b.Box<out T, *>?    named, with projections and nullability
//	String!               platform type of unknown nullability
//	(Int, String) -> Unit function type
//	((Int) -> Unit)?      parenthesized
type typeParser struct {
	b    *ast.Builder
	text string
	i    int
	base source.Span
}

func parseType(b *ast.Builder, text string, at source.Span) (ast.TypeRefID, error) {
	p := &typeParser{b: b, text: text, base: at}
	id, err := p.typ()
	if err != nil {
		return ast.NoTypeRefID, err
	}
	p.skipSpace()
	if p.i < len(p.text) {
		return ast.NoTypeRefID, p.errorf("unexpected %q", p.text[p.i:])
	}
	return id, nil
}

func (p *typeParser) errorf(format string, args ...any) error {
	return fmt.Errorf("type %q at %d: %s", p.text, p.i, fmt.Sprintf(format, args...))
}

// span maps a byte range of the text into the file, clamped to the node.
func (p *typeParser) span(start int) source.Span {
	sp := p.base
	width := int(p.base.Len())
	if start > width {
		start = width
	}
	end := p.i
	if end > width {
		end = width
	}
	sp.Start = p.base.Start + offset(start)
	sp.End = p.base.Start + offset(end)
	return sp
}

func offset(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("type offset: %w", err))
	}
	return v
}

func (p *typeParser) skipSpace() {
	for p.i < len(p.text) && p.text[p.i] == ' ' {
		p.i++
	}
}

func (p *typeParser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.text[p.i:], tok) {
		p.i += len(tok)
		return true
	}
	return false
}

func (p *typeParser) ident() (string, bool) {
	p.skipSpace()
	start := p.i
	for p.i < len(p.text) {
		r, size := utf8.DecodeRuneInString(p.text[p.i:])
		if r != '_' && !unicode.IsLetter(r) && (p.i == start || !unicode.IsDigit(r)) {
			break
		}
		p.i += size
	}
	return p.text[start:p.i], p.i > start
}

func (p *typeParser) typ() (ast.TypeRefID, error) {
	p.skipSpace()
	start := p.i
	if !p.accept("(") {
		return p.named(start)
	}
	var params []ast.TypeRefID
	if !p.accept(")") {
		for {
			t, err := p.typ()
			if err != nil {
				return ast.NoTypeRefID, err
			}
			params = append(params, t)
			if p.accept(")") {
				break
			}
			if !p.accept(",") {
				return ast.NoTypeRefID, p.errorf("expected ',' or ')'")
			}
		}
	}
	if p.accept("->") {
		ret, err := p.typ()
		if err != nil {
			return ast.NoTypeRefID, err
		}
		return p.b.TypeRefs.NewFunction(p.span(start), ast.NoTypeRefID, params, ret, false), nil
	}
	if len(params) != 1 {
		return ast.NoTypeRefID, p.errorf("expected '->' after a parameter list")
	}
	inner := params[0]
	if p.accept("?") {
		if ref := p.b.TypeRefs.Get(inner); ref != nil {
			ref.Nullable = true
		}
	}
	return inner, nil
}

func (p *typeParser) named(start int) (ast.TypeRefID, error) {
	var path []names.Name
	for {
		id, ok := p.ident()
		if !ok {
			return ast.NoTypeRefID, p.errorf("expected a type name")
		}
		path = append(path, p.b.Names.Intern(id))
		if !p.accept(".") {
			break
		}
	}
	var args []ast.TypeArg
	if p.accept("<") {
		for {
			arg, err := p.arg()
			if err != nil {
				return ast.NoTypeRefID, err
			}
			args = append(args, arg)
			if p.accept(">") {
				break
			}
			if !p.accept(",") {
				return ast.NoTypeRefID, p.errorf("expected ',' or '>'")
			}
		}
	}
	nullable := p.accept("?")
	platform := !nullable && p.accept("!")
	id := p.b.TypeRefs.NewNamed(p.span(start), path, args, nullable)
	if platform {
		p.b.TypeRefs.Get(id).Platform = true
	}
	return id, nil
}

func (p *typeParser) arg() (ast.TypeArg, error) {
	if p.accept("*") {
		return ast.TypeArg{Star: true}, nil
	}
	v := ast.Invariant
	save := p.i
	if word, ok := p.ident(); ok && (word == "in" || word == "out") && p.i < len(p.text) && p.text[p.i] == ' ' {
		v = ast.In
		if word == "out" {
			v = ast.Out
		}
	} else {
		p.i = save
	}
	t, err := p.typ()
	if err != nil {
		return ast.TypeArg{}, err
	}
	return ast.TypeArg{Variance: v, Type: t}, nil
}
