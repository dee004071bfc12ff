package declsrc

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// pos is where a node starts in the YAML document.
type pos struct {
	line, col, width int
}

func posOf(n *yaml.Node) pos {
	p := pos{line: n.Line, col: n.Column, width: 1}
	if n.Kind == yaml.ScalarNode && len(n.Value) > 0 {
		p.width = len(n.Value)
	}
	return p
}

type rawFile struct {
	Package      string      `yaml:"package"`
	Imports      []rawImport `yaml:"imports"`
	Declarations []rawDecl   `yaml:"declarations"`
}

// rawImport is "a.b.C", "a.b.*" or "a.b.C as D".
type rawImport struct {
	pos
	Text string
}

func (r *rawImport) UnmarshalYAML(n *yaml.Node) error {
	r.pos = posOf(n)
	return n.Decode(&r.Text)
}

// rawType is a type reference in its textual form, parsed by parseType.
type rawType struct {
	pos
	Text string
}

func (r *rawType) UnmarshalYAML(n *yaml.Node) error {
	r.pos = posOf(n)
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: type must be a string", n.Line)
	}
	r.Text = n.Value
	return nil
}

type rawDecl struct {
	pos `yaml:"-"`
	// entry is set for the scalar shorthand of an enum entry.
	entry string `yaml:"-"`

	Class          string `yaml:"class"`
	Interface      string `yaml:"interface"`
	Object         string `yaml:"object"`
	Enum           string `yaml:"enum"`
	AnnotationType string `yaml:"annotation_class"`
	Fun            string `yaml:"fun"`
	Val            string `yaml:"val"`
	Var            string `yaml:"var"`

	Visibility  string          `yaml:"visibility"`
	Modality    string          `yaml:"modality"`
	Annotations []rawAnnotation `yaml:"annotations"`
	TypeParams  []rawTypeParam  `yaml:"type_params"`

	Supertypes  []rawType `yaml:"supertypes"`
	Constructor *rawCtor  `yaml:"constructor"`
	Members     []rawDecl `yaml:"members"`
	Entries     []rawDecl `yaml:"entries"`
	Companion   bool      `yaml:"companion"`
	Inner       bool      `yaml:"inner"`

	Receiver *rawType     `yaml:"receiver"`
	Params   []rawParam   `yaml:"params"`
	Returns  *rawType     `yaml:"returns"`
	Body     []rawStmt    `yaml:"body"`
	Expr     *rawExpr     `yaml:"expr"`
	Operator bool         `yaml:"operator"`
	Type     *rawType     `yaml:"type"`
	Init     *rawExpr     `yaml:"init"`
	Getter   *rawAccessor `yaml:"getter"`
	Setter   *rawAccessor `yaml:"setter"`
}

func (d *rawDecl) UnmarshalYAML(n *yaml.Node) error {
	d.pos = posOf(n)
	if n.Kind == yaml.ScalarNode {
		d.entry = n.Value
		return nil
	}
	type plain rawDecl
	return n.Decode((*plain)(d))
}

type rawAnnotation struct {
	pos  `yaml:"-"`
	Type rawType  `yaml:"type"`
	Args []rawArg `yaml:"args"`
}

func (a *rawAnnotation) UnmarshalYAML(n *yaml.Node) error {
	a.pos = posOf(n)
	if n.Kind == yaml.ScalarNode {
		a.Type = rawType{pos: a.pos, Text: n.Value}
		return nil
	}
	type plain rawAnnotation
	return n.Decode((*plain)(a))
}

type rawTypeParam struct {
	pos      `yaml:"-"`
	Name     string    `yaml:"name"`
	Variance string    `yaml:"variance"`
	Reified  bool      `yaml:"reified"`
	Bounds   []rawType `yaml:"bounds"`
}

func (p *rawTypeParam) UnmarshalYAML(n *yaml.Node) error {
	p.pos = posOf(n)
	if n.Kind == yaml.ScalarNode {
		p.Name = n.Value
		return nil
	}
	type plain rawTypeParam
	return n.Decode((*plain)(p))
}

type rawParam struct {
	pos         `yaml:"-"`
	Name        string          `yaml:"name"`
	Type        *rawType        `yaml:"type"`
	Default     *rawExpr        `yaml:"default"`
	Vararg      bool            `yaml:"vararg"`
	Val         bool            `yaml:"val"`
	Var         bool            `yaml:"var"`
	Annotations []rawAnnotation `yaml:"annotations"`
}

func (p *rawParam) UnmarshalYAML(n *yaml.Node) error {
	p.pos = posOf(n)
	type plain rawParam
	return n.Decode((*plain)(p))
}

type rawCtor struct {
	pos        `yaml:"-"`
	Visibility string     `yaml:"visibility"`
	Params     []rawParam `yaml:"params"`
}

func (c *rawCtor) UnmarshalYAML(n *yaml.Node) error {
	c.pos = posOf(n)
	type plain rawCtor
	return n.Decode((*plain)(c))
}

type rawAccessor struct {
	pos        `yaml:"-"`
	Visibility string   `yaml:"visibility"`
	Expr       *rawExpr `yaml:"expr"`
}

func (a *rawAccessor) UnmarshalYAML(n *yaml.Node) error {
	a.pos = posOf(n)
	type plain rawAccessor
	return n.Decode((*plain)(a))
}

// rawArg is a call argument: an expression, or a mapping with "named" or
// "spread" around a value.
type rawArg struct {
	pos    `yaml:"-"`
	Named  string   `yaml:"named"`
	Spread bool     `yaml:"spread"`
	Value  *rawExpr `yaml:"value"`
}

func (a *rawArg) UnmarshalYAML(n *yaml.Node) error {
	a.pos = posOf(n)
	if n.Kind == yaml.MappingNode && (hasKey(n, "named") || hasKey(n, "spread")) {
		type plain rawArg
		return n.Decode((*plain)(a))
	}
	a.Value = new(rawExpr)
	return n.Decode(a.Value)
}

func hasKey(n *yaml.Node, key string) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

// rawExpr is one expression. Scalars are shorthands: strings are names,
// numbers, booleans and null are literals.
type rawExpr struct {
	pos    `yaml:"-"`
	scalar *yaml.Node `yaml:"-"`

	Name     string    `yaml:"name"`
	Int      *string   `yaml:"int"`
	Long     *string   `yaml:"long"`
	Double   *string   `yaml:"double"`
	Float    *string   `yaml:"float"`
	Char     *string   `yaml:"char"`
	String   *string   `yaml:"string"`
	Bool     *bool     `yaml:"bool"`
	This     bool      `yaml:"this"`
	Call     string    `yaml:"call"`
	Callee   *rawExpr  `yaml:"callee"`
	Member   string    `yaml:"member"`
	Receiver *rawExpr  `yaml:"receiver"`
	Safe     bool      `yaml:"safe"`
	TypeArgs []rawType `yaml:"type_args"`
	Args     []rawArg  `yaml:"args"`
	Binary   string    `yaml:"binary"`
	Left     *rawExpr  `yaml:"left"`
	Right    *rawExpr  `yaml:"right"`
	Unary    string    `yaml:"unary"`
	Operand  *rawExpr  `yaml:"operand"`
	Is       *rawType  `yaml:"is"`
	As       *rawType  `yaml:"as"`
	Value    *rawExpr  `yaml:"value"`
	Negated  bool      `yaml:"negated"`
	Paren    *rawExpr  `yaml:"paren"`
	If       *rawExpr  `yaml:"if"`
	Then     *rawExpr  `yaml:"then"`
	Else     *rawExpr  `yaml:"else"`
	Block    []rawStmt `yaml:"block"`
}

func (e *rawExpr) UnmarshalYAML(n *yaml.Node) error {
	e.pos = posOf(n)
	if n.Kind == yaml.ScalarNode {
		e.scalar = n
		return nil
	}
	type plain rawExpr
	return n.Decode((*plain)(e))
}

// rawStmt is a mapping with a single key naming the statement kind.
type rawStmt struct {
	pos
	kind  string
	value *yaml.Node
}

func (s *rawStmt) UnmarshalYAML(n *yaml.Node) error {
	s.pos = posOf(n)
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return fmt.Errorf("line %d: a statement is a mapping with one key", n.Line)
	}
	s.kind = n.Content[0].Value
	s.value = n.Content[1]
	return nil
}

type rawLocal struct {
	Name string   `yaml:"name"`
	Type *rawType `yaml:"type"`
	Init *rawExpr `yaml:"init"`
}

type rawAssign struct {
	Target *rawExpr `yaml:"target"`
	Value  *rawExpr `yaml:"value"`
}

type rawWhile struct {
	Cond *rawExpr  `yaml:"cond"`
	Body []rawStmt `yaml:"body"`
}
