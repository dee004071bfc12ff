// Package binclass reads compiled class files: msgpack payloads listing
// the fields, methods and annotations of one class. Readers walk a Class
// with push visitors; the class drives the callbacks in file order.
package binclass

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Magic opens every class file payload.
const Magic = "FCCL"

// File is the payload of one class file. Name is the internal name:
// package segments and the class name joined by '/', nested classes
// joined by '$'.
type File struct {
	_msgpack    struct{}     `msgpack:",as_array"`
	Magic       string       `msgpack:"magic"`
	Name        string       `msgpack:"name"`
	Annotations []Annotation `msgpack:"annotations"`
	Fields      []Field      `msgpack:"fields"`
	Methods     []Method     `msgpack:"methods"`
}

type Field struct {
	_msgpack    struct{}     `msgpack:",as_array"`
	Name        string       `msgpack:"name"`
	Desc        string       `msgpack:"desc"`
	Annotations []Annotation `msgpack:"annotations"`
	// Constant is the compile-time initializer of a constant field.
	Constant *Value `msgpack:"constant"`
}

type Method struct {
	_msgpack             struct{}       `msgpack:",as_array"`
	Name                 string         `msgpack:"name"`
	Desc                 string         `msgpack:"desc"`
	Annotations          []Annotation   `msgpack:"annotations"`
	ParameterAnnotations [][]Annotation `msgpack:"parameter_annotations"`
}

type Annotation struct {
	_msgpack struct{} `msgpack:",as_array"`
	Class    string   `msgpack:"class"`
	Args     []Arg    `msgpack:"args"`
}

type Arg struct {
	_msgpack struct{} `msgpack:",as_array"`
	Name     string   `msgpack:"name"`
	Value    Value    `msgpack:"value"`
}

// Tag is the type of a constant value, as in a JVM descriptor.
type Tag byte

const (
	TagBoolean    Tag = 'Z'
	TagByte       Tag = 'B'
	TagChar       Tag = 'C'
	TagShort      Tag = 'S'
	TagInt        Tag = 'I'
	TagLong       Tag = 'J'
	TagFloat      Tag = 'F'
	TagDouble     Tag = 'D'
	TagString     Tag = 's'
	TagEnum       Tag = 'e'
	TagClass      Tag = 'c'
	TagArray      Tag = '['
	TagAnnotation Tag = '@'
	TagNull       Tag = 'N'
)

// Value is a constant. Integral tags and Char use Int, Boolean uses Int as
// 0 or 1, enums use Class and Str for the entry.
type Value struct {
	_msgpack   struct{}    `msgpack:",as_array"`
	Tag        Tag         `msgpack:"tag"`
	Int        int64       `msgpack:"int"`
	Float      float64     `msgpack:"float"`
	Str        string      `msgpack:"str"`
	Class      string      `msgpack:"class"`
	Elems      []Value     `msgpack:"elems"`
	Annotation *Annotation `msgpack:"annotation"`
}

var ErrBadMagic = errors.New("binclass: not a class file")

// Class is a decoded class file.
type Class struct {
	file File
}

// Read decodes a class file payload.
func Read(data []byte) (*Class, error) {
	var f File
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return nil, fmt.Errorf("binclass: decode: %w", err)
	}
	if f.Magic != Magic {
		return nil, ErrBadMagic
	}
	return &Class{file: f}, nil
}

// Marshal encodes f, filling in the magic.
func Marshal(f File) ([]byte, error) {
	f.Magic = Magic
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(&f); err != nil {
		return nil, fmt.Errorf("binclass: encode %s: %w", f.Name, err)
	}
	return buf.Bytes(), nil
}

func (c *Class) Name() string { return c.file.Name }

// VisitAnnotations reports the class annotations.
func (c *Class) VisitAnnotations(v AnnotationVisitor) {
	visitAnnotations(v, c.file.Annotations)
	v.VisitEnd()
}

// VisitMembers reports fields, then methods, each followed by its
// annotations.
func (c *Class) VisitMembers(v MemberVisitor) {
	for i := range c.file.Fields {
		f := &c.file.Fields[i]
		av := v.VisitField(f.Name, f.Desc, f.Constant)
		if av == nil {
			continue
		}
		visitAnnotations(av, f.Annotations)
		av.VisitEnd()
	}
	for i := range c.file.Methods {
		m := &c.file.Methods[i]
		mv := v.VisitMethod(m.Name, m.Desc)
		if mv == nil {
			continue
		}
		visitAnnotations(mv, m.Annotations)
		for idx, list := range m.ParameterAnnotations {
			for j := range list {
				if av := mv.VisitParameterAnnotation(idx, list[j].Class); av != nil {
					visitArgs(av, list[j].Args)
				}
			}
		}
		mv.VisitEnd()
	}
}

func visitAnnotations(v AnnotationVisitor, list []Annotation) {
	for i := range list {
		if av := v.VisitAnnotation(list[i].Class); av != nil {
			visitArgs(av, list[i].Args)
		}
	}
}

func visitArgs(v ArgumentVisitor, args []Arg) {
	for i := range args {
		visitValue(v, args[i].Name, &args[i].Value)
	}
	v.VisitEnd()
}

func visitValue(v ArgumentVisitor, name string, val *Value) {
	switch val.Tag {
	case TagEnum:
		v.VisitEnum(name, val.Class, val.Str)
	case TagArray:
		if av := v.VisitArray(name); av != nil {
			for i := range val.Elems {
				visitValue(av, "", &val.Elems[i])
			}
			av.VisitEnd()
		}
	case TagAnnotation:
		if val.Annotation == nil {
			return
		}
		if av := v.VisitAnnotation(name, val.Annotation.Class); av != nil {
			visitArgs(av, val.Annotation.Args)
		}
	default:
		v.Visit(name, *val)
	}
}
