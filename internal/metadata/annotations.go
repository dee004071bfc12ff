package metadata

import (
	"fmt"

	"frontcore/internal/descriptors"
	"frontcore/internal/names"
)

// AnnotationSerializer writes annotations and constant values into the
// name table of a Serializer.
type AnnotationSerializer struct {
	table *names.NameTableBuilder
}

func NewAnnotationSerializer(table *names.NameTableBuilder) *AnnotationSerializer {
	return &AnnotationSerializer{table: table}
}

func (a *AnnotationSerializer) Annotations(list []descriptors.Annotation) []AnnotationMessage {
	if len(list) == 0 {
		return nil
	}
	out := make([]AnnotationMessage, 0, len(list))
	for _, an := range list {
		out = append(out, *a.Annotation(an))
	}
	return out
}

func (a *AnnotationSerializer) Annotation(an descriptors.Annotation) *AnnotationMessage {
	out := &AnnotationMessage{ID: a.table.ClassIndex(an.Class)}
	for _, arg := range an.Args {
		out.Args = append(out.Args, AnnotationArgument{
			NameID: a.table.Simple(arg.Name),
			Value:  a.Value(arg.Value),
		})
	}
	return out
}

func (a *AnnotationSerializer) Value(v descriptors.ConstantValue) ValueMessage {
	out := ValueMessage{
		Type:        uint8(v.Kind),
		StringValue: noIndex,
		ClassID:     noIndex,
		EnumValueID: noIndex,
	}
	switch v.Kind {
	case descriptors.ConstNull:
	case descriptors.ConstBool:
		if v.Bool {
			out.IntValue = 1
		}
	case descriptors.ConstByte, descriptors.ConstChar, descriptors.ConstShort, descriptors.ConstInt, descriptors.ConstLong:
		out.IntValue = v.Int
	case descriptors.ConstFloat, descriptors.ConstDouble:
		out.FloatValue = v.Float
	case descriptors.ConstString:
		out.StringValue = a.table.String(v.Str)
	case descriptors.ConstEnum:
		out.ClassID = a.table.ClassIndex(v.Class)
		out.EnumValueID = a.table.Simple(v.Entry)
	case descriptors.ConstClass:
		out.ClassID = a.table.ClassIndex(v.Class)
	case descriptors.ConstArray:
		for _, e := range v.Elems {
			out.ArrayElements = append(out.ArrayElements, a.Value(e))
		}
	case descriptors.ConstAnnotation:
		if v.Annotation == nil {
			panic(violation("annotation constant without an annotation"))
		}
		out.Annotation = a.Annotation(*v.Annotation)
	default:
		panic(violation("unknown constant kind %d", v.Kind))
	}
	return out
}

// annotationReader turns messages back into annotations.
type annotationReader struct {
	names *names.NameResolver
}

func (r annotationReader) annotations(list []AnnotationMessage) ([]descriptors.Annotation, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]descriptors.Annotation, 0, len(list))
	for i := range list {
		an, err := r.annotation(&list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, an)
	}
	return out, nil
}

func (r annotationReader) annotation(m *AnnotationMessage) (descriptors.Annotation, error) {
	id, err := r.names.ClassId(m.ID)
	if err != nil {
		return descriptors.Annotation{}, fmt.Errorf("annotation class: %w", err)
	}
	out := descriptors.Annotation{Class: id}
	for i := range m.Args {
		name, err := r.names.Simple(m.Args[i].NameID)
		if err != nil {
			return descriptors.Annotation{}, fmt.Errorf("annotation argument: %w", err)
		}
		v, err := r.value(&m.Args[i].Value)
		if err != nil {
			return descriptors.Annotation{}, err
		}
		out.Args = append(out.Args, descriptors.AnnotationArg{Name: name, Value: v})
	}
	return out, nil
}

func (r annotationReader) value(m *ValueMessage) (descriptors.ConstantValue, error) {
	kind := descriptors.ConstKind(m.Type)
	out := descriptors.ConstantValue{Kind: kind}
	var err error
	switch kind {
	case descriptors.ConstNull:
	case descriptors.ConstBool:
		out.Bool = m.IntValue != 0
	case descriptors.ConstByte, descriptors.ConstChar, descriptors.ConstShort, descriptors.ConstInt, descriptors.ConstLong:
		out.Int = m.IntValue
	case descriptors.ConstFloat, descriptors.ConstDouble:
		out.Float = m.FloatValue
	case descriptors.ConstString:
		out.Str, err = r.names.String(m.StringValue)
	case descriptors.ConstEnum:
		if out.Class, err = r.names.ClassId(m.ClassID); err == nil {
			out.Entry, err = r.names.Simple(m.EnumValueID)
		}
	case descriptors.ConstClass:
		out.Class, err = r.names.ClassId(m.ClassID)
	case descriptors.ConstArray:
		for i := range m.ArrayElements {
			e, err := r.value(&m.ArrayElements[i])
			if err != nil {
				return out, err
			}
			out.Elems = append(out.Elems, e)
		}
	case descriptors.ConstAnnotation:
		if m.Annotation == nil {
			return out, fmt.Errorf("annotation constant without an annotation")
		}
		an, aerr := r.annotation(m.Annotation)
		out.Annotation, err = &an, aerr
	default:
		return out, fmt.Errorf("unknown constant kind %d", m.Type)
	}
	if err != nil {
		return out, fmt.Errorf("constant value: %w", err)
	}
	return out, nil
}
