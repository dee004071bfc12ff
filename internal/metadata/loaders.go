package metadata

import (
	"errors"
	"fmt"

	"frontcore/internal/binclass"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/source"
	"frontcore/internal/storage"
)

// ClassAnnotations is everything read from one compiled class file.
type ClassAnnotations struct {
	Class     []descriptors.Annotation
	Members   map[MemberSignature][]descriptors.Annotation
	Constants map[MemberSignature]descriptors.ConstantValue
}

// LoadersStorage reads annotations and constants from compiled class files,
// once per class. A class file that cannot be read or decoded is reported
// once and then contributes nothing.
type LoadersStorage struct {
	nt       *names.Table
	locator  binclass.Locator
	reporter diag.Reporter
	files    *storage.MemoizedFunc[string, *ClassAnnotations]
}

// NewLoadersStorage reads class files through loc. A nil reporter drops
// problems with class files.
func NewLoadersStorage(m *storage.Manager, nt *names.Table, loc binclass.Locator, reporter diag.Reporter) *LoadersStorage {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	ls := &LoadersStorage{nt: nt, locator: loc, reporter: reporter}
	ls.files = storage.NewMemoizedFunc(m, ls.load, storage.Named("class file annotations"))
	return ls
}

// Load returns the annotations of the class file with the given internal
// name. A missing file yields empty annotations.
func (ls *LoadersStorage) Load(internalName string) (*ClassAnnotations, error) {
	return ls.files.Get(internalName)
}

func (ls *LoadersStorage) load(internalName string) (*ClassAnnotations, error) {
	out := &ClassAnnotations{
		Members:   make(map[MemberSignature][]descriptors.Annotation),
		Constants: make(map[MemberSignature]descriptors.ConstantValue),
	}
	data, err := ls.locator.Find(internalName)
	if errors.Is(err, binclass.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		diag.ReportError(ls.reporter, diag.MetLibraryClassNotFound, source.NoSpan,
			fmt.Sprintf("cannot read class file %s: %v", internalName, err)).Emit()
		return nil, err
	}
	cls, err := binclass.Read(data)
	if err != nil {
		diag.ReportError(ls.reporter, diag.MetCorruptLibrary, source.NoSpan,
			fmt.Sprintf("class file %s is corrupt: %v", internalName, err)).Emit()
		return nil, err
	}
	cls.VisitAnnotations(&annotationCollector{ls: ls, add: func(a descriptors.Annotation) {
		out.Class = append(out.Class, a)
	}})
	cls.VisitMembers(&memberCollector{ls: ls, out: out})
	return out, nil
}

func (ls *LoadersStorage) container(c *descriptors.CallableDescriptor) (*ClassAnnotations, MemberSignature, bool) {
	s := NewSigner(c.Module())
	ca, err := ls.Load(s.Container(c))
	if err != nil {
		return nil, "", false
	}
	return ca, s.Member(c), true
}

// MemberAnnotations implements Decorations.
func (ls *LoadersStorage) MemberAnnotations(c *descriptors.CallableDescriptor) []descriptors.Annotation {
	ca, sig, ok := ls.container(c)
	if !ok {
		return nil
	}
	return ca.Members[sig]
}

// ParameterAnnotations returns the annotations of parameter index of c.
func (ls *LoadersStorage) ParameterAnnotations(c *descriptors.CallableDescriptor, index int) []descriptors.Annotation {
	ca, sig, ok := ls.container(c)
	if !ok {
		return nil
	}
	return ca.Members[ParameterSignature(sig, index)]
}

// Constant returns the compile-time value of a constant property.
func (ls *LoadersStorage) Constant(c *descriptors.CallableDescriptor) (descriptors.ConstantValue, bool) {
	ca, sig, ok := ls.container(c)
	if !ok {
		return descriptors.ConstantValue{}, false
	}
	v, ok := ca.Constants[sig]
	return v, ok
}

// ClassFileAnnotations returns the annotations on the class file of id.
func (ls *LoadersStorage) ClassFileAnnotations(id names.ClassId) []descriptors.Annotation {
	ca, err := ls.Load(InternalName(ls.nt, id))
	if err != nil {
		return nil
	}
	return ca.Class
}

func (ls *LoadersStorage) value(v binclass.Value) descriptors.ConstantValue {
	switch v.Tag {
	case binclass.TagBoolean:
		return descriptors.ConstantValue{Kind: descriptors.ConstBool, Bool: v.Int != 0}
	case binclass.TagByte:
		return descriptors.ConstantValue{Kind: descriptors.ConstByte, Int: v.Int}
	case binclass.TagChar:
		return descriptors.ConstantValue{Kind: descriptors.ConstChar, Int: v.Int}
	case binclass.TagShort:
		return descriptors.ConstantValue{Kind: descriptors.ConstShort, Int: v.Int}
	case binclass.TagInt:
		return descriptors.ConstantValue{Kind: descriptors.ConstInt, Int: v.Int}
	case binclass.TagLong:
		return descriptors.ConstantValue{Kind: descriptors.ConstLong, Int: v.Int}
	case binclass.TagFloat:
		return descriptors.ConstantValue{Kind: descriptors.ConstFloat, Float: v.Float}
	case binclass.TagDouble:
		return descriptors.ConstantValue{Kind: descriptors.ConstDouble, Float: v.Float}
	case binclass.TagString:
		return descriptors.ConstantValue{Kind: descriptors.ConstString, Str: v.Str}
	case binclass.TagClass:
		return descriptors.ConstantValue{Kind: descriptors.ConstClass, Class: ClassIdFromInternal(ls.nt, v.Class)}
	case binclass.TagEnum:
		return descriptors.ConstantValue{Kind: descriptors.ConstEnum, Class: ClassIdFromInternal(ls.nt, v.Class), Entry: ls.nt.Intern(v.Str)}
	case binclass.TagArray:
		out := descriptors.ConstantValue{Kind: descriptors.ConstArray}
		for _, e := range v.Elems {
			out.Elems = append(out.Elems, ls.value(e))
		}
		return out
	}
	return descriptors.ConstantValue{Kind: descriptors.ConstNull}
}

type memberCollector struct {
	ls  *LoadersStorage
	out *ClassAnnotations
}

func (m *memberCollector) VisitField(name, desc string, constant *binclass.Value) binclass.AnnotationVisitor {
	sig := FieldSignature(name, desc)
	if constant != nil {
		m.out.Constants[sig] = m.ls.value(*constant)
	}
	return &annotationCollector{ls: m.ls, add: func(a descriptors.Annotation) {
		m.out.Members[sig] = append(m.out.Members[sig], a)
	}}
}

func (m *memberCollector) VisitMethod(name, desc string) binclass.MethodVisitor {
	sig := MethodSignature(name, desc)
	return &annotationCollector{ls: m.ls, sig: sig, out: m.out, add: func(a descriptors.Annotation) {
		m.out.Members[sig] = append(m.out.Members[sig], a)
	}}
}

// annotationCollector gathers the annotations of one element. For methods
// it also files parameter annotations under their parameter signature.
type annotationCollector struct {
	ls  *LoadersStorage
	add func(descriptors.Annotation)
	sig MemberSignature
	out *ClassAnnotations
}

func (a *annotationCollector) VisitAnnotation(class string) binclass.ArgumentVisitor {
	id := ClassIdFromInternal(a.ls.nt, class)
	return &argCollector{ls: a.ls, done: func(args []descriptors.AnnotationArg, _ []descriptors.ConstantValue) {
		a.add(descriptors.Annotation{Class: id, Args: args})
	}}
}

func (a *annotationCollector) VisitParameterAnnotation(index int, class string) binclass.ArgumentVisitor {
	psig := ParameterSignature(a.sig, index)
	id := ClassIdFromInternal(a.ls.nt, class)
	return &argCollector{ls: a.ls, done: func(args []descriptors.AnnotationArg, _ []descriptors.ConstantValue) {
		a.out.Members[psig] = append(a.out.Members[psig], descriptors.Annotation{Class: id, Args: args})
	}}
}

func (a *annotationCollector) VisitEnd() {}

// argCollector builds either the arguments of an annotation or the
// elements of an array.
type argCollector struct {
	ls    *LoadersStorage
	array bool
	args  []descriptors.AnnotationArg
	elems []descriptors.ConstantValue
	done  func([]descriptors.AnnotationArg, []descriptors.ConstantValue)
}

func (c *argCollector) add(name string, v descriptors.ConstantValue) {
	if c.array {
		c.elems = append(c.elems, v)
		return
	}
	c.args = append(c.args, descriptors.AnnotationArg{Name: c.ls.nt.Intern(name), Value: v})
}

func (c *argCollector) Visit(name string, v binclass.Value) { c.add(name, c.ls.value(v)) }

func (c *argCollector) VisitEnum(name, class, entry string) {
	c.add(name, c.ls.value(binclass.Value{Tag: binclass.TagEnum, Class: class, Str: entry}))
}

func (c *argCollector) VisitArray(name string) binclass.ArgumentVisitor {
	return &argCollector{ls: c.ls, array: true, done: func(_ []descriptors.AnnotationArg, elems []descriptors.ConstantValue) {
		c.add(name, descriptors.ConstantValue{Kind: descriptors.ConstArray, Elems: elems})
	}}
}

func (c *argCollector) VisitAnnotation(name, class string) binclass.ArgumentVisitor {
	id := ClassIdFromInternal(c.ls.nt, class)
	return &argCollector{ls: c.ls, done: func(args []descriptors.AnnotationArg, _ []descriptors.ConstantValue) {
		an := descriptors.Annotation{Class: id, Args: args}
		c.add(name, descriptors.ConstantValue{Kind: descriptors.ConstAnnotation, Annotation: &an})
	}}
}

func (c *argCollector) VisitEnd() { c.done(c.args, c.elems) }
