package binclass

// MemberVisitor receives the fields and methods of a class. Returning nil
// skips the annotations of that member.
type MemberVisitor interface {
	VisitField(name, desc string, constant *Value) AnnotationVisitor
	VisitMethod(name, desc string) MethodVisitor
}

// AnnotationVisitor receives the annotations of one element. Returning nil
// from VisitAnnotation skips its arguments.
type AnnotationVisitor interface {
	VisitAnnotation(class string) ArgumentVisitor
	VisitEnd()
}

type MethodVisitor interface {
	AnnotationVisitor
	VisitParameterAnnotation(index int, class string) ArgumentVisitor
}

// ArgumentVisitor receives annotation arguments. Array elements are
// visited with an empty name.
type ArgumentVisitor interface {
	Visit(name string, v Value)
	VisitEnum(name, class, entry string)
	VisitArray(name string) ArgumentVisitor
	VisitAnnotation(name, class string) ArgumentVisitor
	VisitEnd()
}
