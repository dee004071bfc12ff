// Package metadata persists descriptors as binary messages and reads them
// back as lazy library descriptors.
package metadata

import "frontcore/internal/names"

// Index fields refer to the names.NameTable of the enclosing Fragment. -1
// marks an absent index.
const noIndex int32 = -1

// Fragment is one package of a library: its name table, the package
// message and one message per class, outer classes before nested ones.
type Fragment struct {
	_msgpack struct{}        `msgpack:",as_array"`
	Names    names.NameTable `msgpack:"names"`
	Package  PackageMessage  `msgpack:"package"`
	Classes  []ClassMessage  `msgpack:"classes"`
}

type PackageMessage struct {
	_msgpack struct{}          `msgpack:",as_array"`
	FqName   int32             `msgpack:"fq_name"`
	Members  []CallableMessage `msgpack:"members"`
	// Classes are the class indices of top-level classes.
	Classes []int32 `msgpack:"classes"`
}

type ClassMessage struct {
	_msgpack           struct{}               `msgpack:",as_array"`
	Flags              Flags                  `msgpack:"flags"`
	FqName             int32                  `msgpack:"fq_name"`
	TypeParameters     []TypeParameterMessage `msgpack:"type_parameters"`
	Supertypes         []TypeMessage          `msgpack:"supertypes"`
	PrimaryConstructor *PrimaryConstructor    `msgpack:"primary_constructor"`
	Members            []CallableMessage      `msgpack:"members"`
	NestedClassNames   []int32                `msgpack:"nested_class_names"`
	EnumEntries        []int32                `msgpack:"enum_entries"`
	ClassObject        *ClassObjectMessage    `msgpack:"class_object"`
	Annotations        []AnnotationMessage    `msgpack:"annotations"`
}

// PrimaryConstructor is absent for classes without constructors. Without
// Data it stands for the implicit public constructor with no parameters.
type PrimaryConstructor struct {
	_msgpack struct{}         `msgpack:",as_array"`
	Data     *CallableMessage `msgpack:"data"`
}

// ClassObjectMessage names the companion object; its own message follows
// among the nested classes.
type ClassObjectMessage struct {
	_msgpack struct{} `msgpack:",as_array"`
	Name     int32    `msgpack:"name"`
}

type CallableMessage struct {
	_msgpack        struct{}                `msgpack:",as_array"`
	Flags           Flags                   `msgpack:"flags"`
	Name            int32                   `msgpack:"name"`
	TypeParameters  []TypeParameterMessage  `msgpack:"type_parameters"`
	ReceiverType    *TypeMessage            `msgpack:"receiver_type"`
	ValueParameters []ValueParameterMessage `msgpack:"value_parameters"`
	ReturnType      *TypeMessage            `msgpack:"return_type"`
	GetterFlags     Flags                   `msgpack:"getter_flags"`
	SetterFlags     Flags                   `msgpack:"setter_flags"`
	Annotations     []AnnotationMessage     `msgpack:"annotations"`
}

type ValueParameterMessage struct {
	_msgpack          struct{}            `msgpack:",as_array"`
	Flags             Flags               `msgpack:"flags"`
	Name              int32               `msgpack:"name"`
	Type              *TypeMessage        `msgpack:"type"`
	VarargElementType *TypeMessage        `msgpack:"vararg_element_type"`
	Annotations       []AnnotationMessage `msgpack:"annotations"`
}

type TypeParameterMessage struct {
	_msgpack    struct{}      `msgpack:",as_array"`
	ID          int32         `msgpack:"id"`
	Name        int32         `msgpack:"name"`
	Variance    uint8         `msgpack:"variance"`
	Reified     bool          `msgpack:"reified"`
	UpperBounds []TypeMessage `msgpack:"upper_bounds"`
}

// TypeMessage is a class type (ClassName set) or a type parameter reference
// (TypeParameter set). A flexible type is written as its lower bound with
// FlexibleUpperBound and the capability string index.
type TypeMessage struct {
	_msgpack             struct{}       `msgpack:",as_array"`
	ClassName            int32          `msgpack:"class_name"`
	TypeParameter        int32          `msgpack:"type_parameter"`
	Arguments            []TypeArgument `msgpack:"arguments"`
	Nullable             bool           `msgpack:"nullable"`
	FlexibleUpperBound   *TypeMessage   `msgpack:"flexible_upper_bound"`
	FlexibleCapabilityID int32          `msgpack:"flexible_capability_id"`
}

type Projection uint8

const (
	ProjectionInv Projection = iota
	ProjectionIn
	ProjectionOut
	ProjectionStar
)

type TypeArgument struct {
	_msgpack   struct{}     `msgpack:",as_array"`
	Projection Projection   `msgpack:"projection"`
	Type       *TypeMessage `msgpack:"type"`
}

type AnnotationMessage struct {
	_msgpack struct{}             `msgpack:",as_array"`
	ID       int32                `msgpack:"id"`
	Args     []AnnotationArgument `msgpack:"args"`
}

type AnnotationArgument struct {
	_msgpack struct{}     `msgpack:",as_array"`
	NameID   int32        `msgpack:"name_id"`
	Value    ValueMessage `msgpack:"value"`
}

// ValueMessage is a constant. Integral kinds, Char and Boolean use
// IntValue; strings are string table indices.
type ValueMessage struct {
	_msgpack      struct{}           `msgpack:",as_array"`
	Type          uint8              `msgpack:"type"`
	IntValue      int64              `msgpack:"int_value"`
	FloatValue    float64            `msgpack:"float_value"`
	StringValue   int32              `msgpack:"string_value"`
	ClassID       int32              `msgpack:"class_id"`
	EnumValueID   int32              `msgpack:"enum_value_id"`
	Annotation    *AnnotationMessage `msgpack:"annotation"`
	ArrayElements []ValueMessage     `msgpack:"array_elements"`
}
