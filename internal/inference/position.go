package inference

import "fmt"

// PositionKind tells where a constraint came from.
type PositionKind uint8

const (
	PositionReceiver PositionKind = iota + 1
	PositionValueParameter
	PositionExpectedType
	// PositionTypeBound constraints come from declared upper bounds and are
	// weak: they never make a type variable known on their own.
	PositionTypeBound
)

// Position identifies the origin of a constraint.
type Position struct {
	Kind  PositionKind
	Index int
	// Bound is 1 + the index of the type parameter whose declared upper bound
	// produced this constraint from another one, or 0.
	Bound int
}

func Receiver() Position                { return Position{Kind: PositionReceiver} }
func ValueParameter(index int) Position { return Position{Kind: PositionValueParameter, Index: index} }
func ExpectedType() Position            { return Position{Kind: PositionExpectedType} }
func TypeBound(index int) Position      { return Position{Kind: PositionTypeBound, Index: index} }

// IsStrong reports whether the position can fix a type variable.
func (p Position) IsStrong() bool { return p.Kind != PositionTypeBound }

// onlyStrong is false for constraints that were derived through a declared
// bound, even when the source constraint was strong.
func (p Position) onlyStrong() bool { return p.IsStrong() && p.Bound == 0 }

func (p Position) derived(typeParamIndex int) Position {
	p.Bound = typeParamIndex + 1
	return p
}

func (p Position) String() string {
	var s string
	switch p.Kind {
	case PositionReceiver:
		s = "receiver"
	case PositionValueParameter:
		s = fmt.Sprintf("parameter #%d", p.Index)
	case PositionExpectedType:
		s = "expected type"
	case PositionTypeBound:
		s = fmt.Sprintf("bound of type parameter #%d", p.Index)
	default:
		s = "unknown"
	}
	if p.Bound > 0 {
		s += fmt.Sprintf(" via bound #%d", p.Bound-1)
	}
	return s
}
