package dataflow

// Nullability is what is known about a value being null.
type Nullability uint8

const (
	Unknown Nullability = iota
	Null
	NotNull
	// Impossible marks contradictory facts: the branch is dead.
	Impossible
)

func (n Nullability) String() string {
	switch n {
	case Null:
		return "null"
	case NotNull:
		return "not-null"
	case Impossible:
		return "impossible"
	}
	return "unknown"
}

// CanBeNull reports whether null is still a possible value.
func (n Nullability) CanBeNull() bool { return n == Null || n == Unknown }

// CanBeNonNull reports whether a non-null value is still possible.
func (n Nullability) CanBeNonNull() bool { return n == NotNull || n == Unknown }

// And combines two facts that hold together.
func (n Nullability) And(o Nullability) Nullability {
	switch {
	case n == o:
		return n
	case n == Unknown:
		return o
	case o == Unknown:
		return n
	}
	return Impossible
}

// Or combines facts of which at least one holds.
func (n Nullability) Or(o Nullability) Nullability {
	switch {
	case n == o:
		return n
	case n == Impossible:
		return o
	case o == Impossible:
		return n
	}
	return Unknown
}

// Invert turns "equals a value with nullability n" into "differs from it".
// Only a definitely null counterpart teaches anything.
func (n Nullability) Invert() Nullability {
	if n == Null {
		return NotNull
	}
	return Unknown
}
