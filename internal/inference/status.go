package inference

// Status describes why a constraint system is or is not solvable.
type Status struct {
	// TypeConstructorMismatch: some constraint related unrelated classes.
	TypeConstructorMismatch bool
	// ConflictingConstraints: some variable has more than one candidate value.
	ConflictingConstraints  bool
	// UnknownParameters: some variable has no value at all.
	UnknownParameters       bool
	// ViolatedUpperBound: only the declared upper bounds prevent a solution.
	ViolatedUpperBound      bool
	ErrorInConstrainingType bool
}

func (s Status) HasContradiction() bool {
	return s.TypeConstructorMismatch || s.ConflictingConstraints
}

func (s Status) IsSuccessful() bool {
	return !s.HasContradiction() && !s.UnknownParameters
}
