package types

// Variance of a type parameter or a projection.
type Variance uint8

const (
	VarInvariant Variance = iota
	VarIn
	VarOut
)

func (v Variance) String() string {
	switch v {
	case VarIn:
		return "in"
	case VarOut:
		return "out"
	}
	return ""
}

func (v Variance) allowsIn() bool  { return v != VarOut }
func (v Variance) allowsOut() bool { return v != VarIn }

// AllowsPosition reports whether a parameter of variance v may appear in a
// position of the given variance.
func (v Variance) AllowsPosition(position Variance) bool {
	switch position {
	case VarIn:
		return v.allowsIn()
	case VarOut:
		return v.allowsOut()
	}
	return v.allowsIn() && v.allowsOut()
}

func (v Variance) factor() int {
	switch v {
	case VarIn:
		return -1
	case VarOut:
		return 1
	}
	return 0
}

// Superpose composes two variances like signs multiply.
func (v Variance) Superpose(other Variance) Variance {
	switch v.factor() * other.factor() {
	case -1:
		return VarIn
	case 1:
		return VarOut
	}
	return VarInvariant
}

// Opposite swaps in and out.
func (v Variance) Opposite() Variance {
	switch v {
	case VarIn:
		return VarOut
	case VarOut:
		return VarIn
	}
	return VarInvariant
}

// Combine merges declaration-site and use-site variance. ok is false when they
// conflict (in vs out), which behaves like a star projection.
func Combine(declared, projection Variance) (Variance, bool) {
	if declared == VarInvariant {
		return projection, true
	}
	if projection == VarInvariant || projection == declared {
		return declared, true
	}
	return VarInvariant, false
}
