package calls

import (
	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/inference"
	"frontcore/internal/source"
	"frontcore/internal/types"
)

// State is the position of one candidate in the resolution state machine.
type State uint8

const (
	CollectingCandidates State = iota
	ResolvingArguments
	CheckingConstraints
	Completing
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case CollectingCandidates:
		return "collecting candidates"
	case ResolvingArguments:
		return "resolving arguments"
	case CheckingConstraints:
		return "checking constraints"
	case Completing:
		return "completing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// FailureKind is the outcome of an unsuccessful call site.
type FailureKind uint8

const (
	NoFailure FailureKind = iota
	NoneApplicable
	CannotCompleteResolve
	WrongReceiver
	Ambiguity
	Unresolved
)

func (k FailureKind) String() string {
	switch k {
	case NoneApplicable:
		return "NONE_APPLICABLE"
	case CannotCompleteResolve:
		return "CANNOT_COMPLETE_RESOLVE"
	case WrongReceiver:
		return "UNRESOLVED_REFERENCE_WRONG_RECEIVER"
	case Ambiguity:
		return "OVERLOAD_RESOLUTION_AMBIGUITY"
	case Unresolved:
		return "UNRESOLVED_REFERENCE"
	}
	return "OK"
}

// Mismatch is why a single candidate is not applicable.
type Mismatch uint8

const (
	MismatchNone Mismatch = iota
	MismatchArguments
	MismatchReceiver
	MismatchType
	MismatchTypeArguments
	MismatchUninferred
)

// Problem is a diagnostic a failed candidate would report if it were the
// only one.
type Problem struct {
	Code diag.Code
	Span source.Span
	Msg  string
}

type smartCast struct {
	expr   ast.ExprID
	span   source.Span
	to     types.TypeID
	stable bool
}

// ResolvedCall binds a call site to one candidate. Only the winner of a
// call site is ever completed.
type ResolvedCall struct {
	Call *Call
	// Candidate is the function, constructor or variable the call denotes.
	// For variable-and-invoke calls it is the invoke function.
	Candidate descriptors.Descriptor
	State     State
	Mismatch  Mismatch
	Problems  []Problem
	Completed bool

	Substitutor   *types.Substitutor
	TypeArguments []types.TypeID
	// ValueArguments maps each parameter index to the indices of the call
	// arguments passed to it; defaulted parameters map to nothing.
	ValueArguments [][]int
	// ExpectedArgTypes is the substituted parameter type per call argument.
	ExpectedArgTypes []types.TypeID
	UsesVararg       bool

	DispatchReceiver  *Receiver
	ExtensionReceiver *Receiver
	ResultType        types.TypeID
	// Variable is the read of the variable holding the invoked value.
	Variable *ResolvedCall
	System   *inference.System

	trace      *binding.Trace
	casts      []smartCast
	unsafeCall bool
}

// Callable returns the candidate as a callable, or nil for local variables
// and parameters.
func (rc *ResolvedCall) Callable() *descriptors.CallableDescriptor {
	c, _ := rc.Candidate.(*descriptors.CallableDescriptor)
	return c
}

// IsGeneric reports whether the candidate declares type parameters.
func (rc *ResolvedCall) IsGeneric() bool {
	c := rc.Callable()
	return c != nil && len(typeParamsOf(c)) > 0
}

func (rc *ResolvedCall) fail(m Mismatch, problems ...Problem) *ResolvedCall {
	rc.State = Failed
	if rc.Mismatch == MismatchNone || rc.Mismatch == MismatchUninferred {
		rc.Mismatch = m
	}
	rc.Problems = append(rc.Problems, problems...)
	return rc
}

func (rc *ResolvedCall) applicable() bool { return rc.State == Completing }

// Results is the outcome of one call site.
type Results struct {
	Failure FailureKind
	// Calls holds the winner on success, otherwise the candidates the
	// failure is about.
	Calls []*ResolvedCall
}

func (r *Results) IsSuccess() bool { return r.Failure == NoFailure && len(r.Calls) == 1 }

// ResultingCall returns the winner or nil.
func (r *Results) ResultingCall() *ResolvedCall {
	if !r.IsSuccess() {
		return nil
	}
	return r.Calls[0]
}

// ResultType is the type of the call expression; NoTypeID when resolution
// failed.
func (r *Results) ResultType() types.TypeID {
	if rc := r.ResultingCall(); rc != nil {
		return rc.ResultType
	}
	return types.NoTypeID
}

func sameCalls(a, b []*ResolvedCall) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var (
	// Resolved holds the completed call of every successful call site.
	Resolved = binding.NewSlice[ast.ExprID, *ResolvedCall]("RESOLVED_CALL")
	// AmbiguousCandidates holds the tied candidates of an ambiguous site.
	AmbiguousCandidates = binding.NewSliceFunc[ast.ExprID, []*ResolvedCall]("AMBIGUOUS_REFERENCE_TARGET", sameCalls)
	// FailedCandidates holds every candidate of a failed call site.
	FailedCandidates = binding.NewSliceFunc[ast.ExprID, []*ResolvedCall]("FAILED_CANDIDATES", sameCalls)
	// Failure holds the failure kind of every failed call site.
	Failure = binding.NewSlice[ast.ExprID, FailureKind]("CALL_FAILURE")
)
