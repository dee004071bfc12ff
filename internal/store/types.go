package store

import "time"

// Run is one exported analysis.
type Run struct {
	ID        int64
	Module    string
	CreatedAt time.Time
}

// Position is a resolved source range. File is empty for facts without a
// source location, such as library problems.
type Position struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Declaration is a source declaration and the descriptor it became.
type Declaration struct {
	ID    int64
	RunID int64
	Kind  string
	Name  string
	// Owner is the qualified name of the enclosing class or package.
	Owner    string
	Rendered string
	Pos      Position
}

// ResolvedCall is the winning candidate of one call site.
type ResolvedCall struct {
	ID            int64
	RunID         int64
	Name          string
	Callee        string
	CalleeKind    string
	ResultType    string
	TypeArguments []string
	Completed     bool
	Pos           Position
}

type Diagnostic struct {
	ID       int64
	RunID    int64
	Code     string
	Severity string
	Message  string
	Pos      Position
}
