package ast

// Visibility as written; VisDefault resolves to public.
type Visibility uint8

const (
	VisDefault Visibility = iota
	VisPublic
	VisInternal
	VisProtected
	VisPrivate
)

// Modality as written; ModDefault resolves per declaration kind.
type Modality uint8

const (
	ModDefault Modality = iota
	ModFinal
	ModOpen
	ModAbstract
	ModSealed
)

// Variance of a declared type parameter or a type argument.
type Variance uint8

const (
	Invariant Variance = iota
	In
	Out
)
