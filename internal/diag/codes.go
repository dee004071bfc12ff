package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Declaration resolution
	ResInfo                  Code = 1000
	ResUnresolvedReference   Code = 1001
	ResCyclicInheritance     Code = 1002
	ResResolutionFailure     Code = 1003
	ResRedeclaration         Code = 1004
	ResWrongTypeArgCount     Code = 1005
	ResManyCompanionObjects  Code = 1006
	ResUnresolvedImport      Code = 1007
	ResFinalSupertype        Code = 1008
	ResNotAClass             Code = 1009
	ResAbstractMemberInFinal Code = 1010
	ResNotConstant           Code = 1011
	ResNotAnnotation         Code = 1012

	// Expression typing and call resolution
	TypInfo                          Code = 2000
	TypMismatch                      Code = 2001
	TypConstantExpectedTypeMismatch  Code = 2002
	TypIntLiteralOutOfRange          Code = 2003
	TypNoneApplicable                Code = 2004
	TypOverloadResolutionAmbiguity   Code = 2005
	TypCannotCompleteResolve         Code = 2006
	TypUnresolvedReferenceWrongRecv  Code = 2007
	TypSmartCastImpossible           Code = 2008
	TypUnsafeCall                    Code = 2009
	TypConditionTypeMismatch         Code = 2010
	TypReturnNotAllowed              Code = 2011
	TypNoValueForParameter           Code = 2012
	TypTooManyArguments              Code = 2013
	TypNamedParameterNotFound        Code = 2014
	TypMixingNamedAndPositional      Code = 2015
	TypArgumentPassedTwice           Code = 2016
	TypUpperBoundViolated            Code = 2017
	TypSenselessComparison           Code = 2018
	TypUninferredTypeParameter       Code = 2019
	TypValReassignment               Code = 2020
	TypFunctionExpected              Code = 2021
	TypNoReturnInBlockBody           Code = 2022
	TypNoTypeNoInitializer           Code = 2023
	TypThisNotAvailable              Code = 2024
	TypVariableExpected              Code = 2025
	TypRecursiveTypeInference        Code = 2026

	// Persisted metadata
	MetInfo                 Code = 3000
	MetCorruptLibrary       Code = 3001
	MetVersionMismatch      Code = 3002
	MetLibraryClassNotFound Code = 3003

	// Declaration sources and I/O
	SrcInfo          Code = 4000
	SrcReadFailure   Code = 4001
	SrcSyntax        Code = 4002
	SrcInvalidDecl   Code = 4003
	SrcUnknownNode   Code = 4004
	SrcDuplicateFile Code = 4005
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	ResInfo:                  "Resolution information",
	ResUnresolvedReference:   "Unresolved reference",
	ResCyclicInheritance:     "Cyclic inheritance hierarchy",
	ResResolutionFailure:     "Declaration could not be resolved",
	ResRedeclaration:         "Conflicting declarations",
	ResWrongTypeArgCount:     "Wrong number of type arguments",
	ResManyCompanionObjects:  "Only one companion object is allowed per class",
	ResUnresolvedImport:      "Unresolved import",
	ResFinalSupertype:        "This type is final and cannot be inherited from",
	ResNotAClass:             "Supertype is not a class or interface",
	ResAbstractMemberInFinal: "Abstract member in non-abstract class",
	ResNotConstant:           "An annotation argument must be a compile-time constant",
	ResNotAnnotation:         "Only annotation classes can be used as annotations",

	TypInfo:                         "Type information",
	TypMismatch:                     "Type mismatch",
	TypConstantExpectedTypeMismatch: "Constant does not conform to the expected type",
	TypIntLiteralOutOfRange:         "Integer literal is out of range",
	TypNoneApplicable:               "None of the candidates is applicable",
	TypOverloadResolutionAmbiguity:  "Overload resolution ambiguity",
	TypCannotCompleteResolve:        "Cannot complete call resolution",
	TypUnresolvedReferenceWrongRecv: "Unresolved reference with a wrong receiver",
	TypSmartCastImpossible:          "Smart cast is impossible",
	TypUnsafeCall:                   "Only safe calls are allowed on a nullable receiver",
	TypConditionTypeMismatch:        "Condition must be of type Boolean",
	TypReturnNotAllowed:             "Return is not allowed here",
	TypNoValueForParameter:          "No value passed for parameter",
	TypTooManyArguments:             "Too many arguments",
	TypNamedParameterNotFound:       "Cannot find a parameter with this name",
	TypMixingNamedAndPositional:     "Mixing named and positional arguments is not allowed",
	TypArgumentPassedTwice:          "An argument is already passed for this parameter",
	TypUpperBoundViolated:           "Type argument is not within its bounds",
	TypSenselessComparison:          "Condition is always constant",
	TypUninferredTypeParameter:      "Type parameter could not be inferred",
	TypValReassignment:              "Val cannot be reassigned",
	TypFunctionExpected:             "Expression cannot be invoked as a function",
	TypNoReturnInBlockBody:          "A return is required in a function with a block body",
	TypNoTypeNoInitializer:          "A variable must either have a type annotation or be initialized",
	TypThisNotAvailable:             "'this' is not defined in this context",
	TypVariableExpected:             "The target of an assignment must be a variable",
	TypRecursiveTypeInference:       "Type checking has run into a recursive problem",

	MetInfo:                 "Metadata information",
	MetCorruptLibrary:       "Library metadata is corrupt",
	MetVersionMismatch:      "Library metadata has an incompatible format version",
	MetLibraryClassNotFound: "Library class not found",

	SrcInfo:          "Source information",
	SrcReadFailure:   "Cannot read declaration source",
	SrcSyntax:        "Malformed declaration source",
	SrcInvalidDecl:   "Invalid declaration",
	SrcUnknownNode:   "Unknown expression or statement kind",
	SrcDuplicateFile: "Declaration source loaded twice",
}

// ID returns the stable short identifier, e.g. "TYP2005".
func (c Code) ID() string {
	ic := int(c)
	switch {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("TYP%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("MET%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("SRC%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
