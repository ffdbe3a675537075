package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// declarations and names
	SemaInfo                 Code = 3000
	SemaRedefinition         Code = 3001
	SemaUnknownIdentifier    Code = 3002
	SemaAmbiguousSymbol      Code = 3003
	SemaAccessibility        Code = 3004
	SemaUnknownNamespace     Code = 3005
	SemaUnknownMember        Code = 3006
	SemaExternLoadFailed     Code = 3007
	SemaAssignToConst        Code = 3008
	SemaInvalidReturn        Code = 3009
	SemaInvalidLoopControl   Code = 3010
	SemaCaptureRule          Code = 3011
	SemaIncompleteMatch      Code = 3012
	SemaDuplicateMatchArm    Code = 3013
	SemaUnresolvedType       Code = 3014
	SemaNotAType             Code = 3015
	SemaNotAValue            Code = 3016
	SemaRecursiveDeclaration Code = 3017

	// types and calls
	SemaTypeMismatch         Code = 3100
	SemaAssignMismatch       Code = 3101
	SemaCastMismatch         Code = 3102
	SemaCallMismatch         Code = 3103
	SemaIndexMismatch        Code = 3104
	SemaAmbiguousOverload    Code = 3105
	SemaNoOverload           Code = 3106
	SemaArity                Code = 3107
	SemaTemplateArgMismatch  Code = 3108
	SemaWhereClauseRejected  Code = 3109
	SemaNotCallable          Code = 3110
	SemaReturnMismatch       Code = 3111
	SemaConditionNotBool     Code = 3112
	SemaNotIterable          Code = 3113
	SemaTemplateDerivation   Code = 3114
	SemaOperatorUnsupported  Code = 3115
	SemaTryDepthExceeded     Code = 3116
	SemaInferenceUnavailable Code = 3117
)

var codeName = map[Code]string{
	UnknownCode: "E0000",

	SemaInfo:                 "S3000",
	SemaRedefinition:         "S3001",
	SemaUnknownIdentifier:    "S3002",
	SemaAmbiguousSymbol:      "S3003",
	SemaAccessibility:        "S3004",
	SemaUnknownNamespace:     "S3005",
	SemaUnknownMember:        "S3006",
	SemaExternLoadFailed:     "S3007",
	SemaAssignToConst:        "S3008",
	SemaInvalidReturn:        "S3009",
	SemaInvalidLoopControl:   "S3010",
	SemaCaptureRule:          "S3011",
	SemaIncompleteMatch:      "S3012",
	SemaDuplicateMatchArm:    "S3013",
	SemaUnresolvedType:       "S3014",
	SemaNotAType:             "S3015",
	SemaNotAValue:            "S3016",
	SemaRecursiveDeclaration: "S3017",

	SemaTypeMismatch:         "S3100",
	SemaAssignMismatch:       "S3101",
	SemaCastMismatch:         "S3102",
	SemaCallMismatch:         "S3103",
	SemaIndexMismatch:        "S3104",
	SemaAmbiguousOverload:    "S3105",
	SemaNoOverload:           "S3106",
	SemaArity:                "S3107",
	SemaTemplateArgMismatch:  "S3108",
	SemaWhereClauseRejected:  "S3109",
	SemaNotCallable:          "S3110",
	SemaReturnMismatch:       "S3111",
	SemaConditionNotBool:     "S3112",
	SemaNotIterable:          "S3113",
	SemaTemplateDerivation:   "S3114",
	SemaOperatorUnsupported:  "S3115",
	SemaTryDepthExceeded:     "S3116",
	SemaInferenceUnavailable: "S3117",
}

var codeTitle = map[Code]string{
	UnknownCode: "Unknown error",

	SemaRedefinition:         "Redefinition",
	SemaUnknownIdentifier:    "Unknown identifier",
	SemaAmbiguousSymbol:      "Ambiguous symbol",
	SemaAccessibility:        "Inaccessible symbol",
	SemaUnknownNamespace:     "Unknown namespace",
	SemaUnknownMember:        "Unknown member",
	SemaExternLoadFailed:     "Extern load failed",
	SemaAssignToConst:        "Assignment to constant",
	SemaInvalidReturn:        "Invalid return placement",
	SemaInvalidLoopControl:   "Invalid loop control",
	SemaCaptureRule:          "Capture rule violation",
	SemaIncompleteMatch:      "Incomplete pattern match",
	SemaDuplicateMatchArm:    "Duplicate match arm",
	SemaUnresolvedType:       "Unresolved type",
	SemaNotAType:             "Not a type",
	SemaNotAValue:            "Not a value",
	SemaRecursiveDeclaration: "Recursive declaration",

	SemaTypeMismatch:         "Type mismatch",
	SemaAssignMismatch:       "Assignment type mismatch",
	SemaCastMismatch:         "Invalid cast",
	SemaCallMismatch:         "Call argument mismatch",
	SemaIndexMismatch:        "Index type mismatch",
	SemaAmbiguousOverload:    "Ambiguous overload",
	SemaNoOverload:           "No matching overload",
	SemaArity:                "Wrong argument count",
	SemaTemplateArgMismatch:  "Template argument mismatch",
	SemaWhereClauseRejected:  "Where clause rejected",
	SemaNotCallable:          "Not callable",
	SemaReturnMismatch:       "Return type mismatch",
	SemaConditionNotBool:     "Condition is not bool",
	SemaNotIterable:          "Not iterable",
	SemaTemplateDerivation:   "Template arguments not derivable",
	SemaOperatorUnsupported:  "Unsupported operator",
	SemaTryDepthExceeded:     "Speculation depth exceeded",
	SemaInferenceUnavailable: "Type not inferable",
}

func (c Code) ID() string {
	if name, ok := codeName[c]; ok {
		return name
	}
	return fmt.Sprintf("E%04d", uint16(c))
}

func (c Code) Title() string {
	if title, ok := codeTitle[c]; ok {
		return title
	}
	return codeTitle[UnknownCode]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
