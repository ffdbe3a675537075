package ast

// Kind is the closed set of node shapes produced by the parser.
type Kind uint8

const (
	KindInvalid Kind = iota

	// items and statements
	KindFile
	KindNamespace
	KindUsing
	KindBlock
	KindLet
	KindFunc
	KindParam
	KindTypeDecl
	KindUnionDecl
	KindVariant
	KindIf
	KindWhile
	KindFor
	KindForeach
	KindMatch
	KindCase
	KindBreak
	KindContinue
	KindReturn
	KindExprStmt

	// expressions
	KindLitInt
	KindLitReal
	KindLitString
	KindLitBool
	KindIdent
	KindBinary
	KindUnary
	KindAssign
	KindCall
	KindIndex
	KindMember
	KindArrayLit
	KindMapLit
	KindPair
	KindTupleLit
	KindStructLit
	KindField
	KindCast
	KindUnpack
	KindTypeIs
	KindWhere

	// type expressions
	KindTypeName
	KindTypeFunc
	KindTypeArray
	KindTypeMap
	KindTypeTuple
	KindTypeStruct

	kindCount
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindFile:       "file",
	KindNamespace:  "namespace",
	KindUsing:      "using",
	KindBlock:      "block",
	KindLet:        "let",
	KindFunc:       "func",
	KindParam:      "param",
	KindTypeDecl:   "type-decl",
	KindUnionDecl:  "union-decl",
	KindVariant:    "variant",
	KindIf:         "if",
	KindWhile:      "while",
	KindFor:        "for",
	KindForeach:    "foreach",
	KindMatch:      "match",
	KindCase:       "case",
	KindBreak:      "break",
	KindContinue:   "continue",
	KindReturn:     "return",
	KindExprStmt:   "expr-stmt",
	KindLitInt:     "int-lit",
	KindLitReal:    "real-lit",
	KindLitString:  "string-lit",
	KindLitBool:    "bool-lit",
	KindIdent:      "ident",
	KindBinary:     "binary",
	KindUnary:      "unary",
	KindAssign:     "assign",
	KindCall:       "call",
	KindIndex:      "index",
	KindMember:     "member",
	KindArrayLit:   "array-lit",
	KindMapLit:     "map-lit",
	KindPair:       "pair",
	KindTupleLit:   "tuple-lit",
	KindStructLit:  "struct-lit",
	KindField:      "field",
	KindCast:       "cast",
	KindUnpack:     "unpack",
	KindTypeIs:     "type-is",
	KindWhere:      "where",
	KindTypeName:   "type-name",
	KindTypeFunc:   "type-func",
	KindTypeArray:  "type-array",
	KindTypeMap:    "type-map",
	KindTypeTuple:  "type-tuple",
	KindTypeStruct: "type-struct",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// IsExpr reports whether nodes of this kind produce a value.
func (k Kind) IsExpr() bool {
	return k >= KindLitInt && k <= KindWhere || k == KindFunc
}

// IsType reports whether the kind is a type expression.
func (k Kind) IsType() bool {
	return k >= KindTypeName && k <= KindTypeStruct
}

// IsLiteral reports constant literal kinds.
func (k Kind) IsLiteral() bool {
	return k >= KindLitInt && k <= KindLitBool
}
