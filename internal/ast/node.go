package ast

import (
	"loom/internal/source"
	"loom/internal/types"
)

// Flags carry declaration modifiers and analysis marks.
type Flags uint16

const (
	FlagConst Flags = 1 << iota
	FlagStatic
	FlagPrivate
	FlagProtected
	FlagExtern
	FlagVariadic
	FlagFromGlobal // path starts at the global namespace (::a::b)
	FlagAlias      // type declaration is a transparent alias
	FlagImplicit   // node inserted by analysis
	FlagFolded     // compile-time constant; value in Int
)

func (f Flags) Has(m Flags) bool { return f&m != 0 }

// ExternRef names a native entry point: extern("lib", "symbol").
type ExternRef struct {
	Library string `msgpack:"lib"`
	Symbol  string `msgpack:"sym"`
}

// Node is the single node shape of the tree. Slot meaning depends on Kind:
//
//	File        List=items
//	Namespace   Name List=items
//	Using       Path (+FlagFromGlobal)
//	Block       List=statements
//	Let         Name Params A=type B=init
//	Func        Name(optional) Params List=Param A=result B=body C=Where Extern
//	Param       Name A=type
//	TypeDecl    Name Params A=type
//	UnionDecl   Name List=Variant
//	Variant     Name A=payload type
//	If          A=cond B=then C=else
//	While       Label A=cond B=body
//	For         Label A=init B=cond C=step D=body
//	Foreach     Label Name=value Bind=key A=iterable B=body
//	Match       A=subject List=Case
//	Case        Name=variant ("_" default) Bind=payload A=body
//	Break       Label
//	Continue    Label
//	Return      A=value
//	ExprStmt    A
//	Ident       Name Path TypeArgs (+FlagFromGlobal)
//	Binary      Op A B
//	Unary       Op A
//	Assign      Op(OpNone or compound) A=target B=value
//	Call        A=callee List=args
//	Index       A B
//	Member      A Name
//	ArrayLit    List
//	MapLit      List=Pair(A key, B value)
//	TupleLit    List
//	StructLit   A=type List=Field(Name, A value)
//	Cast        A=value B=type
//	Unpack      A Int=count (-1 = all)
//	TypeIs      A=value B=type
//	Where       List=conditions
//	TypeName    Name Path TypeArgs
//	TypeFunc    List=param types A=result
//	TypeArray   A=elem
//	TypeMap     A=key B=value
//	TypeTuple   List
//	TypeStruct  List=Field(Name, A type, B default)
type Node struct {
	Kind  Kind        `msgpack:"k"`
	Span  source.Span `msgpack:"s"`
	Flags Flags       `msgpack:"f,omitempty"`
	Op    Op          `msgpack:"o,omitempty"`

	Name  string   `msgpack:"n,omitempty"`
	Path  []string `msgpack:"p,omitempty"`
	Label string   `msgpack:"l,omitempty"`
	Bind  string   `msgpack:"b,omitempty"`

	Int  int64   `msgpack:"i,omitempty"`
	Real float64 `msgpack:"r,omitempty"`
	Str  string  `msgpack:"t,omitempty"`

	Params   []string `msgpack:"tp,omitempty"`
	TypeArgs []NodeID `msgpack:"ta,omitempty"`

	A    NodeID   `msgpack:"a,omitempty"`
	B    NodeID   `msgpack:"bb,omitempty"`
	C    NodeID   `msgpack:"c,omitempty"`
	D    NodeID   `msgpack:"d,omitempty"`
	List []NodeID `msgpack:"ls,omitempty"`

	Extern *ExternRef `msgpack:"x,omitempty"`

	// Owned by analysis.
	ValueType types.TypeID `msgpack:"-"`
	Completed bool         `msgpack:"-"`
}

// IsGeneric reports a declaration with template parameters.
func (n *Node) IsGeneric() bool { return len(n.Params) > 0 }

// QualifiedName joins Path and Name with "::".
func (n *Node) QualifiedName() string {
	out := ""
	if n.Flags.Has(FlagFromGlobal) {
		out = "::"
	}
	for _, p := range n.Path {
		out += p + "::"
	}
	return out + n.Name
}
