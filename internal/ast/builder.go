package ast

import (
	"fortio.org/safecast"

	"loom/internal/source"
)

// Builder assembles trees programmatically. Every node receives a distinct
// one-byte span so diagnostics stay distinguishable without source text.
type Builder struct {
	Tree  *Tree
	file  source.FileID
	pos   uint32
	items []NodeID
}

// NewBuilder starts a tree with a single virtual file.
func NewBuilder(path string) *Builder {
	t := NewTree(nil)
	return &Builder{Tree: t, file: t.Files.AddVirtual(path, nil)}
}

// NewFile begins a further file; later items are appended to it.
func (b *Builder) NewFile(path string) *Builder {
	b.flush()
	b.file = b.Tree.Files.AddVirtual(path, nil)
	return b
}

// Add appends top-level items to the current file.
func (b *Builder) Add(items ...NodeID) *Builder {
	b.items = append(b.items, items...)
	return b
}

// Finish closes the current file and returns the tree.
func (b *Builder) Finish() *Tree {
	b.flush()
	return b.Tree
}

func (b *Builder) flush() {
	if b.items == nil {
		return
	}
	b.Tree.Roots = append(b.Tree.Roots, b.node(Node{Kind: KindFile, List: b.items}))
	b.items = nil
}

func (b *Builder) node(n Node) NodeID {
	n.Span = source.Span{File: b.file, Start: b.pos, End: b.pos + 1}
	b.pos++
	return b.Tree.New(n)
}

// Set applies fn to the node and returns id, for flags and template parameters.
func (b *Builder) Set(id NodeID, fn func(n *Node)) NodeID {
	fn(b.Tree.Get(id))
	return id
}

// Generic attaches template parameter names.
func (b *Builder) Generic(id NodeID, params ...string) NodeID {
	return b.Set(id, func(n *Node) { n.Params = params })
}

// Flag ORs flags into the node.
func (b *Builder) Flag(id NodeID, f Flags) NodeID {
	return b.Set(id, func(n *Node) { n.Flags |= f })
}

// Labeled sets a loop label.
func (b *Builder) Labeled(id NodeID, label string) NodeID {
	return b.Set(id, func(n *Node) { n.Label = label })
}

// declarations

func (b *Builder) Namespace(name string, items ...NodeID) NodeID {
	return b.node(Node{Kind: KindNamespace, Name: name, List: items})
}

func (b *Builder) Using(path ...string) NodeID {
	return b.node(Node{Kind: KindUsing, Path: path})
}

func (b *Builder) Let(name string, typ, init NodeID) NodeID {
	return b.node(Node{Kind: KindLet, Name: name, A: typ, B: init})
}

func (b *Builder) Const(name string, typ, init NodeID) NodeID {
	return b.node(Node{Kind: KindLet, Name: name, A: typ, B: init, Flags: FlagConst})
}

func (b *Builder) Param(name string, typ NodeID) NodeID {
	return b.node(Node{Kind: KindParam, Name: name, A: typ})
}

// Func declares a named function; an empty name makes a function literal.
func (b *Builder) Func(name string, params []NodeID, result, body NodeID) NodeID {
	return b.node(Node{Kind: KindFunc, Name: name, List: params, A: result, B: body})
}

// Lambda is an anonymous function literal.
func (b *Builder) Lambda(params []NodeID, result, body NodeID) NodeID {
	return b.Func("", params, result, body)
}

// Extern declares a native function without a body.
func (b *Builder) Extern(lib, sym, name string, params []NodeID, result NodeID) NodeID {
	return b.node(Node{
		Kind: KindFunc, Name: name, List: params, A: result,
		Flags:  FlagExtern,
		Extern: &ExternRef{Library: lib, Symbol: sym},
	})
}

func (b *Builder) WhereClause(fn NodeID, conds ...NodeID) NodeID {
	w := b.node(Node{Kind: KindWhere, List: conds})
	return b.Set(fn, func(n *Node) { n.C = w })
}

func (b *Builder) TypeDecl(name string, typ NodeID) NodeID {
	return b.node(Node{Kind: KindTypeDecl, Name: name, A: typ})
}

func (b *Builder) Alias(name string, typ NodeID) NodeID {
	return b.node(Node{Kind: KindTypeDecl, Name: name, A: typ, Flags: FlagAlias})
}

func (b *Builder) Union(name string, variants ...NodeID) NodeID {
	return b.node(Node{Kind: KindUnionDecl, Name: name, List: variants})
}

func (b *Builder) Variant(name string, payload NodeID) NodeID {
	return b.node(Node{Kind: KindVariant, Name: name, A: payload})
}

// statements

func (b *Builder) Block(stmts ...NodeID) NodeID {
	return b.node(Node{Kind: KindBlock, List: stmts})
}

func (b *Builder) If(cond, then, els NodeID) NodeID {
	return b.node(Node{Kind: KindIf, A: cond, B: then, C: els})
}

func (b *Builder) While(cond, body NodeID) NodeID {
	return b.node(Node{Kind: KindWhile, A: cond, B: body})
}

func (b *Builder) For(init, cond, step, body NodeID) NodeID {
	return b.node(Node{Kind: KindFor, A: init, B: cond, C: step, D: body})
}

func (b *Builder) Foreach(value, key string, iterable, body NodeID) NodeID {
	return b.node(Node{Kind: KindForeach, Name: value, Bind: key, A: iterable, B: body})
}

func (b *Builder) Match(subject NodeID, cases ...NodeID) NodeID {
	return b.node(Node{Kind: KindMatch, A: subject, List: cases})
}

func (b *Builder) Case(variant, bind string, body NodeID) NodeID {
	return b.node(Node{Kind: KindCase, Name: variant, Bind: bind, A: body})
}

func (b *Builder) Break(label string) NodeID {
	return b.node(Node{Kind: KindBreak, Label: label})
}

func (b *Builder) Continue(label string) NodeID {
	return b.node(Node{Kind: KindContinue, Label: label})
}

func (b *Builder) Return(value NodeID) NodeID {
	return b.node(Node{Kind: KindReturn, A: value})
}

func (b *Builder) Expr(e NodeID) NodeID {
	return b.node(Node{Kind: KindExprStmt, A: e})
}

// expressions

func (b *Builder) Int(v int64) NodeID {
	return b.node(Node{Kind: KindLitInt, Int: v})
}

func (b *Builder) Real(v float64) NodeID {
	return b.node(Node{Kind: KindLitReal, Real: v})
}

func (b *Builder) Str(v string) NodeID {
	return b.node(Node{Kind: KindLitString, Str: v})
}

func (b *Builder) Bool(v bool) NodeID {
	n := Node{Kind: KindLitBool}
	if v {
		n.Int = 1
	}
	return b.node(n)
}

// Ident references name; a qualified reference passes the namespace path first: Ident("ns", "f").
func (b *Builder) Ident(parts ...string) NodeID {
	last := len(parts) - 1
	return b.node(Node{Kind: KindIdent, Name: parts[last], Path: cloneStrings(parts[:last])})
}

// GlobalIdent references ::parts.
func (b *Builder) GlobalIdent(parts ...string) NodeID {
	return b.Flag(b.Ident(parts...), FlagFromGlobal)
}

// Inst references a generic with explicit type arguments: name<args>.
func (b *Builder) Inst(name string, args ...NodeID) NodeID {
	return b.node(Node{Kind: KindIdent, Name: name, TypeArgs: args})
}

func (b *Builder) Bin(op Op, l, r NodeID) NodeID {
	return b.node(Node{Kind: KindBinary, Op: op, A: l, B: r})
}

func (b *Builder) Un(op Op, x NodeID) NodeID {
	return b.node(Node{Kind: KindUnary, Op: op, A: x})
}

func (b *Builder) Assign(target, value NodeID) NodeID {
	return b.node(Node{Kind: KindAssign, A: target, B: value})
}

func (b *Builder) AssignOp(op Op, target, value NodeID) NodeID {
	return b.node(Node{Kind: KindAssign, Op: op, A: target, B: value})
}

func (b *Builder) Call(callee NodeID, args ...NodeID) NodeID {
	return b.node(Node{Kind: KindCall, A: callee, List: args})
}

func (b *Builder) Index(x, key NodeID) NodeID {
	return b.node(Node{Kind: KindIndex, A: x, B: key})
}

func (b *Builder) Member(x NodeID, name string) NodeID {
	return b.node(Node{Kind: KindMember, A: x, Name: name})
}

func (b *Builder) Array(elems ...NodeID) NodeID {
	return b.node(Node{Kind: KindArrayLit, List: elems})
}

// Map builds a map literal from alternating keys and values.
func (b *Builder) Map(kv ...NodeID) NodeID {
	pairs := make([]NodeID, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, b.node(Node{Kind: KindPair, A: kv[i], B: kv[i+1]}))
	}
	return b.node(Node{Kind: KindMapLit, List: pairs})
}

func (b *Builder) Tuple(elems ...NodeID) NodeID {
	return b.node(Node{Kind: KindTupleLit, List: elems})
}

func (b *Builder) StructLit(typ NodeID, fields ...NodeID) NodeID {
	return b.node(Node{Kind: KindStructLit, A: typ, List: fields})
}

// Field is a struct literal field or, with a non-zero def, a struct type field default.
func (b *Builder) Field(name string, value, def NodeID) NodeID {
	return b.node(Node{Kind: KindField, Name: name, A: value, B: def})
}

func (b *Builder) Cast(x, typ NodeID) NodeID {
	return b.node(Node{Kind: KindCast, A: x, B: typ})
}

// Unpack spreads count elements of x; count < 0 spreads all of them.
func (b *Builder) Unpack(x NodeID, count int) NodeID {
	return b.node(Node{Kind: KindUnpack, A: x, Int: int64(count)})
}

func (b *Builder) Is(x, typ NodeID) NodeID {
	return b.node(Node{Kind: KindTypeIs, A: x, B: typ})
}

// types

// T names a type; T("int"), T("ns", "Point").
func (b *Builder) T(parts ...string) NodeID {
	last := len(parts) - 1
	return b.node(Node{Kind: KindTypeName, Name: parts[last], Path: cloneStrings(parts[:last])})
}

// TInst names a generic type with arguments: name<args>.
func (b *Builder) TInst(name string, args ...NodeID) NodeID {
	return b.node(Node{Kind: KindTypeName, Name: name, TypeArgs: args})
}

func (b *Builder) TFunc(result NodeID, params ...NodeID) NodeID {
	return b.node(Node{Kind: KindTypeFunc, A: result, List: params})
}

func (b *Builder) TArray(elem NodeID) NodeID {
	return b.node(Node{Kind: KindTypeArray, A: elem})
}

func (b *Builder) TMap(key, value NodeID) NodeID {
	return b.node(Node{Kind: KindTypeMap, A: key, B: value})
}

func (b *Builder) TTuple(elems ...NodeID) NodeID {
	return b.node(Node{Kind: KindTypeTuple, List: elems})
}

func (b *Builder) TStruct(fields ...NodeID) NodeID {
	return b.node(Node{Kind: KindTypeStruct, List: fields})
}

// Params is a convenience for building parameter lists inline.
func Params(ids ...NodeID) []NodeID { return ids }

// Pos returns the next span offset, for tests asserting on positions.
func (b *Builder) Pos() uint32 { return b.pos }

// Count returns the number of nodes built so far.
func (b *Builder) Count() int { return safecast.MustConv[int](b.Tree.Nodes.Len()) }
