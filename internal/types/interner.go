package types

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the primitive types.
type Builtins struct {
	Pending TypeID
	Dynamic TypeID
	Void    TypeID
	Bool    TypeID
	Int     TypeID
	Real    TypeID
	Handle  TypeID
	String  TypeID
}

// Interner hands out one TypeID per distinct descriptor, so structural
// equality of resolved types is ID equality.
type Interner struct {
	types    []Type
	index    map[string]TypeID
	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		types: make([]Type, 1, 64), // 0 is NoTypeID
		index: make(map[string]TypeID, 64),
	}
	in.builtins = Builtins{
		Pending: in.Intern(Type{Kind: KindPending}),
		Dynamic: in.Intern(Type{Kind: KindDynamic}),
		Void:    in.Intern(Type{Kind: KindVoid}),
		Bool:    in.Intern(Type{Kind: KindBool}),
		Int:     in.Intern(Type{Kind: KindInt}),
		Real:    in.Intern(Type{Kind: KindReal}),
		Handle:  in.Intern(Type{Kind: KindHandle}),
		String:  in.Intern(Type{Kind: KindString}),
	}
	return in
}

func (in *Interner) Builtins() Builtins { return in.builtins }

// Intern returns the stable TypeID of t.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := t.key()
	if id, ok := in.index[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("type table overflow: %w", err))
	}
	id := TypeID(n)
	t.Params = cloneIDs(t.Params)
	t.Args = cloneIDs(t.Args)
	if t.Fields != nil {
		t.Fields = append([]Field(nil), t.Fields...)
	}
	in.types = append(in.types, t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for id.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is unknown.
func (in *Interner) MustLookup(id TypeID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: unknown TypeID %d", id))
	}
	return t
}

// Kind returns the kind of id, KindInvalid for unknown IDs.
func (in *Interner) Kind(id TypeID) Kind {
	t, _ := in.Lookup(id)
	return t.Kind
}

func (in *Interner) Len() int { return len(in.types) - 1 }

// constructors

func (in *Interner) Array(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindArray, Elem: elem})
}

func (in *Interner) Map(key, elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindMap, Key: key, Elem: elem})
}

func (in *Interner) Tuple(elems ...TypeID) TypeID {
	return in.Intern(Type{Kind: KindTuple, Params: elems})
}

func (in *Interner) Func(params []TypeID, variadic bool, result TypeID) TypeID {
	return in.Intern(Type{Kind: KindFunc, Params: params, Variadic: variadic, Result: result})
}

func (in *Interner) Struct(fields ...Field) TypeID {
	return in.Intern(Type{Kind: KindStruct, Fields: fields})
}

func (in *Interner) Union(variants ...Field) TypeID {
	return in.Intern(Type{Kind: KindUnion, Fields: variants})
}

// Param is the placeholder for template parameter index of a generic.
func (in *Interner) Param(name string, index int) TypeID {
	return in.Intern(Type{Kind: KindParam, Name: name, Key: TypeID(safecast.MustConv[uint32](index))})
}

// Named binds the structure of base to the declaring symbol sym.
func (in *Interner) Named(base TypeID, sym uint32, name string, args []TypeID) TypeID {
	t := in.MustLookup(base)
	t.Sym = sym
	t.Name = name
	t.Args = args
	return in.Intern(t)
}

// Underlying strips the naming from id, returning its structural type.
func (in *Interner) Underlying(id TypeID) TypeID {
	t, ok := in.Lookup(id)
	if !ok || !t.Named() {
		return id
	}
	t.Sym, t.Name, t.Args = 0, "", nil
	return in.Intern(t)
}

// IsResolved reports a type that contains no pending component.
func (in *Interner) IsResolved(id TypeID) bool {
	return !in.contains(id, KindPending)
}

// HasParams reports whether id mentions a template placeholder.
func (in *Interner) HasParams(id TypeID) bool {
	return in.contains(id, KindParam)
}

func (in *Interner) contains(id TypeID, kind Kind) bool {
	t, ok := in.Lookup(id)
	if !ok {
		return kind == KindPending
	}
	if t.Kind == kind {
		return true
	}
	for _, c := range in.components(t) {
		if in.contains(c, kind) {
			return true
		}
	}
	return false
}

// components lists nested TypeIDs in a fixed order.
func (in *Interner) components(t Type) []TypeID {
	var out []TypeID
	switch t.Kind {
	case KindArray:
		out = append(out, t.Elem)
	case KindMap:
		out = append(out, t.Key, t.Elem)
	case KindTuple:
		out = append(out, t.Params...)
	case KindFunc:
		out = append(out, t.Params...)
		out = append(out, t.Result)
	case KindStruct, KindUnion:
		for _, f := range t.Fields {
			if f.Type != NoTypeID {
				out = append(out, f.Type)
			}
		}
	}
	return append(out, t.Args...)
}

// Format renders id for diagnostics.
func (in *Interner) Format(id TypeID) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "<none>"
	}
	if t.Named() {
		if len(t.Args) == 0 {
			return t.Name
		}
		return t.Name + "<" + in.formatList(t.Args) + ">"
	}
	switch t.Kind {
	case KindArray:
		return "array<" + in.Format(t.Elem) + ">"
	case KindMap:
		return "map<" + in.Format(t.Key) + ", " + in.Format(t.Elem) + ">"
	case KindTuple:
		return "(" + in.formatList(t.Params) + ")"
	case KindFunc:
		params := in.formatList(t.Params)
		if t.Variadic {
			if params != "" {
				params += ", "
			}
			params += "..."
		}
		return "func(" + params + "): " + in.Format(t.Result)
	case KindStruct, KindUnion:
		var sb strings.Builder
		sb.WriteString(t.Kind.String())
		sb.WriteString(" {")
		for i, f := range t.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			if f.Type != NoTypeID {
				sb.WriteString(": ")
				sb.WriteString(in.Format(f.Type))
			}
		}
		sb.WriteString("}")
		return sb.String()
	case KindParam:
		return t.Name
	default:
		return t.Kind.String()
	}
}

func (in *Interner) formatList(ids []TypeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = in.Format(id)
	}
	return strings.Join(parts, ", ")
}

func cloneIDs(ids []TypeID) []TypeID {
	if ids == nil {
		return nil
	}
	return append([]TypeID(nil), ids...)
}
