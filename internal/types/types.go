package types

import "strings"

// TypeID identifies an interned Type. Zero means "no type".
type TypeID uint32

const NoTypeID TypeID = 0

// Kind tags a Type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPending      // not resolved yet; never satisfies a check
	KindDynamic      // checked at run time; accepts anything
	KindVoid
	KindBool
	KindInt
	KindReal
	KindHandle // opaque native pointer
	KindString
	KindArray  // Elem
	KindMap    // Key -> Elem
	KindStruct // Fields
	KindTuple  // Params
	KindFunc   // Params (+Variadic) -> Result
	KindUnion  // Fields are variants; Type is the payload or NoTypeID
	KindParam  // template parameter placeholder used during derivation
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindPending: "pending",
	KindDynamic: "dynamic",
	KindVoid:    "void",
	KindBool:    "bool",
	KindInt:     "int",
	KindReal:    "real",
	KindHandle:  "handle",
	KindString:  "string",
	KindArray:   "array",
	KindMap:     "map",
	KindStruct:  "struct",
	KindTuple:   "tuple",
	KindFunc:    "func",
	KindUnion:   "union",
	KindParam:   "param",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports scalar kinds that have cast rules.
func (k Kind) IsPrimitive() bool {
	return k >= KindBool && k <= KindString
}

// IsNumeric reports int and real.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindReal
}

// Field is a struct member (offset = index) or a union variant.
type Field struct {
	Name string
	Type TypeID
}

// Type is an interned type descriptor. Named types carry the identity of the
// declaring symbol in Sym (plus Name and template Args for display); their
// structure is copied in from the definition, so a named type and its
// underlying structure are distinct TypeIDs.
type Type struct {
	Kind     Kind
	Elem     TypeID
	Key      TypeID
	Params   []TypeID
	Variadic bool
	Result   TypeID
	Fields   []Field

	Sym  uint32
	Name string
	Args []TypeID
}

// Named reports whether the type is bound to a declaring symbol.
func (t Type) Named() bool { return t.Sym != 0 }

// FieldIndex returns the offset of a struct field or the tag of a union variant.
func (t Type) FieldIndex(name string) (int, bool) {
	for i, f := range t.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (t Type) key() string {
	var sb strings.Builder
	sb.WriteByte(byte('A' + t.Kind))
	writeID := func(id TypeID) {
		sb.WriteString(itoa(uint64(id)))
		sb.WriteByte(',')
	}
	writeID(t.Elem)
	writeID(t.Key)
	writeID(t.Result)
	sb.WriteByte('(')
	for _, p := range t.Params {
		writeID(p)
	}
	if t.Variadic {
		sb.WriteString("...")
	}
	sb.WriteString("){")
	for _, f := range t.Fields {
		sb.WriteString(f.Name)
		sb.WriteByte(':')
		writeID(f.Type)
	}
	sb.WriteString("}#")
	sb.WriteString(itoa(uint64(t.Sym)))
	sb.WriteByte('<')
	for _, a := range t.Args {
		writeID(a)
	}
	sb.WriteByte('>')
	// Param placeholders are told apart by name and index.
	if t.Kind == KindParam {
		sb.WriteString(t.Name)
	}
	return sb.String()
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
