package source

import (
	"bytes"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestInternerNormalizesIdentifiers(t *testing.T) {
	in := NewInterner()
	composed := in.Intern("caf\u00e9")
	decomposed := in.Intern("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("expected NFC-equivalent names to share an id, got %d and %d", composed, decomposed)
	}
	if got := in.MustLookup(composed); got != "caf\u00e9" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("main.lm", []byte("let a = 1;\nlet b = a;\n"))
	start, end := fs.Resolve(Span{File: id, Start: 15, End: 16})
	if start.Line != 2 || start.Col != 5 {
		t.Fatalf("unexpected start %+v", start)
	}
	if end.Col != 6 {
		t.Fatalf("unexpected end %+v", end)
	}
	if line := fs.Get(id).GetLine(2); line != "let b = a;" {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestSpanEncodesAsArray(t *testing.T) {
	// units, programs and caches are all written with compact ints
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(Span{File: 1, Start: 4, End: 8}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	data := buf.Bytes()
	// fixarray of three positive fixints
	if want := []byte{0x93, 0x01, 0x04, 0x08}; !bytes.Equal(data, want) {
		t.Fatalf("encoded % x, want % x", data, want)
	}
	var got Span
	if err := msgpack.Unmarshal(data, &got); err != nil || got != (Span{File: 1, Start: 4, End: 8}) {
		t.Fatalf("decoded %v, %v", got, err)
	}
	if !(Span{Start: 3, End: 3}).Empty() {
		t.Fatalf("zero-width span must be empty")
	}
}
