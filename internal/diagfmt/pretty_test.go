package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"loom/internal/diag"
	"loom/internal/source"
)

func oneDiag(path string, content []byte, start, end uint32) (*diag.Bag, *source.FileSet) {
	fs := source.NewFileSet()
	id := fs.AddVirtual(path, content)
	bag := diag.NewBag(10)
	d := diag.New(diag.SevError, diag.SemaUnknownIdentifier, source.Span{File: id, Start: start, End: end}, "unknown identifier y")
	bag.Add(d.WithNote(source.Span{File: id, Start: 4, End: 5}, "x declared here"))
	return bag, fs
}

func TestPathModes(t *testing.T) {
	bag, fs := oneDiag("/home/user/project/src/test.lm", []byte("let x = y;\n"), 8, 9)
	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"absolute", PathModeAbsolute, "/home/user/project/src/test.lm:1:9"},
		{"relative", PathModeRelative, "src/test.lm:1:9"},
		{"basename", PathModeBasename, "test.lm:1:9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode, BaseDir: "/home/user/project"})
			out := buf.String()
			if !strings.Contains(out, tt.contains) {
				t.Fatalf("want %q in:\n%s", tt.contains, out)
			}
			if !strings.Contains(out, "ERROR S3002: unknown identifier y") {
				t.Fatalf("missing header in:\n%s", out)
			}
		})
	}
}

func TestPathModeAuto(t *testing.T) {
	long := "/very/long/absolute/path/to/some/nested/directory/file.lm"
	if got := formatPath(long, PathModeAuto, ""); got != "file.lm" {
		t.Fatalf("auto(%s) = %s", long, got)
	}
	if got := formatPath("test.lm", PathModeAuto, ""); got != "test.lm" {
		t.Fatalf("auto(test.lm) = %s", got)
	}
}

func TestPrettyUnderlinesSpan(t *testing.T) {
	bag, fs := oneDiag("t.lm", []byte("let a = 1;\nlet x = yyy;\n"), 19, 22)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 1, ShowNotes: true})
	want := "t.lm:2:9: ERROR S3002: unknown identifier y\n" +
		" 1 | let a = 1;\n" +
		" 2 | let x = yyy;\n" +
		"   |         ^~~\n" +
		"  note: t.lm:1:5: x declared here\n"
	if got := buf.String(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyAlignsWideRunes(t *testing.T) {
	// 世界 occupies four display cells and six bytes
	bag, fs := oneDiag("w.lm", []byte("s = \"世界\" + q\n"), 15, 16)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	lines := strings.Split(buf.String(), "\n")
	if len(lines) < 3 {
		t.Fatalf("short output:\n%s", buf.String())
	}
	if caret := strings.Index(lines[2], "^"); caret != strings.Index(lines[1], "q")-2 {
		t.Fatalf("caret misaligned:\n%s", buf.String())
	}
}

func TestSummary(t *testing.T) {
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SemaArity, source.Span{}, "a"))
	bag.Add(diag.New(diag.SevWarning, diag.SemaInfo, source.Span{}, "b"))
	bag.Add(diag.New(diag.SevWarning, diag.SemaInfo, source.Span{}, "c"))
	var buf bytes.Buffer
	Summary(&buf, "main.lasts", bag)
	if got := buf.String(); got != "main.lasts: 1 error, 2 warnings\n" {
		t.Fatalf("summary = %q", got)
	}
}

func TestJSON(t *testing.T) {
	bag, fs := oneDiag("dir/j.lm", []byte("let x = y;\n"), 8, 9)
	var buf bytes.Buffer
	opts := JSONOpts{IncludePositions: true, PathMode: PathModeBasename, IncludeNotes: true}
	if err := JSON(&buf, "j", bag, fs, opts); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "S3002" || d.Location.File != "j.lm" {
		t.Fatalf("diagnostic = %+v", d)
	}
	if d.Location.StartLine != 1 || d.Location.StartCol != 9 {
		t.Fatalf("location = %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.StartCol != 5 {
		t.Fatalf("notes = %+v", d.Notes)
	}
}

func TestJSONMax(t *testing.T) {
	bag := diag.NewBag(10)
	for range 3 {
		bag.Add(diag.NewError(diag.SemaArity, source.Span{}, "x"))
	}
	out := BuildDiagnosticsOutput("", bag, source.NewFileSet(), JSONOpts{Max: 2})
	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}
}
