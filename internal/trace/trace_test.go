package trace

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestStreamTracerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	pass := Begin(tr, ScopePass, "resolve", 0)
	fn := Begin(tr, ScopeFunction, "fib", pass.ID())
	fn.End("")
	pass.WithExtra("sweeps", "2").End("")

	out := buf.String()
	if !strings.Contains(out, "resolve") {
		t.Fatalf("expected pass span in output: %q", out)
	}
	if strings.Contains(out, "fib") {
		t.Fatalf("function span must be filtered at phase level: %q", out)
	}
	if !strings.Contains(out, "sweeps=2") {
		t.Fatalf("expected extra in end event: %q", out)
	}
}

func TestRingTracerWraps(t *testing.T) {
	tr := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(tr, ScopeNode, name, "", 0)
	}
	events := tr.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("unexpected ring contents: %+v", events)
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel("DETAIL"); err != nil || lvl != LevelDetail {
		t.Fatalf("got %v, %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestRingTracerCountsDropped(t *testing.T) {
	tr := NewRingTracer(3, LevelDebug)
	for range 5 {
		Point(tr, ScopeNode, "n", "", 0)
	}
	if got := tr.Dropped(); got != 2 {
		t.Fatalf("Dropped = %d, want 2", got)
	}
	var buf bytes.Buffer
	if err := tr.Dump(&buf, FormatText); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 3 {
		t.Fatalf("dumped %d lines, want 3:\n%s", n, buf.String())
	}
}

func TestErrorLevelKeepsDriverOnly(t *testing.T) {
	if !LevelError.ShouldEmit(ScopeDriver) || LevelError.ShouldEmit(ScopePass) {
		t.Fatalf("error level must record driver spans only")
	}
	if LevelOff.ShouldEmit(ScopeDriver) {
		t.Fatalf("off level must record nothing")
	}
	if !LevelDebug.ShouldEmit(ScopeNode) {
		t.Fatalf("debug level must record nodes")
	}
}

func TestNDJSONCarriesElapsed(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, Format: FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	span := Begin(tr, ScopeDriver, "build", 0)
	time.Sleep(time.Millisecond)
	span.End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 events, got:\n%s", buf.String())
	}
	var end struct {
		Kind     string `json:"kind"`
		Detail   string `json:"detail"`
		ElapsedU int64  `json:"elapsed_us"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if end.Kind != "end" || end.Detail != "ok" || end.ElapsedU <= 0 {
		t.Fatalf("end event = %+v", end)
	}
}

func TestNewBothKeepsRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDetail, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	multi, ok := tr.(*MultiTracer)
	if !ok {
		t.Fatalf("ModeBoth built %T", tr)
	}
	Point(multi, ScopeUnit, "main.lasts", "", 0)
	if !strings.Contains(buf.String(), "* main.lasts") {
		t.Fatalf("stream missed event: %q", buf.String())
	}
	if err := multi.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]StorageMode{"": ModeRing, "Stream": ModeStream, "both": ModeBoth} {
		if got, err := ParseMode(in); err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
