package observ

import (
	"strings"
	"testing"
)

func TestReportAggregatesByName(t *testing.T) {
	tm := NewTimer()
	a := tm.Begin("resolve", "a.loom")
	b := tm.Begin("resolve", "b.loom")
	c := tm.Begin("emit", "a.loom")
	tm.End(a, "")
	tm.End(b, "2 sweeps")
	tm.End(c, "")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(r.Phases))
	}
	if r.Phases[0].Name != "resolve" || r.Phases[0].Count != 2 || r.Phases[0].Note != "2 sweeps" {
		t.Fatalf("unexpected resolve report: %+v", r.Phases[0])
	}
	if !strings.Contains(tm.Summary(), "emit") {
		t.Fatalf("summary missing emit phase")
	}
}

func TestEndIgnoresBadIndex(t *testing.T) {
	tm := NewTimer()
	tm.End(5, "x")
	if len(tm.Report().Phases) != 0 {
		t.Fatalf("expected empty report")
	}
}
