package ui

import (
	"strings"
	"testing"

	"loom/internal/driver"
)

func TestProgressTracksUnits(t *testing.T) {
	m := NewProgressModel("build", []string{"a.lasts", "b.lasts"}, nil).(*progressModel)
	m.Update(eventMsg{Unit: "a.lasts", Stage: driver.StageAnalyze, Status: driver.StatusWorking})
	if got := m.items[0].status; got != "analyzing" {
		t.Fatalf("status = %q", got)
	}
	m.Update(eventMsg{Unit: "a.lasts", Stage: driver.StageWrite, Status: driver.StatusDone})
	m.Update(eventMsg{Unit: "b.lasts", Stage: driver.StageAnalyze, Status: driver.StatusError})
	// events after the final status are ignored
	m.Update(eventMsg{Unit: "b.lasts", Stage: driver.StageEmit, Status: driver.StatusWorking})
	if m.items[1].status != "error" || m.failed != 1 || m.finished() != 2 {
		t.Fatalf("items = %+v failed = %d", m.items, m.failed)
	}
	view := m.View()
	if !strings.Contains(view, "(2/2), 1 failed") {
		t.Fatalf("view header:\n%s", view)
	}
}

func TestProgressIgnoresUnknownUnits(t *testing.T) {
	m := NewProgressModel("build", []string{"a.lasts"}, nil).(*progressModel)
	if cmd := m.applyEvent(driver.Event{Unit: "zzz", Status: driver.StatusDone}); cmd != nil {
		t.Fatalf("unexpected command")
	}
	if m.finished() != 0 {
		t.Fatalf("unknown unit counted")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("世界世界", 5); got != "世..." {
		t.Fatalf("wide truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
