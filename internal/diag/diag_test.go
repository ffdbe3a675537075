package diag

import (
	"testing"

	"loom/internal/source"
)

func TestBagLimitCountsDropped(t *testing.T) {
	bag := NewBag(1)
	r := BagReporter{Bag: bag}
	r.Report(SemaTypeMismatch, SevError, source.Span{}, "a", nil)
	r.Report(SemaTypeMismatch, SevError, source.Span{Start: 1, End: 2}, "b", nil)
	if bag.Len() != 1 || bag.Dropped() != 1 {
		t.Fatalf("expected one kept and one dropped, got len=%d dropped=%d", bag.Len(), bag.Dropped())
	}
	if bag.ErrorCount() != 2 {
		t.Fatalf("expected dropped errors to count, got %d", bag.ErrorCount())
	}
}

func TestBufferCommitAndDiscard(t *testing.T) {
	bag := NewBag(8)
	parent := BagReporter{Bag: bag}

	discarded := NewBuffer(parent)
	discarded.Report(SemaNoOverload, SevError, source.Span{}, "speculative", nil)
	if !discarded.HasErrors() {
		t.Fatalf("buffer should hold the error")
	}
	discarded.Discard()
	if bag.Len() != 0 {
		t.Fatalf("discarded diagnostics leaked: %v", bag.Items())
	}

	committed := NewBuffer(parent)
	committed.Report(SemaUnknownMember, SevError, source.Span{}, "kept", nil)
	committed.Commit()
	if bag.Len() != 1 || bag.Items()[0].Code != SemaUnknownMember {
		t.Fatalf("commit did not forward: %v", bag.Items())
	}
	committed.Report(SemaArity, SevError, source.Span{}, "after close", nil)
	if bag.Len() != 2 {
		t.Fatalf("closed buffer must forward directly")
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(8)
	r := NewDedupReporter(BagReporter{Bag: bag})
	for range 3 {
		Errorf(r, SemaUnknownIdentifier, source.Span{Start: 3, End: 4}, "unknown identifier %q", "x").Emit()
	}
	if bag.Len() != 1 || r.Suppressed() != 2 {
		t.Fatalf("expected one diagnostic after dedup, got %d (suppressed %d)", bag.Len(), r.Suppressed())
	}
}

func TestBagSortOrdersBySpan(t *testing.T) {
	bag := NewBag(4)
	bag.Add(NewError(SemaArity, source.Span{Start: 10, End: 11}, "late"))
	bag.Add(NewError(SemaArity, source.Span{Start: 1, End: 2}, "early"))
	bag.Sort()
	if bag.Items()[0].Message != "early" {
		t.Fatalf("unexpected order: %v", bag.Items())
	}
}

func TestBagCounts(t *testing.T) {
	bag := NewBag(2)
	bag.Add(New(SevWarning, SemaInfo, source.Span{}, "w"))
	bag.Add(NewError(SemaArity, source.Span{}, "e"))
	bag.Add(NewError(SemaArity, source.Span{}, "dropped"))
	errs, warns := bag.Counts()
	if errs != 2 || warns != 1 || !bag.HasErrors() {
		t.Fatalf("counts = %d errors, %d warnings", errs, warns)
	}
}

func TestDraftEmitsOnce(t *testing.T) {
	bag := NewBag(4)
	d := Errorf(BagReporter{Bag: bag}, SemaRedefinition, source.Span{Start: 5, End: 6}, "%q is already declared", "x").
		WithNote(source.Span{Start: 1, End: 2}, "previous declaration")
	d.Emit()
	d.Emit()
	if bag.Len() != 1 {
		t.Fatalf("draft emitted %d times", bag.Len())
	}
	if got := bag.Items()[0]; len(got.Notes) != 1 || got.Message != `"x" is already declared` {
		t.Fatalf("diagnostic = %+v", got)
	}
}
