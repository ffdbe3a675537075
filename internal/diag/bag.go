package diag

import (
	"cmp"
	"slices"
)

const defaultBagLimit = 100

// Bag collects the diagnostics of one unit. Past its limit it only counts
// what it drops; dropped diagnostics are assumed to be errors.
type Bag struct {
	items   []Diagnostic
	limit   int
	dropped int
}

// NewBag returns a bag keeping at most limit diagnostics; limit <= 0 means
// the default of 100.
func NewBag(limit int) *Bag {
	if limit <= 0 {
		limit = defaultBagLimit
	}
	return &Bag{limit: limit}
}

// Add keeps d if there is room and reports whether it did.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) == b.limit {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Dropped() int { return b.dropped }

func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Items returns the backing slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic {
	if b == nil {
		return nil
	}
	return b.items
}

// Counts returns the number of errors, dropped ones included, and warnings.
func (b *Bag) Counts() (errors, warnings int) {
	if b == nil {
		return 0, 0
	}
	errors = b.dropped
	for i := range b.items {
		switch sev := b.items[i].Severity; {
		case sev.Blocks():
			errors++
		case sev == SevWarning:
			warnings++
		}
	}
	return errors, warnings
}

func (b *Bag) ErrorCount() int {
	n, _ := b.Counts()
	return n
}

func (b *Bag) HasErrors() bool { return b.ErrorCount() > 0 }

// Sort orders by file, then span, then severity (most severe first), then
// code. Equal diagnostics keep their report order.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}
