package diag

import (
	"cmp"
	"slices"
	"sync"
)

// Bag is an ordered, bounded diagnostic collection. It is safe for
// concurrent Add calls from parallel package checks.
type Bag struct {
	mu    sync.Mutex
	items []Diagnostic
	max   int
}

// NewBag creates a Bag holding at most max diagnostics (0 means unbounded).
func NewBag(max int) *Bag {
	return &Bag{max: max}
}

// Add appends d unless the limit is reached.
func (b *Bag) Add(d Diagnostic) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
}

func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Items returns a copy of the diagnostics.
func (b *Bag) Items() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items)
}

// Count returns how many diagnostics carry code.
func (b *Bag) Count(code Code) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for i := range b.items {
		if b.items[i].Code == code {
			n++
		}
	}
	return n
}

// Merge appends every diagnostic of other, ignoring the limit.
func (b *Bag) Merge(other *Bag) {
	items := other.Items()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, items...)
}

// Sort orders by position in source, then puts the more severe first,
// then compares codes.
func (b *Bag) Sort() {
	b.mu.Lock()
	defer b.mu.Unlock()
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
