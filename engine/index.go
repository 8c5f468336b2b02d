package engine

// Bag is a materialized multiset: Row to signed count, with zero counts
// always collapsed so equality between Bags is well-defined.
type Bag struct {
	rows   map[string]Row
	counts map[string]int
}

// NewBag returns an empty Bag.
func NewBag() *Bag {
	return &Bag{rows: make(map[string]Row), counts: make(map[string]int)}
}

// Add folds diff into row's count, removing the entry entirely if the
// result is zero.
func (bag *Bag) Add(row Row, diff int) {
	key := row.Key()
	next := bag.counts[key] + diff
	if next == 0 {
		delete(bag.counts, key)
		delete(bag.rows, key)
		return
	}
	bag.counts[key] = next
	bag.rows[key] = row
}

// Count returns row's current count, 0 if absent.
func (bag *Bag) Count(row Row) int {
	return bag.counts[row.Key()]
}

// Rows returns every Row with a nonzero count. Order is unspecified.
func (bag *Bag) Rows() []Row {
	out := make([]Row, 0, len(bag.rows))
	for _, r := range bag.rows {
		out = append(out, r)
	}
	return out
}

// Each calls fn once per (Row, count) pair in the Bag.
func (bag *Bag) Each(fn func(row Row, count int)) {
	for key, r := range bag.rows {
		fn(r, bag.counts[key])
	}
}

// Equal reports whether bag and other hold identical (row, count) pairs.
func (bag *Bag) Equal(other *Bag) bool {
	if len(bag.counts) != len(other.counts) {
		return false
	}
	for key, c := range bag.counts {
		if other.counts[key] != c {
			return false
		}
	}
	return true
}

// Index is an append-only log of ChangeBatches, the durable backing store
// for one Index-kind, Distinct-kind, or Reduce-kind node's materialized
// output. Appending is O(1); querying scans the log, but prunes whole
// batches whose lower bound has already passed the query timestamp.
type Index struct {
	batches []*ChangeBatch
}

// NewIndex returns an empty Index.
func NewIndex() *Index { return &Index{} }

// Append adds b to the log. O(1).
func (ix *Index) Append(b *ChangeBatch) {
	ix.batches = append(ix.batches, b)
}

// Batches returns the Index's batches in append order. Callers must not
// mutate the returned slice.
func (ix *Index) Batches() []*ChangeBatch { return ix.batches }

// BagAsOf sums every change whose timestamp is at or before t (causally),
// across every batch whose lower bound has not already passed t, into a
// Bag. Batches whose lower bound has passed t are skipped wholesale: none
// of their changes can be at or before t, since every change in a batch is
// at-or-after its lower bound.
func (ix *Index) BagAsOf(t Timestamp) *Bag {
	bag := NewBag()
	for _, b := range ix.batches {
		if b.LowerBound().HasPassed(t) {
			continue
		}
		for _, c := range b.Changes() {
			switch c.Timestamp.CausalOrder(t) {
			case OrderLess, OrderEqual:
				bag.Add(c.Row, c.Diff)
			}
		}
	}
	return bag
}
