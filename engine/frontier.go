package engine

// FrontierChange reports that a Timestamp entered (Diff == +1) or left
// (Diff == -1) a Frontier's antichain as the result of an Advance, Retreat,
// or SupportedFrontier update. Callers propagate these as pointstamp diffs.
type FrontierChange struct {
	Timestamp Timestamp
	Diff      int
}

// Frontier is an antichain: a set of pairwise causally-incomparable
// Timestamps. It bounds "what timestamps remain possible in the future"
// for whatever it is attached to (an Input's admissible range, a
// ChangeBatch's lower bound, a node's output support).
//
// Advance and Retreat are, at the implementation level, the same
// operation: inserting a Timestamp into the antichain while discarding
// anything it dominates, and declining to change anything if the new
// Timestamp is itself dominated by an existing element. The two names
// exist for the two kinds of caller (building a minimal antichain from
// scratch, as mapFrontier and meetFrontiers do via Advance; narrowing a
// ChangeBatchBuilder's lower bound via Retreat), but neither call panics on
// a "wrong direction" Timestamp — both are simply no-ops in that case, per
// the antichain-minimality rule. Neither one moves a Frontier forward past
// an existing element; Shard.AdvanceInput builds an Input's advanced
// frontier itself.
type Frontier struct {
	elements []Timestamp
}

// NewFrontier builds a Frontier from zero or more Timestamps, reducing them
// to their minimal antichain immediately.
func NewFrontier(ts ...Timestamp) *Frontier {
	f := &Frontier{}
	for _, t := range ts {
		f.insert(t)
	}
	return f
}

// Elements returns a copy of the Frontier's current antichain.
func (f *Frontier) Elements() []Timestamp {
	out := make([]Timestamp, len(f.elements))
	copy(out, f.elements)
	return out
}

// Contains reports whether t is exactly one of the Frontier's elements.
func (f *Frontier) Contains(t Timestamp) bool {
	for _, e := range f.elements {
		if e.Equal(t) {
			return true
		}
	}
	return false
}

// CausalOrder compares the Frontier, as a whole, to t:
//
//   - OrderEqual if some element equals t.
//   - OrderLess if some element is strictly before t.
//   - OrderGreater if t is strictly before every element.
//   - OrderIncomparable otherwise.
//
// A Frontier with no elements represents a fully-drained boundary (nothing
// further can ever arrive) and compares OrderGreater to every t, so
// HasPassed reports true for every t once a Frontier is empty.
func (f *Frontier) CausalOrder(t Timestamp) Ordering {
	if len(f.elements) == 0 {
		return OrderGreater
	}
	anyLess := false
	allGreater := true
	for _, e := range f.elements {
		switch e.CausalOrder(t) {
		case OrderEqual:
			return OrderEqual
		case OrderLess:
			anyLess = true
			allGreater = false
		case OrderGreater:
			// e > t: consistent with allGreater, no change.
		default:
			allGreater = false
		}
	}
	switch {
	case anyLess:
		return OrderLess
	case allGreater:
		return OrderGreater
	default:
		return OrderIncomparable
	}
}

// HasPassed reports whether the Frontier has advanced beyond t, i.e. every
// element of the frontier is strictly after t: CausalOrder(t) is
// OrderGreater.
func (f *Frontier) HasPassed(t Timestamp) bool {
	switch f.CausalOrder(t) {
	case OrderGreater:
		return true
	default:
		return false
	}
}

// Advance inserts t into the antichain with the same minimal-antichain rule
// as Retreat. It is a no-op, returning nil, if t is already present or is
// already dominated by an existing element (some element is at or before
// t), so it never evicts an element earlier than t and does not move the
// Frontier forward.
func (f *Frontier) Advance(t Timestamp) []FrontierChange {
	return f.insert(t)
}

// Retreat inserts t into the antichain, moving the Frontier backward. Like
// Advance, it shares the same underlying minimal-antichain insert and is a
// no-op under the same conditions; see ChangeBatchBuilder, which retreats
// an initially-empty Frontier through every change's timestamp to compute a
// lower bound.
func (f *Frontier) Retreat(t Timestamp) []FrontierChange {
	return f.insert(t)
}

// insert is the generic antichain-minimality-preserving insert shared by
// Advance, Retreat, and SupportedFrontier's own bookkeeping: t is dropped
// if some existing element already dominates it (e <= t), otherwise every
// existing element dominated by t (t <= e) is evicted and t is added.
func (f *Frontier) insert(t Timestamp) []FrontierChange {
	for _, e := range f.elements {
		if e.LessEqual(t) {
			return nil
		}
	}
	var changes []FrontierChange
	kept := f.elements[:0:0]
	for _, e := range f.elements {
		if t.LessEqual(e) {
			changes = append(changes, FrontierChange{Timestamp: e, Diff: -1})
		} else {
			kept = append(kept, e)
		}
	}
	kept = append(kept, t)
	changes = append(changes, FrontierChange{Timestamp: t, Diff: +1})
	f.elements = kept
	return changes
}

// remove drops t from the antichain unconditionally (used by
// SupportedFrontier when a timestamp's support count reaches zero). It
// reports whether t was present.
func (f *Frontier) remove(t Timestamp) bool {
	for i, e := range f.elements {
		if e.Equal(t) {
			f.elements = append(f.elements[:i], f.elements[i+1:]...)
			return true
		}
	}
	return false
}

// Equal reports whether f and other hold the same set of elements.
func (f *Frontier) Equal(other *Frontier) bool {
	if len(f.elements) != len(other.elements) {
		return false
	}
	for _, e := range f.elements {
		if !other.Contains(e) {
			return false
		}
	}
	return true
}

// Clone returns a deep, independent copy of f.
func (f *Frontier) Clone() *Frontier {
	out := &Frontier{elements: make([]Timestamp, len(f.elements))}
	for i, e := range f.elements {
		out.elements[i] = e.Clone()
	}
	return out
}

// String renders f for debug output.
func (f *Frontier) String() string {
	s := "{"
	for i, e := range f.elements {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + "}"
}
