package engine

import (
	"errors"
	"sort"
)

// Change is a single multiset delta: Diff positive copies of Row are
// inserted at Timestamp, or (Diff negative) retracted.
type Change struct {
	Row       Row
	Timestamp Timestamp
	Diff      int
}

// Clone returns a deep copy of c.
func (c Change) Clone() Change {
	return Change{Row: c.Row.Clone(), Timestamp: c.Timestamp.Clone(), Diff: c.Diff}
}

// ErrEmptyChangeBatch is the panic value used when a ChangeBatchBuilder's
// accumulated changes coalesce to nothing (every diff cancels to zero).
// Building an empty batch is a programmer error per the engine's error
// taxonomy: a batch is defined to be non-empty, so there is no valid
// immutable ChangeBatch to hand back.
var ErrEmptyChangeBatch = errors.New("dflow: change batch is empty after coalescing")

// ChangeBatch is an immutable, non-empty, sorted, duplicate-free group of
// Changes together with a precomputed lower-bound Frontier: the antichain
// of minimal timestamps appearing in the batch.
type ChangeBatch struct {
	changes    []Change
	lowerBound *Frontier
}

// Changes returns the batch's changes, sorted by (Row, Timestamp).
// Callers must not mutate the returned slice.
func (b *ChangeBatch) Changes() []Change { return b.changes }

// LowerBound returns the batch's precomputed lower-bound Frontier.
func (b *ChangeBatch) LowerBound() *Frontier { return b.lowerBound }

// Len returns the number of (row, timestamp) entries in the batch.
func (b *ChangeBatch) Len() int { return len(b.changes) }

// Clone returns a deep, independent copy of b.
func (b *ChangeBatch) Clone() *ChangeBatch {
	out := &ChangeBatch{changes: make([]Change, len(b.changes)), lowerBound: b.lowerBound.Clone()}
	for i, c := range b.changes {
		out.changes[i] = c.Clone()
	}
	return out
}

// ChangeBatchBuilder accumulates Changes, then sorts, coalesces, and
// derives a lower bound to produce an immutable ChangeBatch.
type ChangeBatchBuilder struct {
	changes []Change
}

// NewChangeBatchBuilder returns an empty builder.
func NewChangeBatchBuilder() *ChangeBatchBuilder {
	return &ChangeBatchBuilder{}
}

// Add appends a Change to the builder.
func (b *ChangeBatchBuilder) Add(c Change) {
	b.changes = append(b.changes, c)
}

// Len returns the number of Changes added so far (pre-coalescing).
func (b *ChangeBatchBuilder) Len() int { return len(b.changes) }

// Finish sorts, coalesces identical (row, timestamp) pairs by summing
// diffs, drops any pair that cancels to zero, and derives the lower bound.
// If every pair cancels, the batch is empty and Finish panics with
// ErrEmptyChangeBatch: constructing an empty ChangeBatch is a programmer
// error, not a recoverable condition, for any caller building a batch
// directly (see finishInternal for the engine's own tolerant variant used
// when an operator's net effect may legitimately be nothing).
func (b *ChangeBatchBuilder) Finish() *ChangeBatch {
	batch, ok := b.finishInternal()
	if !ok {
		panic(ErrEmptyChangeBatch)
	}
	return batch
}

// finishInternal performs the same sort/coalesce/lower-bound derivation as
// Finish but returns (nil, false) instead of panicking when the result is
// empty. The executor uses this internally: an operator whose pending
// changes happen to net to zero (e.g. an insert immediately retracted by a
// later change at the same timestamp) is a normal, expected outcome of
// incremental evaluation, not a programmer error, so the executor must not
// crash on it — it simply has nothing to emit this round.
func (b *ChangeBatchBuilder) finishInternal() (*ChangeBatch, bool) {
	if len(b.changes) == 0 {
		return nil, false
	}
	sorted := make([]Change, len(b.changes))
	copy(sorted, b.changes)
	sort.Slice(sorted, func(i, j int) bool {
		if c := sorted[i].Row.Compare(sorted[j].Row); c != 0 {
			return c < 0
		}
		return sorted[i].Timestamp.LexicalOrder(sorted[j].Timestamp) < 0
	})

	coalesced := make([]Change, 0, len(sorted))
	i := 0
	for i < len(sorted) {
		j := i + 1
		diff := sorted[i].Diff
		for j < len(sorted) && sorted[j].Row.Equal(sorted[i].Row) && sorted[j].Timestamp.Equal(sorted[i].Timestamp) {
			diff += sorted[j].Diff
			j++
		}
		if diff != 0 {
			coalesced = append(coalesced, Change{Row: sorted[i].Row, Timestamp: sorted[i].Timestamp, Diff: diff})
		}
		i = j
	}
	if len(coalesced) == 0 {
		return nil, false
	}

	lowerBound := NewFrontier()
	for _, c := range coalesced {
		lowerBound.Retreat(c.Timestamp)
	}

	return &ChangeBatch{changes: coalesced, lowerBound: lowerBound}, true
}
