package engine

import (
	"strconv"
	"strings"
)

// Ordering is the result of comparing two timestamps, or a timestamp
// against a Frontier.
type Ordering int

const (
	// OrderLess means the left operand is strictly before the right.
	OrderLess Ordering = iota
	// OrderEqual means the operands are identical.
	OrderEqual
	// OrderGreater means the left operand is strictly after the right.
	OrderGreater
	// OrderIncomparable means neither operand dominates the other.
	OrderIncomparable
)

// Timestamp is a fixed-length vector of unsigned integer coordinates. Two
// timestamps are comparable only if they share a length: comparing vectors
// of different lengths is a programmer error (it would mean comparing
// timestamps from different nested scopes without first aligning them via
// PushCoord/PopCoord) and panics.
type Timestamp []uint64

// Least returns the all-zero Timestamp of the given length, the bottom
// element of the causal order at that scope depth.
func Least(n int) Timestamp {
	return make(Timestamp, n)
}

// PushCoord returns a new Timestamp with a trailing 0 coordinate appended,
// modeling entry into a nested scope.
func (t Timestamp) PushCoord() Timestamp {
	out := make(Timestamp, len(t)+1)
	copy(out, t)
	return out
}

// PopCoord returns a new Timestamp with the trailing coordinate dropped,
// modeling exit from a nested scope. Popping a length-0 Timestamp is a
// programmer error and panics.
func (t Timestamp) PopCoord() Timestamp {
	if len(t) == 0 {
		panic("dflow: popCoord on a length-0 timestamp")
	}
	out := make(Timestamp, len(t)-1)
	copy(out, t[:len(t)-1])
	return out
}

// IncrementCoord returns a new Timestamp with its trailing coordinate
// incremented by one, modeling one more iteration of a loop. Incrementing a
// length-0 Timestamp is a programmer error and panics.
func (t Timestamp) IncrementCoord() Timestamp {
	if len(t) == 0 {
		panic("dflow: incrementCoord on a length-0 timestamp")
	}
	out := make(Timestamp, len(t))
	copy(out, t)
	out[len(out)-1]++
	return out
}

// CausalOrder compares t and other coordinate-wise. The result is
// OrderLess/OrderEqual/OrderGreater only if every coordinate agrees on the
// same relation; otherwise the two are OrderIncomparable. Comparing
// timestamps of unequal length is a programmer error and panics.
func (t Timestamp) CausalOrder(other Timestamp) Ordering {
	if len(t) != len(other) {
		panic("dflow: causalOrder on timestamps of unequal length")
	}
	lessSeen, greaterSeen := false, false
	for i := range t {
		switch {
		case t[i] < other[i]:
			lessSeen = true
		case t[i] > other[i]:
			greaterSeen = true
		}
	}
	switch {
	case lessSeen && greaterSeen:
		return OrderIncomparable
	case lessSeen:
		return OrderLess
	case greaterSeen:
		return OrderGreater
	default:
		return OrderEqual
	}
}

// LessEqual reports whether t.CausalOrder(other) is OrderLess or OrderEqual.
func (t Timestamp) LessEqual(other Timestamp) bool {
	switch t.CausalOrder(other) {
	case OrderLess, OrderEqual:
		return true
	default:
		return false
	}
}

// LexicalOrder is a total order extending the causal order, used only as a
// tiebreaker: first by sorting changes within a ChangeBatch, second when
// Distinct must process pending timestamps in an order that guarantees
// every causally-earlier sibling is resolved first. It compares coordinates
// left to right and returns the first inequality; timestamps of unequal
// length sort the shorter one first after their shared prefix agrees (this
// only arises when comparing timestamps across different scope depths,
// which LexicalOrder tolerates even though CausalOrder does not).
func (t Timestamp) LexicalOrder(other Timestamp) int {
	n := len(t)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		switch {
		case t[i] < other[i]:
			return -1
		case t[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(t) < len(other):
		return -1
	case len(t) > len(other):
		return 1
	default:
		return 0
	}
}

// LeastUpperBound returns the coordinate-wise maximum of t and other, the
// earliest timestamp that is causally at-or-after both. Unequal lengths are
// a programmer error and panic, since a least upper bound is only ever
// taken between timestamps in the same scope (e.g. a Join's two inputs).
func (t Timestamp) LeastUpperBound(other Timestamp) Timestamp {
	if len(t) != len(other) {
		panic("dflow: leastUpperBound on timestamps of unequal length")
	}
	out := make(Timestamp, len(t))
	for i := range t {
		if t[i] > other[i] {
			out[i] = t[i]
		} else {
			out[i] = other[i]
		}
	}
	return out
}

// GreatestLowerBound returns the coordinate-wise minimum of t and other, the
// latest timestamp that is causally at-or-before both. Unequal lengths are
// a programmer error and panic, for the same reason LeastUpperBound panics.
func (t Timestamp) GreatestLowerBound(other Timestamp) Timestamp {
	if len(t) != len(other) {
		panic("dflow: greatestLowerBound on timestamps of unequal length")
	}
	out := make(Timestamp, len(t))
	for i := range t {
		if t[i] < other[i] {
			out[i] = t[i]
		} else {
			out[i] = other[i]
		}
	}
	return out
}

// Equal reports whether t and other hold identical coordinates.
func (t Timestamp) Equal(other Timestamp) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of t.
func (t Timestamp) Clone() Timestamp {
	out := make(Timestamp, len(t))
	copy(out, t)
	return out
}

// Key returns a canonical string encoding of t, used as a map key by
// SupportedFrontier and Bag-adjacent bookkeeping.
func (t Timestamp) Key() string {
	var b strings.Builder
	for i, c := range t {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(c, 10))
	}
	return b.String()
}

// String renders t for debug output, e.g. "[0,3,1]".
func (t Timestamp) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, c := range t {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(c, 10))
	}
	b.WriteByte(']')
	return b.String()
}
