package engine

// CloneRow returns a deep copy of row. Equivalent to row.Clone(); provided
// as a package-level function so ValidateShard and tests can clone values
// obtained from a map or slice without an intermediate variable.
func CloneRow(row Row) Row { return row.Clone() }

// CloneTimestamp returns a deep copy of t.
func CloneTimestamp(t Timestamp) Timestamp { return t.Clone() }

// CloneChangeBatch returns a deep, independent copy of b.
func CloneChangeBatch(b *ChangeBatch) *ChangeBatch { return b.Clone() }

// CloneChanges returns a deep copy of a Change slice, as found inside a
// NodeState's pending buffers.
func CloneChanges(changes []Change) []Change {
	out := make([]Change, len(changes))
	for i, c := range changes {
		out[i] = c.Clone()
	}
	return out
}
