package engine

import "errors"

// Errors returned by Shard methods for recoverable, caller-triggered
// conditions. Conditions that indicate a bug in the engine itself, or a
// precondition violation no well-behaved caller could trigger through the
// public API (an empty ChangeBatch, a length-mismatched Timestamp op, a
// negative SupportedFrontier count), panic instead — see ErrEmptyChangeBatch
// in change.go and the panics in timestamp.go and supported_frontier.go.
var (
	// ErrUnknownNode is returned when a NodeID does not belong to the
	// Shard's Graph.
	ErrUnknownNode = errors.New("dflow: unknown node")

	// ErrNotInputNode is returned by PushInput, FlushInput, and
	// AdvanceInput when given a node that is not a NodeKindInput node.
	ErrNotInputNode = errors.New("dflow: node is not an Input node")

	// ErrNotOutputNode is returned by PopOutput when given a node that is
	// not a NodeKindOutput node.
	ErrNotOutputNode = errors.New("dflow: node is not an Output node")

	// ErrTimestampNotAdmissible is returned by PushInput when ts has
	// already been passed by the Input node's own frontier: the engine can
	// no longer guarantee correctness for a change at ts, since downstream
	// operators may already have produced final output for timestamps at
	// or before it.
	ErrTimestampNotAdmissible = errors.New("dflow: timestamp is no longer admissible on this input")
)
