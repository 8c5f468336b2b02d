package engine

import "fmt"

// ValidateShard checks a battery of structural invariants across every node
// in sh that should hold between any two DoWork calls. It is not part of
// the hot path — callers use it in tests and debugging, not production
// loops — so it favors thoroughness over cost: O(total outstanding state).
// It returns the first violation found, or nil if sh is internally
// consistent.
func ValidateShard(sh *Shard) error {
	for id, state := range sh.states {
		spec := sh.graph.Node(NodeID(id))

		if err := validateAntichain(state.outputFrontier); err != nil {
			return fmt.Errorf("node %d (%s): output frontier: %w", id, spec.Kind, err)
		}

		switch spec.Kind {
		case NodeKindInput:
			if err := validateAntichain(state.admissible); err != nil {
				return fmt.Errorf("node %d (%s): admissible frontier: %w", id, spec.Kind, err)
			}

		case NodeKindIndex, NodeKindDistinct, NodeKindReduce:
			for i, b := range state.index.Batches() {
				if b.Len() == 0 {
					return fmt.Errorf("node %d (%s): index batch %d is empty", id, spec.Kind, i)
				}
				if err := validateChangeBatchSorted(b); err != nil {
					return fmt.Errorf("node %d (%s): index batch %d: %w", id, spec.Kind, i, err)
				}
			}
		}

		if spec.Kind == NodeKindDistinct || spec.Kind == NodeKindReduce {
			for i, b := range state.rawIndex.Batches() {
				if b.Len() == 0 {
					return fmt.Errorf("node %d (%s): raw index batch %d is empty", id, spec.Kind, i)
				}
			}
		}

		if spec.Kind == NodeKindOutput {
			for i, b := range state.outputQueue {
				if b == nil || b.Len() == 0 {
					return fmt.Errorf("node %d (%s): output queue entry %d is nil or empty", id, spec.Kind, i)
				}
			}
		}
	}

	for _, item := range sh.pending {
		if item.Batch == nil || item.Batch.Len() == 0 {
			return fmt.Errorf("pending queue: entry for node %d port %d is nil or empty", item.Target.Node, item.Target.Port)
		}
	}

	return nil
}

// validateAntichain reports an error if f's elements are not pairwise
// causally incomparable, i.e. if f is not actually a minimal antichain.
func validateAntichain(f *Frontier) error {
	elems := f.Elements()
	for i := range elems {
		for j := range elems {
			if i == j {
				continue
			}
			switch elems[i].CausalOrder(elems[j]) {
			case OrderLess, OrderEqual, OrderGreater:
				return fmt.Errorf("elements %s and %s are comparable, not a minimal antichain", elems[i], elems[j])
			}
		}
	}
	return nil
}

// validateChangeBatchSorted reports an error if b's changes are not in
// strictly increasing (Row, Timestamp) order with no duplicate keys, the
// invariant ChangeBatchBuilder.Finish is supposed to guarantee.
func validateChangeBatchSorted(b *ChangeBatch) error {
	changes := b.Changes()
	for i := 1; i < len(changes); i++ {
		prev, cur := changes[i-1], changes[i]
		rowCmp := prev.Row.Compare(cur.Row)
		if rowCmp > 0 {
			return fmt.Errorf("change %d out of order relative to change %d", i, i-1)
		}
		if rowCmp == 0 && prev.Timestamp.LexicalOrder(cur.Timestamp) >= 0 {
			return fmt.Errorf("change %d has duplicate or out-of-order timestamp relative to change %d", i, i-1)
		}
	}
	return nil
}
