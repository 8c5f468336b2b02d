package engine

// nodeState is the executor's per-node runtime state, indexed by NodeID
// alongside the immutable Graph. Which fields are meaningful depends on the
// node's Kind; see shard_ops.go for how each Kind's processing uses them.
type nodeState struct {
	// outputFrontier is this node's own advertised frontier: the antichain
	// past which it will never produce another change. Downstream
	// consumers' frontiers are a pure function of their upstream(s)'
	// outputFrontier, recomputed by Shard.recomputeOutputFrontier; an empty
	// Frontier means "nothing more, ever" (see Frontier.CausalOrder), so a
	// node's outputFrontier starts at the bottom timestamp for its
	// subgraph's nesting depth, not empty.
	outputFrontier *Frontier

	// admissible and builder are set only for NodeKindInput nodes: the
	// caller-controlled admissible range, and the batch of Changes pushed
	// since the last FlushInput.
	admissible *Frontier
	builder    *ChangeBatchBuilder

	// index is set for NodeKindIndex, NodeKindDistinct, and NodeKindReduce
	// nodes: the materialized store that makes the node usable as a Join,
	// Distinct, or Reduce input.
	index *Index

	// dirty and dirtyHold are set for NodeKindIndex, NodeKindDistinct, and
	// NodeKindReduce nodes, none of which may forward (or, for Index,
	// materialize) a change the instant it arrives: a later change at the
	// same timestamp could still arrive and change what's released. Each
	// buffers its raw input and marks the timestamp dirty, holding a
	// capability on it via dirtyHold, then releases it once the input
	// frontier has passed it (see Shard.releaseReady).
	dirty     map[string]Timestamp // ts.Key() -> ts, awaiting release
	dirtyHold *SupportedFrontier   // capability holding each dirty ts open

	// pendingChanges is set only for NodeKindIndex: the raw Changes
	// buffered per dirty timestamp, forwarded verbatim (and appended to
	// index) once released, unlike Distinct/Reduce which recompute.
	pendingChanges map[string][]Change

	// The following are set only for NodeKindDistinct and NodeKindReduce,
	// which recompute a set-collapse or fold over rawIndex once a dirty
	// timestamp releases, rather than forwarding raw input verbatim.
	rawIndex     *Index
	priorCounts  map[string]map[string]int // "distinct" -> rowKey -> last-emitted count (Distinct)
	priorRows    map[string]Row            // rowKey -> Row, for Distinct's retraction lookups
	priorReduced map[string]Row            // groupKey -> last-emitted row (Reduce)
	priorHasRow  map[string]bool           // groupKey -> whether priorReduced is valid

	// outputQueue holds finished batches for a NodeKindOutput node, FIFO,
	// until the caller drains them with Shard.PopOutput.
	outputQueue []*ChangeBatch
}

// newNodeState builds the runtime state for one node. subgraphDepth is the
// nesting depth of spec.Subgraph (0 for the root), used to seed an Input
// node's admissible frontier at the bottom timestamp for its scope. A
// timestamp carries one coordinate per subgraph on the node's scope path,
// the root included, so that bottom timestamp has subgraphDepth+1 zeros.
func newNodeState(spec NodeSpec, subgraphDepth int) *nodeState {
	s := &nodeState{
		outputFrontier: NewFrontier(Least(subgraphDepth + 1)),
	}
	switch spec.Kind {
	case NodeKindInput:
		s.admissible = NewFrontier(Least(subgraphDepth + 1))
		s.builder = NewChangeBatchBuilder()
	case NodeKindIndex:
		s.index = NewIndex()
		s.dirty = make(map[string]Timestamp)
		s.dirtyHold = NewSupportedFrontier()
		s.pendingChanges = make(map[string][]Change)
	case NodeKindDistinct, NodeKindReduce:
		s.index = NewIndex()
		s.rawIndex = NewIndex()
		s.dirty = make(map[string]Timestamp)
		s.dirtyHold = NewSupportedFrontier()
		s.priorCounts = make(map[string]map[string]int)
		s.priorRows = make(map[string]Row)
		s.priorReduced = make(map[string]Row)
		s.priorHasRow = make(map[string]bool)
	}
	return s
}
