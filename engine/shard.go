package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jspahn/dflow/engine/emit"
)

// pendingItem is one unit of queued data work: a ChangeBatch destined for a
// node's input port. Shard.pending holds every queued batch in enqueue
// order; DoWork only ever takes the oldest batch queued at some port (see
// nextPendingIndex), so each port receives its batches in the order they
// were enqueued.
type pendingItem struct {
	Target NodeInput
	Batch  *ChangeBatch
}

// Shard is a single cooperative-scheduler instance of a Graph: all node
// state, the pending work queue, and the frontier-propagation bookkeeping
// live here. A Shard is not safe for concurrent use; callers drive it
// synchronously through PushInput/FlushInput/AdvanceInput and HasWork/DoWork,
// the same single-threaded contract the graph's timestamp model depends on
// for correctness (see SPEC_FULL.md §5).
type Shard struct {
	graph   *Graph
	states  []*nodeState
	pending []pendingItem

	// frontierWork holds nodes whose admissible frontier AdvanceInput has
	// moved, awaiting a propagateFrontier pass. It is a queue separate from
	// pending, and deliberately lower priority: DoWork always drains pending
	// change batches first (see SPEC_FULL.md §4.6), only propagating
	// frontiers once no data work remains, so a node's reported progress
	// never races ahead of data still sitting in its own queue.
	frontierWork   []NodeID
	frontierQueued map[NodeID]bool

	// runID identifies this Shard across every Event it emits over its
	// lifetime: a Shard has no checkpoint/resume concept of its own, but a
	// host running many Shards still needs to tell one's events apart from
	// another's in a combined log or trace. step is a per-Shard sequence
	// number incremented on every emitted Event, giving its Events a total
	// order even when two share a Kind and NodeID.
	runID string
	step  int

	emitter emit.Emitter
	metrics *Metrics
}

// ShardOption configures a Shard at construction time.
type ShardOption func(*Shard)

// WithEmitter attaches an emit.Emitter the Shard reports DebugEvents to. The
// default, if this option is not given, is emit.NewNull(): zero overhead.
func WithEmitter(e emit.Emitter) ShardOption {
	return func(s *Shard) { s.emitter = e }
}

// WithMetrics attaches a *Metrics the Shard reports Prometheus observations
// to. The default, if this option is not given, is nil: every observe call
// becomes a no-op nil check rather than a real metric.
func WithMetrics(m *Metrics) ShardOption {
	return func(s *Shard) { s.metrics = m }
}

// NewShard builds a Shard over g with empty state for every node.
func NewShard(g *Graph, opts ...ShardOption) *Shard {
	s := &Shard{
		graph:          g,
		states:         make([]*nodeState, g.NodeCount()),
		frontierQueued: make(map[NodeID]bool),
		runID:          uuid.NewString(),
		emitter:        emit.NewNull(),
	}
	for id := 0; id < g.NodeCount(); id++ {
		spec := g.Node(NodeID(id))
		s.states[id] = newNodeState(spec, g.Subgraph(spec.Subgraph).Depth)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (sh *Shard) validNode(id NodeID) bool {
	return id >= 0 && int(id) < len(sh.states)
}

// RunID identifies this Shard across every Event it emits; a host running
// several Shards can use it to tell their Events apart in a combined log or
// trace.
func (sh *Shard) RunID() string { return sh.runID }

// emit stamps e with this Shard's RunID, current step, and node before
// handing it to the configured Emitter. node is -1 for Events not tied to a
// specific node.
func (sh *Shard) emit(kind emit.Kind, node NodeID, fields map[string]any) {
	sh.step++
	sh.emitter.Emit(emit.Event{
		Kind:   kind,
		RunID:  sh.runID,
		Step:   sh.step,
		NodeID: int(node),
		Fields: fields,
	})
}

// PushInput appends one Change to node's input builder. node must be a
// NodeKindInput node and ts must not already have been passed by the node's
// own admissible frontier (see AdvanceInput), or ErrTimestampNotAdmissible
// is returned: the engine can no longer guarantee a late change at a closed
// timestamp will reach every downstream operator before it finalizes output
// at or before that timestamp.
func (sh *Shard) PushInput(node NodeID, row Row, ts Timestamp, diff int) error {
	if !sh.validNode(node) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	state := sh.states[node]
	if sh.graph.Node(node).Kind != NodeKindInput {
		return ErrNotInputNode
	}
	if state.admissible.CausalOrder(ts) == OrderGreater {
		sh.emit(emit.KindInputRejected, node, map[string]any{"timestamp": ts.String()})
		return ErrTimestampNotAdmissible
	}
	state.builder.Add(Change{Row: row.Clone(), Timestamp: ts.Clone(), Diff: diff})
	sh.emit(emit.KindInputPushed, node, map[string]any{"timestamp": ts.String(), "diff": diff})
	return nil
}

// FlushInput finishes node's accumulated builder into a ChangeBatch (if
// non-empty) and routes it to every downstream consumer's work queue. It is
// a no-op, returning nil, if nothing has been pushed since the last flush.
func (sh *Shard) FlushInput(node NodeID) error {
	if !sh.validNode(node) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	state := sh.states[node]
	if sh.graph.Node(node).Kind != NodeKindInput {
		return ErrNotInputNode
	}
	batch, ok := state.builder.finishInternal()
	state.builder = NewChangeBatchBuilder()
	if !ok {
		return nil
	}
	sh.routeOutput(node, batch)
	return nil
}

// AdvanceInput moves node's admissible frontier forward to include t,
// discarding every element causally before t, and schedules the resulting frontier
// change to propagate through the graph the next time DoWork has no pending
// change batch left to process. After this call, PushInput will reject any
// timestamp t itself has made inadmissible. It is a no-op if some element
// of the admissible frontier is already at or after t.
func (sh *Shard) AdvanceInput(node NodeID, t Timestamp) error {
	if !sh.validNode(node) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	state := sh.states[node]
	if sh.graph.Node(node).Kind != NodeKindInput {
		return ErrNotInputNode
	}
	advanced := NewFrontier(t)
	for _, e := range state.admissible.Elements() {
		switch e.CausalOrder(t) {
		case OrderEqual, OrderGreater:
			return nil
		case OrderIncomparable:
			advanced.insert(e)
		}
	}
	state.admissible = advanced
	sh.enqueueFrontierWork(node)
	return nil
}

// enqueueFrontierWork schedules node for a deferred propagateFrontier pass,
// deduplicating against anything already queued.
func (sh *Shard) enqueueFrontierWork(node NodeID) {
	if sh.frontierQueued[node] {
		return
	}
	sh.frontierQueued[node] = true
	sh.frontierWork = append(sh.frontierWork, node)
}

// HasWork reports whether DoWork would find anything to do.
func (sh *Shard) HasWork() bool { return len(sh.pending) > 0 || len(sh.frontierWork) > 0 }

// DoWork processes exactly one queued work item and reports whether it did.
// A pending ChangeBatch arriving at one node's input port always takes
// priority over a deferred frontier propagation; only once no change batch
// remains queued does DoWork propagate one AdvanceInput's frontier change
// through the graph. Callers loop on HasWork/DoWork to drain the Shard;
// this bounded-step contract is what lets a caller interleave a Shard with
// other work instead of running it to completion in one call.
func (sh *Shard) DoWork(ctx context.Context) bool {
	if len(sh.pending) > 0 {
		idx := sh.nextPendingIndex()
		item := sh.pending[idx]
		sh.pending = append(sh.pending[:idx], sh.pending[idx+1:]...)
		sh.metrics.observePendingLength(len(sh.pending))
		sh.processItem(ctx, item)
		return true
	}
	if len(sh.frontierWork) > 0 {
		node := sh.frontierWork[0]
		sh.frontierWork = sh.frontierWork[1:]
		delete(sh.frontierQueued, node)
		sh.propagateFrontier(node)
		return true
	}
	return false
}

// nextPendingIndex selects, among the oldest queued item of each input
// port, the one whose pointstamp sorts least under couldResultInLess, so
// the executor always makes progress on the causally-earliest outstanding
// work first while each port still sees its batches in enqueue order. Plain
// FIFO order would also be causally valid (a producer never enqueues
// downstream of itself before finishing), but processing in could-result-in
// order keeps a cyclic graph's loop body from running arbitrarily far ahead
// of the outer timestamps that feed it.
func (sh *Shard) nextPendingIndex() int {
	best := 0
	bestPoint := sh.pendingPointstamp(sh.pending[0])
	seen := map[NodeInput]bool{sh.pending[0].Target: true}
	for i := 1; i < len(sh.pending); i++ {
		if seen[sh.pending[i].Target] {
			continue
		}
		seen[sh.pending[i].Target] = true
		p := sh.pendingPointstamp(sh.pending[i])
		if couldResultInLess(sh.graph, p, bestPoint) {
			best, bestPoint = i, p
		}
	}
	return best
}

func (sh *Shard) pendingPointstamp(item pendingItem) Pointstamp {
	elems := item.Batch.LowerBound().Elements()
	ts := elems[0]
	for _, e := range elems[1:] {
		if e.LexicalOrder(ts) < 0 {
			ts = e
		}
	}
	return Pointstamp{Input: item.Target, Timestamp: ts}
}

// PopOutput dequeues the oldest unpopped ChangeBatch from an Output node.
// It reports false if node has nothing queued. node must be a
// NodeKindOutput node.
func (sh *Shard) PopOutput(node NodeID) (*ChangeBatch, bool, error) {
	if !sh.validNode(node) {
		return nil, false, fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	state := sh.states[node]
	if sh.graph.Node(node).Kind != NodeKindOutput {
		return nil, false, ErrNotOutputNode
	}
	if len(state.outputQueue) == 0 {
		return nil, false, nil
	}
	batch := state.outputQueue[0]
	state.outputQueue = state.outputQueue[1:]
	return batch, true, nil
}

// OutputFrontier returns a clone of node's current output frontier: the
// antichain such that no further change at a timestamp strictly before
// every element will be produced (see Frontier.HasPassed). Valid for any
// node, not only NodeKindOutput nodes.
func (sh *Shard) OutputFrontier(node NodeID) (*Frontier, error) {
	if !sh.validNode(node) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	return sh.states[node].outputFrontier.Clone(), nil
}

// routeOutput enqueues batch as a pending work item for every downstream
// consumer of producer. The same *ChangeBatch is shared by reference across
// every consumer; ChangeBatch is immutable, so this is safe.
func (sh *Shard) routeOutput(producer NodeID, batch *ChangeBatch) {
	for _, target := range sh.graph.Downstream(producer) {
		sh.pending = append(sh.pending, pendingItem{Target: target, Batch: batch})
	}
	sh.metrics.observePendingLength(len(sh.pending))
	if len(sh.graph.Downstream(producer)) > 0 {
		sh.emit(emit.KindOutputProduced, producer, map[string]any{"changes": batch.Len()})
	}
}
