package engine

import (
	"context"
	"sort"

	"github.com/jspahn/dflow/engine/emit"
)

// processItem applies one queued ChangeBatch to the node it targets,
// dispatching on the node's Kind, and routes whatever output that produces
// to the node's own downstream consumers.
func (sh *Shard) processItem(ctx context.Context, item pendingItem) {
	node := item.Target.Node
	spec := sh.graph.Node(node)
	state := sh.states[node]

	switch spec.Kind {
	case NodeKindMap:
		builder := NewChangeBatchBuilder()
		for _, c := range item.Batch.Changes() {
			builder.Add(Change{Row: spec.MapFn.Map(ctx, c.Row), Timestamp: c.Timestamp, Diff: c.Diff})
		}
		if out, ok := builder.finishInternal(); ok {
			sh.routeOutput(node, out)
		}

	case NodeKindIndex:
		sh.holdIndexChanges(state, item.Batch)
		sh.propagateFrontier(node)

	case NodeKindUnion:
		sh.routeOutput(node, item.Batch)

	case NodeKindJoin:
		sh.processJoin(node, spec, item)

	case NodeKindTimestampPush:
		sh.routeTransformed(node, item.Batch, func(t Timestamp) Timestamp { return t.PushCoord() })

	case NodeKindTimestampPop:
		sh.routeTransformed(node, item.Batch, func(t Timestamp) Timestamp { return t.PopCoord() })

	case NodeKindTimestampIncrement:
		sh.routeTransformed(node, item.Batch, func(t Timestamp) Timestamp { return t.IncrementCoord() })

	case NodeKindOutput:
		state.outputQueue = append(state.outputQueue, item.Batch)

	case NodeKindDistinct, NodeKindReduce:
		sh.markDirty(node, state, item.Batch)
		sh.propagateFrontier(node)
	}

	sh.metrics.observeProcessed(spec.Kind, item.Batch.Len())
	sh.emit(emit.KindNodeProcessed, node, map[string]any{"kind": spec.Kind.String(), "changes": item.Batch.Len()})
}

// routeTransformed rewrites every change's timestamp through fn, preserving
// Row and Diff, and routes the result onward.
func (sh *Shard) routeTransformed(node NodeID, batch *ChangeBatch, fn func(Timestamp) Timestamp) {
	builder := NewChangeBatchBuilder()
	for _, c := range batch.Changes() {
		builder.Add(Change{Row: c.Row, Timestamp: fn(c.Timestamp), Diff: c.Diff})
	}
	if out, ok := builder.finishInternal(); ok {
		sh.routeOutput(node, out)
	}
}

// markDirty appends batch into a Distinct/Reduce node's raw materialized
// input and flags every timestamp it touches as dirty, holding a capability
// open for each so the node's output frontier cannot advance past it until
// releaseReady recomputes and releases it.
func (sh *Shard) markDirty(node NodeID, state *nodeState, batch *ChangeBatch) {
	state.rawIndex.Append(batch)
	for _, c := range batch.Changes() {
		key := c.Timestamp.Key()
		if _, exists := state.dirty[key]; exists {
			continue
		}
		state.dirty[key] = c.Timestamp
		var changes []FrontierChange
		state.dirtyHold.Update(c.Timestamp, 1, &changes)
	}
}

// holdIndexChanges buffers batch's raw changes per timestamp and flags each
// as dirty, the same capability-holding pattern markDirty uses: an Index
// node does not materialize or forward a change the instant it arrives, it
// waits until the input frontier has passed the change's own timestamp (see
// computeIndexDelta, released through Shard.releaseReady).
func (sh *Shard) holdIndexChanges(state *nodeState, batch *ChangeBatch) {
	for _, c := range batch.Changes() {
		key := c.Timestamp.Key()
		state.pendingChanges[key] = append(state.pendingChanges[key], c)
		if _, exists := state.dirty[key]; exists {
			continue
		}
		state.dirty[key] = c.Timestamp
		var changes []FrontierChange
		state.dirtyHold.Update(c.Timestamp, 1, &changes)
	}
}

// computeIndexDelta returns the raw changes buffered for t, unlike
// computeDistinctDelta/computeReduceDelta it recomputes nothing: an Index
// just forwards what arrived at t, once the input frontier has passed it.
func (sh *Shard) computeIndexDelta(_ NodeID, _ NodeSpec, state *nodeState, t Timestamp) *ChangeBatch {
	key := t.Key()
	changes := state.pendingChanges[key]
	delete(state.pendingChanges, key)
	builder := NewChangeBatchBuilder()
	for _, c := range changes {
		builder.Add(c)
	}
	out, ok := builder.finishInternal()
	if !ok {
		return nil
	}
	return out
}

// processJoin reacts to a batch arriving at one side of a Join by probing
// the other side's materialized Index as-of each change's own timestamp.
// This is the standard bilinear delta rule (delta-left times right-as-of,
// or symmetrically delta-right times left-as-of); since every producer
// finishes appending to its own Index before the corresponding batch is
// routed onward, the "as-of" snapshot always reflects everything causally
// available at the time this change was produced.
func (sh *Shard) processJoin(node NodeID, spec NodeSpec, item pendingItem) {
	otherPort := 1 - item.Target.Port
	otherState := sh.states[spec.Inputs[otherPort].Node]

	builder := NewChangeBatchBuilder()
	for _, c := range item.Batch.Changes() {
		otherBag := otherState.index.BagAsOf(c.Timestamp)
		key := rowKeyPrefix(c.Row, spec.KeyColumns)
		otherBag.Each(func(row Row, count int) {
			if rowKeyPrefix(row, spec.KeyColumns) != key {
				return
			}
			var combined Row
			if item.Target.Port == 0 {
				combined = concatRows(c.Row, row)
			} else {
				combined = concatRows(row, c.Row)
			}
			builder.Add(Change{Row: combined, Timestamp: c.Timestamp, Diff: c.Diff * count})
		})
	}
	if out, ok := builder.finishInternal(); ok {
		sh.routeOutput(node, out)
	}
}

func rowKeyPrefix(row Row, keyColumns int) string {
	if keyColumns > len(row) {
		keyColumns = len(row)
	}
	return row[:keyColumns].Key()
}

// propagateFrontier recomputes the output frontier of every node reachable
// from seed, to a fixpoint, breadth-first. Every recomputation is a pure
// function of already-published upstream frontiers (and, for Distinct and
// Reduce, their own monotonically-shrinking dirty hold), so repeatedly
// applying it converges: this is the same worklist-to-fixpoint shape the
// progress-tracking protocol in a cyclic dataflow graph requires.
func (sh *Shard) propagateFrontier(seed NodeID) {
	queued := make(map[NodeID]bool)
	queue := []NodeID{seed}
	queued[seed] = true

	push := func(id NodeID) {
		if !queued[id] {
			queued[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		if sh.recomputeOutputFrontier(id) {
			sh.metrics.observeFrontierAdvance(sh.graph.Node(id).Kind)
			sh.emit(emit.KindFrontierAdvanced, id, map[string]any{"frontier": sh.states[id].outputFrontier.String()})
			for _, target := range sh.graph.Downstream(id) {
				push(target.Node)
			}
		}
	}
}

func (sh *Shard) upstreamFrontier(in NodeInput) *Frontier {
	return sh.states[in.Node].outputFrontier
}

// recomputeOutputFrontier derives node's output frontier from its current
// upstream(s) and, for Index/Distinct/Reduce, releases any dirty timestamp
// the upstream frontier has now passed (forwarding it verbatim for Index,
// recomputing a delta for Distinct/Reduce). It reports whether the output
// frontier actually changed.
func (sh *Shard) recomputeOutputFrontier(node NodeID) bool {
	spec := sh.graph.Node(node)
	state := sh.states[node]
	old := state.outputFrontier

	var fresh *Frontier
	switch spec.Kind {
	case NodeKindInput:
		fresh = state.admissible.Clone()

	case NodeKindMap, NodeKindOutput:
		fresh = sh.upstreamFrontier(spec.Inputs[0]).Clone()

	case NodeKindIndex:
		upstream := sh.upstreamFrontier(spec.Inputs[0])
		sh.releaseReady(node, spec, state, upstream, sh.computeIndexDelta)
		fresh = meetFrontiers(upstream, state.dirtyHold.Frontier())

	case NodeKindTimestampPush:
		fresh = mapFrontier(sh.upstreamFrontier(spec.Inputs[0]), func(t Timestamp) Timestamp { return t.PushCoord() })
	case NodeKindTimestampPop:
		fresh = mapFrontier(sh.upstreamFrontier(spec.Inputs[0]), func(t Timestamp) Timestamp { return t.PopCoord() })
	case NodeKindTimestampIncrement:
		fresh = mapFrontier(sh.upstreamFrontier(spec.Inputs[0]), func(t Timestamp) Timestamp { return t.IncrementCoord() })

	case NodeKindUnion, NodeKindJoin:
		fresh = meetFrontiers(sh.upstreamFrontier(spec.Inputs[0]), sh.upstreamFrontier(spec.Inputs[1]))

	case NodeKindDistinct:
		upstream := sh.upstreamFrontier(spec.Inputs[0])
		sh.releaseReady(node, spec, state, upstream, sh.computeDistinctDelta)
		fresh = meetFrontiers(upstream, state.dirtyHold.Frontier())

	case NodeKindReduce:
		upstream := sh.upstreamFrontier(spec.Inputs[0])
		sh.releaseReady(node, spec, state, upstream, sh.computeReduceDelta)
		fresh = meetFrontiers(upstream, state.dirtyHold.Frontier())
	}

	if old.Equal(fresh) {
		return false
	}
	state.outputFrontier = fresh
	return true
}

// releaseReady finds every dirty timestamp on state that upstream has now
// passed, releases them in deterministic (lexical) order, and for each
// computes and routes a delta batch via compute.
func (sh *Shard) releaseReady(node NodeID, spec NodeSpec, state *nodeState, upstream *Frontier, compute func(NodeID, NodeSpec, *nodeState, Timestamp) *ChangeBatch) {
	var ready []Timestamp
	for _, t := range state.dirty {
		if upstream.HasPassed(t) {
			ready = append(ready, t)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].LexicalOrder(ready[j]) < 0 })

	for _, t := range ready {
		if out := compute(node, spec, state, t); out != nil {
			state.index.Append(out)
			sh.routeOutput(node, out)
		}
		delete(state.dirty, t.Key())
		var changes []FrontierChange
		state.dirtyHold.Update(t, -1, &changes)
		sh.metrics.observeRecompute(spec.Kind)
	}
}

// computeDistinctDelta recomputes whether each row in the node's raw input
// is present (count > 0) as-of t and diffs that against what was last
// emitted for it, emitting only the rows whose presence changed.
func (sh *Shard) computeDistinctDelta(node NodeID, spec NodeSpec, state *nodeState, t Timestamp) *ChangeBatch {
	bag := state.rawIndex.BagAsOf(t)
	present := make(map[string]bool)
	rows := make(map[string]Row)

	builder := NewChangeBatchBuilder()
	bag.Each(func(row Row, count int) {
		key := row.Key()
		rows[key] = row
		present[key] = count > 0
		if count > 0 && state.priorCounts["distinct"][key] != 1 {
			builder.Add(Change{Row: row, Timestamp: t, Diff: 1})
		}
	})
	for key, row := range state.priorRows {
		if !present[key] {
			builder.Add(Change{Row: row, Timestamp: t, Diff: -1})
		}
	}

	if state.priorCounts["distinct"] == nil {
		state.priorCounts["distinct"] = make(map[string]int)
	}
	next := make(map[string]int)
	nextRows := make(map[string]Row)
	for key, ok := range present {
		if ok {
			next[key] = 1
			nextRows[key] = rows[key]
		}
	}
	state.priorCounts["distinct"] = next
	state.priorRows = nextRows

	out, ok := builder.finishInternal()
	if !ok {
		sh.emit(emit.KindDistinctRecompute, node, map[string]any{"timestamp": t.String(), "changes": 0})
		return nil
	}
	sh.emit(emit.KindDistinctRecompute, node, map[string]any{"timestamp": t.String(), "changes": out.Len()})
	return out
}

// computeReduceDelta recomputes, per key-column-prefix group, the Reducer's
// fold over every row present as-of t (each row repeated according to its
// positive count; a row whose net count has gone negative is dropped from
// the group, an edge case the engine does not attempt to feed to Reducer),
// diffing against the group's last-emitted row.
func (sh *Shard) computeReduceDelta(node NodeID, spec NodeSpec, state *nodeState, t Timestamp) *ChangeBatch {
	bag := state.rawIndex.BagAsOf(t)
	groups := make(map[string][]Row)
	bag.Each(func(row Row, count int) {
		if count <= 0 {
			return
		}
		key := rowKeyPrefix(row, spec.KeyColumns)
		for i := 0; i < count; i++ {
			groups[key] = append(groups[key], row)
		}
	})

	builder := NewChangeBatchBuilder()
	seen := make(map[string]bool)
	for key, rows := range groups {
		seen[key] = true
		newRow := spec.ReduceFn.Reduce(context.Background(), rows)
		if state.priorHasRow[key] && state.priorReduced[key].Equal(newRow) {
			continue
		}
		if state.priorHasRow[key] {
			builder.Add(Change{Row: state.priorReduced[key], Timestamp: t, Diff: -1})
		}
		builder.Add(Change{Row: newRow, Timestamp: t, Diff: 1})
		state.priorReduced[key] = newRow
		state.priorHasRow[key] = true
	}
	for key := range state.priorReduced {
		if seen[key] {
			continue
		}
		builder.Add(Change{Row: state.priorReduced[key], Timestamp: t, Diff: -1})
		delete(state.priorReduced, key)
		delete(state.priorHasRow, key)
	}

	out, ok := builder.finishInternal()
	if !ok {
		sh.emit(emit.KindReduceRecompute, node, map[string]any{"timestamp": t.String(), "changes": 0})
		return nil
	}
	sh.emit(emit.KindReduceRecompute, node, map[string]any{"timestamp": t.String(), "changes": out.Len()})
	return out
}

// mapFrontier applies fn to every element of f and reduces the result back
// to a minimal antichain, since fn may make previously-incomparable
// elements comparable (TimestampPop, in particular, can collapse two
// elements that differed only in the coordinate it drops).
func mapFrontier(f *Frontier, fn func(Timestamp) Timestamp) *Frontier {
	out := NewFrontier()
	for _, e := range f.Elements() {
		out.Advance(fn(e))
	}
	return out
}

// meetFrontiers combines two frontiers into the frontier past which neither
// could ever again produce a change: the combined side has passed t only
// once BOTH inputs have passed it, so the result can be no further ahead
// than the slower (earlier) of the two, and is the minimal antichain of
// every pairwise greatest lower bound. An empty Frontier means "has passed
// everything" (see Frontier.CausalOrder), so when one side is empty it
// contributes no restriction and the combined frontier is simply the other
// side.
func meetFrontiers(a, b *Frontier) *Frontier {
	ae, be := a.Elements(), b.Elements()
	if len(ae) == 0 {
		return b.Clone()
	}
	if len(be) == 0 {
		return a.Clone()
	}
	out := NewFrontier()
	for _, x := range ae {
		for _, y := range be {
			out.Advance(x.GreatestLowerBound(y))
		}
	}
	return out
}
