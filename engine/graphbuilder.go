package engine

import "fmt"

// GraphBuilder assembles a Graph one node at a time. The zero value is not
// usable; construct one with NewGraphBuilder, which pre-creates the root
// subgraph (ID 0).
type GraphBuilder struct {
	nodes     []NodeSpec
	subgraphs []Subgraph
	err       error
}

// NewGraphBuilder returns a GraphBuilder with a single root subgraph.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{subgraphs: []Subgraph{{ID: 0, Parent: -1, Depth: 0}}}
}

// RootSubgraph is the ID of the outermost scope, always 0.
const RootSubgraph = 0

func (b *GraphBuilder) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
}

func (b *GraphBuilder) validSubgraph(s int) bool {
	return s >= 0 && s < len(b.subgraphs)
}

func (b *GraphBuilder) validInput(in NodeInput, subgraph int) bool {
	if in.Node < 0 || int(in.Node) >= len(b.nodes) {
		return false
	}
	return b.nodes[in.Node].Subgraph == subgraph
}

func (b *GraphBuilder) add(spec NodeSpec) NodeID {
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, spec)
	return id
}

// Input adds a source node to subgraph, fed only via Shard.PushInput.
func (b *GraphBuilder) Input(subgraph int) NodeID {
	if !b.validSubgraph(subgraph) {
		b.fail("dflow: Input: subgraph %d does not exist", subgraph)
		return -1
	}
	return b.add(NodeSpec{Kind: NodeKindInput, Subgraph: subgraph})
}

// Map adds a row-mapping node reading from in, in the same subgraph as in.
func (b *GraphBuilder) Map(in NodeInput, fn Mapper) NodeID {
	subgraph := b.inputSubgraph(in)
	if !b.validInput(in, subgraph) {
		b.fail("dflow: Map: input %v is not an earlier node in subgraph %d", in, subgraph)
		return -1
	}
	return b.add(NodeSpec{Kind: NodeKindMap, Subgraph: subgraph, Inputs: []NodeInput{in}, MapFn: fn})
}

// inputSubgraph returns the subgraph of in.Node, or -1 if in.Node is out of
// range (deferring the real error to the caller's validInput check so every
// constructor reports one consistent message).
func (b *GraphBuilder) inputSubgraph(in NodeInput) int {
	if in.Node < 0 || int(in.Node) >= len(b.nodes) {
		return -1
	}
	return b.nodes[in.Node].Subgraph
}

// Index adds a materializing node reading from in.
func (b *GraphBuilder) Index(in NodeInput) NodeID {
	subgraph := b.inputSubgraph(in)
	if !b.validInput(in, subgraph) {
		b.fail("dflow: Index: input %v is not an earlier node in subgraph %d", in, subgraph)
		return -1
	}
	return b.add(NodeSpec{Kind: NodeKindIndex, Subgraph: subgraph, Inputs: []NodeInput{in}})
}

// Join adds a node probing left and right's materialized Indexes against
// each other by their leading keyColumns columns. Both inputs must reference
// an indexable node (Index, Distinct, or Reduce) in the same subgraph.
func (b *GraphBuilder) Join(left, right NodeInput, keyColumns int) NodeID {
	subgraph := b.inputSubgraph(left)
	if !b.validIndexableInput(left, subgraph) {
		b.fail("dflow: Join: left input %v is not an earlier indexable node in subgraph %d", left, subgraph)
		return -1
	}
	if !b.validIndexableInput(right, subgraph) {
		b.fail("dflow: Join: right input %v is not an earlier indexable node in subgraph %d", right, subgraph)
		return -1
	}
	return b.add(NodeSpec{
		Kind: NodeKindJoin, Subgraph: subgraph,
		Inputs: []NodeInput{left, right}, KeyColumns: keyColumns,
	})
}

func (b *GraphBuilder) validIndexableInput(in NodeInput, subgraph int) bool {
	if !b.validInput(in, subgraph) {
		return false
	}
	return b.nodes[in.Node].Kind.isIndexable()
}

// Output adds a node that queues in's batches for Shard.PopOutput.
func (b *GraphBuilder) Output(in NodeInput) NodeID {
	subgraph := b.inputSubgraph(in)
	if !b.validInput(in, subgraph) {
		b.fail("dflow: Output: input %v is not an earlier node in subgraph %d", in, subgraph)
		return -1
	}
	return b.add(NodeSpec{Kind: NodeKindOutput, Subgraph: subgraph, Inputs: []NodeInput{in}})
}

// Union adds a node forwarding both a and b's batches unchanged. Both
// inputs must be earlier nodes in the same subgraph.
func (b *GraphBuilder) Union(a, bIn NodeInput) NodeID {
	subgraph := b.inputSubgraph(a)
	if !b.validInput(a, subgraph) {
		b.fail("dflow: Union: input %v is not an earlier node in subgraph %d", a, subgraph)
		return -1
	}
	if !b.validInput(bIn, subgraph) {
		b.fail("dflow: Union: input %v is not an earlier node in subgraph %d", bIn, subgraph)
		return -1
	}
	return b.add(NodeSpec{Kind: NodeKindUnion, Subgraph: subgraph, Inputs: []NodeInput{a, bIn}})
}

// Distinct adds a node materializing its own Index, capping each row's
// multiplicity at 1. Its input must be an earlier indexable node.
func (b *GraphBuilder) Distinct(in NodeInput) NodeID {
	subgraph := b.inputSubgraph(in)
	if !b.validIndexableInput(in, subgraph) {
		b.fail("dflow: Distinct: input %v is not an earlier indexable node in subgraph %d", in, subgraph)
		return -1
	}
	return b.add(NodeSpec{Kind: NodeKindDistinct, Subgraph: subgraph, Inputs: []NodeInput{in}})
}

// Reduce adds a node folding every row sharing its leading keyColumns
// columns into one output row via fn. Its input must be an earlier
// indexable node. See reduce.go: this constructor exists regardless of the
// "noreduce" build tag, but the Shard only dispatches NodeKindReduce work
// when built without it.
func (b *GraphBuilder) Reduce(in NodeInput, keyColumns int, fn Reducer) NodeID {
	if !reduceEnabled {
		b.fail("dflow: Reduce: this build excludes the Reduce node (built with -tags noreduce)")
		return -1
	}
	subgraph := b.inputSubgraph(in)
	if !b.validIndexableInput(in, subgraph) {
		b.fail("dflow: Reduce: input %v is not an earlier indexable node in subgraph %d", in, subgraph)
		return -1
	}
	return b.add(NodeSpec{
		Kind: NodeKindReduce, Subgraph: subgraph,
		Inputs: []NodeInput{in}, KeyColumns: keyColumns, ReduceFn: fn,
	})
}

// NewSubgraph creates a new Subgraph nested one level inside parentSubgraph
// and returns its ID. Call it once per loop; every stream entering that
// loop then gets its own TimestampPush node targeting the same subgraph.
func (b *GraphBuilder) NewSubgraph(parentSubgraph int) int {
	if !b.validSubgraph(parentSubgraph) {
		b.fail("dflow: NewSubgraph: subgraph %d does not exist", parentSubgraph)
		return -1
	}
	child := Subgraph{
		ID:     len(b.subgraphs),
		Parent: parentSubgraph,
		Depth:  b.subgraphs[parentSubgraph].Depth + 1,
	}
	b.subgraphs = append(b.subgraphs, child)
	return child.ID
}

// TimestampPush adds a node, living in subgraph, that reads in (which must
// be in subgraph's Parent) and appends a 0 coordinate to every change's
// timestamp. subgraph must already exist (see NewSubgraph); multiple
// TimestampPush nodes, one per stream entering a loop, target the same
// subgraph.
func (b *GraphBuilder) TimestampPush(subgraph int, in NodeInput) NodeID {
	if !b.validSubgraph(subgraph) {
		b.fail("dflow: TimestampPush: subgraph %d does not exist", subgraph)
		return -1
	}
	parent := b.subgraphs[subgraph].Parent
	if !b.validInput(in, parent) {
		b.fail("dflow: TimestampPush: input %v is not an earlier node in subgraph %d", in, parent)
		return -1
	}
	return b.add(NodeSpec{Kind: NodeKindTimestampPush, Subgraph: subgraph, Inputs: []NodeInput{in}})
}

// TimestampIncrement adds a node in subgraph with no input yet; its input
// must be bound afterward with SetLoopInput once the node that produces the
// loop's feedback edge exists, which is necessarily later in node order.
// This is the one exception to every other constructor's earlier-node rule:
// the whole point of TimestampIncrement is to close a cycle.
func (b *GraphBuilder) TimestampIncrement(subgraph int) NodeID {
	if !b.validSubgraph(subgraph) {
		b.fail("dflow: TimestampIncrement: subgraph %d does not exist", subgraph)
		return -1
	}
	return b.add(NodeSpec{Kind: NodeKindTimestampIncrement, Subgraph: subgraph})
}

// SetLoopInput binds a previously-created TimestampIncrement node's input.
// in must be in the same subgraph as id, and id must in fact be a
// TimestampIncrement node with no input bound yet.
func (b *GraphBuilder) SetLoopInput(id NodeID, in NodeInput) {
	if id < 0 || int(id) >= len(b.nodes) {
		b.fail("dflow: SetLoopInput: node %d does not exist", id)
		return
	}
	spec := &b.nodes[id]
	if spec.Kind != NodeKindTimestampIncrement {
		b.fail("dflow: SetLoopInput: node %d is not a TimestampIncrement node", id)
		return
	}
	if len(spec.Inputs) != 0 {
		b.fail("dflow: SetLoopInput: node %d already has an input bound", id)
		return
	}
	if in.Node < 0 || int(in.Node) >= len(b.nodes) || b.nodes[in.Node].Subgraph != spec.Subgraph {
		b.fail("dflow: SetLoopInput: input %v is not in subgraph %d", in, spec.Subgraph)
		return
	}
	spec.Inputs = []NodeInput{in}
}

// TimestampPop adds a node in in's parent Subgraph that reads in (which must
// be in a non-root Subgraph) and drops the trailing timestamp coordinate
// from every change, returning to the outer scope.
func (b *GraphBuilder) TimestampPop(in NodeInput) NodeID {
	innerSubgraph := b.inputSubgraph(in)
	if innerSubgraph < 0 || !b.validInput(in, innerSubgraph) {
		b.fail("dflow: TimestampPop: input %v is not an earlier node", in)
		return -1
	}
	if innerSubgraph == RootSubgraph {
		b.fail("dflow: TimestampPop: input %v is in the root subgraph, which cannot be popped", in)
		return -1
	}
	parent := b.subgraphs[innerSubgraph].Parent
	return b.add(NodeSpec{Kind: NodeKindTimestampPop, Subgraph: parent, Inputs: []NodeInput{in}})
}

// Finish validates the accumulated nodes and subgraphs and, if valid,
// returns a frozen Graph. Validation checks, beyond what each constructor
// already enforced inline:
//
//   - every TimestampIncrement node has had its input bound via
//     SetLoopInput, and that input is in the same subgraph;
//   - no constructor call failed (b.err is nil).
//
// On failure, Finish returns a nil *Graph and a non-nil error describing the
// first problem encountered; it never panics, since a malformed graph
// description is a recoverable construction-time error, not a programmer
// bug in the executor.
func (b *GraphBuilder) Finish() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	for id, n := range b.nodes {
		if n.Kind == NodeKindTimestampIncrement && len(n.Inputs) == 0 {
			return nil, fmt.Errorf("dflow: TimestampIncrement node %d has no input bound; call SetLoopInput", id)
		}
	}

	g := &Graph{
		nodes:      b.nodes,
		subgraphs:  b.subgraphs,
		downstream: make([][]NodeInput, len(b.nodes)),
	}
	for id, n := range b.nodes {
		for port, in := range n.Inputs {
			g.downstream[in.Node] = append(g.downstream[in.Node], NodeInput{Node: NodeID(id), Port: port})
		}
	}

	g.scopePath = make([][]int, len(b.subgraphs))
	for _, sg := range b.subgraphs {
		var path []int
		for cur := sg.ID; cur != -1; cur = b.subgraphs[cur].Parent {
			path = append([]int{cur}, path...)
		}
		g.scopePath[sg.ID] = path
	}

	return g, nil
}
