package engine

import "context"

// NodeID is the opaque integer identity of a node within a Graph.
type NodeID int

// NodeInput pairs a Node with an input-port index. Most operators have a
// single input (port 0); Join and Union have two (ports 0 and 1).
type NodeInput struct {
	Node NodeID
	Port int
}

// NodeKind tags the variant held by a NodeSpec.
type NodeKind int

const (
	// NodeKindInput is a source node fed only via Shard.PushInput.
	NodeKindInput NodeKind = iota
	// NodeKindMap transforms each row through a Mapper, preserving
	// timestamp and diff.
	NodeKindMap
	// NodeKindIndex materializes its input into an append-only Index,
	// holding each change until the input frontier passes its timestamp.
	NodeKindIndex
	// NodeKindJoin probes its two inputs' Indexes against each other by a
	// shared key-column prefix.
	NodeKindJoin
	// NodeKindOutput queues its input's batches for an external caller to
	// pop.
	NodeKindOutput
	// NodeKindTimestampPush enters a nested scope, appending a 0
	// coordinate to every change's timestamp.
	NodeKindTimestampPush
	// NodeKindTimestampIncrement iterates a nested scope, incrementing
	// every change's trailing timestamp coordinate. Its input is
	// late-bound via GraphBuilder.SetLoopInput to close a feedback edge.
	NodeKindTimestampIncrement
	// NodeKindTimestampPop leaves a nested scope, dropping the trailing
	// timestamp coordinate from every change.
	NodeKindTimestampPop
	// NodeKindUnion forwards both inputs' batches unchanged.
	NodeKindUnion
	// NodeKindDistinct materializes a set (multiplicity capped at 1) from
	// its input bag.
	NodeKindDistinct
	// NodeKindReduce folds every row sharing a key-column prefix into one
	// output row via a Reducer. See SPEC_FULL.md §3.1: this variant is
	// feature-gated behind the "noreduce" build tag (reduce.go).
	NodeKindReduce
)

// String names a NodeKind for debug output and DebugEvent metadata.
func (k NodeKind) String() string {
	switch k {
	case NodeKindInput:
		return "Input"
	case NodeKindMap:
		return "Map"
	case NodeKindIndex:
		return "Index"
	case NodeKindJoin:
		return "Join"
	case NodeKindOutput:
		return "Output"
	case NodeKindTimestampPush:
		return "TimestampPush"
	case NodeKindTimestampIncrement:
		return "TimestampIncrement"
	case NodeKindTimestampPop:
		return "TimestampPop"
	case NodeKindUnion:
		return "Union"
	case NodeKindDistinct:
		return "Distinct"
	case NodeKindReduce:
		return "Reduce"
	default:
		return "Unknown"
	}
}

// isIndexable reports whether a node of this kind materializes its own
// Index, making it a valid input to Join, Distinct, or Reduce.
func (k NodeKind) isIndexable() bool {
	switch k {
	case NodeKindIndex, NodeKindDistinct, NodeKindReduce:
		return true
	default:
		return false
	}
}

// Mapper transforms one Row into another. The engine never reflects on a
// Mapper; it only ever calls Map on a Row and uses the Row it returns.
//
// MapperFunc adapts a plain function to the Mapper interface, the same
// function-adapter shape used throughout this engine's teacher lineage
// (compare NodeFunc over the Node interface).
type Mapper interface {
	Map(ctx context.Context, row Row) Row
}

// MapperFunc adapts a function to Mapper.
type MapperFunc func(ctx context.Context, row Row) Row

// Map implements Mapper.
func (f MapperFunc) Map(ctx context.Context, row Row) Row { return f(ctx, row) }

// Reducer folds every Row sharing a Reduce node's key-column prefix into a
// single output Row. Like Mapper, the engine only ever invokes Reduce; it
// never reflects on the capability supplied.
type Reducer interface {
	Reduce(ctx context.Context, rows []Row) Row
}

// ReducerFunc adapts a function to Reducer.
type ReducerFunc func(ctx context.Context, rows []Row) Row

// Reduce implements Reducer.
func (f ReducerFunc) Reduce(ctx context.Context, rows []Row) Row { return f(ctx, rows) }

// NodeSpec is the tagged-variant description of one graph node, as
// assembled by GraphBuilder. All fields are set by the corresponding
// GraphBuilder constructor method for Kind; fields irrelevant to a given
// Kind are left zero.
type NodeSpec struct {
	Kind     NodeKind
	Subgraph int

	// Inputs holds this node's input ports in order. Its length depends on
	// Kind: 0 for Input, 1 for Map/Index/TimestampPush/TimestampPop/
	// Distinct/Reduce, 2 for Join/Union. TimestampIncrement also has
	// exactly 1, set after construction via GraphBuilder.SetLoopInput.
	Inputs []NodeInput

	// KeyColumns is the leading-column prefix length used by Join (to
	// match the two inputs) and Reduce (to group rows).
	KeyColumns int

	// MapFn is invoked per-row by a NodeKindMap node.
	MapFn Mapper

	// ReduceFn is invoked per-group by a NodeKindReduce node.
	ReduceFn Reducer
}
