package engine

// Subgraph is one level of timestamp nesting. Subgraph 0 is the root scope,
// present in every Graph. Every other Subgraph is created by
// GraphBuilder.NewSubgraph and is nested one level inside its Parent.
type Subgraph struct {
	ID     int
	Parent int // -1 for the root subgraph.
	Depth  int // 0 for the root subgraph.
}

// Graph is a frozen, validated dataflow: an ordered list of NodeSpecs plus
// their Subgraph nesting and the reverse (downstream) adjacency derived from
// Inputs. GraphBuilder.Finish produces the only Graphs that exist; there is
// no way to mutate one afterward.
type Graph struct {
	nodes      []NodeSpec
	subgraphs  []Subgraph
	downstream [][]NodeInput // downstream[n] = ports that read from node n
	scopePath  [][]int       // scopePath[subgraph] = root..subgraph inclusive
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Node returns the NodeSpec for id. Panics if id is out of range: every id
// the engine hands a caller was produced by this same Graph's builder.
func (g *Graph) Node(id NodeID) NodeSpec { return g.nodes[id] }

// Subgraph returns the Subgraph for subgraphID.
func (g *Graph) Subgraph(subgraphID int) Subgraph { return g.subgraphs[subgraphID] }

// SubgraphCount returns the number of subgraphs, including the root.
func (g *Graph) SubgraphCount() int { return len(g.subgraphs) }

// Downstream returns the NodeInput ports that consume node id's output.
// Callers must not mutate the returned slice.
func (g *Graph) Downstream(id NodeID) []NodeInput { return g.downstream[id] }

// ScopePath returns the chain of subgraph IDs from the root subgraph (index
// 0 of the result) down to subgraphID (the last element), inclusive. Used by
// the could-result-in pointstamp comparator to walk shared scope prefixes.
func (g *Graph) ScopePath(subgraphID int) []int {
	path := g.scopePath[subgraphID]
	out := make([]int, len(path))
	copy(out, path)
	return out
}
