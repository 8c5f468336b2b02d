package engine

// Pointstamp locates one unit of queued work: a ChangeBatch sitting at
// NodeInput, represented by the lexically least Timestamp of its lower
// bound. The executor uses pointstamps only to choose which pending batch
// DoWork processes next (see Shard.nextPendingIndex); it keeps no per-
// pointstamp counts.
type Pointstamp struct {
	Input     NodeInput
	Timestamp Timestamp
}

func (p Pointstamp) key() string {
	return p.Timestamp.Key() + "|" + nodeInputKey(p.Input)
}

func nodeInputKey(in NodeInput) string {
	// Small fixed-cardinality key; avoids importing strconv for two ints.
	buf := make([]byte, 0, 16)
	buf = appendInt(buf, int(in.Node))
	buf = append(buf, ':')
	buf = appendInt(buf, in.Port)
	return string(buf)
}

func appendInt(buf []byte, n int) []byte {
	if n == 0 {
		return append(buf, '0')
	}
	neg := n < 0
	if neg {
		n = -n
	}
	start := len(buf)
	for n > 0 {
		buf = append(buf, byte('0'+n%10))
		n /= 10
	}
	if neg {
		buf = append(buf, '-')
	}
	// reverse the digits just appended
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

// couldResultInLess implements the "could-result-in" total order the
// executor uses to pick which outstanding pointstamp to process next. It
// must refine causal order (if a's timestamp is causally before b's at a
// shared scope, a sorts first) while still producing a strict total order
// over pointstamps whose timestamps are causally incomparable, so draining
// always terminates.
//
// The comparison walks g's scope-path from the root down to the deeper of
// a's and b's subgraphs. At each shared depth it compares the timestamp
// coordinate introduced at that depth (the trailing coordinate of the
// Timestamp as observed at that scope); a mismatch there decides the order
// outright, since a strictly smaller loop-iteration coordinate can only ever
// produce timestamps that are themselves smaller or incomparable, never
// greater, at every descendant scope. If every shared-depth coordinate ties,
// the pointstamp in the shallower subgraph (closer to the root, i.e. not yet
// pushed into the loop the other one is inside) sorts first. Remaining ties
// fall through to node ID, then port.
func couldResultInLess(g *Graph, a, b Pointstamp) bool {
	pathA := g.ScopePath(g.Node(a.Input.Node).Subgraph)
	pathB := g.ScopePath(g.Node(b.Input.Node).Subgraph)

	shared := len(pathA)
	if len(pathB) < shared {
		shared = len(pathB)
	}
	for depth := 0; depth < shared; depth++ {
		// The subgraph at depth d contributes coordinate d: the root scope's
		// own coordinate is index 0, the first loop-nesting level's index 1.
		ca := timestampCoordAt(a.Timestamp, depth)
		cb := timestampCoordAt(b.Timestamp, depth)
		if ca != cb {
			return ca < cb
		}
	}
	if len(pathA) != len(pathB) {
		return len(pathA) < len(pathB)
	}
	if a.Input.Node != b.Input.Node {
		return a.Input.Node < b.Input.Node
	}
	return a.Input.Port < b.Input.Port
}

// timestampCoordAt returns t's coordinate at index i, or 0 if t is not that
// deep (a timestamp from an outer scope has no coordinate for an inner
// scope's loop, and is treated as the least possible value there).
func timestampCoordAt(t Timestamp, i int) uint64 {
	if i < 0 || i >= len(t) {
		return 0
	}
	return t[i]
}
