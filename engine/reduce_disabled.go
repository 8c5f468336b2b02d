//go:build noreduce

package engine

// With the noreduce build tag, GraphBuilder.Reduce fails construction
// instead of silently building a graph the Shard cannot run.
const reduceEnabled = false
