//go:build !noreduce

package engine

// This file's presence enables GraphBuilder.Reduce (see graphbuilder.go,
// node.go). The Shard's NodeKindReduce dispatch in shard_ops.go is compiled
// either way; without this file no Reduce node can be built. Reduce was an open
// question left by the original specification of this engine: whether a
// general fold-by-key belonged alongside Distinct's fixed set-collapse. It
// is included by default; build with -tags noreduce to exclude it and
// confirm a consumer's graph does not depend on it.
//
// reduceEnabled exists purely so a "noreduce"-tagged build fails loudly at
// GraphBuilder.Reduce time rather than silently compiling a graph it
// cannot run; reduce_disabled.go overrides it.
const reduceEnabled = true
