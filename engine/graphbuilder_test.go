package engine

import (
	"context"
	"testing"
)

func TestGraphBuilderRejectsForwardReference(t *testing.T) {
	b := NewGraphBuilder()
	future := NodeID(7)
	b.Map(NodeInput{Node: future}, MapperFunc(func(_ context.Context, r Row) Row { return r }))
	if _, err := b.Finish(); err == nil {
		t.Fatal("expected an error referencing a node that does not exist yet")
	}
}

func TestGraphBuilderJoinRequiresIndexableInputs(t *testing.T) {
	b := NewGraphBuilder()
	in := b.Input(RootSubgraph)
	mapped := b.Map(NodeInput{Node: in}, MapperFunc(func(_ context.Context, r Row) Row { return r }))
	b.Join(NodeInput{Node: mapped}, NodeInput{Node: mapped}, 1)
	if _, err := b.Finish(); err == nil {
		t.Fatal("expected an error: Map is not indexable, Join should reject it")
	}
}

func TestGraphBuilderTimestampIncrementRequiresLoopInput(t *testing.T) {
	b := NewGraphBuilder()
	sub := b.NewSubgraph(RootSubgraph)
	b.TimestampIncrement(sub)
	if _, err := b.Finish(); err == nil {
		t.Fatal("expected an error: TimestampIncrement with no bound input")
	}
}

func TestGraphBuilderFinishSucceedsOnValidGraph(t *testing.T) {
	b := NewGraphBuilder()
	in := b.Input(RootSubgraph)
	idx := b.Index(NodeInput{Node: in})
	b.Output(NodeInput{Node: idx})
	g, err := b.Finish()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.NodeCount() != 3 {
		t.Fatalf("NodeCount = %d, want 3", g.NodeCount())
	}
}
