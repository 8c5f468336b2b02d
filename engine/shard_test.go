package engine_test

import (
	"context"
	"sort"
	"testing"

	"github.com/jspahn/dflow/engine"
	"github.com/jspahn/dflow/engine/emit"
)

func drain(t *testing.T, sh *engine.Shard) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 10000 && sh.HasWork(); i++ {
		sh.DoWork(ctx)
	}
	if sh.HasWork() {
		t.Fatal("shard still has work after 10000 steps; suspected non-termination")
	}
}

func popAllStrings(t *testing.T, sh *engine.Shard, node engine.NodeID) []string {
	t.Helper()
	var out []string
	for {
		batch, ok, err := sh.PopOutput(node)
		if err != nil {
			t.Fatalf("PopOutput: %v", err)
		}
		if !ok {
			break
		}
		for _, c := range batch.Changes() {
			if c.Diff <= 0 {
				continue
			}
			s, _ := c.Row[0].AsString()
			for i := 0; i < c.Diff; i++ {
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

func TestShardStampsEventsWithItsOwnRunID(t *testing.T) {
	b := engine.NewGraphBuilder()
	in := b.Input(engine.RootSubgraph)
	b.Output(engine.NodeInput{Node: in})
	g, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	buf := emit.NewBuffered()
	sh := engine.NewShard(g, engine.WithEmitter(buf))
	other := engine.NewShard(g)

	if sh.RunID() == "" {
		t.Fatal("RunID should not be empty")
	}
	if sh.RunID() == other.RunID() {
		t.Fatal("two Shards should not mint the same RunID")
	}

	if err := sh.PushInput(in, engine.Row{engine.Number(1)}, engine.Timestamp{0}, 1); err != nil {
		t.Fatalf("PushInput: %v", err)
	}

	events := buf.Events()
	if len(events) == 0 {
		t.Fatal("expected at least one Event from PushInput")
	}
	for _, e := range events {
		if e.RunID != sh.RunID() {
			t.Errorf("event RunID = %q, want %q", e.RunID, sh.RunID())
		}
	}
}

func TestShardMapDoublesEachValue(t *testing.T) {
	b := engine.NewGraphBuilder()
	in := b.Input(engine.RootSubgraph)
	mapped := b.Map(engine.NodeInput{Node: in}, engine.MapperFunc(func(_ context.Context, r engine.Row) engine.Row {
		n, _ := r[0].AsNumber()
		return engine.Row{engine.Number(n * 2)}
	}))
	out := b.Output(engine.NodeInput{Node: mapped})
	g, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	sh := engine.NewShard(g)
	if err := sh.PushInput(in, engine.Row{engine.Number(3)}, engine.Timestamp{0}, 1); err != nil {
		t.Fatalf("PushInput: %v", err)
	}
	if err := sh.FlushInput(in); err != nil {
		t.Fatalf("FlushInput: %v", err)
	}
	drain(t, sh)

	batch, ok, err := sh.PopOutput(out)
	if err != nil || !ok {
		t.Fatalf("PopOutput: ok=%v err=%v", ok, err)
	}
	changes := batch.Changes()
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	n, _ := changes[0].Row[0].AsNumber()
	if n != 6 {
		t.Fatalf("mapped value = %v, want 6", n)
	}
}

func TestShardDistinctCollapsesDuplicates(t *testing.T) {
	b := engine.NewGraphBuilder()
	in := b.Input(engine.RootSubgraph)
	idx := b.Index(engine.NodeInput{Node: in})
	distinct := b.Distinct(engine.NodeInput{Node: idx})
	out := b.Output(engine.NodeInput{Node: distinct})
	g, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	sh := engine.NewShard(g)
	row := engine.Row{engine.String("x")}
	if err := sh.PushInput(in, row, engine.Timestamp{0}, 3); err != nil {
		t.Fatal(err)
	}
	if err := sh.FlushInput(in); err != nil {
		t.Fatal(err)
	}
	if err := sh.AdvanceInput(in, engine.Timestamp{1}); err != nil {
		t.Fatal(err)
	}
	drain(t, sh)

	got := popAllStrings(t, sh, out)
	if len(got) != 1 || got[0] != "x" {
		t.Fatalf("distinct output = %v, want one copy of \"x\"", got)
	}
}

func TestShardDistinctRetractsWhenCountDropsToZero(t *testing.T) {
	b := engine.NewGraphBuilder()
	in := b.Input(engine.RootSubgraph)
	idx := b.Index(engine.NodeInput{Node: in})
	distinct := b.Distinct(engine.NodeInput{Node: idx})
	out := b.Output(engine.NodeInput{Node: distinct})
	g, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	sh := engine.NewShard(g)
	row := engine.Row{engine.String("x")}

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(sh.PushInput(in, row, engine.Timestamp{0}, 1))
	must(sh.FlushInput(in))
	must(sh.AdvanceInput(in, engine.Timestamp{1}))
	drain(t, sh)
	if got := popAllStrings(t, sh, out); len(got) != 1 {
		t.Fatalf("expected x present after first round, got %v", got)
	}

	must(sh.PushInput(in, row, engine.Timestamp{1}, -1))
	must(sh.FlushInput(in))
	must(sh.AdvanceInput(in, engine.Timestamp{2}))
	drain(t, sh)

	batch, ok, err := sh.PopOutput(out)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a retraction batch after the row's count dropped to zero")
	}
	changes := batch.Changes()
	if len(changes) != 1 || changes[0].Diff != -1 {
		t.Fatalf("changes = %+v, want a single -1 retraction", changes)
	}
}

// TestShardDistinctMergesTwoSeparatePushesOfTheSameRow mirrors a row arriving
// in two separate PushInput calls at the same timestamp, rather than one
// push with a higher diff: Distinct must still emit exactly one +1, since
// the two pushes coalesce into a single ChangeBatch change before Distinct
// ever sees them.
func TestShardDistinctMergesTwoSeparatePushesOfTheSameRow(t *testing.T) {
	b := engine.NewGraphBuilder()
	in := b.Input(engine.RootSubgraph)
	idx := b.Index(engine.NodeInput{Node: in})
	distinct := b.Distinct(engine.NodeInput{Node: idx})
	out := b.Output(engine.NodeInput{Node: distinct})
	g, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	sh := engine.NewShard(g)
	row := engine.Row{engine.String("r1")}
	if err := sh.PushInput(in, row, engine.Timestamp{0}, 1); err != nil {
		t.Fatal(err)
	}
	if err := sh.PushInput(in, row, engine.Timestamp{0}, 1); err != nil {
		t.Fatal(err)
	}
	if err := sh.FlushInput(in); err != nil {
		t.Fatal(err)
	}
	if err := sh.AdvanceInput(in, engine.Timestamp{1}); err != nil {
		t.Fatal(err)
	}
	drain(t, sh)

	var changes []engine.Change
	for {
		batch, ok, err := sh.PopOutput(out)
		if err != nil {
			t.Fatalf("PopOutput: %v", err)
		}
		if !ok {
			break
		}
		changes = append(changes, batch.Changes()...)
	}
	if len(changes) != 1 || changes[0].Diff != 1 {
		t.Fatalf("changes = %+v, want exactly one +1 change for r1", changes)
	}
}

// TestShardReduceSumsValuesPerKey groups rows by their first column and
// folds the remainder with a Reducer, mirroring Distinct's key-grouped
// progress-tracking shape but with a caller-supplied fold instead of a
// fixed set-collapse.
func TestShardReduceSumsValuesPerKey(t *testing.T) {
	b := engine.NewGraphBuilder()
	in := b.Input(engine.RootSubgraph)
	idx := b.Index(engine.NodeInput{Node: in})
	sum := b.Reduce(engine.NodeInput{Node: idx}, 1, engine.ReducerFunc(func(_ context.Context, rows []engine.Row) engine.Row {
		total := 0
		for _, r := range rows {
			n, _ := r[1].AsNumber()
			total += int(n)
		}
		key, _ := rows[0][0].AsString()
		return engine.Row{engine.String(key), engine.Number(float64(total))}
	}))
	out := b.Output(engine.NodeInput{Node: sum})
	g, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	sh := engine.NewShard(g)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(sh.PushInput(in, engine.Row{engine.String("x"), engine.Number(1)}, engine.Timestamp{0}, 1))
	must(sh.PushInput(in, engine.Row{engine.String("x"), engine.Number(2)}, engine.Timestamp{0}, 1))
	must(sh.PushInput(in, engine.Row{engine.String("y"), engine.Number(5)}, engine.Timestamp{0}, 1))
	must(sh.FlushInput(in))
	must(sh.AdvanceInput(in, engine.Timestamp{1}))
	drain(t, sh)

	totals := map[string]float64{}
	for {
		batch, ok, err := sh.PopOutput(out)
		if err != nil {
			t.Fatalf("PopOutput: %v", err)
		}
		if !ok {
			break
		}
		for _, c := range batch.Changes() {
			if c.Diff <= 0 {
				continue
			}
			key, _ := c.Row[0].AsString()
			n, _ := c.Row[1].AsNumber()
			totals[key] = n
		}
	}
	if totals["x"] != 3 || totals["y"] != 5 {
		t.Fatalf("totals = %+v, want x=3 y=5", totals)
	}
}

// TestShardTransitiveClosure builds a tiny graph-reachability dataflow: a
// fixed edge set, a single root, and a loop that joins the current
// reachable set against edges until no new node is discovered. This
// exercises Join, Union, Distinct, and the TimestampPush/Increment/Pop loop
// machinery together, including termination of the progress-tracking
// protocol across the loop's feedback edge.
func TestShardTransitiveClosure(t *testing.T) {
	b := engine.NewGraphBuilder()

	edgesInput := b.Input(engine.RootSubgraph)
	rootsInput := b.Input(engine.RootSubgraph)
	edgesIndex := b.Index(engine.NodeInput{Node: edgesInput})

	loop := b.NewSubgraph(engine.RootSubgraph)
	rootsInLoop := b.TimestampPush(loop, engine.NodeInput{Node: rootsInput})
	edgesInLoop := b.TimestampPush(loop, engine.NodeInput{Node: edgesIndex})
	edgesIndexInLoop := b.Index(engine.NodeInput{Node: edgesInLoop})

	incr := b.TimestampIncrement(loop)
	reachableUnion := b.Union(engine.NodeInput{Node: rootsInLoop}, engine.NodeInput{Node: incr})
	reachableIndex := b.Index(engine.NodeInput{Node: reachableUnion})
	reachableDistinct := b.Distinct(engine.NodeInput{Node: reachableIndex})

	joined := b.Join(engine.NodeInput{Node: reachableDistinct}, engine.NodeInput{Node: edgesIndexInLoop}, 1)
	next := b.Map(engine.NodeInput{Node: joined}, engine.MapperFunc(func(_ context.Context, r engine.Row) engine.Row {
		return engine.Row{r[2]}
	}))
	b.SetLoopInput(incr, engine.NodeInput{Node: next})

	popped := b.TimestampPop(engine.NodeInput{Node: reachableDistinct})
	finalDistinct := b.Distinct(engine.NodeInput{Node: b.Index(engine.NodeInput{Node: popped})})
	out := b.Output(engine.NodeInput{Node: finalDistinct})

	g, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	sh := engine.NewShard(g)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}

	// a -> b -> c, and a -> c directly.
	edges := [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}}
	for _, e := range edges {
		must(sh.PushInput(edgesInput, engine.Row{engine.String(e[0]), engine.String(e[1])}, engine.Timestamp{0}, 1))
	}
	must(sh.FlushInput(edgesInput))
	must(sh.PushInput(rootsInput, engine.Row{engine.String("a")}, engine.Timestamp{0}, 1))
	must(sh.FlushInput(rootsInput))
	must(sh.AdvanceInput(edgesInput, engine.Timestamp{1}))
	must(sh.AdvanceInput(rootsInput, engine.Timestamp{1}))

	drain(t, sh)

	got := popAllStrings(t, sh, out)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("reachable = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reachable = %v, want %v", got, want)
		}
	}
}
