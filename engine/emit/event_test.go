package emit

import "testing"

func TestBufferedRecordsRunIDStepAndNode(t *testing.T) {
	b := NewBuffered()
	b.Emit(Event{Kind: KindInputPushed, RunID: "run-1", Step: 1, NodeID: 2, Fields: map[string]any{"diff": 1}})
	b.Emit(Event{Kind: KindOutputProduced, RunID: "run-1", Step: 2, NodeID: 5})

	events := b.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].RunID != "run-1" || events[1].RunID != "run-1" {
		t.Errorf("events should share the emitting Shard's RunID, got %q and %q", events[0].RunID, events[1].RunID)
	}
	if events[0].Step >= events[1].Step {
		t.Errorf("Step should order events within a run, got %d then %d", events[0].Step, events[1].Step)
	}
	if events[1].NodeID != 5 {
		t.Errorf("NodeID = %d, want 5", events[1].NodeID)
	}
}
