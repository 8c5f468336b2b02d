package engine

import "testing"

func TestFrontierRetreatDiscardsDominatedElements(t *testing.T) {
	f := NewFrontier(Timestamp{2, 1}, Timestamp{1, 2})
	changes := f.Retreat(Timestamp{1, 1})

	want := map[string]int{"[2,1]": -1, "[1,2]": -1, "[1,1]": 1}
	if len(changes) != len(want) {
		t.Fatalf("got %d changes, want %d: %+v", len(changes), len(want), changes)
	}
	for _, c := range changes {
		if want[c.Timestamp.String()] != c.Diff {
			t.Errorf("unexpected change %v diff %d", c.Timestamp, c.Diff)
		}
	}
	if got := f.Elements(); len(got) != 1 || !got[0].Equal(Timestamp{1, 1}) {
		t.Fatalf("frontier after retreat = %v, want [[1,1]]", got)
	}
}

func TestFrontierAdvanceIsNoOpWhenDominated(t *testing.T) {
	f := NewFrontier(Timestamp{1})
	changes := f.Advance(Timestamp{2})
	if changes != nil {
		t.Fatalf("advancing to a dominated timestamp should be a no-op, got %v", changes)
	}
}

func TestFrontierHasPassed(t *testing.T) {
	f := NewFrontier(Timestamp{2})
	if f.HasPassed(Timestamp{2}) {
		t.Error("frontier should not have passed its own element: an update could still arrive exactly at it")
	}
	if !f.HasPassed(Timestamp{1}) {
		t.Error("frontier should have passed anything strictly before it")
	}
	if f.HasPassed(Timestamp{3}) {
		t.Error("frontier should not have passed anything at or after it")
	}
}

func TestFrontierEmptyHasPassedEverything(t *testing.T) {
	f := NewFrontier()
	if !f.HasPassed(Timestamp{1000}) {
		t.Error("an empty frontier represents full closure and should have passed everything")
	}
}

func TestMeetFrontiersIsUnrestrictedOnEmptySide(t *testing.T) {
	a := NewFrontier(Timestamp{3})
	b := NewFrontier()
	got := meetFrontiers(a, b)
	if !got.Equal(a) {
		t.Fatalf("meet with a fully-closed side should equal the other side, got %v", got)
	}
}

func TestMeetFrontiersCombinesByGreatestLowerBound(t *testing.T) {
	a := NewFrontier(Timestamp{5})
	b := NewFrontier(Timestamp{3})
	got := meetFrontiers(a, b)
	if len(got.Elements()) != 1 || !got.Elements()[0].Equal(Timestamp{3}) {
		t.Fatalf("meet = %v, want [[3]]: neither side has passed 3 until the slower side has", got.Elements())
	}
}
