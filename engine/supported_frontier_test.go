package engine

import "testing"

func TestSupportedFrontierReleaseAdmitsShadowedMinimum(t *testing.T) {
	sf := NewSupportedFrontier()
	var changes []FrontierChange

	sf.Update(Timestamp{1}, 1, &changes)
	sf.Update(Timestamp{2}, 1, &changes)
	if got := sf.Frontier().Elements(); len(got) != 1 || !got[0].Equal(Timestamp{1}) {
		t.Fatalf("frontier after holding [1] and [2] = %v, want [[1]]", got)
	}

	changes = nil
	sf.Update(Timestamp{1}, -1, &changes)
	if got := sf.Frontier().Elements(); len(got) != 1 || !got[0].Equal(Timestamp{2}) {
		t.Fatalf("frontier after releasing [1] = %v, want [[2]]", got)
	}
	if len(changes) != 2 {
		t.Fatalf("expected a -[1]/+[2] pair, got %v", changes)
	}
}

func TestSupportedFrontierPanicsOnNegativeCount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic releasing an unheld timestamp")
		}
	}()
	sf := NewSupportedFrontier()
	var changes []FrontierChange
	sf.Update(Timestamp{1}, -1, &changes)
}
