package engine

import "testing"

func TestIndexBagAsOfPrunesFutureBatches(t *testing.T) {
	ix := NewIndex()

	early := NewChangeBatchBuilder()
	early.Add(Change{Row: Row{String("a")}, Timestamp: Timestamp{1}, Diff: 1})
	ix.Append(early.Finish())

	late := NewChangeBatchBuilder()
	late.Add(Change{Row: Row{String("b")}, Timestamp: Timestamp{5}, Diff: 1})
	ix.Append(late.Finish())

	bag := ix.BagAsOf(Timestamp{2})
	if bag.Count(Row{String("a")}) != 1 {
		t.Error("row from the early batch should be visible as-of [2]")
	}
	if bag.Count(Row{String("b")}) != 0 {
		t.Error("row from the late batch should not be visible as-of [2]")
	}
}

func TestBagAddCollapsesToZero(t *testing.T) {
	bag := NewBag()
	row := Row{Number(1)}
	bag.Add(row, 2)
	bag.Add(row, -2)
	if bag.Count(row) != 0 {
		t.Errorf("count = %d, want 0", bag.Count(row))
	}
	if len(bag.Rows()) != 0 {
		t.Error("bag should have no rows once its only entry cancels to zero")
	}
}
