package engine

import "testing"

func TestTimestampCausalOrder(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Timestamp
		expected Ordering
	}{
		{"equal", Timestamp{1, 2}, Timestamp{1, 2}, OrderEqual},
		{"less in every coordinate", Timestamp{0, 0}, Timestamp{1, 1}, OrderLess},
		{"greater in every coordinate", Timestamp{3, 3}, Timestamp{1, 1}, OrderGreater},
		{"incomparable", Timestamp{1, 0}, Timestamp{0, 1}, OrderIncomparable},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.CausalOrder(c.b); got != c.expected {
				t.Errorf("CausalOrder(%v, %v) = %v, want %v", c.a, c.b, got, c.expected)
			}
		})
	}
}

func TestTimestampCausalOrderPanicsOnLengthMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on length mismatch")
		}
	}()
	Timestamp{1}.CausalOrder(Timestamp{1, 2})
}

func TestTimestampPushPopRoundTrip(t *testing.T) {
	ts := Timestamp{1, 2}
	pushed := ts.PushCoord()
	if !pushed.Equal(Timestamp{1, 2, 0}) {
		t.Fatalf("PushCoord: got %v", pushed)
	}
	popped := pushed.PopCoord()
	if !popped.Equal(ts) {
		t.Fatalf("PopCoord: got %v, want %v", popped, ts)
	}
}

func TestTimestampPopCoordPanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic popping a length-0 timestamp")
		}
	}()
	Timestamp{}.PopCoord()
}

func TestTimestampIncrementCoord(t *testing.T) {
	ts := Timestamp{0, 5}
	next := ts.IncrementCoord()
	if !next.Equal(Timestamp{0, 6}) {
		t.Fatalf("IncrementCoord: got %v", next)
	}
	if ts[1] != 5 {
		t.Fatal("IncrementCoord mutated its receiver")
	}
}

func TestTimestampLeastUpperBound(t *testing.T) {
	got := Timestamp{2, 1}.LeastUpperBound(Timestamp{1, 2})
	if !got.Equal(Timestamp{2, 2}) {
		t.Fatalf("LeastUpperBound: got %v, want [2,2]", got)
	}
}

func TestTimestampLexicalOrderTotalAcrossLengths(t *testing.T) {
	if (Timestamp{1}).LexicalOrder(Timestamp{1, 0}) >= 0 {
		t.Fatal("shorter timestamp with agreeing prefix should sort first")
	}
}
