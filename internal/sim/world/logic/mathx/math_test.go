package mathx

import "testing"

func TestFloorDiv(t *testing.T) {
	cases := []struct{ a, b, want int }{
		{7, 10, 0}, {10, 10, 1}, {-1, 10, -1}, {-10, 10, -1}, {-11, 10, -2},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.want {
			t.Fatalf("FloorDiv(%d,%d)=%d want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	if RoundHalfUp(2.5) != 3 || RoundHalfUp(-2.5) != -2 || RoundHalfUp(1.49) != 1 {
		t.Fatalf("RoundHalfUp mismatch")
	}
}

func TestDistSqToSegment(t *testing.T) {
	if d := DistSqToSegment(5, 3, 0, 0, 10, 0); d != 9 {
		t.Fatalf("mid segment: %v", d)
	}
	if d := DistSqToSegment(-3, 4, 0, 0, 10, 0); d != 25 {
		t.Fatalf("before start: %v", d)
	}
	if d := DistSqToSegment(1, 1, 2, 2, 2, 2); d != 2 {
		t.Fatalf("degenerate: %v", d)
	}
}
