package mathx

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{5, 10, 0, 5}, // swapped bounds
		{-1, 10, 0, 0},
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
	if got := Clamp(uint8(200), 1, 100); got != 100 {
		t.Errorf("Clamp(uint8 200, 1, 100) = %d, want 100", got)
	}
}

func TestBetween(t *testing.T) {
	if !Between(5, 0, 10) || !Between(0, 0, 10) || !Between(10, 0, 10) {
		t.Error("expected in-range values to be between")
	}
	if Between(11, 0, 10) || Between(-1, 0, 10) {
		t.Error("expected out-of-range values to not be between")
	}
	if !Between(5, 10, 0) {
		t.Error("expected swapped bounds to still match")
	}
}

func TestAbs(t *testing.T) {
	if Abs(-3) != 3 || Abs(3) != 3 || Abs(0) != 0 {
		t.Error("Abs mismatch")
	}
	if Abs(int16(-208)) != 208 {
		t.Error("Abs(int16) mismatch")
	}
}

func TestDivHelpers(t *testing.T) {
	if CeilDiv(uint32(10), 3) != 4 || CeilDiv(uint32(9), 3) != 3 {
		t.Error("CeilDiv mismatch")
	}
	if RoundDiv(uint32(10), 4) != 3 || RoundDiv(uint32(9), 4) != 2 {
		t.Error("RoundDiv mismatch")
	}
	if CeilDiv(uint32(1), 0) != 0 || RoundDiv(uint32(1), 0) != 0 {
		t.Error("expected zero divisor to yield zero")
	}
}
