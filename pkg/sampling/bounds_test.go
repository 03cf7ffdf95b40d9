package sampling

import (
	"math"
	"testing"
)

func TestLogBinomial(t *testing.T) {
	tests := []struct {
		n, k int
		want float64
	}{
		{5, 2, math.Log(10)},
		{10, 3, math.Log(120)},
		{7, 0, 0},
		{7, 7, 0},
	}
	for _, tt := range tests {
		if got := logBinomial(tt.n, tt.k); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("logBinomial(%d, %d) = %v, want %v", tt.n, tt.k, got, tt.want)
		}
	}
}

func TestThetaPrimeStrictlyIncreasing(t *testing.T) {
	for _, n := range []int{4, 100, 1 << 20} {
		prev := uint64(0)
		for x := 1; float64(x) < math.Log2(float64(n)); x++ {
			got := ThetaPrime(x, math.Sqrt2*0.5, 1, 3, n)
			if got <= prev {
				t.Fatalf("n=%d: ThetaPrime(%d) = %d, not above %d", n, x, got, prev)
			}
			prev = got
		}
	}
}

func TestTheta(t *testing.T) {
	if got := Theta(0.5, 1, 5, 0, 1000); got != 0 {
		t.Errorf("Theta with zero lower bound = %d, want 0", got)
	}

	small := Theta(0.5, 1, 5, 10, 1000)
	large := Theta(0.5, 1, 5, 100, 1000)
	if small == 0 || large >= small {
		t.Errorf("Theta should shrink as the lower bound grows: lb=10 -> %d, lb=100 -> %d", small, large)
	}

	if tight, loose := Theta(0.1, 1, 5, 10, 1000), Theta(0.5, 1, 5, 10, 1000); tight <= loose {
		t.Errorf("smaller epsilon should need more samples: %d <= %d", tight, loose)
	}
}

func TestAdjustConfidence(t *testing.T) {
	if got := adjustConfidence(1, 1); got != 1 {
		t.Errorf("adjustConfidence(1, 1) = %v, want 1", got)
	}
	if got := adjustConfidence(2, 4); got != 3 {
		t.Errorf("adjustConfidence(2, 4) = %v, want 3", got)
	}
}

func TestCeilCount(t *testing.T) {
	tests := []struct {
		in   float64
		want uint64
	}{
		{math.NaN(), 0},
		{-3, 0},
		{0.2, 1},
		{4, 4},
		{math.Inf(1), math.MaxUint64},
	}
	for _, tt := range tests {
		if got := ceilCount(tt.in); got != tt.want {
			t.Errorf("ceilCount(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
