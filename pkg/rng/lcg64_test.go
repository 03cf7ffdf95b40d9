package rng

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestJumpMatchesStepping(t *testing.T) {
	for _, steps := range []uint64{0, 1, 2, 7, 64, 1000} {
		a := New(42)
		b := New(42)
		for i := uint64(0); i < steps; i++ {
			a.Next()
		}
		b.Jump(steps)
		if a.Next() != b.Next() {
			t.Errorf("Jump(%d) diverged from %d calls to Next", steps, steps)
		}
	}
}

func TestSplitIsLeapfrog(t *testing.T) {
	const count = 5
	parent := New(7)
	reference := make([]uint64, count*20)
	for i := range reference {
		reference[i] = parent.Next()
	}

	for index := 0; index < count; index++ {
		sub := New(7)
		if err := sub.Split(count, index); err != nil {
			t.Fatalf("Split(%d, %d): %v", count, index, err)
		}
		for j := 0; j < 20; j++ {
			got := sub.Next()
			want := reference[index+j*count]
			if got != want {
				t.Fatalf("substream %d value %d = %d, want %d", index, j, got, want)
			}
		}
	}
}

func TestNestedSplitsAreDisjoint(t *testing.T) {
	const ranks, workers, draws = 3, 4, 200
	seen := make(map[uint64]string)

	for r := 0; r < ranks; r++ {
		for w := 0; w < workers; w++ {
			g := New(99)
			if err := g.Split(ranks, r); err != nil {
				t.Fatal(err)
			}
			if err := g.Split(workers, w); err != nil {
				t.Fatal(err)
			}
			for i := 0; i < draws; i++ {
				v := g.Next()
				owner := string(rune('A'+r)) + string(rune('a'+w))
				if prev, dup := seen[v]; dup {
					t.Fatalf("value %d produced by both %s and %s", v, prev, owner)
				}
				seen[v] = owner
			}
		}
	}

	if len(seen) != ranks*workers*draws {
		t.Errorf("expected %d distinct values, got %d", ranks*workers*draws, len(seen))
	}
}

func TestNestedSplitMatchesFlatSplit(t *testing.T) {
	// Splitting by 3 then 4 equals splitting by 12 at index rank + 3*worker.
	nested := New(5)
	if err := nested.Split(3, 2); err != nil {
		t.Fatal(err)
	}
	if err := nested.Split(4, 1); err != nil {
		t.Fatal(err)
	}
	flat := New(5)
	if err := flat.Split(12, 2+3*1); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		if nested.Next() != flat.Next() {
			t.Fatalf("nested and flat splits diverged at draw %d", i)
		}
	}
}

func TestSplitValidation(t *testing.T) {
	tests := []struct {
		name         string
		count, index int
	}{
		{"zero count", 0, 0},
		{"negative index", 4, -1},
		{"index equals count", 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := New(1).Split(tt.count, tt.index); !errors.Is(err, ErrInvalidSplit) {
				t.Errorf("Split(%d, %d) = %v, want ErrInvalidSplit", tt.count, tt.index, err)
			}
		})
	}

	g := New(1)
	before := *g
	if err := g.Split(1, 0); err != nil {
		t.Fatalf("Split(1, 0): %v", err)
	}
	if *g != before {
		t.Error("Split(1, 0) should leave the stream unchanged")
	}
}

func TestSubstreamsLeaveParentUntouched(t *testing.T) {
	g := New(11)
	before := *g
	subs, err := g.Substreams(64)
	if err != nil {
		t.Fatalf("Substreams: %v", err)
	}
	if len(subs) != 64 {
		t.Fatalf("expected 64 substreams, got %d", len(subs))
	}
	if *g != before {
		t.Error("Substreams modified the parent stream")
	}
	if subs[0].Next() == subs[1].Next() {
		t.Error("first values of substreams 0 and 1 should differ")
	}
}

func TestUniformRange(t *testing.T) {
	g := New(3)
	for i := 0; i < 100000; i++ {
		u := g.Uniform()
		if u <= 0 || u > 1 {
			t.Fatalf("Uniform() = %v outside (0, 1]", u)
		}
	}
}

func TestIntNRange(t *testing.T) {
	g := New(3)
	counts := make([]int, 10)
	for i := 0; i < 100000; i++ {
		v := g.IntN(10)
		if v < 0 || v >= 10 {
			t.Fatalf("IntN(10) = %d", v)
		}
		counts[v]++
	}
	for v, c := range counts {
		if c < 9000 || c > 11000 {
			t.Errorf("IntN(10) bucket %d has %d samples, expected about 10000", v, c)
		}
	}
}

func TestImplementsRandSource(t *testing.T) {
	var _ rand.Source = New(1)
	r := rand.New(New(1))
	if r.Float64() < 0 {
		t.Error("unexpected negative Float64")
	}
}
