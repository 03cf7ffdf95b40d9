package parallel

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newPool(t *testing.T, workers int) *WorkerPool {
	t.Helper()
	pool, err := NewWorkerPool(workers, nil)
	if err != nil {
		t.Fatalf("NewWorkerPool(%d): %v", workers, err)
	}
	return pool
}

func TestWorkerPoolSizes(t *testing.T) {
	tests := []struct {
		requested, want int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{16, 16},
	}
	for _, tt := range tests {
		pool := newPool(t, tt.requested)
		if pool.Workers() != tt.want {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d", tt.requested, pool.Workers(), tt.want)
		}
		pool.Close()
	}

	if _, err := NewWorkerPool(math.MaxInt, nil); !errors.Is(err, ErrTooManyWorkers) {
		t.Errorf("NewWorkerPool(MaxInt) = %v, want ErrTooManyWorkers", err)
	}
}

func TestWorkerPoolConcurrentSubmissions(t *testing.T) {
	pool := newPool(t, 10)

	numTasks := 100
	var counter int64

	var wg sync.WaitGroup
	for i := 0; i < numTasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(func() {
				atomic.AddInt64(&counter, 1)
			})
		}()
	}

	wg.Wait()
	pool.Close()

	if counter != int64(numTasks) {
		t.Errorf("Expected counter %d, got %d", numTasks, counter)
	}
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	pool := newPool(t, 2)
	pool.Close()
	pool.Close()

	if pool.Submit(func() { t.Error("task ran after close") }) {
		t.Error("Submit after Close should return false")
	}
	if err := pool.Run(Chunks(4, 2), func(int, Range) {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Run after Close = %v, want ErrPoolClosed", err)
	}
}

func TestWorkerPoolCloseRace(t *testing.T) {
	for iteration := 0; iteration < 50; iteration++ {
		pool := newPool(t, 4)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					pool.Submit(func() { time.Sleep(100 * time.Microsecond) })
				}
			}()
		}

		time.Sleep(time.Millisecond)
		pool.Close()
		wg.Wait()
	}
}

func TestWorkerPoolRun(t *testing.T) {
	pool := newPool(t, 4)
	defer pool.Close()

	data := make([]int, 1000)
	ranges := Chunks(len(data), 4)
	err := pool.Run(ranges, func(_ int, r Range) {
		for i := r.Start; i < r.End; i++ {
			data[i] = i * 2
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, v := range data {
		if v != i*2 {
			t.Fatalf("data[%d] = %d, want %d", i, v, i*2)
		}
	}

	// The pool stays usable after Run.
	var calls int64
	if err := pool.Run(Chunks(10, 3), func(int, Range) { atomic.AddInt64(&calls, 1) }); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("second Run made %d calls, want 3", calls)
	}
}

func TestWorkerPoolRunRecoversPanic(t *testing.T) {
	pool := newPool(t, 2)
	defer pool.Close()

	var done int64
	err := pool.Run(Chunks(8, 4), func(i int, _ Range) {
		if i == 2 {
			panic("bad range")
		}
		atomic.AddInt64(&done, 1)
	})
	if err == nil {
		t.Fatal("Run should report the panic")
	}
	if done != 3 {
		t.Errorf("%d ranges completed, want 3", done)
	}

	// Workers survive the panic.
	if err := pool.Run(Chunks(2, 2), func(int, Range) {}); err != nil {
		t.Errorf("Run after panic: %v", err)
	}
}

func TestChunks(t *testing.T) {
	tests := []struct {
		n, parts int
		want     []Range
	}{
		{0, 4, nil},
		{5, 0, []Range{{0, 5}}},
		{3, 8, []Range{{0, 1}, {1, 2}, {2, 3}}},
		{10, 3, []Range{{0, 4}, {4, 8}, {8, 10}}},
		{8, 4, []Range{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
	}
	for _, tt := range tests {
		got := Chunks(tt.n, tt.parts)
		if len(got) != len(tt.want) {
			t.Errorf("Chunks(%d, %d) = %v, want %v", tt.n, tt.parts, got, tt.want)
			continue
		}
		total := 0
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Chunks(%d, %d)[%d] = %v, want %v", tt.n, tt.parts, i, got[i], tt.want[i])
			}
			total += got[i].Len()
		}
		if total != tt.n && tt.n > 0 {
			t.Errorf("Chunks(%d, %d) covers %d indices", tt.n, tt.parts, total)
		}
	}
}
