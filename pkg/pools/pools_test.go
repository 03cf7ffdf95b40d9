package pools

import (
	"sync"
	"testing"
)

func TestBytePool_Get(t *testing.T) {
	pool := NewBytePool()

	tests := []struct {
		name   string
		size   int
		minCap int
	}{
		{"tiny", 8, 8},
		{"tiny_exact", FrameTiny, FrameTiny},
		{"small", 500, 500},
		{"medium", FrameMedium, FrameMedium},
		{"large", 100000, 100000},
		{"oversized", FrameLarge + 1, FrameLarge + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := pool.Get(tt.size)
			if len(b) != 0 {
				t.Errorf("Get(%d) length = %d, want 0", tt.size, len(b))
			}
			if cap(b) < tt.minCap {
				t.Errorf("Get(%d) capacity = %d, want >= %d", tt.size, cap(b), tt.minCap)
			}
		})
	}
}

func TestBytePool_GetSized(t *testing.T) {
	pool := NewBytePool()

	b := pool.GetSized(100)
	if len(b) != 100 {
		t.Errorf("GetSized(100) length = %d, want 100", len(b))
	}
}

func TestBytePool_PutAndReuse(t *testing.T) {
	pool := NewBytePool()

	for i := 0; i < 10; i++ {
		b := pool.Get(FrameTiny)
		b = append(b, "frame header"...)
		pool.Put(b)
	}

	b := pool.Get(FrameTiny)
	if len(b) != 0 {
		t.Errorf("After Put, Get returned slice with length %d, want 0", len(b))
	}
}

func TestBytePool_OddCapacityNotMisfiled(t *testing.T) {
	pool := NewBytePool()

	// 100 bytes only serves the tiny class; it must never come back for a
	// request of 1024.
	pool.Put(make([]byte, 0, 100))
	for i := 0; i < 10; i++ {
		if b := pool.Get(FrameSmall); cap(b) < FrameSmall {
			t.Fatalf("Get(%d) capacity = %d", FrameSmall, cap(b))
		}
	}
}

func TestBytePool_OversizedNotPooled(t *testing.T) {
	pool := NewBytePool()
	pool.Put(make([]byte, MaxPooled+1000))
	pool.Put(nil)
}

func TestDefaultBytePool(t *testing.T) {
	b := GetBytes(100)
	if cap(b) < 100 {
		t.Errorf("GetBytes(100) capacity = %d, want >= 100", cap(b))
	}
	PutBytes(b)

	b2 := GetBytesSized(50)
	if len(b2) != 50 {
		t.Errorf("GetBytesSized(50) length = %d, want 50", len(b2))
	}
	PutBytes(b2)
}

func TestVertexPool_Get(t *testing.T) {
	pool := NewVertexPool()

	for _, size := range []int{1, VertexSmall, 500, VertexLarge, VertexHuge, VertexHuge + 1} {
		s := pool.Get(size)
		if len(s) != 0 {
			t.Errorf("Get(%d) length = %d, want 0", size, len(s))
		}
		if cap(s) < size {
			t.Errorf("Get(%d) capacity = %d, want >= %d", size, cap(s), size)
		}
	}
}

func TestVertexPool_PutAndReuse(t *testing.T) {
	pool := NewVertexPool()

	for i := 0; i < 10; i++ {
		s := pool.Get(VertexSmall)
		s = append(s, 1, 2, 3, 4, 5)
		pool.Put(s)
	}

	s := pool.Get(VertexSmall)
	if len(s) != 0 {
		t.Errorf("After Put, Get returned slice with length %d, want 0", len(s))
	}
}

func TestCountPool_Zeroed(t *testing.T) {
	pool := NewCountPool()

	s := pool.Get(100)
	for i := range s {
		s[i] = uint64(i) + 1
	}
	pool.Put(s)

	for i := 0; i < 10; i++ {
		s := pool.Get(100)
		if len(s) != 100 {
			t.Fatalf("Get(100) length = %d", len(s))
		}
		for j, v := range s {
			if v != 0 {
				t.Fatalf("Get(100)[%d] = %d, want 0", j, v)
			}
		}
		pool.Put(s)
	}
}

func TestDefaultVertexAndCountPools(t *testing.T) {
	v := GetVertices(32)
	if cap(v) < 32 {
		t.Errorf("GetVertices(32) capacity = %d", cap(v))
	}
	PutVertices(v)

	c := GetCounts(32)
	if len(c) != 32 {
		t.Errorf("GetCounts(32) length = %d", len(c))
	}
	PutCounts(c)
}

func TestPools_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				v := GetVertices(i % 2000)
				v = append(v, uint32(g))
				PutVertices(v)

				b := GetBytes(i % 5000)
				PutBytes(b)
			}
		}(g)
	}
	wg.Wait()
}
