package pools

// Vertex buffer classes. Most RR sets are small; frontiers on dense graphs
// can reach the vertex count.
const (
	VertexSmall  = 64
	VertexMedium = 1024
	VertexLarge  = 16384
	VertexHuge   = 262144
)

// VertexPool pools []uint32 buffers used for frontiers and RR-set output.
type VertexPool struct {
	p *classPool[uint32]
}

// NewVertexPool creates a vertex buffer pool.
func NewVertexPool() *VertexPool {
	return &VertexPool{p: newClassPool[uint32](VertexSmall, VertexMedium, VertexLarge, VertexHuge)}
}

// Get returns an empty slice with at least the requested capacity.
func (p *VertexPool) Get(size int) []uint32 { return p.p.get(size) }

// Put returns a buffer for reuse. The caller must not touch it afterwards.
func (p *VertexPool) Put(s []uint32) { p.p.put(s) }

// CountPool pools []uint64 vectors, typically one counter per vertex.
type CountPool struct {
	p *classPool[uint64]
}

// NewCountPool creates a count vector pool.
func NewCountPool() *CountPool {
	return &CountPool{p: newClassPool[uint64](VertexSmall, VertexMedium, VertexLarge, VertexHuge)}
}

// Get returns a zeroed vector of exactly size elements.
func (p *CountPool) Get(size int) []uint64 {
	s := p.p.get(size)[:size]
	clear(s)
	return s
}

// Put returns a vector for reuse.
func (p *CountPool) Put(s []uint64) { p.p.put(s) }

var (
	defaultVertexPool = NewVertexPool()
	defaultCountPool  = NewCountPool()
)

// GetVertices returns a vertex buffer from the default pool.
func GetVertices(size int) []uint32 {
	return defaultVertexPool.Get(size)
}

// PutVertices returns a vertex buffer to the default pool.
func PutVertices(s []uint32) {
	defaultVertexPool.Put(s)
}

// GetCounts returns a zeroed count vector from the default pool.
func GetCounts(size int) []uint64 {
	return defaultCountPool.Get(size)
}

// PutCounts returns a count vector to the default pool.
func PutCounts(s []uint64) {
	defaultCountPool.Put(s)
}
