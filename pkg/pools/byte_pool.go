package pools

// Frame size classes. A frame carries a short header and one uint64 per
// vertex, before compression.
const (
	FrameTiny   = 64
	FrameSmall  = 1024
	FrameMedium = 16384
	FrameLarge  = 262144
)

// BytePool pools byte buffers for encoded transport frames.
type BytePool struct {
	p *classPool[byte]
}

// NewBytePool creates a byte pool.
func NewBytePool() *BytePool {
	return &BytePool{p: newClassPool[byte](FrameTiny, FrameSmall, FrameMedium, FrameLarge)}
}

// Get returns a byte slice with length 0 and at least the requested capacity.
func (p *BytePool) Get(size int) []byte { return p.p.get(size) }

// GetSized returns a byte slice with exactly the requested length.
func (p *BytePool) GetSized(size int) []byte {
	return p.p.get(size)[:size]
}

// Put returns a byte slice for reuse.
func (p *BytePool) Put(b []byte) { p.p.put(b) }

var defaultBytePool = NewBytePool()

// GetBytes returns a byte slice from the default pool.
func GetBytes(size int) []byte {
	return defaultBytePool.Get(size)
}

// GetBytesSized returns a byte slice with exact length from the default pool.
func GetBytesSized(size int) []byte {
	return defaultBytePool.GetSized(size)
}

// PutBytes returns a byte slice to the default pool.
func PutBytes(b []byte) {
	defaultBytePool.Put(b)
}
