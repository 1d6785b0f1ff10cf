package alsasink

import (
	"sync"
	"sync/atomic"
)

// Memblock is a reference-counted byte buffer. The free hook runs exactly once, when the last
// reference is dropped.
type Memblock struct {
	data []byte
	refs atomic.Int32
	free func([]byte)
}

// NewMemblock wraps data in a block holding one reference. free may be nil.
func NewMemblock(data []byte, free func([]byte)) *Memblock {
	b := &Memblock{data: data, free: free}
	b.refs.Store(1)

	return b
}

// Bytes returns the block contents.
func (b *Memblock) Bytes() []byte {
	return b.data
}

// Len returns the block size.
func (b *Memblock) Len() int {
	return len(b.data)
}

// Refs returns the current reference count.
func (b *Memblock) Refs() int32 {
	return b.refs.Load()
}

// Ref adds a reference and returns the block.
func (b *Memblock) Ref() *Memblock {
	b.refs.Add(1)
	return b
}

// Unref drops a reference.
func (b *Memblock) Unref() {
	n := b.refs.Add(-1)
	if n < 0 {
		panic("alsasink: memblock reference count underflow")
	}

	if n == 0 && b.free != nil {
		b.free(b.data)
	}
}

// MemblockPool recycles blocks of one size.
type MemblockPool struct {
	size        int
	pool        sync.Pool
	outstanding atomic.Int64
}

// NewMemblockPool returns a pool of size-byte blocks.
func NewMemblockPool(size int) *MemblockPool {
	p := &MemblockPool{size: size}
	p.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}

	return p
}

// Size returns the block size of the pool.
func (p *MemblockPool) Size() int {
	return p.size
}

// Get returns a block from the pool. Its contents are unspecified.
func (p *MemblockPool) Get() *Memblock {
	buf := p.pool.Get().(*[]byte)
	p.outstanding.Add(1)

	return NewMemblock(*buf, func(b []byte) {
		p.outstanding.Add(-1)
		p.pool.Put(&b)
	})
}

// Outstanding returns the number of blocks handed out and not yet released.
func (p *MemblockPool) Outstanding() int64 {
	return p.outstanding.Load()
}

// MemChunk is a window into a block.
type MemChunk struct {
	Block  *Memblock
	Index  int
	Length int
}

// Bytes returns the bytes covered by the chunk.
func (c MemChunk) Bytes() []byte {
	if c.Block == nil {
		return nil
	}

	return c.Block.Bytes()[c.Index : c.Index+c.Length]
}

// Release drops the chunk's block reference and resets it.
func (c *MemChunk) Release() {
	if c.Block != nil {
		c.Block.Unref()
	}

	*c = MemChunk{}
}
