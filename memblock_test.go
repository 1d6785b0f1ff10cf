package alsasink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemblock(t *testing.T) {
	freed := 0
	b := NewMemblock(make([]byte, 8), func([]byte) { freed++ })
	assert.Equal(t, int32(1), b.Refs())
	assert.Equal(t, 8, b.Len())

	b.Ref()
	b.Unref()
	assert.Equal(t, 0, freed)

	b.Unref()
	assert.Equal(t, 1, freed)
	assert.Panics(t, b.Unref)
}

func TestMemblockPool(t *testing.T) {
	p := NewMemblockPool(16)

	a, b := p.Get(), p.Get()
	assert.Equal(t, 16, a.Len())
	assert.Equal(t, int64(2), p.Outstanding())

	a.Unref()
	b.Ref()
	b.Unref()
	assert.Equal(t, int64(1), p.Outstanding())

	b.Unref()
	assert.Equal(t, int64(0), p.Outstanding())
}

func TestMemChunk(t *testing.T) {
	freed := 0
	c := MemChunk{Block: NewMemblock([]byte("abcdef"), func([]byte) { freed++ }), Index: 2, Length: 3}
	assert.Equal(t, []byte("cde"), c.Bytes())

	c.Release()
	assert.Equal(t, 1, freed)
	assert.Nil(t, c.Block)
	assert.Nil(t, c.Bytes())

	c.Release()
	assert.Equal(t, 1, freed)
}
