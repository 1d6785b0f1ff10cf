package alsasink

import (
	"fmt"
	"io"
)

// renderPipeline holds the chunk currently being written to the device. It is owned by the
// I/O goroutine.
type renderPipeline struct {
	size    int
	chunk   MemChunk
	written uint64
}

// fill performs one write cycle: it renders a fresh chunk of size bytes when none is pending,
// writes as much of it as the device accepts and releases the chunk once fully written.
func (p *renderPipeline) fill(r Renderer, w io.Writer) error {
	if p.chunk.Length == 0 {
		p.chunk = r.Render(p.size)
		if p.chunk.Length == 0 {
			p.chunk.Release()
			return nil
		}
	}

	n, err := w.Write(p.chunk.Bytes())
	if n > p.chunk.Length {
		n = p.chunk.Length
	}

	if n > 0 {
		p.chunk.Index += n
		p.chunk.Length -= n
		p.written += uint64(n)
	}

	if p.chunk.Length == 0 {
		p.chunk.Release()
	}

	if err != nil {
		return fmt.Errorf("write device: %w", err)
	}

	return nil
}

// pending returns the number of rendered bytes not yet written.
func (p *renderPipeline) pending() int {
	return p.chunk.Length
}

// release drops the pending chunk, if any.
func (p *renderPipeline) release() {
	p.chunk.Release()
}
