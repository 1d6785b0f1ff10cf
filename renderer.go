package alsasink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-audio/audio"
	"go.uber.org/zap"
)

// Renderer produces audio for the sink. Render must return a chunk of exactly length bytes;
// the sink pads or trims chunks that do not.
type Renderer interface {
	Render(length int) MemChunk
}

// Rewinder is implemented by renderers that can take back already rendered audio.
type Rewinder interface {
	Rewind(nbytes int)
}

// SilenceRenderer renders silence in the sink's format.
type SilenceRenderer struct {
	silence byte
	mu      sync.Mutex
	pool    *MemblockPool
}

// NewSilenceRenderer returns a renderer producing silence for spec.
func NewSilenceRenderer(spec SampleSpec) *SilenceRenderer {
	return &SilenceRenderer{silence: spec.Format.SilenceByte()}
}

// Render implements Renderer.
func (r *SilenceRenderer) Render(length int) MemChunk {
	r.mu.Lock()
	if r.pool == nil || r.pool.Size() != length {
		r.pool = NewMemblockPool(length)
	}
	block := r.pool.Get()
	r.mu.Unlock()

	fillSilence(block.Bytes(), r.silence)

	return MemChunk{Block: block, Length: length}
}

func fillSilence(b []byte, silence byte) {
	for i := range b {
		b[i] = silence
	}
}

// PCMSource supplies interleaved integer samples. It is satisfied by *wav.Decoder.
type PCMSource interface {
	PCMBuffer(buf *audio.IntBuffer) (int, error)
}

// DecoderRenderer renders audio pulled from a PCMSource, encoding it into the sink's sample
// format. When the source runs dry the remainder of the request is filled with silence.
type DecoderRenderer struct {
	log         *zap.SugaredLogger
	src         PCMSource
	srcBits     int
	srcChannels int
	spec        SampleSpec

	mu      sync.Mutex
	buf     *audio.IntBuffer
	pending []int
	drained bool
	eof     bool
	frames  uint64
}

// NewDecoderRenderer returns a renderer reading from src, which delivers samples of srcBits
// significant bits in srcChannels interleaved channels. Channels are duplicated or dropped
// when the counts differ from spec.
func NewDecoderRenderer(src PCMSource, srcBits, srcChannels int, spec SampleSpec, logger *zap.SugaredLogger) (*DecoderRenderer, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	switch spec.Format {
	case SampleU8, SampleS16LE, SampleS16BE, SampleS24LE, SampleS24BE, SampleS24_32LE, SampleS24_32BE, SampleS32LE, SampleS32BE:
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", ErrUnsupportedFormat, spec.Format)
	}

	if srcBits <= 0 || srcBits > 32 {
		return nil, fmt.Errorf("%w: source bit depth %d", ErrUnsupportedFormat, srcBits)
	}

	if srcChannels <= 0 {
		return nil, fmt.Errorf("%w: source has %d channels", ErrInvalidConfig, srcChannels)
	}

	return &DecoderRenderer{
		log:         logger.Named("decoder"),
		src:         src,
		srcBits:     srcBits,
		srcChannels: srcChannels,
		spec:        spec,
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: srcChannels, SampleRate: int(spec.Rate)},
			Data:   make([]int, 4096*srcChannels),
		},
	}, nil
}

// EOF reports whether the source has been exhausted.
func (r *DecoderRenderer) EOF() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.eof
}

// Frames returns the number of source frames rendered so far.
func (r *DecoderRenderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.frames
}

// Render implements Renderer.
func (r *DecoderRenderer) Render(length int) MemChunk {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]byte, length)
	ss := r.spec.Format.SampleSize()
	fs := r.spec.FrameSize()
	out := 0

	for out+fs <= length && !r.eof {
		if len(r.pending) < r.srcChannels {
			if !r.refill() {
				break
			}
			continue
		}

		frame := r.pending[:r.srcChannels]
		for c := 0; c < int(r.spec.Channels); c++ {
			encodeSample(data[out+c*ss:], frame[min(c, r.srcChannels-1)], r.srcBits, r.spec.Format)
		}

		r.pending = r.pending[r.srcChannels:]
		r.frames++
		out += fs
	}

	fillSilence(data[out:], r.spec.Format.SilenceByte())

	return MemChunk{Block: NewMemblock(data, nil), Length: length}
}

// refill reads the next block from the source. Samples delivered together with a read error
// are still rendered; the source is not read again afterwards.
func (r *DecoderRenderer) refill() bool {
	if r.drained {
		r.eof = true
		return false
	}

	n, err := r.src.PCMBuffer(r.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		r.log.Warnw("Source read failed", "error", err)
		r.drained = true
	}

	if n == 0 {
		if !r.drained {
			r.log.Debugw("Source exhausted", "frames", r.frames)
		}
		r.eof = true
		return false
	}

	r.pending = r.buf.Data[:n]

	return true
}

// encodeSample writes one sample of srcBits significant bits into dst using format f.
func encodeSample(dst []byte, s, srcBits int, f SampleFormat) {
	v := int32(int64(s) << (32 - srcBits))

	switch f {
	case SampleU8:
		dst[0] = byte(int8(v>>24)) ^ 0x80
	case SampleS16LE:
		binary.LittleEndian.PutUint16(dst, uint16(v>>16))
	case SampleS16BE:
		binary.BigEndian.PutUint16(dst, uint16(v>>16))
	case SampleS24LE:
		u := uint32(v >> 8)
		dst[0], dst[1], dst[2] = byte(u), byte(u>>8), byte(u>>16)
	case SampleS24BE:
		u := uint32(v >> 8)
		dst[0], dst[1], dst[2] = byte(u>>16), byte(u>>8), byte(u)
	case SampleS24_32LE:
		binary.LittleEndian.PutUint32(dst, uint32(v>>8))
	case SampleS24_32BE:
		binary.BigEndian.PutUint32(dst, uint32(v>>8))
	case SampleS32LE:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	case SampleS32BE:
		binary.BigEndian.PutUint32(dst, uint32(v))
	}
}
