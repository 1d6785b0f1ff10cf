package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/gen2brain/alsasink"
)

// audioDecoder abstracts the file formats the player can feed into a sink.
type audioDecoder interface {
	alsasink.PCMSource
	// SampleRate returns the sample rate in Hz.
	SampleRate() uint32
	// NumChans returns the number of interleaved channels.
	NumChans() int
	// BitDepth returns the number of significant bits per decoded sample.
	BitDepth() int
}

// wavDecoderWrapper wraps the go-audio WAV decoder to implement audioDecoder.
type wavDecoderWrapper struct {
	*wav.Decoder
}

func newWavDecoder(r io.ReadSeeker) (audioDecoder, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	// 3 is IEEE float.
	if decoder.WavAudioFormat == 3 {
		return nil, fmt.Errorf("%w: floating point WAV", alsasink.ErrUnsupportedFormat)
	}

	return &wavDecoderWrapper{Decoder: decoder}, nil
}

func (w *wavDecoderWrapper) SampleRate() uint32 { return w.Decoder.SampleRate }
func (w *wavDecoderWrapper) NumChans() int      { return int(w.Decoder.NumChans) }
func (w *wavDecoderWrapper) BitDepth() int      { return int(w.Decoder.BitDepth) }

// mp3DecoderWrapper wraps the go-mp3 decoder, which always yields 16-bit stereo.
type mp3DecoderWrapper struct {
	r          io.Reader
	sampleRate int
	bytes      []byte
}

func newMp3Decoder(r io.Reader) (audioDecoder, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	return &mp3DecoderWrapper{r: decoder, sampleRate: decoder.SampleRate()}, nil
}

// PCMBuffer reads 16-bit little-endian PCM from the MP3 decoder and converts it to integers.
func (m *mp3DecoderWrapper) PCMBuffer(buf *audio.IntBuffer) (int, error) {
	bytesToRead := len(buf.Data) * 2
	if cap(m.bytes) < bytesToRead {
		m.bytes = make([]byte, bytesToRead)
	}
	byteBuf := m.bytes[:bytesToRead]

	bytesRead, err := io.ReadFull(m.r, byteBuf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}

	samplesRead := bytesRead / 2
	for i := 0; i < samplesRead; i++ {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(byteBuf[i*2:])))
	}

	if samplesRead > 0 {
		return samplesRead, nil
	}

	return 0, err
}

func (m *mp3DecoderWrapper) SampleRate() uint32 { return uint32(m.sampleRate) }
func (m *mp3DecoderWrapper) NumChans() int      { return 2 }
func (m *mp3DecoderWrapper) BitDepth() int      { return 16 }

// openDecoder opens path and picks a decoder by file extension. The returned closer releases
// the file.
func openDecoder(path string) (audioDecoder, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open audio file: %w", err)
	}

	var dec audioDecoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		dec, err = newWavDecoder(f)
	case ".mp3":
		dec, err = newMp3Decoder(f)
	default:
		err = fmt.Errorf("unsupported audio file %q", filepath.Base(path))
	}

	if err != nil {
		_ = f.Close()

		return nil, nil, err
	}

	return dec, f, nil
}
