package pcmstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
)

// DefaultChunk is the number of stereo frames moved per Copy, about 23ms
// at 44.1kHz.
const DefaultChunk = 1024

// Pipeline decodes one MP3 source at a time and writes interleaved stereo
// signed 16-bit little-endian PCM to an io.Writer. It is driven from the
// controller's update loop and is not safe for concurrent use.
type Pipeline struct {
	out    io.Writer
	logger *slog.Logger

	stream beep.StreamSeekCloser
	format beep.Format
	volume *effects.Volume
	gain   float64

	samples [][2]float64
	pcm     []byte
}

func NewPipeline(out io.Writer, chunk int, logger *slog.Logger) *Pipeline {
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		out:     out,
		logger:  logger.With("component", "pcmstream"),
		gain:    1,
		samples: make([][2]float64, chunk),
		pcm:     make([]byte, 0, chunk*4),
	}
}

// Start decodes src from the beginning. Any previous source is closed.
func (p *Pipeline) Start(src io.ReadSeekCloser) error {
	p.Stop()

	stream, format, err := mp3.Decode(src)
	if err != nil {
		src.Close()
		return fmt.Errorf("decode mp3: %w", err)
	}
	p.stream = stream
	p.format = format
	p.volume = &effects.Volume{Streamer: stream, Base: 2}
	p.applyGain()

	p.logger.Debug("stream started",
		"sample_rate", int(format.SampleRate),
		"channels", format.NumChannels,
		"length", format.SampleRate.D(stream.Len()))
	return nil
}

// Copy writes one chunk. more is false once the stream is exhausted; err
// carries a decoder or write failure.
func (p *Pipeline) Copy() (bool, error) {
	if p.volume == nil {
		return false, nil
	}
	n, ok := p.volume.Stream(p.samples)
	if n > 0 {
		p.pcm = encodeS16LE(p.pcm[:0], p.samples[:n])
		if _, err := p.out.Write(p.pcm); err != nil {
			return false, fmt.Errorf("write pcm: %w", err)
		}
	}
	if !ok {
		if err := p.stream.Err(); err != nil {
			return false, fmt.Errorf("decode: %w", err)
		}
		return false, nil
	}
	return true, nil
}

func (p *Pipeline) Rewind() error {
	if p.stream == nil {
		return errors.New("no stream")
	}
	return p.stream.Seek(0)
}

// SetGain sets the linear output gain. 0 mutes; values above 1 are capped.
func (p *Pipeline) SetGain(g float64) {
	p.gain = min(max(g, 0), 1)
	p.applyGain()
}

func (p *Pipeline) applyGain() {
	if p.volume == nil {
		return
	}
	p.volume.Silent = p.gain == 0
	if p.gain > 0 {
		p.volume.Volume = math.Log2(p.gain)
	}
}

func (p *Pipeline) Stop() {
	if p.stream == nil {
		return
	}
	if err := p.stream.Close(); err != nil {
		p.logger.Warn("close stream", "error", err)
	}
	p.stream = nil
	p.volume = nil
}

// SampleRate is the rate of the current stream, or 0 when idle.
func (p *Pipeline) SampleRate() beep.SampleRate {
	if p.stream == nil {
		return 0
	}
	return p.format.SampleRate
}

func encodeS16LE(dst []byte, samples [][2]float64) []byte {
	for _, s := range samples {
		for _, v := range s {
			v = min(max(v, -1), 1)
			dst = binary.LittleEndian.AppendUint16(dst, uint16(int16(math.Round(v*math.MaxInt16))))
		}
	}
	return dst
}
