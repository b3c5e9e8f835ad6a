package source

import (
	"errors"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV decoding errors.
var (
	ErrNotWAV              = errors.New("not a WAV file")
	ErrUnsupportedBitDepth = errors.New("unsupported WAV bit depth")
)

type wavSource struct {
	dec      *wav.Decoder
	rate     int
	offset   int // 8-bit PCM is unsigned
	scale    float64
	buf      *goaudio.IntBuffer
	channels deinterleaver
}

// DecodeWAV decodes 8, 16, 24 or 32-bit integer PCM WAV.
func DecodeWAV(r io.ReadSeeker) (Source, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, err
	}

	format := dec.Format()
	if format == nil || format.NumChannels < 1 {
		return nil, ErrNotWAV
	}

	var scale float64
	offset := 0
	switch dec.SampleBitDepth() {
	case 8:
		scale, offset = 128, 128
	case 16:
		scale = 32768
	case 24:
		scale = 8388608
	case 32:
		scale = 2147483648
	default:
		return nil, ErrUnsupportedBitDepth
	}

	return &wavSource{
		dec:    dec,
		rate:   format.SampleRate,
		offset: offset,
		scale:  scale,
		buf: &goaudio.IntBuffer{
			Format: format,
			Data:   make([]int, 4096*format.NumChannels),
		},
		channels: deinterleaver{channels: format.NumChannels},
	}, nil
}

func (s *wavSource) SampleRate() int { return s.rate }
func (s *wavSource) Close() error    { return nil }

func (s *wavSource) ReadSamples(dst []float64) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	want := min(len(dst)*s.channels.channels, cap(s.buf.Data))
	s.buf.Data = s.buf.Data[:want]

	n, err := s.dec.PCMBuffer(s.buf)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		return 0, io.EOF
	}

	out := 0
	for _, v := range s.buf.Data[:n] {
		if s.channels.keep() {
			dst[out] = float64(v-s.offset) / s.scale
			out++
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return out, err
	}
	return out, nil
}
