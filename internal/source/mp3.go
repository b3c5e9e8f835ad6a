package source

import (
	"encoding/binary"
	"errors"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// mp3Reader is the part of gomp3.Decoder the source uses.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

// go-mp3 always produces 16-bit little-endian stereo.
const (
	mp3Channels    = 2
	mp3SampleBytes = 2
)

type mp3Source struct {
	dec mp3Reader
	buf []byte
	// partial holds a trailing byte when a read ended mid-sample.
	partial  []byte
	channels deinterleaver
}

// DecodeMP3 decodes MPEG-1/2 Layer III.
func DecodeMP3(r io.ReadSeeker) (Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return newMP3Source(dec), nil
}

func newMP3Source(dec mp3Reader) *mp3Source {
	return &mp3Source{
		dec:      dec,
		buf:      make([]byte, 8192),
		partial:  make([]byte, 0, mp3SampleBytes),
		channels: deinterleaver{channels: mp3Channels},
	}
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }
func (s *mp3Source) Close() error    { return nil }

func (s *mp3Source) ReadSamples(dst []float64) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	want := min(len(dst)*mp3Channels*mp3SampleBytes, cap(s.buf))
	copy(s.buf, s.partial)
	head := len(s.partial)
	s.partial = s.partial[:0]

	n, err := s.dec.Read(s.buf[head:want])
	n += head
	if n < mp3SampleBytes {
		s.partial = append(s.partial, s.buf[:n]...)
		if err == nil {
			return 0, nil
		}
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, err
	}

	whole := n - n%mp3SampleBytes
	s.partial = append(s.partial, s.buf[whole:n]...)

	out := 0
	for i := 0; i < whole; i += mp3SampleBytes {
		if s.channels.keep() {
			v := int16(binary.LittleEndian.Uint16(s.buf[i:]))
			dst[out] = float64(v) / 32768
			out++
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return out, err
	}
	return out, nil
}
