package source

import (
	"errors"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// oggReader is the part of oggvorbis.Reader the source uses.
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type vorbisSource struct {
	dec      oggReader
	buf      []float32
	channels deinterleaver
}

// DecodeVorbis decodes Ogg Vorbis.
func DecodeVorbis(r io.ReadSeeker) (Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}
	return newVorbisSource(dec), nil
}

func newVorbisSource(dec oggReader) *vorbisSource {
	ch := max(dec.Channels(), 1)
	return &vorbisSource{
		dec:      dec,
		buf:      make([]float32, 4096*ch),
		channels: deinterleaver{channels: ch},
	}
}

func (s *vorbisSource) SampleRate() int { return s.dec.SampleRate() }
func (s *vorbisSource) Close() error    { return nil }

func (s *vorbisSource) ReadSamples(dst []float64) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	want := min(len(dst)*s.channels.channels, cap(s.buf))
	n, err := s.dec.Read(s.buf[:want])
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		return 0, io.EOF
	}

	out := 0
	for _, v := range s.buf[:n] {
		if s.channels.keep() {
			dst[out] = float64(v)
			out++
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return out, err
	}
	return out, nil
}
