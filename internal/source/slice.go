package source

import (
	"io"
	"math"
)

// Slice is an in-memory Source.
type Slice struct {
	rate    int
	samples []float64
	pos     int
	err     error
}

// NewSlice returns a Source that yields samples and then io.EOF.
func NewSlice(rate int, samples []float64) *Slice {
	return &Slice{rate: rate, samples: samples}
}

// NewFailing returns a Source that yields samples and then fails with err.
func NewFailing(rate int, samples []float64, err error) *Slice {
	return &Slice{rate: rate, samples: samples, err: err}
}

// NewSine returns a Source with a sine tone of the given frequency, amplitude and length.
func NewSine(rate int, freq, amplitude float64, n int) *Slice {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return NewSlice(rate, samples)
}

func (s *Slice) SampleRate() int { return s.rate }
func (s *Slice) Close() error    { return nil }

func (s *Slice) ReadSamples(dst []float64) (int, error) {
	if s.pos >= len(s.samples) {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	n := copy(dst, s.samples[s.pos:])
	s.pos += n
	return n, nil
}
