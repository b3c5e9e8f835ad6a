// Package render feeds the audio device from a sample queue inside its callback.
package render

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/oszuidwest/zwfm-scope/internal/audio"
	"github.com/oszuidwest/zwfm-scope/internal/queue"
)

// BytesPerFrame is the size of one mono float32 frame on the wire.
const BytesPerFrame = 4

// Stats is a point-in-time copy of the sink counters.
type Stats struct {
	Frames    uint64 `json:"frames"`
	Played    uint64 `json:"played"`
	Underruns uint64 `json:"underruns"`
}

// Sink pulls exactly one sample per output frame from its queue.
// Every method called from the device callback is non-blocking and allocation free:
// an empty or closed queue yields silence.
type Sink struct {
	rx      *queue.Receiver
	playing *atomic.Bool

	frames    atomic.Uint64
	played    atomic.Uint64
	underruns atomic.Uint64
}

// NewSink returns a sink draining rx. While playing is false the sink emits
// silence and leaves the queue untouched; a nil playing flag means always play.
func NewSink(rx *queue.Receiver, playing *atomic.Bool) *Sink {
	return &Sink{rx: rx, playing: playing}
}

// OnRenderFrame fills out with one sample per frame.
func (s *Sink) OnRenderFrame(out []float32) {
	if s.playing != nil && !s.playing.Load() {
		clear(out)
		s.frames.Add(uint64(len(out)))
		return
	}

	var missed uint64
	for i := range out {
		out[i] = s.next(&missed)
	}
	s.frames.Add(uint64(len(out)))
	s.played.Add(uint64(len(out)) - missed)
	if missed > 0 {
		s.underruns.Add(missed)
	}
}

// Read implements io.Reader for pull-based devices. p is filled with
// little-endian float32 mono frames; a trailing partial frame is left unwritten.
func (s *Sink) Read(p []byte) (int, error) {
	n := len(p) - len(p)%BytesPerFrame
	if n == 0 {
		return 0, nil
	}

	if s.playing != nil && !s.playing.Load() {
		clear(p[:n])
		s.frames.Add(uint64(n / BytesPerFrame))
		return n, nil
	}

	var missed uint64
	for i := 0; i < n; i += BytesPerFrame {
		binary.LittleEndian.PutUint32(p[i:], math.Float32bits(s.next(&missed)))
	}
	s.frames.Add(uint64(n / BytesPerFrame))
	s.played.Add(uint64(n/BytesPerFrame) - missed)
	if missed > 0 {
		s.underruns.Add(missed)
	}
	return n, nil
}

// next returns the next sample converted to the device width, or silence.
func (s *Sink) next(missed *uint64) float32 {
	v, err := s.rx.TryReceive()
	if err != nil {
		*missed++
		return 0
	}
	return toDevice(v)
}

// toDevice clamps v to [-1, 1] and narrows it to float32. NaN becomes silence.
func toDevice(v float64) float32 {
	return float32(audio.ClampSample(v))
}

// Stats returns the sink counters.
func (s *Sink) Stats() Stats {
	return Stats{
		Frames:    s.frames.Load(),
		Played:    s.played.Load(),
		Underruns: s.underruns.Load(),
	}
}
