package scope

import "math"

// DefaultDecimation keeps one sample in 128 for display.
const DefaultDecimation = 128

// Decimator keeps one sample out of every K. The count carries over
// between frames, so the kept samples are evenly spaced in the stream.
type Decimator struct {
	k     int
	count int
}

// NewDecimator returns a decimator keeping 1 of every k samples. k <= 1 keeps all.
func NewDecimator(k int) *Decimator {
	return &Decimator{k: max(k, 1)}
}

// Keep reports whether the current sample is kept. The K-th, 2K-th, ... calls return true.
func (d *Decimator) Keep() bool {
	d.count++
	if d.count < d.k {
		return false
	}
	d.count = 0
	return true
}

// Scope combines decimation with the display ring.
type Scope struct {
	ring *Ring
	dec  *Decimator
}

// New returns a scope with the given ring capacity and decimation factor.
func New(capacity, decimation int) *Scope {
	return &Scope{
		ring: NewRing(capacity),
		dec:  NewDecimator(decimation),
	}
}

// Add offers one full-rate sample; it lands in the ring only if the decimator keeps it.
func (s *Scope) Add(v float64) {
	if s.dec.Keep() {
		s.ring.Push(v)
	}
}

// Len returns the number of points held.
func (s *Scope) Len() int { return s.ring.Len() }

// Snapshot returns the points held, oldest first.
func (s *Scope) Snapshot() []float64 { return s.ring.Snapshot() }

// Point is a display coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Points maps samples onto a width x height area. Sample i sits at
// x = i/len*width; amplitude s (clamped to [-1, 1]) sits at y = s*height/2 + height/2.
func Points(samples []float64, width, height float64) []Point {
	if len(samples) == 0 {
		return nil
	}
	pts := make([]Point, len(samples))
	n := float64(len(samples))
	for i, s := range samples {
		if math.IsNaN(s) {
			s = 0
		}
		s = max(-1, min(1, s))
		pts[i] = Point{
			X: float64(i) * width / n,
			Y: s*height/2 + height/2,
		}
	}
	return pts
}
