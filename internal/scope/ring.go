// Package scope keeps a decimated, bounded sample history for waveform display.
package scope

// DefaultCapacity is the number of points kept for the display.
const DefaultCapacity = 8192

// Ring is a fixed-capacity FIFO of samples. Once full, each Push evicts the
// oldest sample. It is not safe for concurrent use; the frame loop owns it.
type Ring struct {
	buf   []float64
	start int // index of the oldest sample
	n     int
}

// NewRing returns an empty ring holding at most capacity samples.
// A capacity below one is raised to one.
func NewRing(capacity int) *Ring {
	return &Ring{buf: make([]float64, max(capacity, 1))}
}

// Push appends v, evicting the oldest sample when the ring is full.
func (r *Ring) Push(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of samples held.
func (r *Ring) Len() int { return r.n }

// Cap returns the maximum number of samples held.
func (r *Ring) Cap() int { return len(r.buf) }

// Reset empties the ring.
func (r *Ring) Reset() {
	r.start = 0
	r.n = 0
}

// Snapshot returns a copy of the contents, oldest first.
func (r *Ring) Snapshot() []float64 {
	return r.SnapshotInto(make([]float64, 0, r.n))
}

// SnapshotInto appends the contents, oldest first, to dst[:0] and returns it.
func (r *Ring) SnapshotInto(dst []float64) []float64 {
	dst = dst[:0]
	end := r.start + r.n
	if end <= len(r.buf) {
		return append(dst, r.buf[r.start:end]...)
	}
	dst = append(dst, r.buf[r.start:]...)
	return append(dst, r.buf[:end-len(r.buf)]...)
}
