package audio

import "time"

// PeakHoldDuration is how long a peak stays on the meter before it may fall.
const PeakHoldDuration = 1500 * time.Millisecond

// PeakHolder tracks the held peak of a normalized meter level.
type PeakHolder struct {
	held     float64
	heldAt   time.Time
	duration time.Duration
}

// NewPeakHolder creates a peak holder with the default hold time.
func NewPeakHolder() *PeakHolder {
	return &PeakHolder{duration: PeakHoldDuration}
}

// Update offers the current level and returns the held peak.
// A higher level replaces the peak at once; a lower one only after the hold time.
func (p *PeakHolder) Update(level float64, now time.Time) float64 {
	if level >= p.held || now.Sub(p.heldAt) > p.duration {
		p.held = level
		p.heldAt = now
	}
	return p.held
}

// Reset drops the held peak.
func (p *PeakHolder) Reset() {
	p.held = 0
	p.heldAt = time.Time{}
}
