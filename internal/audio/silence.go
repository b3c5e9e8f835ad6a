package audio

import "time"

// SilenceConfig holds the thresholds for silence detection.
type SilenceConfig struct {
	Threshold float64 // dBFS below which playback counts as silent
	Duration  float64 // seconds of silence before it is confirmed
	Recovery  float64 // seconds of audio before silence is over
}

// SilenceEvent is the outcome of one SilenceDetector.Update.
type SilenceEvent struct {
	InSilence     bool    // silence is confirmed
	Duration      float64 // seconds in the current silence
	JustEntered   bool    // silence was confirmed by this update
	JustRecovered bool    // silence ended with this update
	TotalDuration float64 // length of the silence that just ended
}

// SilenceDetector tracks silence with hysteresis: silence is confirmed only
// after Duration seconds below the threshold, and ends only after Recovery
// seconds above it.
type SilenceDetector struct {
	silenceStart  time.Time
	recoveryStart time.Time
	inSilence     bool
}

// NewSilenceDetector creates a detector in the "not silent" state.
func NewSilenceDetector() *SilenceDetector {
	return &SilenceDetector{}
}

// Update feeds the current level in dBFS.
func (d *SilenceDetector) Update(db float64, cfg SilenceConfig, now time.Time) SilenceEvent {
	var ev SilenceEvent

	if db < cfg.Threshold {
		d.recoveryStart = time.Time{}
		if d.silenceStart.IsZero() {
			d.silenceStart = now
		}
		elapsed := now.Sub(d.silenceStart).Seconds()

		if !d.inSilence && elapsed >= cfg.Duration {
			d.inSilence = true
			ev.JustEntered = true
		}
		if d.inSilence {
			ev.InSilence = true
			ev.Duration = elapsed
		}
		return ev
	}

	if !d.inSilence {
		d.silenceStart = time.Time{}
		return ev
	}

	if d.recoveryStart.IsZero() {
		d.recoveryStart = now
	}
	if now.Sub(d.recoveryStart).Seconds() < cfg.Recovery {
		// Still recovering; keep reporting silence.
		ev.InSilence = true
		ev.Duration = now.Sub(d.silenceStart).Seconds()
		return ev
	}

	ev.JustRecovered = true
	ev.TotalDuration = d.recoveryStart.Sub(d.silenceStart).Seconds()
	d.inSilence = false
	d.silenceStart = time.Time{}
	d.recoveryStart = time.Time{}
	return ev
}

// Reset returns the detector to the "not silent" state.
func (d *SilenceDetector) Reset() {
	d.silenceStart = time.Time{}
	d.recoveryStart = time.Time{}
	d.inSilence = false
}
