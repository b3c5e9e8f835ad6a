// Package audio provides loudness metering, peak hold and silence detection.
package audio

import "math"

// Meter defaults.
const (
	// DefaultAlpha is the smoothing coefficient of the mean-square filter.
	DefaultAlpha = 0.00005
	// DefaultRangeDB is the span of the meter; levels below -DefaultRangeDB dBFS read as zero.
	DefaultRangeDB = 70.0
)

// MeterConfig tunes a LevelMeter.
type MeterConfig struct {
	Alpha   float64 // smoothing coefficient in (0, 1)
	RangeDB float64 // displayed range in dB, > 0
}

// DefaultMeterConfig returns the standard meter tuning.
func DefaultMeterConfig() MeterConfig {
	return MeterConfig{Alpha: DefaultAlpha, RangeDB: DefaultRangeDB}
}

// ClampSample limits v to the nominal [-1, 1] range. NaN becomes silence.
func ClampSample(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(-1, min(1, v))
}

// LevelMeter tracks the exponentially smoothed mean square of a mono signal
// and maps it onto a normalized [0, 1] bar level.
// It is not safe for concurrent use; the frame loop owns it.
type LevelMeter struct {
	alpha    float64
	rangeDB  float64
	filtered float64 // always >= 0
}

// NewLevelMeter creates a meter. Out-of-range settings fall back to the defaults.
func NewLevelMeter(cfg MeterConfig) *LevelMeter {
	if !(cfg.Alpha > 0 && cfg.Alpha < 1) {
		cfg.Alpha = DefaultAlpha
	}
	if !(cfg.RangeDB > 0) || math.IsInf(cfg.RangeDB, 0) {
		cfg.RangeDB = DefaultRangeDB
	}
	return &LevelMeter{alpha: cfg.Alpha, rangeDB: cfg.RangeDB}
}

// Process feeds one full-rate sample through the filter. Non-finite samples are ignored.
func (m *LevelMeter) Process(sample float64) {
	power := sample * sample
	if math.IsNaN(power) || math.IsInf(power, 0) {
		return
	}
	m.filtered = m.filtered*(1-m.alpha) + power*m.alpha
}

// Filtered returns the smoothed mean square.
func (m *LevelMeter) Filtered() float64 {
	return m.filtered
}

// Level returns the meter reading in [0, 1]: 0 is silence, 1 is full scale.
func (m *LevelMeter) Level() float64 {
	if m.filtered <= 0 {
		return 0
	}
	db := 20*math.Log10(m.filtered) + m.rangeDB
	db = max(0, min(db, m.rangeDB))
	return db / m.rangeDB
}

// DB returns the reading in dBFS, between -RangeDB and 0.
func (m *LevelMeter) DB() float64 {
	return m.Level()*m.rangeDB - m.rangeDB
}

// Levels returns the reading for the left and right bars. The source is
// mono, so both carry the same value.
func (m *LevelMeter) Levels() (left, right float64) {
	l := m.Level()
	return l, l
}

// RangeDB returns the configured range.
func (m *LevelMeter) RangeDB() float64 {
	return m.rangeDB
}

// Reset clears the filter state.
func (m *LevelMeter) Reset() {
	m.filtered = 0
}
