package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-scope/internal/audio"
	"github.com/oszuidwest/zwfm-scope/internal/handoff"
	"github.com/oszuidwest/zwfm-scope/internal/queue"
	"github.com/oszuidwest/zwfm-scope/internal/scope"
	"github.com/oszuidwest/zwfm-scope/internal/types"
)

// SilenceHandler receives the silence detector's output once per UI frame.
type SilenceHandler interface {
	HandleEvent(audio.SilenceEvent)
}

// MonitorConfig tunes the UI-side consumers.
type MonitorConfig struct {
	Meter         audio.MeterConfig
	Silence       audio.SilenceConfig
	ScopeCapacity int
	Decimation    int
	FrameRate     int
}

// Frame is an immutable view of the monitor published once per UI tick.
type Frame struct {
	Levels   types.AudioLevels `json:"levels"`
	Scope    []float64         `json:"scope"`
	Consumed uint64            `json:"consumed"`
	Ended    bool              `json:"ended,omitzero"`
}

// Monitor is the UI-rate consumer: on every frame it drains its channel
// without blocking, feeds the level meter with every sample and the scope
// with the decimated ones, then publishes a Frame.
type Monitor struct {
	cell     *handoff.Cell[*queue.Receiver]
	rx       *queue.Receiver
	meter    *audio.LevelMeter
	scope    *scope.Scope
	peak     *audio.PeakHolder
	silence  *audio.SilenceDetector
	handler  SilenceHandler
	cfg      MonitorConfig
	consumed uint64
	ended    bool

	mu    sync.RWMutex
	frame Frame
}

// NewMonitor creates a monitor that takes its receiver from cell on the first frame.
// handler may be nil.
func NewMonitor(cell *handoff.Cell[*queue.Receiver], cfg MonitorConfig, handler SilenceHandler) *Monitor {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 30
	}
	return &Monitor{
		cell:    cell,
		meter:   audio.NewLevelMeter(cfg.Meter),
		scope:   scope.New(cfg.ScopeCapacity, cfg.Decimation),
		peak:    audio.NewPeakHolder(),
		silence: audio.NewSilenceDetector(),
		handler: handler,
		cfg:     cfg,
		frame:   Frame{Scope: []float64{}},
	}
}

// OnUIFrame consumes everything currently queued and publishes a new Frame.
// It never blocks on the producer. It fails with handoff.ErrTaken when another
// component already owns the receiver.
func (m *Monitor) OnUIFrame(now time.Time) error {
	if m.rx == nil {
		rx, err := m.cell.Take()
		if err != nil {
			return err
		}
		m.rx = rx
	}

	// Bounded by capacity so a fast producer cannot starve the frame.
	for range m.rx.Cap() {
		if m.ended {
			break
		}
		v, err := m.rx.TryReceive()
		if err != nil {
			if errors.Is(err, queue.ErrClosed) {
				m.ended = true
			}
			break
		}
		m.meter.Process(v)
		m.scope.Add(audio.ClampSample(v))
		m.consumed++
	}

	level := m.meter.Level()
	db := m.meter.DB()
	peak := m.peak.Update(level, now)
	ev := m.silence.Update(db, m.cfg.Silence, now)
	if m.handler != nil {
		m.handler.HandleEvent(ev)
	}

	silenceLevel := types.SilenceLevelNone
	if ev.InSilence {
		silenceLevel = types.SilenceLevelActive
	}

	frame := Frame{
		Levels: types.AudioLevels{
			Left:            level,
			Right:           level,
			PeakLeft:        peak,
			PeakRight:       peak,
			DB:              db,
			Silence:         ev.InSilence,
			SilenceDuration: ev.Duration,
			SilenceLevel:    silenceLevel,
		},
		Scope:    m.scope.Snapshot(),
		Consumed: m.consumed,
		Ended:    m.ended,
	}

	m.mu.Lock()
	m.frame = frame
	m.mu.Unlock()
	return nil
}

// Frame returns the most recently published frame. Callers must not modify it.
func (m *Monitor) Frame() Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frame
}

// Run calls OnUIFrame at the configured frame rate until ctx is done,
// then drops the receiver so the distributor stops feeding it.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(m.cfg.FrameRate))
	defer ticker.Stop()
	defer func() {
		if m.rx != nil {
			m.rx.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := m.OnUIFrame(now); err != nil {
				return err
			}
		}
	}
}
