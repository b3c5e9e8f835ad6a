package player

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/oszuidwest/zwfm-scope/internal/audio"
	"github.com/oszuidwest/zwfm-scope/internal/handoff"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []audio.SilenceEvent
}

func (h *recordingHandler) HandleEvent(ev audio.SilenceEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func testMonitorConfig(capacity, decimation int) MonitorConfig {
	return MonitorConfig{
		Meter:         audio.MeterConfig{Alpha: 0.5, RangeDB: 70},
		Silence:       audio.SilenceConfig{Threshold: -40, Duration: 1, Recovery: 1},
		ScopeCapacity: capacity,
		Decimation:    decimation,
		FrameRate:     60,
	}
}

func TestMonitor_EndToEnd(t *testing.T) {
	t.Parallel()

	tx, rx := newChannel(t, 16)
	m := NewMonitor(handoff.NewCell(rx), testMonitorConfig(3, 1), nil)

	for _, v := range []float64{1.0, -1.0, 0.5, -0.5, 0.0} {
		if err := tx.TrySend(v); err != nil {
			t.Fatal(err)
		}
	}
	tx.Close()

	if err := m.OnUIFrame(time.Now()); err != nil {
		t.Fatalf("OnUIFrame() error = %v", err)
	}

	f := m.Frame()
	if want := []float64{0.5, -0.5, 0.0}; !slices.Equal(f.Scope, want) {
		t.Errorf("Scope = %v, want %v", f.Scope, want)
	}
	if f.Consumed != 5 || !f.Ended {
		t.Errorf("Consumed = %d Ended = %v, want 5 true", f.Consumed, f.Ended)
	}
	if f.Levels.Left != f.Levels.Right || f.Levels.Left < 0 || f.Levels.Left > 1 {
		t.Errorf("Levels = %+v, want mirrored value in [0, 1]", f.Levels)
	}
}

func TestMonitor_ScopeClampsOutOfRangeSamples(t *testing.T) {
	t.Parallel()

	tx, rx := newChannel(t, 8)
	m := NewMonitor(handoff.NewCell(rx), testMonitorConfig(8, 1), nil)

	for _, v := range []float64{math.NaN(), 2.5, math.Inf(-1), 0.25} {
		if err := tx.TrySend(v); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.OnUIFrame(time.Now()); err != nil {
		t.Fatal(err)
	}

	f := m.Frame()
	if want := []float64{0, 1, -1, 0.25}; !slices.Equal(f.Scope, want) {
		t.Errorf("Scope = %v, want %v", f.Scope, want)
	}
	if _, err := json.Marshal(f); err != nil {
		t.Errorf("json.Marshal(frame) error = %v", err)
	}
}

func TestMonitor_ReceiverAlreadyTaken(t *testing.T) {
	t.Parallel()

	_, rx := newChannel(t, 4)
	cell := handoff.NewCell(rx)
	if _, err := cell.Take(); err != nil {
		t.Fatal(err)
	}

	m := NewMonitor(cell, testMonitorConfig(8, 1), nil)
	if err := m.OnUIFrame(time.Now()); !errors.Is(err, handoff.ErrTaken) {
		t.Errorf("OnUIFrame() error = %v, want %v", err, handoff.ErrTaken)
	}
}

func TestMonitor_DecimationAcrossFrames(t *testing.T) {
	t.Parallel()

	tx, rx := newChannel(t, 16)
	m := NewMonitor(handoff.NewCell(rx), testMonitorConfig(16, 4), nil)
	now := time.Now()

	for _, frame := range [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8}} {
		for _, v := range frame {
			if err := tx.TrySend(v); err != nil {
				t.Fatal(err)
			}
		}
		if err := m.OnUIFrame(now); err != nil {
			t.Fatal(err)
		}
	}

	if got, want := m.Frame().Scope, []float64{4, 8}; !slices.Equal(got, want) {
		t.Errorf("Scope = %v, want %v", got, want)
	}
	if got := m.Frame().Consumed; got != 8 {
		t.Errorf("Consumed = %d, want 8", got)
	}
}

func TestMonitor_EmptyChannelKeepsPublishing(t *testing.T) {
	t.Parallel()

	_, rx := newChannel(t, 4)
	m := NewMonitor(handoff.NewCell(rx), testMonitorConfig(8, 1), nil)

	for range 3 {
		if err := m.OnUIFrame(time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	f := m.Frame()
	if f.Consumed != 0 || f.Ended || len(f.Scope) != 0 {
		t.Errorf("Frame() = %+v, want empty and not ended", f)
	}
	if f.Levels.Left != 0 {
		t.Errorf("Levels.Left = %v, want 0", f.Levels.Left)
	}
}

func TestMonitor_FrameIsImmutable(t *testing.T) {
	t.Parallel()

	tx, rx := newChannel(t, 8)
	m := NewMonitor(handoff.NewCell(rx), testMonitorConfig(4, 1), nil)

	_ = tx.TrySend(0.25)
	_ = m.OnUIFrame(time.Now())
	first := m.Frame()

	_ = tx.TrySend(0.75)
	_ = m.OnUIFrame(time.Now())

	if !slices.Equal(first.Scope, []float64{0.25}) {
		t.Errorf("earlier frame changed to %v", first.Scope)
	}
}

func TestMonitor_SilenceEvents(t *testing.T) {
	t.Parallel()

	tx, rx := newChannel(t, 64)
	h := &recordingHandler{}
	m := NewMonitor(handoff.NewCell(rx), testMonitorConfig(8, 1), h)
	t0 := time.Now()

	_ = tx.TrySend(0)
	_ = m.OnUIFrame(t0)
	_ = m.OnUIFrame(t0.Add(2 * time.Second))

	f := m.Frame()
	if !f.Levels.Silence || f.Levels.SilenceLevel != "active" {
		t.Errorf("Levels = %+v, want active silence", f.Levels)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) != 2 {
		t.Fatalf("handler saw %d events, want 2", len(h.events))
	}
	if h.events[0].JustEntered || !h.events[1].JustEntered {
		t.Errorf("events = %+v, want silence entered on the second frame", h.events)
	}
}
