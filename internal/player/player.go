// Package player wires a decoded source to the audio device, the UI monitor
// and the optional recording tap.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oszuidwest/zwfm-scope/internal/audio"
	"github.com/oszuidwest/zwfm-scope/internal/backend"
	"github.com/oszuidwest/zwfm-scope/internal/config"
	"github.com/oszuidwest/zwfm-scope/internal/handoff"
	"github.com/oszuidwest/zwfm-scope/internal/queue"
	"github.com/oszuidwest/zwfm-scope/internal/recording"
	"github.com/oszuidwest/zwfm-scope/internal/render"
	"github.com/oszuidwest/zwfm-scope/internal/source"
	"github.com/oszuidwest/zwfm-scope/internal/types"
	"github.com/oszuidwest/zwfm-scope/internal/util"
)

// ErrAlreadyRunning is returned by Start while a file is loaded or a
// previous session is still shutting down.
var ErrAlreadyRunning = errors.New("player already running")

// Consumer channel names as reported in the status.
const (
	ChannelRender    = "render"
	ChannelMonitor   = "monitor"
	ChannelRecording = "recording"
)

// SourceOpener opens the file to play.
type SourceOpener func(path string) (source.Source, error)

// DeviceOpener opens the audio device that pulls from the render sink.
type DeviceOpener func(opts backend.Options, r io.Reader) (backend.Device, error)

// Option customizes a Player.
type Option func(*Player)

// WithSourceOpener replaces source.Open.
func WithSourceOpener(open SourceOpener) Option {
	return func(p *Player) { p.openSource = open }
}

// WithDeviceOpener replaces backend.New.
func WithDeviceOpener(open DeviceOpener) Option {
	return func(p *Player) { p.openDevice = open }
}

// session holds everything that lives for one Start/Stop cycle.
type session struct {
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	src      source.Source
	device   backend.Device
	dist     *Distributor
	sink     *render.Sink
	monitor  *Monitor

	recorder     *recording.Recorder
	recRx        *queue.Receiver
	recordingDir string
	retention    int
}

// Player manages playback of one file at a time.
type Player struct {
	config     *config.Config
	handler    SilenceHandler
	openSource SourceOpener
	openDevice DeviceOpener

	playing atomic.Bool

	mu        sync.RWMutex
	state     types.PlayerState
	file      string
	rate      int
	lastError string
	startTime time.Time
	sess      *session
}

// New creates a stopped player. handler receives silence events and may be nil.
func New(cfg *config.Config, handler SilenceHandler, opts ...Option) *Player {
	p := &Player{
		config:     cfg,
		handler:    handler,
		openSource: source.Open,
		openDevice: backend.New,
		state:      types.StateStopped,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current player state.
func (p *Player) State() types.PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Start opens path and begins playback.
func (p *Player) Start(path string) error {
	if p.State() == types.StateFinished {
		if err := p.Stop(); err != nil {
			return err
		}
	}

	p.mu.Lock()
	switch p.state {
	case types.StateRunning, types.StateStarting, types.StateStopping:
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.state = types.StateStarting
	p.mu.Unlock()

	sess, rate, err := p.open(path)
	if err != nil {
		p.mu.Lock()
		p.state = types.StateStopped
		p.lastError = err.Error()
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.sess = sess
	p.file = path
	p.rate = rate
	p.lastError = ""
	p.startTime = time.Now()
	p.state = types.StateRunning
	p.launch(sess)
	p.mu.Unlock()

	slog.Info("playback started", "file", filepath.Base(path), "sample_rate", rate)
	return nil
}

// open builds the pipeline for path and starts its goroutines.
func (p *Player) open(path string) (*session, int, error) {
	cfg := p.config.Snapshot()

	src, err := p.openSource(path)
	if err != nil {
		return nil, 0, util.WrapError("open source", err)
	}
	rate := src.SampleRate()

	renderTx, renderRx, err := queue.New(cfg.ChannelCapacity)
	if err != nil {
		util.SafeClose(src, "source")
		return nil, 0, util.WrapError("create render channel", err)
	}
	uiTx, uiRx, err := queue.New(cfg.ChannelCapacity)
	if err != nil {
		util.SafeClose(src, "source")
		return nil, 0, util.WrapError("create monitor channel", err)
	}

	sess := &session{
		src:  src,
		dist: NewDistributor(),
		sink: render.NewSink(renderRx, &p.playing),
	}
	sess.monitor = NewMonitor(handoff.NewCell(uiRx), MonitorConfig{
		Meter:         audio.MeterConfig{Alpha: cfg.MeterAlpha, RangeDB: cfg.MeterRangeDB},
		Silence:       audio.SilenceConfig{Threshold: cfg.SilenceThreshold, Duration: cfg.SilenceDuration, Recovery: cfg.SilenceRecovery},
		ScopeCapacity: cfg.ScopeCapacity,
		Decimation:    cfg.ScopeDecimation,
		FrameRate:     cfg.ScopeFrameRate,
	}, p.handler)

	device, err := p.openDevice(backend.Options{
		Kind:       cfg.AudioBackend,
		SampleRate: rate,
		BufferMS:   cfg.AudioBufferMS,
	}, sess.sink)
	if err != nil {
		util.SafeClose(src, "source")
		return nil, 0, err
	}
	sess.device = device

	// Registration order is delivery order; the render channel goes first.
	_ = sess.dist.Register(ChannelRender, renderTx, PolicyBlock)
	_ = sess.dist.Register(ChannelMonitor, uiTx, PolicyDrop)

	if cfg.RecordingEnabled {
		var recTx *queue.Sender
		recTx, sess.recRx, err = queue.New(cfg.ChannelCapacity)
		if err != nil {
			util.SafeClose(device, "audio device")
			util.SafeClose(src, "source")
			return nil, 0, util.WrapError("create recording channel", err)
		}
		sess.recorder = recording.New(cfg.RecordingDir, rate)
		sess.recordingDir = cfg.RecordingDir
		sess.retention = cfg.RecordingRetention
		_ = sess.dist.Register(ChannelRecording, recTx, PolicyDrop)
	}

	p.playing.Store(true)
	if err := device.Start(); err != nil {
		util.SafeClose(device, "audio device")
		util.SafeClose(src, "source")
		return nil, 0, util.WrapError("start audio device", err)
	}

	return sess, rate, nil
}

// launch starts the session goroutines. The session must already be published.
func (p *Player) launch(sess *session) {
	ctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel

	sess.wg.Go(func() {
		err := sess.dist.Run(ctx, sess.src)
		p.onSourceDone(sess, err)
	})
	sess.wg.Go(func() {
		if err := sess.monitor.Run(ctx); err != nil {
			slog.Error("monitor stopped", "error", err)
		}
	})
	if sess.recorder != nil {
		sess.wg.Go(func() {
			if err := sess.recorder.Run(ctx, sess.recRx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("recording failed", "error", err)
			}
		})
		sess.wg.Go(func() {
			recording.RunCleanup(ctx, sess.recordingDir, sess.retention)
		})
	}
}

// onSourceDone records the distributor's outcome.
func (p *Player) onSourceDone(sess *session, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess != sess || p.state != types.StateRunning {
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		p.lastError = err.Error()
	}
	p.state = types.StateFinished
	slog.Info("playback finished", "file", filepath.Base(p.file))
}

// Stop ends playback and releases the device and the source.
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.sess == nil || p.state == types.StateStopping {
		p.mu.Unlock()
		return nil
	}
	sess := p.sess
	p.state = types.StateStopping
	p.mu.Unlock()

	sess.cancel()

	done := make(chan struct{})
	go func() {
		sess.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(types.ShutdownTimeout):
		slog.Warn("player goroutines did not stop in time")
	}

	util.SafeClose(sess.device, "audio device")
	util.SafeClose(sess.src, "source")

	p.mu.Lock()
	if p.sess == sess {
		p.sess = nil
		p.state = types.StateStopped
	}
	p.mu.Unlock()

	slog.Info("playback stopped")
	return nil
}

// TogglePlayback flips between playing and paused and returns the new value.
// While paused the device renders silence and the pipeline stalls behind it.
func (p *Player) TogglePlayback() bool {
	for {
		old := p.playing.Load()
		if p.playing.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Playing reports whether playback is unpaused.
func (p *Player) Playing() bool {
	return p.playing.Load()
}

// Frame returns the monitor's latest frame, or an empty frame when stopped.
func (p *Player) Frame() Frame {
	p.mu.RLock()
	sess := p.sess
	p.mu.RUnlock()

	if sess == nil {
		return Frame{Scope: []float64{}}
	}
	return sess.monitor.Frame()
}

// position converts the rendered sample count into playback time. Callers hold p.mu.
func (p *Player) position() time.Duration {
	if p.sess == nil || p.rate <= 0 {
		return 0
	}
	played, rate := p.sess.sink.Stats().Played, uint64(p.rate)
	return time.Duration(played/rate)*time.Second + time.Duration(played%rate)*time.Second/time.Duration(rate)
}

// Playback returns the loaded file and how far into it the device has played.
func (p *Player) Playback() types.Playback {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.sess == nil {
		return types.Playback{}
	}
	return types.Playback{File: filepath.Base(p.file), Position: p.position()}
}

// Status returns the current player status.
func (p *Player) Status() types.PlayerStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := types.PlayerStatus{
		State:      p.state,
		SampleRate: p.rate,
		Playing:    p.playing.Load(),
		LastError:  p.lastError,
	}
	if p.file != "" {
		status.File = filepath.Base(p.file)
	}
	if p.sess == nil {
		return status
	}

	if p.state == types.StateRunning {
		status.Uptime = util.FormatUptime(time.Since(p.startTime))
	}
	stats := p.sess.sink.Stats()
	status.Position = p.position().Seconds()
	status.Rendered = stats.Frames
	status.Underruns = stats.Underruns
	status.Channels = p.sess.dist.Stats()
	if p.sess.recorder != nil {
		status.Recording = p.sess.recorder.Path()
	}
	return status
}

// String implements fmt.Stringer for log lines.
func (p *Player) String() string {
	s := p.Status()
	return fmt.Sprintf("%s %s (%d Hz)", s.State, s.File, s.SampleRate)
}
