package notify

import (
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-scope/internal/audio"
	"github.com/oszuidwest/zwfm-scope/internal/config"
	"github.com/oszuidwest/zwfm-scope/internal/types"
	"github.com/oszuidwest/zwfm-scope/internal/util"
)

// PlaybackSource reports which file is loaded and how far it has played.
type PlaybackSource interface {
	Playback() types.Playback
}

// destination is one notification channel. announced is set once it has
// reported the current silence, so it reports the recovery too.
type destination struct {
	name       string
	configured func(*config.Snapshot) bool
	missing    error
	send       func(*config.Snapshot, Alert) error
	announced  bool
}

// SilenceNotifier turns silence detector output into alerts. Every configured
// destination announces a silence once; a recovery goes only to the
// destinations that announced its start.
type SilenceNotifier struct {
	cfg *config.Config
	now func() time.Time

	mu       sync.Mutex
	playback PlaybackSource
	dests    []*destination
}

// NewSilenceNotifier returns a notifier reading its destinations from cfg.
func NewSilenceNotifier(cfg *config.Config) *SilenceNotifier {
	return &SilenceNotifier{
		cfg: cfg,
		now: time.Now,
		dests: []*destination{
			{name: "webhook", configured: (*config.Snapshot).HasWebhook, missing: ErrWebhookNotConfigured, send: sendWebhookAlert},
			{name: "email", configured: emailConfigured, missing: ErrEmailNotConfigured, send: sendEmailAlert},
			{name: "log", configured: (*config.Snapshot).HasLogPath, missing: ErrLogNotConfigured, send: appendLogAlert},
		},
	}
}

// Track sets where alerts read the played file and position from.
func (n *SilenceNotifier) Track(src PlaybackSource) {
	n.mu.Lock()
	n.playback = src
	n.mu.Unlock()
}

// HandleEvent sends the alerts due for one silence detector update.
func (n *SilenceNotifier) HandleEvent(ev audio.SilenceEvent) {
	if ev.JustEntered {
		n.dispatch(EventSilence, ev.Duration)
	}
	if ev.JustRecovered {
		n.dispatch(EventRecovered, ev.TotalDuration)
	}
}

func (n *SilenceNotifier) dispatch(event string, duration float64) {
	cfg := n.cfg.Snapshot()
	alert := n.alert(event, &cfg)
	alert.Duration = duration

	n.mu.Lock()
	var due []*destination
	for _, d := range n.dests {
		switch {
		case event == EventSilence && !d.announced && d.configured(&cfg):
			d.announced = true
			due = append(due, d)
		case event == EventRecovered && d.announced:
			d.announced = false
			due = append(due, d)
		}
	}
	n.mu.Unlock()

	for _, d := range due {
		go util.LogNotifyResult(func() error { return d.send(&cfg, alert) }, d.name+" "+event, true)
	}
}

// alert stamps a new alert with the time and the current playback position.
func (n *SilenceNotifier) alert(event string, cfg *config.Snapshot) Alert {
	a := Alert{Event: event, Time: n.now(), Threshold: cfg.SilenceThreshold}

	n.mu.Lock()
	src := n.playback
	n.mu.Unlock()
	if src != nil {
		pb := src.Playback()
		a.File, a.Position = pb.File, pb.Position
	}
	return a
}

// TestTriggers maps the destination names accepted by the web interface to a
// function sending a test alert there.
func (n *SilenceNotifier) TestTriggers() map[string]func() error {
	triggers := make(map[string]func() error, len(n.dests))
	for _, d := range n.dests {
		triggers[d.name] = func() error { return n.test(d) }
	}
	return triggers
}

func (n *SilenceNotifier) test(d *destination) error {
	cfg := n.cfg.Snapshot()
	if !d.configured(&cfg) {
		return d.missing
	}
	return d.send(&cfg, n.alert(EventTest, &cfg))
}
