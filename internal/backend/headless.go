package backend

import (
	"io"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-scope/internal/render"
)

// Headless pulls frames on a wall-clock ticker and discards them.
// It paces the pipeline like a sound card on machines without one.
type Headless struct {
	src    io.Reader
	period time.Duration
	buf    []byte

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	started bool
}

// NewHeadless creates a device that reads one buffer of audio per period.
func NewHeadless(rate int, period time.Duration, r io.Reader) *Headless {
	frames := max(rate*int(period/time.Millisecond)/1000, 1)
	return &Headless{
		src:    r,
		period: period,
		buf:    make([]byte, frames*render.BytesPerFrame),
	}
}

func (h *Headless) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return nil
	}
	h.started = true
	h.stop = make(chan struct{})
	h.done = make(chan struct{})
	go h.loop(h.stop, h.done)
	return nil
}

func (h *Headless) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := h.src.Read(h.buf); err != nil {
				return
			}
		}
	}
}

func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return nil
	}
	close(h.stop)
	<-h.done
	h.started = false
	return nil
}
