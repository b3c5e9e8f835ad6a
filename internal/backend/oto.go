//go:build !headless

package backend

import (
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/oszuidwest/zwfm-scope/internal/util"
)

// otoDevice plays through the system mixer via oto.
type otoDevice struct {
	ctx    *oto.Context
	src    io.Reader
	mu     sync.Mutex
	player *oto.Player
}

// oto allows one context per process; it is shared by every device.
var (
	sharedMu   sync.Mutex
	sharedCtx  *oto.Context
	sharedRate int
)

func sharedContext(rate int, buffer time.Duration) (*oto.Context, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedCtx != nil {
		if rate != sharedRate {
			return nil, ErrRateChanged
		}
		return sharedCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   buffer,
	})
	if err != nil {
		return nil, util.WrapError("open audio device", err)
	}
	<-ready

	sharedCtx, sharedRate = ctx, rate
	return ctx, nil
}

func newOto(rate int, buffer time.Duration, r io.Reader) (Device, error) {
	ctx, err := sharedContext(rate, buffer)
	if err != nil {
		return nil, err
	}
	return &otoDevice{ctx: ctx, src: r}, nil
}

func (d *otoDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player != nil {
		return nil
	}
	d.player = d.ctx.NewPlayer(d.src)
	d.player.Play()
	return nil
}

func (d *otoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	return err
}
