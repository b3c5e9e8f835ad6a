package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/oszuidwest/zwfm-scope/internal/queue"
	"github.com/oszuidwest/zwfm-scope/internal/source"
	"github.com/oszuidwest/zwfm-scope/internal/types"
	"github.com/oszuidwest/zwfm-scope/internal/util"
)

// ReadChunk is how many samples the distributor reads from the source at once.
const ReadChunk = 1024

// ErrDistributorRunning is returned by Register once Run has started.
var ErrDistributorRunning = errors.New("distributor already running")

// OverflowPolicy decides what happens when a consumer channel is full.
type OverflowPolicy int

const (
	// PolicyBlock waits for space. Use it for the render channel so playback is gapless.
	PolicyBlock OverflowPolicy = iota
	// PolicyDrop discards the sample for that consumer only and counts it.
	PolicyDrop
)

func (p OverflowPolicy) String() string {
	if p == PolicyDrop {
		return "drop"
	}
	return "block"
}

type output struct {
	name    string
	tx      *queue.Sender
	policy  OverflowPolicy
	sent    atomic.Uint64
	dropped atomic.Uint64
	closed  atomic.Bool
}

// Distributor reads a source once and forwards every sample to each
// registered consumer channel in registration order. It owns the senders
// and closes all of them when Run returns.
type Distributor struct {
	mu      sync.Mutex
	outputs []*output
	running atomic.Bool
}

// NewDistributor creates a distributor with no outputs.
func NewDistributor() *Distributor {
	return &Distributor{}
}

// Register adds a consumer channel. It must be called before Run.
func (d *Distributor) Register(name string, tx *queue.Sender, policy OverflowPolicy) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return ErrDistributorRunning
	}
	d.outputs = append(d.outputs, &output{name: name, tx: tx, policy: policy})
	return nil
}

// Run distributes src until it is exhausted, fails, or ctx is done.
// Every sender is closed on return, which is how consumers learn the stream ended.
// A read error is logged and returned; exhaustion returns nil.
func (d *Distributor) Run(ctx context.Context, src source.Source) error {
	d.mu.Lock()
	if !d.running.CompareAndSwap(false, true) {
		d.mu.Unlock()
		return ErrDistributorRunning
	}
	all := slices.Clone(d.outputs)
	d.mu.Unlock()

	defer func() {
		for _, o := range all {
			o.tx.Close()
		}
	}()

	active := slices.Clone(all)
	buf := make([]float64, ReadChunk)

	for {
		n, readErr := src.ReadSamples(buf)

		for _, s := range buf[:n] {
			var err error
			if active, err = d.forward(ctx, active, s); err != nil {
				return err
			}
		}

		if len(all) > 0 && len(active) == 0 {
			slog.Info("all consumers gone, stopping distribution")
			return nil
		}

		switch {
		case readErr == nil:
		case errors.Is(readErr, io.EOF):
			slog.Info("source exhausted")
			return nil
		default:
			slog.Error("source read failed", "error", readErr)
			return util.WrapError("read samples", readErr)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// forward sends one sample to every active output and returns the outputs
// that are still active.
func (d *Distributor) forward(ctx context.Context, active []*output, s float64) ([]*output, error) {
	for i := 0; i < len(active); {
		o := active[i]

		var err error
		if o.policy == PolicyBlock {
			err = o.tx.Send(ctx, s)
		} else {
			err = o.tx.TrySend(s)
		}

		switch {
		case err == nil:
			o.sent.Add(1)
		case errors.Is(err, queue.ErrFull):
			o.dropped.Add(1)
		case errors.Is(err, queue.ErrReceiverClosed), errors.Is(err, queue.ErrClosed):
			o.closed.Store(true)
			slog.Info("consumer closed, removing output", "output", o.name)
			active = slices.Delete(active, i, i+1)
			continue
		default:
			return active, err
		}
		i++
	}
	return active, nil
}

// Stats returns delivery counters for every registered output.
func (d *Distributor) Stats() []types.ChannelStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := make([]types.ChannelStatus, 0, len(d.outputs))
	for _, o := range d.outputs {
		stats = append(stats, types.ChannelStatus{
			Name:    o.name,
			Policy:  o.policy.String(),
			Sent:    o.sent.Load(),
			Dropped: o.dropped.Load(),
			Closed:  o.closed.Load(),
			Queued:  o.tx.Len(),
		})
	}
	return stats
}
