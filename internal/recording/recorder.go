// Package recording writes the played stream to WAV files.
package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"github.com/oszuidwest/zwfm-scope/internal/queue"
	"github.com/oszuidwest/zwfm-scope/internal/util"
)

// flushSamples is how many samples are buffered before each encoder write.
const flushSamples = 4096

// Recorder is a non-real-time consumer that blocks on its own channel and
// encodes every sample to a 16-bit mono WAV file.
type Recorder struct {
	dir  string
	rate int

	mu      sync.RWMutex
	path    string
	written uint64
}

// New creates a recorder that writes into dir/<date>/.
func New(dir string, rate int) *Recorder {
	return &Recorder{dir: dir, rate: rate}
}

// Path returns the file being written, or "" before Run created it.
func (r *Recorder) Path() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}

// Written returns how many samples have been encoded.
func (r *Recorder) Written() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.written
}

// Run consumes rx until the sender closes it or ctx is done, then finalizes
// the file. The receiver is dropped on return so the sender stops feeding it.
func (r *Recorder) Run(ctx context.Context, rx *queue.Receiver) (err error) {
	defer rx.Close()

	path, err := r.createPath(time.Now())
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return util.WrapError("create recording", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = util.WrapError("close recording", cerr)
		}
	}()

	r.mu.Lock()
	r.path = path
	r.mu.Unlock()

	enc := wav.NewEncoder(f, r.rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: r.rate},
		Data:           make([]int, 0, flushSamples),
		SourceBitDepth: 16,
	}

	slog.Info("recording started", "path", path)

	for {
		v, rerr := rx.Receive(ctx)
		if rerr == nil {
			buf.Data = append(buf.Data, toPCM16(v))
			if len(buf.Data) == cap(buf.Data) {
				if err := r.flush(enc, buf); err != nil {
					return err
				}
			}
			continue
		}

		if err := r.flush(enc, buf); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return util.WrapError("finalize recording", err)
		}
		slog.Info("recording finished", "path", path, "samples", r.Written())

		if errors.Is(rerr, queue.ErrClosed) {
			return nil
		}
		return rerr
	}
}

func (r *Recorder) flush(enc *wav.Encoder, buf *goaudio.IntBuffer) error {
	if len(buf.Data) == 0 {
		return nil
	}
	if err := enc.Write(buf); err != nil {
		return util.WrapError("write recording", err)
	}
	r.mu.Lock()
	r.written += uint64(len(buf.Data))
	r.mu.Unlock()
	buf.Data = buf.Data[:0]
	return nil
}

// createPath makes the date directory and returns a unique file name in it.
func (r *Recorder) createPath(now time.Time) (string, error) {
	dayDir := filepath.Join(r.dir, now.Format("2006-01-02"))
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return "", util.WrapError("create recording directory", err)
	}
	name := fmt.Sprintf("scope-%s-%s.wav", now.Format("150405"), uuid.NewString()[:8])
	return filepath.Join(dayDir, name), nil
}

// toPCM16 converts a sample to a signed 16-bit value, clamping out-of-range input.
func toPCM16(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	v = max(-1, min(v, 1))
	return int(math.Round(v * 32767))
}
