// Package source decodes audio files into a mono stream of normalized samples.
package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oszuidwest/zwfm-scope/internal/util"
)

// ErrUnsupportedFormat is returned when no decoder is registered for a file.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Source produces a finite sequence of mono samples at its native rate.
type Source interface {
	// SampleRate of the stream in Hz.
	SampleRate() int
	// ReadSamples fills dst with samples and returns how many were written.
	// It returns io.EOF once the stream is exhausted.
	ReadSamples(dst []float64) (int, error)
	// Close releases the underlying file.
	Close() error
}

// Decoder constructs a Source from an open file.
type Decoder interface {
	Decode(r io.ReadSeeker) (Source, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(r io.ReadSeeker) (Source, error)

// Decode calls f(r).
func (f DecoderFunc) Decode(r io.ReadSeeker) (Source, error) { return f(r) }

// Registry maps file extensions to decoders.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// Register adds a decoder for an extension such as ".wav".
func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[normalizeExt(ext)] = d
}

// Get returns the decoder for an extension.
func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.codecs[normalizeExt(ext)]
	return d, ok
}

// Open opens path and decodes it with the decoder for its extension.
func (r *Registry) Open(path string) (Source, error) {
	dec, ok := r.Get(filepath.Ext(path))
	if !ok {
		return nil, ErrUnsupportedFormat
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, util.WrapError("open audio file", err)
	}

	src, err := dec.Decode(f)
	if err != nil {
		util.SafeClose(f, "audio file")
		return nil, util.WrapError("decode audio file", err)
	}
	return &fileSource{Source: src, f: f}, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register(".wav", DecoderFunc(DecodeWAV))
	r.Register(".mp3", DecoderFunc(DecodeMP3))
	r.Register(".ogg", DecoderFunc(DecodeVorbis))
	r.Register(".oga", DecoderFunc(DecodeVorbis))
	return r
}()

// Open decodes a WAV, MP3 or Ogg Vorbis file.
func Open(path string) (Source, error) {
	return defaultRegistry.Open(path)
}

// Supported reports whether Open can decode path.
func Supported(path string) bool {
	_, ok := defaultRegistry.Get(filepath.Ext(path))
	return ok
}

// fileSource closes the file after the decoder.
type fileSource struct {
	Source
	f *os.File
}

func (s *fileSource) Close() error {
	err := s.Source.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// deinterleaver keeps the first channel of interleaved input.
// The phase persists across reads so odd-sized chunks stay aligned.
type deinterleaver struct {
	channels int
	phase    int
}

func (d *deinterleaver) keep() bool {
	k := d.phase == 0
	d.phase++
	if d.phase >= d.channels {
		d.phase = 0
	}
	return k
}
