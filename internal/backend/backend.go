// Package backend drives a render callback from an audio output device.
package backend

import (
	"errors"
	"io"
	"time"
)

// Backend names accepted by New.
const (
	KindOto      = "oto"
	KindHeadless = "headless"
)

// DefaultBufferMS is the device buffer when none is configured.
const DefaultBufferMS = 50

// Errors returned by New.
var (
	ErrUnknownBackend = errors.New("unknown audio backend")
	ErrUnavailable    = errors.New("audio backend not available in this build")
	ErrRateChanged    = errors.New("audio device already open at another sample rate")
)

// Device pulls mono float32LE frames from a reader at the device rate.
type Device interface {
	// Start begins pulling from the reader.
	Start() error
	// Close stops the device and releases it.
	Close() error
}

// Options configures a device.
type Options struct {
	Kind       string
	SampleRate int
	BufferMS   int
}

// New opens the device named by opts.Kind. An empty kind selects oto.
func New(opts Options, r io.Reader) (Device, error) {
	if opts.BufferMS <= 0 {
		opts.BufferMS = DefaultBufferMS
	}
	buffer := time.Duration(opts.BufferMS) * time.Millisecond

	switch opts.Kind {
	case "", KindOto:
		return newOto(opts.SampleRate, buffer, r)
	case KindHeadless:
		return NewHeadless(opts.SampleRate, buffer, r), nil
	default:
		return nil, ErrUnknownBackend
	}
}
