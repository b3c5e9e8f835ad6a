package queue

import "errors"

var (
	// ErrInvalidCapacity is returned by New for a capacity below one.
	ErrInvalidCapacity = errors.New("queue capacity must be at least 1")
	// ErrEmpty means no sample is queued right now.
	ErrEmpty = errors.New("queue empty")
	// ErrFull means the queue holds Cap samples.
	ErrFull = errors.New("queue full")
	// ErrClosed means the stream has ended.
	ErrClosed = errors.New("queue closed")
	// ErrReceiverClosed means nobody will read further samples.
	ErrReceiverClosed = errors.New("queue receiver closed")
)
