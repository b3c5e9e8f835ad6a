// Package queue provides a bounded single-producer/single-consumer sample queue.
//
// The queue is a lock-free ring indexed by two monotonically increasing
// counters. Each half is owned by exactly one goroutine: the Sender by the
// distributor, the Receiver by the consumer that drains it. TryReceive and
// TrySend never block and never allocate, so the Receiver is safe to drain
// from a real-time audio callback. Send and Receive are the blocking
// variants for goroutines without a deadline.
package queue

import (
	"context"
	"sync/atomic"
)

// DefaultCapacity holds ~100ms of audio at 48kHz.
const DefaultCapacity = 4800

// shared is the state both halves see.
type shared struct {
	buf  []float64
	head atomic.Uint64 // total samples received
	tail atomic.Uint64 // total samples sent

	senderClosed   atomic.Bool
	receiverClosed atomic.Bool

	// readable and writable carry at most one pending wakeup each.
	readable chan struct{}
	writable chan struct{}
}

// Sender is the producing half of a queue.
type Sender struct {
	q *shared
}

// Receiver is the consuming half of a queue.
type Receiver struct {
	q *shared
}

// New creates a queue holding at most capacity samples and returns its two halves.
func New(capacity int) (*Sender, *Receiver, error) {
	if capacity < 1 {
		return nil, nil, ErrInvalidCapacity
	}
	q := &shared{
		buf:      make([]float64, capacity),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
	return &Sender{q: q}, &Receiver{q: q}, nil
}

// signal posts a wakeup without blocking.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (q *shared) len() int {
	return int(q.tail.Load() - q.head.Load())
}

// TrySend enqueues v, or returns ErrFull, ErrReceiverClosed or ErrClosed without blocking.
func (s *Sender) TrySend(v float64) error {
	q := s.q
	if q.senderClosed.Load() {
		return ErrClosed
	}
	if q.receiverClosed.Load() {
		return ErrReceiverClosed
	}

	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.buf)) {
		return ErrFull
	}
	q.buf[tail%uint64(len(q.buf))] = v
	q.tail.Store(tail + 1)

	signal(q.readable)
	return nil
}

// Send enqueues v, waiting for space while the queue is full.
// It returns ErrReceiverClosed if the receiver goes away while waiting,
// or the context error if ctx is done first.
func (s *Sender) Send(ctx context.Context, v float64) error {
	for {
		err := s.TrySend(v)
		if err != ErrFull {
			return err
		}
		select {
		case <-s.q.writable:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close marks the end of the stream. Samples already queued stay readable.
func (s *Sender) Close() {
	if s.q.senderClosed.CompareAndSwap(false, true) {
		signal(s.q.readable)
	}
}

// Len returns the number of queued samples.
func (s *Sender) Len() int { return s.q.len() }

// Cap returns the fixed capacity.
func (s *Sender) Cap() int { return len(s.q.buf) }

// TryReceive returns the next sample, ErrEmpty when nothing is queued, or
// ErrClosed once the sender has closed and every queued sample was consumed.
// It never blocks and never allocates.
func (r *Receiver) TryReceive() (float64, error) {
	q := r.q
	if q.receiverClosed.Load() {
		return 0, ErrClosed
	}

	head := q.head.Load()
	if head == q.tail.Load() {
		if !q.senderClosed.Load() {
			return 0, ErrEmpty
		}
		// The sender closes after its final store, so one more look at tail
		// decides whether anything is left.
		if head == q.tail.Load() {
			return 0, ErrClosed
		}
	}

	v := q.buf[head%uint64(len(q.buf))]
	q.head.Store(head + 1)

	signal(q.writable)
	return v, nil
}

// Receive waits for the next sample. It returns ErrClosed when the stream
// has ended, or the context error if ctx is done first.
// Never call Receive from a real-time callback.
func (r *Receiver) Receive(ctx context.Context) (float64, error) {
	for {
		v, err := r.TryReceive()
		if err != ErrEmpty {
			return v, err
		}
		select {
		case <-r.q.readable:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Close drops the receiver. A sender blocked in Send is released with ErrReceiverClosed.
func (r *Receiver) Close() {
	if r.q.receiverClosed.CompareAndSwap(false, true) {
		signal(r.q.writable)
	}
}

// Len returns the number of queued samples.
func (r *Receiver) Len() int { return r.q.len() }

// Cap returns the fixed capacity.
func (r *Receiver) Cap() int { return len(r.q.buf) }
