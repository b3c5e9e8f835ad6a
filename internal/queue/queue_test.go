package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newQueue(t *testing.T, capacity int) (*Sender, *Receiver) {
	t.Helper()
	tx, rx, err := New(capacity)
	if err != nil {
		t.Fatalf("New(%d) error = %v", capacity, err)
	}
	return tx, rx
}

func TestNew_InvalidCapacity(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{0, -1} {
		if _, _, err := New(capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("New(%d) error = %v, want %v", capacity, err, ErrInvalidCapacity)
		}
	}
}

func TestQueue_Occupancy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capacity int
		sent     int
		drained  int
	}{
		{"under capacity", 8, 5, 2},
		{"exact capacity", 8, 8, 0},
		{"overflow", 8, 20, 3},
		{"drain everything", 4, 4, 4},
		{"single slot", 1, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tx, rx := newQueue(t, tt.capacity)

			accepted := 0
			for i := range tt.sent {
				err := tx.TrySend(float64(i))
				switch {
				case err == nil:
					accepted++
				case errors.Is(err, ErrFull):
				default:
					t.Fatalf("TrySend() error = %v", err)
				}
				if tx.Len() > tx.Cap() {
					t.Fatalf("Len() = %d exceeds Cap() = %d", tx.Len(), tx.Cap())
				}
			}

			for range tt.drained {
				if _, err := rx.TryReceive(); err != nil {
					t.Fatalf("TryReceive() error = %v", err)
				}
			}

			want := min(tt.sent, tt.capacity) - tt.drained
			if got := rx.Len(); got != want {
				t.Errorf("Len() = %d, want %d", got, want)
			}
			if accepted != min(tt.sent, tt.capacity) {
				t.Errorf("accepted = %d, want %d", accepted, min(tt.sent, tt.capacity))
			}
		})
	}
}

func TestQueue_InterleavedOccupancy(t *testing.T) {
	t.Parallel()

	// N sends interleaved with M receives never holds more than min(N-M, C).
	const capacity = 16
	tx, rx := newQueue(t, capacity)

	sent, received := 0, 0
	for i := range 200 {
		if tx.TrySend(float64(i)) == nil {
			sent++
		}
		if i%3 == 0 {
			if _, err := rx.TryReceive(); err == nil {
				received++
			}
		}
		if got, want := rx.Len(), min(sent-received, capacity); got != want {
			t.Fatalf("after %d sends: Len() = %d, want %d", i+1, got, want)
		}
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	t.Parallel()

	tx, rx := newQueue(t, 4)

	// Wrap the ring several times.
	next := 0.0
	for round := range 10 {
		for i := range 3 {
			if err := tx.TrySend(float64(round*3 + i)); err != nil {
				t.Fatalf("TrySend() error = %v", err)
			}
		}
		for range 3 {
			v, err := rx.TryReceive()
			if err != nil {
				t.Fatalf("TryReceive() error = %v", err)
			}
			if v != next {
				t.Fatalf("TryReceive() = %v, want %v", v, next)
			}
			next++
		}
	}
}

func TestReceiver_TryReceiveEmpty(t *testing.T) {
	t.Parallel()

	_, rx := newQueue(t, 4)
	v, err := rx.TryReceive()
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("TryReceive() error = %v, want %v", err, ErrEmpty)
	}
	if v != 0 {
		t.Errorf("TryReceive() = %v, want 0", v)
	}
}

func TestReceiver_DrainsBeforeClosed(t *testing.T) {
	t.Parallel()

	tx, rx := newQueue(t, 4)
	_ = tx.TrySend(0.25) //nolint:errcheck
	_ = tx.TrySend(0.5)  //nolint:errcheck
	tx.Close()
	tx.Close() // idempotent

	for _, want := range []float64{0.25, 0.5} {
		v, err := rx.TryReceive()
		if err != nil {
			t.Fatalf("TryReceive() error = %v", err)
		}
		if v != want {
			t.Errorf("TryReceive() = %v, want %v", v, want)
		}
	}
	if _, err := rx.TryReceive(); !errors.Is(err, ErrClosed) {
		t.Errorf("TryReceive() error = %v, want %v", err, ErrClosed)
	}
}

func TestSender_AfterClose(t *testing.T) {
	t.Parallel()

	tx, _ := newQueue(t, 4)
	tx.Close()
	if err := tx.TrySend(1); !errors.Is(err, ErrClosed) {
		t.Errorf("TrySend() error = %v, want %v", err, ErrClosed)
	}
}

func TestSender_ReceiverDropped(t *testing.T) {
	t.Parallel()

	tx, rx := newQueue(t, 4)
	rx.Close()

	if err := tx.TrySend(1); !errors.Is(err, ErrReceiverClosed) {
		t.Errorf("TrySend() error = %v, want %v", err, ErrReceiverClosed)
	}
	if err := tx.Send(context.Background(), 1); !errors.Is(err, ErrReceiverClosed) {
		t.Errorf("Send() error = %v, want %v", err, ErrReceiverClosed)
	}
}

func TestSender_SendBlocksUntilSpace(t *testing.T) {
	t.Parallel()

	tx, rx := newQueue(t, 1)
	if err := tx.TrySend(1); err != nil {
		t.Fatalf("TrySend() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- tx.Send(context.Background(), 2)
	}()

	select {
	case err := <-done:
		t.Fatalf("Send() returned early with %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	if v, err := rx.TryReceive(); err != nil || v != 1 {
		t.Fatalf("TryReceive() = %v, %v, want 1, nil", v, err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send() did not return after space became available")
	}

	if v, err := rx.TryReceive(); err != nil || v != 2 {
		t.Errorf("TryReceive() = %v, %v, want 2, nil", v, err)
	}
}

func TestSender_SendReleasedByReceiverClose(t *testing.T) {
	t.Parallel()

	tx, rx := newQueue(t, 1)
	_ = tx.TrySend(1) //nolint:errcheck

	done := make(chan error, 1)
	go func() {
		done <- tx.Send(context.Background(), 2)
	}()

	rx.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrReceiverClosed) {
			t.Errorf("Send() error = %v, want %v", err, ErrReceiverClosed)
		}
	case <-time.After(time.Second):
		t.Fatal("Send() still blocked after receiver closed")
	}
}

func TestSender_SendContextCanceled(t *testing.T) {
	t.Parallel()

	tx, _ := newQueue(t, 1)
	_ = tx.TrySend(1) //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := tx.Send(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestReceiver_ReceiveBlocking(t *testing.T) {
	t.Parallel()

	tx, rx := newQueue(t, 8)

	go func() {
		for i := range 100 {
			if err := tx.Send(context.Background(), float64(i)); err != nil {
				return
			}
		}
		tx.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := range 100 {
		v, err := rx.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive() error = %v at sample %d", err, i)
		}
		if v != float64(i) {
			t.Fatalf("Receive() = %v, want %v", v, float64(i))
		}
	}
	if _, err := rx.Receive(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Receive() error = %v, want %v", err, ErrClosed)
	}
}

func TestReceiver_ReceiveContextCanceled(t *testing.T) {
	t.Parallel()

	_, rx := newQueue(t, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rx.Receive(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Receive() error = %v, want %v", err, context.Canceled)
	}
}

func TestReceiver_TryReceiveDoesNotAllocate(t *testing.T) {
	tx, rx := newQueue(t, 64)

	allocs := testing.AllocsPerRun(100, func() {
		_ = tx.TrySend(0.5)
		_, _ = rx.TryReceive()
		_, _ = rx.TryReceive()
	})
	if allocs != 0 {
		t.Errorf("allocations per TrySend/TryReceive = %v, want 0", allocs)
	}
}

func TestQueue_ConcurrentProducerConsumer(t *testing.T) {
	t.Parallel()

	const total = 20000
	tx, rx := newQueue(t, 64)

	go func() {
		defer tx.Close()
		for i := range total {
			if err := tx.Send(context.Background(), float64(i)); err != nil {
				return
			}
		}
	}()

	want := 0.0
	for {
		v, err := rx.TryReceive()
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if errors.Is(err, ErrClosed) {
			break
		}
		if err != nil {
			t.Fatalf("TryReceive() error = %v", err)
		}
		if v != want {
			t.Fatalf("TryReceive() = %v, want %v", v, want)
		}
		want++
	}
	if want != total {
		t.Errorf("received %v samples, want %d", want, total)
	}
}
