package handoff

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCell_TakeOnce(t *testing.T) {
	t.Parallel()

	c := NewCell("endpoint")
	if c.Taken() {
		t.Fatal("Taken() = true before Take")
	}

	v, err := c.Take()
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if v != "endpoint" {
		t.Errorf("Take() = %q, want %q", v, "endpoint")
	}
	if !c.Taken() {
		t.Error("Taken() = false after Take")
	}
}

func TestCell_SecondTakeFails(t *testing.T) {
	t.Parallel()

	type endpoint struct{ id int }
	c := NewCell(&endpoint{id: 7})

	if _, err := c.Take(); err != nil {
		t.Fatalf("first Take() error = %v", err)
	}

	for range 3 {
		v, err := c.Take()
		if !errors.Is(err, ErrTaken) {
			t.Errorf("Take() error = %v, want %v", err, ErrTaken)
		}
		if v != nil {
			t.Errorf("Take() = %v, want nil", v)
		}
	}
}

func TestCell_ConcurrentTakeSucceedsOnce(t *testing.T) {
	t.Parallel()

	c := NewCell(42)
	var wins atomic.Int32
	var wg sync.WaitGroup

	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Take(); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("successful takes = %d, want 1", got)
	}
}
