package scope

import (
	"math"
	"slices"
	"testing"
)

func TestRing_FIFOEviction(t *testing.T) {
	t.Parallel()

	r := NewRing(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		r.Push(v)
		if r.Len() > r.Cap() {
			t.Fatalf("Len() = %d exceeds Cap() = %d", r.Len(), r.Cap())
		}
	}

	if got, want := r.Snapshot(), []float64{3, 4, 5}; !slices.Equal(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
}

func TestRing_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	r := NewRing(4)
	r.Push(0.5)
	snap := r.Snapshot()
	snap[0] = 99

	if got := r.Snapshot()[0]; got != 0.5 {
		t.Errorf("ring mutated through snapshot: got %v, want 0.5", got)
	}
}

func TestRing_SnapshotIntoReusesBuffer(t *testing.T) {
	t.Parallel()

	r := NewRing(4)
	for i := range 6 {
		r.Push(float64(i))
	}

	buf := make([]float64, 0, 8)
	got := r.SnapshotInto(buf)
	if want := []float64{2, 3, 4, 5}; !slices.Equal(got, want) {
		t.Errorf("SnapshotInto() = %v, want %v", got, want)
	}
	if &got[0] != &buf[:1][0] {
		t.Error("SnapshotInto() did not reuse dst")
	}
}

func TestRing_Reset(t *testing.T) {
	t.Parallel()

	r := NewRing(2)
	r.Push(1)
	r.Push(2)
	r.Reset()
	if r.Len() != 0 || len(r.Snapshot()) != 0 {
		t.Errorf("after Reset() Len() = %d, Snapshot() = %v", r.Len(), r.Snapshot())
	}
}

func TestNewRing_MinimumCapacity(t *testing.T) {
	t.Parallel()

	if got := NewRing(0).Cap(); got != 1 {
		t.Errorf("NewRing(0).Cap() = %d, want 1", got)
	}
}

func TestDecimator_KeepsEveryKth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		k    int
		want []bool
	}{
		{k: 0, want: []bool{true, true, true}},
		{k: 1, want: []bool{true, true, true}},
		{k: 3, want: []bool{false, false, true, false, false, true, false}},
	}

	for _, tt := range tests {
		d := NewDecimator(tt.k)
		for i, want := range tt.want {
			if got := d.Keep(); got != want {
				t.Errorf("k=%d: Keep() call %d = %v, want %v", tt.k, i, got, want)
			}
		}
	}
}

func TestScope_LengthProperty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capacity int
		k        int
		n        int
	}{
		{"below capacity", 100, 4, 200},
		{"fills exactly", 50, 4, 200},
		{"evicts", 10, 4, 200},
		{"remainder discarded", 100, 128, 1000},
		{"no decimation", 8, 1, 5},
		{"production defaults", DefaultCapacity, DefaultDecimation, 48000 * 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := New(tt.capacity, tt.k)
			for i := range tt.n {
				s.Add(float64(i))
			}

			want := min(tt.n/tt.k, tt.capacity)
			if got := s.Len(); got != want {
				t.Fatalf("Len() = %d, want %d", got, want)
			}

			// Kept samples are raw indices K-1, 2K-1, ...; the ring holds the newest.
			snap := s.Snapshot()
			kept := tt.n / tt.k
			for i, v := range snap {
				idx := kept - len(snap) + i
				if wantV := float64((idx+1)*tt.k - 1); v != wantV {
					t.Fatalf("Snapshot()[%d] = %v, want %v", i, v, wantV)
				}
			}
		})
	}
}

func TestScope_DecimationSpansFrames(t *testing.T) {
	t.Parallel()

	s := New(16, 4)
	// Three refreshes of 3, 3 and 2 samples keep exactly two points.
	for _, frame := range [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8}} {
		for _, v := range frame {
			s.Add(v)
		}
	}
	if got, want := s.Snapshot(), []float64{4, 8}; !slices.Equal(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
}

func TestScope_EndToEndNoDecimation(t *testing.T) {
	t.Parallel()

	s := New(3, 1)
	for _, v := range []float64{1.0, -1.0, 0.5, -0.5, 0.0} {
		s.Add(v)
	}
	if got, want := s.Snapshot(), []float64{0.5, -0.5, 0.0}; !slices.Equal(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
}

func TestPoints(t *testing.T) {
	t.Parallel()

	pts := Points([]float64{-1, 0, 1, 2, math.NaN()}, 100, 50)
	want := []Point{
		{X: 0, Y: 0},
		{X: 20, Y: 25},
		{X: 40, Y: 50},
		{X: 60, Y: 50},
		{X: 80, Y: 25},
	}
	if !slices.Equal(pts, want) {
		t.Errorf("Points() = %v, want %v", pts, want)
	}

	if got := Points(nil, 100, 50); got != nil {
		t.Errorf("Points(nil) = %v, want nil", got)
	}
}
