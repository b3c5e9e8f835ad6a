package source

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// readAll drains src in chunks of size n.
func readAll(t *testing.T, src Source, n int) []float64 {
	t.Helper()

	var out []float64
	buf := make([]float64, n)
	for range 100000 {
		got, err := src.ReadSamples(buf)
		out = append(out, buf[:got]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
	t.Fatal("ReadSamples() never returned io.EOF")
	return nil
}

func TestSlice(t *testing.T) {
	t.Parallel()

	want := []float64{1, -1, 0.5, -0.5, 0}
	src := NewSlice(48000, want)
	if got := src.SampleRate(); got != 48000 {
		t.Errorf("SampleRate() = %d, want 48000", got)
	}
	if got := readAll(t, src, 2); !slices.Equal(got, want) {
		t.Errorf("samples = %v, want %v", got, want)
	}
}

func TestFailing(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	src := NewFailing(8000, []float64{0.1}, boom)
	buf := make([]float64, 4)

	if n, err := src.ReadSamples(buf); n != 1 || err != nil {
		t.Fatalf("ReadSamples() = %d, %v, want 1, nil", n, err)
	}
	if _, err := src.ReadSamples(buf); !errors.Is(err, boom) {
		t.Errorf("ReadSamples() error = %v, want %v", err, boom)
	}
}

func TestNewSine(t *testing.T) {
	t.Parallel()

	src := NewSine(48000, 1000, 0.5, 480)
	got := readAll(t, src, 64)
	if len(got) != 480 {
		t.Fatalf("len = %d, want 480", len(got))
	}
	for i, v := range got {
		if math.Abs(v) > 0.5+1e-9 {
			t.Fatalf("sample %d = %v exceeds amplitude", i, v)
		}
	}
}

func TestDeinterleaver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		channels int
		want     []bool
	}{
		{1, []bool{true, true, true}},
		{2, []bool{true, false, true, false}},
		{3, []bool{true, false, false, true}},
	}
	for _, tt := range tests {
		d := deinterleaver{channels: tt.channels}
		for i, want := range tt.want {
			if got := d.keep(); got != want {
				t.Errorf("channels=%d: keep() call %d = %v, want %v", tt.channels, i, got, want)
			}
		}
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	dec := DecoderFunc(func(io.ReadSeeker) (Source, error) { return NewSlice(1, nil), nil })
	r.Register("FLAC", dec)

	for _, ext := range []string{".flac", "flac", ".FLAC"} {
		if _, ok := r.Get(ext); !ok {
			t.Errorf("Get(%q) ok = false, want true", ext)
		}
	}
	if _, ok := r.Get(".wav"); ok {
		t.Error("Get(.wav) ok = true on empty registry")
	}
}

func TestOpen_Unsupported(t *testing.T) {
	t.Parallel()

	if _, err := Open("track.aiff"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Open(.aiff) error = %v, want %v", err, ErrUnsupportedFormat)
	}
	if Supported("track.aiff") {
		t.Error("Supported(.aiff) = true")
	}
	for _, p := range []string{"a.wav", "b.MP3", "c.ogg"} {
		if !Supported(p) {
			t.Errorf("Supported(%q) = false", p)
		}
	}
}

func TestOpen_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.wav"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open() error = %v, want %v", err, os.ErrNotExist)
	}
}

func TestOpen_InvalidWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("definitely not riff data"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, ErrNotWAV) {
		t.Errorf("Open() error = %v, want %v", err, ErrNotWAV)
	}
}

func writeWAV(t *testing.T, path string, channels int, data []int) {
	t.Helper()
	writeWAVDepth(t, path, channels, 16, data)
}

func writeWAVDepth(t *testing.T, path string, channels, depth int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, depth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: depth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_WAVStereoTakesFirstChannel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stereo.wav")
	// Left carries the signal, right is a constant that must not leak through.
	writeWAV(t, path, 2, []int{16384, 100, -16384, 100, 8192, 100, 0, 100})

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	if got := src.SampleRate(); got != 44100 {
		t.Errorf("SampleRate() = %d, want 44100", got)
	}
	want := []float64{0.5, -0.5, 0.25, 0}
	if got := readAll(t, src, 3); !slices.Equal(got, want) {
		t.Errorf("samples = %v, want %v", got, want)
	}
}

func TestOpen_WAVMono(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mono.wav")
	data := make([]int, 10000)
	for i := range data {
		data[i] = i%200 - 100
	}
	writeWAV(t, path, 1, data)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	got := readAll(t, src, 1024)
	if len(got) != len(data) {
		t.Fatalf("len = %d, want %d", len(got), len(data))
	}
	for i, v := range got {
		if want := float64(data[i]) / 32768; v != want {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}
}

func TestOpen_WAV8BitIsUnsigned(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "u8.wav")
	writeWAVDepth(t, path, 1, 8, []int{128, 255, 0, 192})

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	if got, want := readAll(t, src, 16), []float64{0, 127.0 / 128, -1, 0.5}; !slices.Equal(got, want) {
		t.Errorf("samples = %v, want %v", got, want)
	}
}

// fakeMP3 serves s16le stereo bytes in fixed, possibly odd-sized, reads.
type fakeMP3 struct {
	data []byte
	step int
}

func (f *fakeMP3) SampleRate() int { return 44100 }

func (f *fakeMP3) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p[:min(len(p), f.step)], f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestMP3Source_FirstChannelAcrossOddReads(t *testing.T) {
	t.Parallel()

	frames := [][2]int16{{16384, -1}, {-16384, -1}, {8192, -1}, {0, -1}, {-32768, -1}}
	var raw []byte
	for _, fr := range frames {
		raw = binary.LittleEndian.AppendUint16(raw, uint16(fr[0]))
		raw = binary.LittleEndian.AppendUint16(raw, uint16(fr[1]))
	}

	for _, step := range []int{1, 3, 4, 7, 64} {
		src := newMP3Source(&fakeMP3{data: slices.Clone(raw), step: step})
		want := []float64{0.5, -0.5, 0.25, 0, -1}
		if got := readAll(t, src, 2); !slices.Equal(got, want) {
			t.Errorf("step %d: samples = %v, want %v", step, got, want)
		}
	}
}

type fakeOgg struct {
	channels int
	data     []float32
}

func (f *fakeOgg) SampleRate() int { return 22050 }
func (f *fakeOgg) Channels() int   { return f.channels }

func (f *fakeOgg) Read(p []float32) (int, error) {
	if len(f.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestVorbisSource_FirstChannel(t *testing.T) {
	t.Parallel()

	src := newVorbisSource(&fakeOgg{channels: 2, data: []float32{0.5, 9, -0.25, 9, 1, 9}})
	if got := src.SampleRate(); got != 22050 {
		t.Errorf("SampleRate() = %d, want 22050", got)
	}
	want := []float64{0.5, -0.25, 1}
	if got := readAll(t, src, 1); !slices.Equal(got, want) {
		t.Errorf("samples = %v, want %v", got, want)
	}
}
