package wave

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/phonecho/phonecho/pkg/audio/pcm"
)

// writeWAV writes a sine tone WAV file and returns its path.
func writeWAV(t *testing.T, rate, channels, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: 16,
		Data:           make([]int, n*channels),
	}
	for i := range n {
		s := int(0.5 * 32767 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		for c := range channels {
			buf.Data[i*channels+c] = s
		}
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
	return path
}

func TestReadFileMono16K(t *testing.T) {
	path := writeWAV(t, 16000, 1, 1600)

	data, format, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if format != pcm.L16Mono16K {
		t.Errorf("format = %v, want L16Mono16K", format)
	}
	if len(data) != 3200 {
		t.Errorf("got %d bytes, want 3200", len(data))
	}
	if rms := pcm.RMS(data); rms < 0.3 {
		t.Errorf("RMS = %f, expected audible tone", rms)
	}
}

func TestReadFileStereoDownmix(t *testing.T) {
	path := writeWAV(t, 48000, 2, 4800)

	data, format, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if format != pcm.L16Mono48K {
		t.Errorf("format = %v, want L16Mono48K", format)
	}
	// Stereo downmixed to mono keeps the frame count.
	if len(data) != 9600 {
		t.Errorf("got %d bytes, want 9600", len(data))
	}
}

func TestReadFileAsResamples(t *testing.T) {
	path := writeWAV(t, 48000, 1, 4800) // 100ms

	data, err := ReadFileAs(path, pcm.L16Mono16K)
	if err != nil {
		t.Fatalf("ReadFileAs: %v", err)
	}
	wantBytes := 3200 // 100ms at 16kHz
	if len(data) < wantBytes*8/10 || len(data) > wantBytes*12/10 {
		t.Errorf("resampled to %d bytes, want within 20%% of %d", len(data), wantBytes)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, _, err := ReadFile(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("ReadFile succeeded on missing file")
	}
}
