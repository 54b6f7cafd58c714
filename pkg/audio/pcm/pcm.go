// Package pcm handles raw PCM16 audio: format math (bytes, samples,
// durations), conversion to normalized float samples, and the volume
// measurements the silence monitor runs per chunk.
package pcm

import (
	"math"
	"time"
)

const (
	// L16Mono16K represents audio/L16; rate=16000; channels=1,
	// the acoustic model's input format.
	L16Mono16K Format = iota
	// L16Mono24K represents audio/L16; rate=24000; channels=1
	L16Mono24K
	// L16Mono44K1 represents audio/L16; rate=44100; channels=1
	L16Mono44K1
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K
)

// Format represents a mono 16-bit PCM audio format.
type Format int

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono44K1:
		return 44100
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid format")
}

// BytesRate returns the byte rate of the audio data.
func (f Format) BytesRate() int {
	return f.SampleRate() * 2
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int) time.Duration {
	return time.Duration(bytes/2) * time.Second / time.Duration(f.SampleRate())
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int {
	return int(time.Duration(f.SampleRate())*d/time.Second) * 2
}

// String returns the MIME-style description of the format.
func (f Format) String() string {
	switch f {
	case L16Mono16K:
		return "audio/L16; rate=16000; channels=1"
	case L16Mono24K:
		return "audio/L16; rate=24000; channels=1"
	case L16Mono44K1:
		return "audio/L16; rate=44100; channels=1"
	case L16Mono48K:
		return "audio/L16; rate=48000; channels=1"
	}
	return "audio/L16; rate=?"
}

// Samples converts PCM16 signed little-endian bytes to float32 samples
// normalized into [-1, 1). A trailing odd byte is ignored.
func Samples(b []byte) []float32 {
	n := len(b) / 2
	out := make([]float32, n)
	for i := range n {
		s := int16(b[2*i]) | int16(b[2*i+1])<<8
		out[i] = float32(s) / 32768.0
	}
	return out
}

// RMS returns the root-mean-square level of a PCM16 chunk, normalized so
// full-scale audio is 1.0. An empty chunk is silent (0).
func RMS(b []byte) float64 {
	n := len(b) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		s := float64(int16(b[2*i]) | int16(b[2*i+1])<<8)
		sum += s * s
	}
	return math.Sqrt(sum/float64(n)) / 32768.0
}

// Peak returns the maximum absolute sample value of a PCM16 chunk,
// normalized so full scale is 1.0.
func Peak(b []byte) float64 {
	n := len(b) / 2
	var peak float64
	for i := range n {
		s := float64(int16(b[2*i]) | int16(b[2*i+1])<<8)
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak / 32768.0
}

// Normalize scales float samples so the peak magnitude is target (e.g. 0.9).
// Silent input is returned unchanged. The input slice is modified in place
// and returned.
func Normalize(samples []float32, target float32) []float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		return samples
	}
	scale := target / peak
	for i := range samples {
		samples[i] *= scale
	}
	return samples
}
