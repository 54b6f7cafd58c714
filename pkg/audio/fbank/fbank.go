// Package fbank extracts log mel filterbank features from audio samples.
//
// The output matches the acoustic model's training front end: 80 mel
// channels over 25 ms frames advanced by 10 ms, no dither, pre-emphasis
// 0.97, frames centered on the signal (edge frames reflect the waveform)
// so short recordings still produce frames for their full duration.
package fbank

import "math"

// Config configures feature extraction.
type Config struct {
	SampleRate  int     // input sample rate in Hz (default 16000)
	NumBins     int     // mel filterbank channels (default 80)
	FrameLength int     // frame length in samples (default 400 = 25ms @ 16kHz)
	FrameShift  int     // frame shift in samples (default 160 = 10ms @ 16kHz)
	PreEmphasis float64 // pre-emphasis coefficient (default 0.97)
	EnergyFloor float64 // floor for log energies (default 1e-10)
}

// DefaultConfig returns the model front-end configuration for 16 kHz audio.
func DefaultConfig() Config {
	return Config{
		SampleRate:  16000,
		NumBins:     80,
		FrameLength: 400,
		FrameShift:  160,
		PreEmphasis: 0.97,
		EnergyFloor: 1e-10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleRate == 0 {
		c.SampleRate = d.SampleRate
	}
	if c.NumBins == 0 {
		c.NumBins = d.NumBins
	}
	if c.FrameLength == 0 {
		c.FrameLength = d.FrameLength
	}
	if c.FrameShift == 0 {
		c.FrameShift = d.FrameShift
	}
	if c.PreEmphasis == 0 {
		c.PreEmphasis = d.PreEmphasis
	}
	if c.EnergyFloor == 0 {
		c.EnergyFloor = d.EnergyFloor
	}
	return c
}

// NumFrames returns the number of frames produced for n input samples.
func (c Config) NumFrames(n int) int {
	c = c.withDefaults()
	if n < c.FrameShift/2 {
		return 0
	}
	return (n + c.FrameShift/2) / c.FrameShift
}

// Compute extracts log mel filterbank features from normalized float
// samples in [-1, 1]. The result is [numFrames][NumBins].
//
// Frame f is centered at sample f*FrameShift + FrameShift/2; samples
// outside the signal are reflected, so no audio at either edge is
// discarded. Too-short input yields no frames, not an error.
func Compute(samples []float32, cfg Config) [][]float32 {
	cfg = cfg.withDefaults()
	numFrames := cfg.NumFrames(len(samples))
	if numFrames == 0 {
		return nil
	}

	signal := make([]float64, len(samples))
	for i, s := range samples {
		signal[i] = float64(s)
	}

	fftSize := nextPow2(cfg.FrameLength)
	halfFFT := fftSize/2 + 1
	window := hammingWindow(cfg.FrameLength)
	filters := melFilterbank(cfg.NumBins, fftSize, cfg.SampleRate)

	frame := make([]float64, cfg.FrameLength)
	fftBuf := make([]complex128, fftSize)
	powerSpec := make([]float64, halfFFT)

	out := make([][]float32, numFrames)
	for f := range numFrames {
		// Center of this frame in the signal, then cut FrameLength samples
		// around it, reflecting past the edges.
		center := f*cfg.FrameShift + cfg.FrameShift/2
		start := center - cfg.FrameLength/2
		for i := range frame {
			frame[i] = signal[reflect(start+i, len(signal))]
		}

		// Pre-emphasis within the frame.
		if cfg.PreEmphasis > 0 {
			for i := cfg.FrameLength - 1; i > 0; i-- {
				frame[i] -= cfg.PreEmphasis * frame[i-1]
			}
			frame[0] *= 1 - cfg.PreEmphasis
		}

		for i := range fftBuf {
			fftBuf[i] = 0
		}
		for i := range frame {
			fftBuf[i] = complex(frame[i]*window[i], 0)
		}
		fft(fftBuf)

		for k := range powerSpec {
			re := real(fftBuf[k])
			im := imag(fftBuf[k])
			powerSpec[k] = re*re + im*im
		}

		bins := make([]float32, cfg.NumBins)
		for m := range filters {
			var energy float64
			for k, w := range filters[m] {
				energy += w * powerSpec[k]
			}
			if energy < cfg.EnergyFloor {
				energy = cfg.EnergyFloor
			}
			bins[m] = float32(math.Log(energy))
		}
		out[f] = bins
	}
	return out
}

// reflect maps an out-of-range sample index back into [0, n) by mirroring
// at the signal edges.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - 1 - i
		}
	}
	return i
}
