// Package resample converts PCM16 audio between sample rates using a pure
// Go resampler (no CGO/FFI dependencies). The engine's acoustic model
// expects 16 kHz mono; file input at other rates passes through here once
// before feature extraction.
package resample

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/phonecho/phonecho/pkg/audio/pcm"
)

// PCM16 resamples a complete PCM16 mono buffer from one format to another.
// Same-rate input is returned unchanged. The whole buffer is processed and
// flushed in one call; use this for file-sized audio, not live streams.
func PCM16(data []byte, src, dst pcm.Format) ([]byte, error) {
	if src.SampleRate() == dst.SampleRate() {
		return data, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(src.SampleRate()),
		OutputRate: float64(dst.SampleRate()),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resample: create resampler: %w", err)
	}

	// PCM16 bytes -> normalized float64 frames.
	n := len(data) / 2
	input := make([]float64, n)
	for i := range n {
		s := int16(data[2*i]) | int16(data[2*i+1])<<8
		input[i] = float64(s) / 32768.0
	}

	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample: process: %w", err)
	}

	out := make([]byte, len(output)*2)
	for i, f := range output {
		if f > 1.0 {
			f = 1.0
		} else if f < -1.0 {
			f = -1.0
		}
		s := int16(f * 32767.0)
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out, nil
}
