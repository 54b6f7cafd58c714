// Package wave reads WAV files into the raw PCM16 form the rest of the
// pipeline works with.
package wave

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"

	"github.com/phonecho/phonecho/pkg/audio/pcm"
	"github.com/phonecho/phonecho/pkg/audio/resample"
)

// Read decodes a WAV stream to PCM16 bytes and its format. Multi-channel
// audio is downmixed to mono by averaging channels.
func Read(r io.ReadSeeker) ([]byte, pcm.Format, error) {
	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wave: decode: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("wave: missing format header")
	}

	var format pcm.Format
	switch buf.Format.SampleRate {
	case 16000:
		format = pcm.L16Mono16K
	case 24000:
		format = pcm.L16Mono24K
	case 44100:
		format = pcm.L16Mono44K1
	case 48000:
		format = pcm.L16Mono48K
	default:
		return nil, 0, fmt.Errorf("wave: unsupported sample rate %d", buf.Format.SampleRate)
	}

	// Scale to 16-bit regardless of the source bit depth.
	shift := 0
	if d := int(dec.BitDepth); d > 16 {
		shift = d - 16
	} else if d > 0 && d < 16 {
		shift = -(16 - d)
	}

	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]byte, frames*2)
	for i := range frames {
		var sum int
		for c := range ch {
			sum += buf.Data[i*ch+c]
		}
		s := sum / ch
		if shift > 0 {
			s >>= shift
		} else if shift < 0 {
			s <<= -shift
		}
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out, format, nil
}

// ReadFile decodes a WAV file to PCM16 bytes and its format.
func ReadFile(path string) ([]byte, pcm.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("wave: open: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// ReadFileAs decodes a WAV file and resamples it to the wanted format.
func ReadFileAs(path string, want pcm.Format) ([]byte, error) {
	data, format, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return resample.PCM16(data, format, want)
}
