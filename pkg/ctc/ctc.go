// Package ctc collapses per-timestep acoustic model scores into a discrete
// phoneme sequence.
//
// The input is a [T][V] score matrix (T timesteps, V vocabulary entries) as
// produced by a temporal-classification model. Decoding is greedy: each
// timestep selects its arg-max entry, consecutive selections of the same
// entry merge into one phoneme, marker tokens (blank, padding, specials)
// are dropped, and low-confidence phonemes are filtered out.
//
// # Confidence
//
// Per-frame confidence is exp(score) — an unnormalized magnitude, not a
// softmax probability. This matches the scores the model was tuned against;
// the default MinConfidence of 0.54 assumes it. A merged phoneme's
// confidence is the maximum of its frames' confidences.
package ctc

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// UnknownSymbol is substituted for vocabulary ids outside the vocabulary.
const UnknownSymbol = "<unk>"

// DefaultMinConfidence is the confidence floor applied when Options is nil
// or leaves MinConfidence at zero.
const DefaultMinConfidence = 0.54

// Vocabulary maps vocabulary ids (slice index) to token strings.
type Vocabulary []string

// Symbol returns the token for id, or UnknownSymbol when id is out of range.
func (v Vocabulary) Symbol(id int) string {
	if id < 0 || id >= len(v) {
		return UnknownSymbol
	}
	return v[id]
}

// IsMarker reports whether a token is a non-phoneme marker: the blank "▁",
// or any bracketed special such as "<blk>" or "<sos/eos>". Markers never
// produce decoded phonemes.
func IsMarker(token string) bool {
	if token == "▁" {
		return true
	}
	return strings.HasPrefix(token, "<") && strings.HasSuffix(token, ">")
}

// LoadTokens parses the "token id" text format, one entry per line.
// The id column is optional; missing ids are assigned sequentially.
func LoadTokens(r io.Reader) (Vocabulary, error) {
	var vocab Vocabulary
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		id := len(vocab)
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("ctc: tokens line %d: bad id %q: %w", line, fields[1], err)
			}
			id = n
		}
		for len(vocab) <= id {
			vocab = append(vocab, "")
		}
		vocab[id] = fields[0]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ctc: read tokens: %w", err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("ctc: tokens file is empty")
	}
	return vocab, nil
}

// Phoneme is one decoded symbol with its aggregate confidence and the
// number of consecutive frames it covered.
type Phoneme struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Duration   int     `json:"duration" yaml:"duration"`
}

// Options configures decoding.
type Options struct {
	// MinConfidence drops merged phonemes whose confidence falls below it.
	// Zero means DefaultMinConfidence; negative values are a caller bug
	// and are rejected.
	MinConfidence float64
}

func (o *Options) minConfidence() (float64, error) {
	if o == nil || o.MinConfidence == 0 {
		return DefaultMinConfidence, nil
	}
	if o.MinConfidence < 0 {
		return 0, fmt.Errorf("ctc: negative MinConfidence %f", o.MinConfidence)
	}
	return o.MinConfidence, nil
}

// Decode collapses a [T][V] score matrix into a phoneme sequence.
//
// Each timestep selects the entry with the maximum score (ties break toward
// the lowest id). Runs of the same id merge into one Phoneme whose duration
// is the run length and whose confidence is the max per-frame exp(score).
// Marker frames are dropped and do not interrupt a run of the same symbol
// on both sides. After merging, phonemes below the confidence floor are
// removed.
//
// An empty or all-marker matrix decodes to an empty sequence; ragged or
// short rows are tolerated frame by frame. Decode is a pure function of
// its inputs.
func Decode(scores [][]float32, vocab Vocabulary, opts *Options) ([]Phoneme, error) {
	minConf, err := opts.minConfidence()
	if err != nil {
		return nil, err
	}

	var (
		out    []Phoneme
		prevID = -1
	)
	for _, frame := range scores {
		if len(frame) == 0 {
			continue
		}
		best := 0
		for v := 1; v < len(frame); v++ {
			if frame[v] > frame[best] {
				best = v
			}
		}
		if IsMarker(vocab.Symbol(best)) {
			continue
		}
		conf := math.Exp(float64(frame[best]))
		if best == prevID {
			last := &out[len(out)-1]
			last.Duration++
			if conf > last.Confidence {
				last.Confidence = conf
			}
			continue
		}
		out = append(out, Phoneme{
			Symbol:     vocab.Symbol(best),
			Confidence: conf,
			Duration:   1,
		})
		prevID = best
	}

	kept := out[:0]
	for _, p := range out {
		if p.Confidence >= minConf {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

// DecodeString decodes like Decode and concatenates the surviving symbols.
// This is the canonical "actual IPA" form consumed by the alignment engine.
func DecodeString(scores [][]float32, vocab Vocabulary, opts *Options) (string, error) {
	phonemes, err := Decode(scores, vocab, opts)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range phonemes {
		b.WriteString(p.Symbol)
	}
	return b.String(), nil
}

// Symbols returns the plain symbol sequence of a decoded result.
func Symbols(phonemes []Phoneme) []string {
	syms := make([]string, len(phonemes))
	for i, p := range phonemes {
		syms[i] = p.Symbol
	}
	return syms
}
