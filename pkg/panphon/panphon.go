// Package panphon provides the phonological feature table used to measure
// phonetic distance between IPA symbols.
//
// Each known symbol maps to a fixed-length vector of articulatory features
// (syllabic, sonorant, voiced, ...), one byte per feature with values
// -1, 0 or +1. The distance between two symbols is the normalized distance
// between their vectors, so a voicing mismatch (t vs d) costs far less than
// a vowel/consonant confusion.
//
// # Persisted Form
//
// The table is bundled as a compact JSON blob:
//
//	{"phonemes":["a","b",...],"features":"<base64 int8>","featureCount":24}
//
// The features field is a base64-encoded run of len(phonemes)*featureCount
// signed bytes. Decode fails loudly on any malformed or truncated blob; a
// silently empty table would make every comparison maximally wrong with no
// explanation.
//
// # Unknown Symbols
//
// Symbols missing from the table never cause an error. They are treated as
// maximally distant from every other symbol (except themselves), so a
// recognizer emitting an exotic symbol degrades the score instead of
// crashing the pipeline.
package panphon

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/phonecho/phonecho/pkg/encoding"
)

// Vector is a phonological feature vector. Each element is -1, 0 or +1.
type Vector []int8

// Table is an immutable mapping from IPA symbol to feature vector.
// Build it once at startup with Decode or Default and share it freely;
// it is safe for concurrent readers and is never mutated after creation.
type Table struct {
	dim  int
	vecs map[string]Vector
}

// blob is the serialized table layout.
type blob struct {
	Phonemes     []string               `json:"phonemes"`
	Features     encoding.StdBase64Data `json:"features"`
	FeatureCount int                    `json:"featureCount"`
}

// Decode parses a serialized feature table blob.
func Decode(data []byte) (*Table, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("panphon: parse feature blob: %w", err)
	}
	if b.FeatureCount <= 0 {
		return nil, fmt.Errorf("panphon: invalid featureCount %d", b.FeatureCount)
	}
	if len(b.Phonemes) == 0 {
		return nil, fmt.Errorf("panphon: feature blob lists no phonemes")
	}
	raw := []byte(b.Features)
	if want := len(b.Phonemes) * b.FeatureCount; len(raw) != want {
		return nil, fmt.Errorf("panphon: feature data is %d bytes, want %d (%d phonemes x %d features)",
			len(raw), want, len(b.Phonemes), b.FeatureCount)
	}

	t := &Table{
		dim:  b.FeatureCount,
		vecs: make(map[string]Vector, len(b.Phonemes)),
	}
	for i, sym := range b.Phonemes {
		if sym == "" {
			return nil, fmt.Errorf("panphon: empty phoneme at index %d", i)
		}
		vec := make(Vector, b.FeatureCount)
		for j := range vec {
			vec[j] = int8(raw[i*b.FeatureCount+j])
		}
		t.vecs[sym] = vec
	}
	return t, nil
}

var defaultTable = sync.OnceValues(func() (*Table, error) {
	return Decode(featuresData)
})

// Default returns the table decoded from the embedded blob.
// The blob is decoded exactly once; all callers share the result.
func Default() (*Table, error) {
	return defaultTable()
}

// Dim returns the number of features per vector.
func (t *Table) Dim() int { return t.dim }

// Len returns the number of known symbols.
func (t *Table) Len() int { return len(t.vecs) }

// Vector returns the feature vector for a symbol.
// The second return is false for unknown symbols.
func (t *Table) Vector(sym string) (Vector, bool) {
	v, ok := t.vecs[sym]
	return v, ok
}

// Distance returns the normalized phonetic distance between two symbols,
// scaled into [0, 1].
//
// Identical symbols are distance 0 without consulting the table, so even
// two occurrences of an unknown symbol compare as equal. If exactly one or
// both of two distinct symbols are unknown, the distance is the maximum 1.
// Otherwise it is the mean absolute feature difference divided by the
// per-feature maximum of 2.
func (t *Table) Distance(a, b string) float64 {
	if a == b {
		return 0
	}
	va, okA := t.vecs[a]
	vb, okB := t.vecs[b]
	if !okA || !okB {
		return 1
	}
	var sum int
	for i := range va {
		d := int(va[i]) - int(vb[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum) / float64(2*t.dim)
}
