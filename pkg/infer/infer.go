// Package infer defines the acoustic model inference boundary.
//
// The engine treats the model as an opaque function from a fbank feature
// matrix to a per-timestep score matrix. The contract is fixed here once:
// a [Model] returns the [T][V] score matrix, nothing else — any output
// naming ambiguity in a concrete runtime is resolved inside the Model
// implementation, never downstream in the decoder.
//
// [Recognizer] composes the full front half of the pipeline: raw PCM16
// audio → peak normalization → log mel filterbank → model scores.
package infer

import (
	"context"
	"fmt"

	"github.com/phonecho/phonecho/pkg/audio/fbank"
	"github.com/phonecho/phonecho/pkg/audio/pcm"
)

// Model runs acoustic model inference over a [T][bins] feature matrix and
// returns the [T'][V] score matrix. Implementations must be safe for
// concurrent use.
type Model interface {
	Run(ctx context.Context, features [][]float32) ([][]float32, error)
}

// Func is an adapter to allow the use of ordinary functions as Models.
type Func func(ctx context.Context, features [][]float32) ([][]float32, error)

// Run calls the underlying function.
func (f Func) Run(ctx context.Context, features [][]float32) ([][]float32, error) {
	return f(ctx, features)
}

// Recognizer converts raw audio into model scores. The zero value is not
// usable; construct with NewRecognizer.
type Recognizer struct {
	model  Model
	format pcm.Format
	fbank  fbank.Config
}

// NewRecognizer creates a Recognizer over the given model. Audio passed to
// Recognize must be PCM16 mono in the given format; it is converted and
// peak-normalized to 0.9 before feature extraction, matching the model's
// training front end.
func NewRecognizer(model Model, format pcm.Format) *Recognizer {
	cfg := fbank.DefaultConfig()
	cfg.SampleRate = format.SampleRate()
	return &Recognizer{model: model, format: format, fbank: cfg}
}

// Recognize runs the front end and the model over one audio buffer.
// Audio too short to produce any feature frames yields an empty score
// matrix without calling the model.
func (r *Recognizer) Recognize(ctx context.Context, audio []byte) ([][]float32, error) {
	samples := pcm.Samples(audio)
	pcm.Normalize(samples, 0.9)

	features := fbank.Compute(samples, r.fbank)
	if len(features) == 0 {
		return nil, nil
	}

	scores, err := r.model.Run(ctx, features)
	if err != nil {
		return nil, fmt.Errorf("infer: model run: %w", err)
	}
	return scores, nil
}
