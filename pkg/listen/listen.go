// Package listen runs the decode-and-compare pipeline incrementally over
// a growing audio buffer so that recording can stop automatically.
//
// # Architecture
//
// A [Detector] bundles the shared, read-only collaborators: the
// recognizer (audio → scores), the vocabulary and the phoneme comparer.
// Each recording attempt gets its own [Session] from Detector.NewSession.
//
// The session is driven by AddChunk from the audio capture side. Every
// chunk updates a silence monitor; once enough chunks have arrived, at
// most one decode-and-compare pass runs concurrently against a snapshot
// of the buffer. A pass whose similarity reaches the configured threshold
// resolves the session as matched; sustained low volume resolves it as
// silence-stopped. Either way the corresponding callback fires exactly
// once and no further work is scheduled.
//
// # Staleness
//
// Each decode pass captures the session's generation counter when it
// starts. The generation advances on every terminal transition (match,
// silence, cancel), so a pass that completes after the session resolved —
// or after the caller cancelled — sees a generation mismatch and discards
// its result. A failed pass (for example, the inference call errored) is
// logged and the session keeps listening; transient model trouble never
// kills a recording.
package listen

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phonecho/phonecho/pkg/align"
	"github.com/phonecho/phonecho/pkg/audio/pcm"
	"github.com/phonecho/phonecho/pkg/ctc"
)

// State is the lifecycle state of a Session.
type State int

const (
	// StateIdle is the initial state before the first chunk arrives.
	StateIdle State = iota
	// StateAccumulating means chunks are being buffered and no decode
	// pass is in flight.
	StateAccumulating
	// StateDecoding means a decode-and-compare pass is running against a
	// buffer snapshot. New chunks are still accepted and buffered.
	StateDecoding
	// StateMatched is terminal: a pass met the similarity threshold.
	StateMatched
	// StateSilenceStopped is terminal: the silence monitor fired.
	StateSilenceStopped
	// StateCancelled is terminal: the caller discarded the session.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateDecoding:
		return "decoding"
	case StateMatched:
		return "matched"
	case StateSilenceStopped:
		return "silence-stopped"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// terminal reports whether no further transitions can occur.
func (s State) terminal() bool {
	return s == StateMatched || s == StateSilenceStopped || s == StateCancelled
}

// Recognizer turns an audio buffer into a [T][V] score matrix.
// The infer package's Recognizer satisfies this.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) ([][]float32, error)
}

// Detector holds the shared read-only pipeline collaborators. One
// Detector serves any number of concurrent sessions; nothing in it is
// mutated after construction.
type Detector struct {
	rec      Recognizer
	vocab    ctc.Vocabulary
	comparer *align.Comparer
	logger   *slog.Logger
}

// NewDetector creates a Detector. Logger may be nil for slog.Default().
func NewDetector(rec Recognizer, vocab ctc.Vocabulary, comparer *align.Comparer, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{rec: rec, vocab: vocab, comparer: comparer, logger: logger}
}

// Config configures one Session.
type Config struct {
	// Target is the reference phoneme sequence. Required unless
	// TargetWords is set.
	Target []string

	// TargetWords optionally supplies the target word-tokenized; word
	// boundaries are then annotated in match results. Overrides Target.
	TargetWords [][]string

	// Threshold is the similarity at or above which the session resolves
	// as matched. Zero means 1.0 (exact match only).
	Threshold float64

	// MinChunksBeforeCheck is the number of chunks that must arrive
	// before the first decode pass. Zero means 3.
	MinChunksBeforeCheck int

	// SilenceThreshold is the normalized RMS floor below which a chunk
	// counts as silence. Zero means 0.01.
	SilenceThreshold float64

	// SilenceDuration is the cumulative duration of consecutive silent
	// chunks that stops the session. Zero means 2s. Measured in audio
	// time, not wall-clock time, so tests and offline replays behave
	// identically to live capture.
	SilenceDuration time.Duration

	// Format is the PCM format of incoming chunks. Defaults to 16 kHz
	// mono, the model input format.
	Format pcm.Format

	// MinConfidence is passed to the temporal decoder. Zero means the
	// decoder default.
	MinConfidence float64

	// OnMatch is invoked exactly once if the session resolves as matched.
	OnMatch func(*align.Result)

	// OnSilence is invoked exactly once if the silence monitor stops the
	// session.
	OnSilence func()
}

func (c *Config) withDefaults() (Config, error) {
	cfg := *c
	if len(cfg.TargetWords) > 0 {
		cfg.Target = cfg.Target[:0:0]
		for _, w := range cfg.TargetWords {
			cfg.Target = append(cfg.Target, w...)
		}
	}
	if len(cfg.Target) == 0 {
		return cfg, fmt.Errorf("listen: empty target sequence")
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 1.0
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return cfg, fmt.Errorf("listen: threshold %f out of [0, 1]", cfg.Threshold)
	}
	if cfg.MinChunksBeforeCheck == 0 {
		cfg.MinChunksBeforeCheck = 3
	}
	if cfg.MinChunksBeforeCheck < 0 {
		return cfg, fmt.Errorf("listen: negative MinChunksBeforeCheck %d", cfg.MinChunksBeforeCheck)
	}
	if cfg.SilenceThreshold == 0 {
		cfg.SilenceThreshold = 0.01
	}
	if cfg.SilenceThreshold < 0 {
		return cfg, fmt.Errorf("listen: negative SilenceThreshold %f", cfg.SilenceThreshold)
	}
	if cfg.SilenceDuration == 0 {
		cfg.SilenceDuration = 2 * time.Second
	}
	if cfg.SilenceDuration < 0 {
		return cfg, fmt.Errorf("listen: negative SilenceDuration %v", cfg.SilenceDuration)
	}
	if cfg.MinConfidence < 0 {
		return cfg, fmt.Errorf("listen: negative MinConfidence %f", cfg.MinConfidence)
	}
	return cfg, nil
}

// Session is the mutable state of one active recording. It owns its
// buffer and silence timer exclusively; the only cross-session shared
// state lives in the read-only Detector.
type Session struct {
	id  string
	d   *Detector
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	gen     uint64 // bumped on every terminal transition
	buf     []byte
	chunks  int
	silence time.Duration // consecutive below-floor audio time
	last    *align.Result // most recent completed pass
}

// NewSession creates a session for one recording attempt. Configuration
// mistakes (negative thresholds, empty target) are caller bugs and fail
// here rather than surfacing mid-recording.
func (d *Detector) NewSession(ctx context.Context, cfg Config) (*Session, error) {
	full, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	sctx, cancel := context.WithCancel(ctx)
	return &Session{
		id:     uuid.NewString(),
		d:      d,
		cfg:    full,
		ctx:    sctx,
		cancel: cancel,
		state:  StateIdle,
	}, nil
}

// ID returns the session's unique id, used in log records.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastResult returns the most recent completed comparison, or nil if no
// pass has finished yet. The result of a pass that completed after the
// session resolved is never stored.
func (s *Session) LastResult() *align.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// AddChunk appends one audio chunk and advances the session.
//
// The silence monitor always runs first; it can resolve the session even
// while a decode pass is in flight. Otherwise, if no pass is running and
// enough chunks have arrived, one asynchronous decode-and-compare pass
// starts over a snapshot of the buffer.
func (s *Session) AddChunk(chunk []byte) {
	s.mu.Lock()

	if s.state.terminal() {
		s.mu.Unlock()
		return
	}

	s.buf = append(s.buf, chunk...)
	s.chunks++

	// Silence bookkeeping: consecutive below-floor audio time.
	if pcm.RMS(chunk) >= s.cfg.SilenceThreshold {
		s.silence = 0
	} else {
		s.silence += s.cfg.Format.Duration(len(chunk))
		if s.silence >= s.cfg.SilenceDuration {
			s.resolveLocked(StateSilenceStopped)
			cb := s.cfg.OnSilence
			s.mu.Unlock()
			s.d.logger.Info("listen: silence stop",
				slog.String("session", s.id),
				slog.Duration("silence", s.silence))
			if cb != nil {
				cb()
			}
			return
		}
	}

	if s.state == StateDecoding {
		s.mu.Unlock()
		return
	}
	if s.chunks < s.cfg.MinChunksBeforeCheck {
		s.state = StateAccumulating
		s.mu.Unlock()
		return
	}

	snapshot := slices.Clone(s.buf)
	gen := s.gen
	s.state = StateDecoding
	s.mu.Unlock()

	go s.decodePass(snapshot, gen)
}

// Cancel discards the session. Any in-flight decode pass is ignored when
// it completes; no callback fires.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state.terminal() {
		s.mu.Unlock()
		return
	}
	s.resolveLocked(StateCancelled)
	s.mu.Unlock()
}

// resolveLocked moves to a terminal state and invalidates in-flight work.
func (s *Session) resolveLocked(to State) {
	s.state = to
	s.gen++
	s.cancel()
}

// decodePass runs one decode-and-compare pass over a buffer snapshot.
// The result is applied only if the session is still at the generation
// captured when the pass started.
func (s *Session) decodePass(snapshot []byte, gen uint64) {
	result, err := s.compareOnce(snapshot)

	s.mu.Lock()
	if s.gen != gen || s.state != StateDecoding {
		// Superseded: the session resolved or was cancelled while this
		// pass was in flight.
		s.mu.Unlock()
		return
	}

	if err != nil {
		// Transient failure: keep listening, the next qualifying chunk
		// starts the next pass.
		s.state = StateAccumulating
		s.mu.Unlock()
		s.d.logger.Warn("listen: decode pass failed",
			slog.String("session", s.id),
			slog.Any("error", err))
		return
	}

	s.last = result
	if result.Similarity >= s.cfg.Threshold {
		s.resolveLocked(StateMatched)
		cb := s.cfg.OnMatch
		s.mu.Unlock()
		s.d.logger.Info("listen: matched",
			slog.String("session", s.id),
			slog.Float64("similarity", result.Similarity))
		if cb != nil {
			cb(result)
		}
		return
	}

	s.state = StateAccumulating
	s.mu.Unlock()
}

// compareOnce runs recognize → decode → compare outside the lock.
func (s *Session) compareOnce(audio []byte) (*align.Result, error) {
	scores, err := s.d.rec.Recognize(s.ctx, audio)
	if err != nil {
		return nil, err
	}

	var opts *ctc.Options
	if s.cfg.MinConfidence > 0 {
		opts = &ctc.Options{MinConfidence: s.cfg.MinConfidence}
	}
	phonemes, err := ctc.Decode(scores, s.d.vocab, opts)
	if err != nil {
		return nil, err
	}
	actual := ctc.Symbols(phonemes)

	if len(s.cfg.TargetWords) > 0 {
		return s.d.comparer.CompareWords(s.cfg.TargetWords, actual), nil
	}
	return s.d.comparer.Compare(s.cfg.Target, actual), nil
}
