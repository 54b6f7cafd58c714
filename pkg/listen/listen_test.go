package listen

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phonecho/phonecho/pkg/align"
	"github.com/phonecho/phonecho/pkg/ctc"
	"github.com/phonecho/phonecho/pkg/panphon"
)

var testVocab = ctc.Vocabulary{"<blk>", "m", "oː", "n", "t", "s"}

// scoreFrames builds one high-confidence frame per vocabulary id.
func scoreFrames(ids ...int) [][]float32 {
	frames := make([][]float32, len(ids))
	for i, id := range ids {
		row := make([]float32, len(testVocab))
		for j := range row {
			row[j] = -10
		}
		row[id] = float32(math.Log(0.9))
		frames[i] = row
	}
	return frames
}

// fakeRecognizer returns canned scores and counts calls. A non-nil gate
// blocks each call until the test releases it.
type fakeRecognizer struct {
	scores [][]float32
	err    error
	gate   chan struct{}
	calls  atomic.Int32
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ []byte) ([][]float32, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.scores, f.err
}

func newTestDetector(t *testing.T, rec Recognizer) *Detector {
	t.Helper()
	table, err := panphon.Default()
	if err != nil {
		t.Fatalf("panphon.Default: %v", err)
	}
	return NewDetector(rec, testVocab, align.New(table), nil)
}

// loudChunk is n samples of an audible tone.
func loudChunk(n int) []byte {
	b := make([]byte, n*2)
	for i := range n {
		s := int16(0.3 * 32767 * math.Sin(2*math.Pi*float64(i)/64))
		b[2*i] = byte(s)
		b[2*i+1] = byte(s >> 8)
	}
	return b
}

// silentChunk is n samples of digital silence.
func silentChunk(n int) []byte { return make([]byte, n*2) }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSessionMatches(t *testing.T) {
	rec := &fakeRecognizer{scores: scoreFrames(1, 2, 3, 4)} // m oː n t
	d := newTestDetector(t, rec)

	var matches atomic.Int32
	var got *align.Result
	var mu sync.Mutex
	s, err := d.NewSession(context.Background(), Config{
		Target:    []string{"m", "oː", "n", "t"},
		Threshold: 0.9,
		OnMatch: func(r *align.Result) {
			mu.Lock()
			got = r
			mu.Unlock()
			matches.Add(1)
		},
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("initial state = %v, want idle", s.State())
	}

	// Two chunks: below the default minimum of three, no pass yet.
	s.AddChunk(loudChunk(1600))
	s.AddChunk(loudChunk(1600))
	if n := rec.calls.Load(); n != 0 {
		t.Fatalf("recognizer called %d times before MinChunksBeforeCheck", n)
	}
	if s.State() != StateAccumulating {
		t.Errorf("state after 2 chunks = %v, want accumulating", s.State())
	}

	// Third chunk starts the first pass, which matches.
	s.AddChunk(loudChunk(1600))
	waitFor(t, "match", func() bool { return s.State() == StateMatched })

	if n := rec.calls.Load(); n != 1 {
		t.Errorf("recognizer called %d times, want 1", n)
	}
	if n := matches.Load(); n != 1 {
		t.Errorf("OnMatch fired %d times, want 1", n)
	}
	mu.Lock()
	if got == nil || got.Similarity < 0.9 {
		t.Errorf("match result = %+v, want similarity >= 0.9", got)
	}
	mu.Unlock()

	// Chunks after resolution are ignored.
	s.AddChunk(loudChunk(1600))
	time.Sleep(10 * time.Millisecond)
	if n := rec.calls.Load(); n != 1 {
		t.Errorf("recognizer called %d times after match, want still 1", n)
	}
	if n := matches.Load(); n != 1 {
		t.Errorf("OnMatch fired %d times after extra chunk, want still 1", n)
	}
}

func TestSessionKeepsListeningBelowThreshold(t *testing.T) {
	rec := &fakeRecognizer{scores: scoreFrames(5)} // "s": nowhere near the target
	d := newTestDetector(t, rec)

	s, err := d.NewSession(context.Background(), Config{
		Target:               []string{"m", "oː", "n", "t"},
		Threshold:            0.9,
		MinChunksBeforeCheck: 1,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	s.AddChunk(loudChunk(1600))
	waitFor(t, "pass completion", func() bool { return s.State() == StateAccumulating })

	if r := s.LastResult(); r == nil || r.Similarity >= 0.9 {
		t.Errorf("LastResult = %+v, want stored low-similarity result", r)
	}

	// Next chunk starts the next pass.
	s.AddChunk(loudChunk(1600))
	waitFor(t, "second pass", func() bool { return rec.calls.Load() == 2 })
}

func TestSessionSingleInFlightPass(t *testing.T) {
	rec := &fakeRecognizer{scores: scoreFrames(1, 2, 3, 4), gate: make(chan struct{})}
	d := newTestDetector(t, rec)

	s, err := d.NewSession(context.Background(), Config{
		Target:               []string{"m", "oː", "n", "t"},
		Threshold:            0.9,
		MinChunksBeforeCheck: 1,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	s.AddChunk(loudChunk(1600))
	waitFor(t, "first pass start", func() bool { return rec.calls.Load() == 1 })

	// More chunks while the pass is blocked: buffered, no new pass.
	s.AddChunk(loudChunk(1600))
	s.AddChunk(loudChunk(1600))
	if n := rec.calls.Load(); n != 1 {
		t.Errorf("recognizer called %d times with a pass in flight, want 1", n)
	}
	if s.State() != StateDecoding {
		t.Errorf("state = %v, want decoding", s.State())
	}

	close(rec.gate)
	waitFor(t, "match", func() bool { return s.State() == StateMatched })
}

func TestSessionSilenceStop(t *testing.T) {
	rec := &fakeRecognizer{scores: scoreFrames(1)}
	d := newTestDetector(t, rec)

	var silences atomic.Int32
	s, err := d.NewSession(context.Background(), Config{
		Target:          []string{"m"},
		SilenceDuration: 200 * time.Millisecond,
		OnSilence:       func() { silences.Add(1) },
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	// Two 100ms silent chunks reach the limit before MinChunksBeforeCheck,
	// proving the silence monitor does not wait for the first decode pass.
	s.AddChunk(silentChunk(1600))
	if s.State() != StateAccumulating {
		t.Errorf("state after one silent chunk = %v, want accumulating", s.State())
	}
	s.AddChunk(silentChunk(1600))

	if s.State() != StateSilenceStopped {
		t.Errorf("state = %v, want silence-stopped", s.State())
	}
	if n := silences.Load(); n != 1 {
		t.Errorf("OnSilence fired %d times, want 1", n)
	}
	if n := rec.calls.Load(); n != 0 {
		t.Errorf("recognizer called %d times, want 0", n)
	}

	// Further silence does not re-fire the callback.
	s.AddChunk(silentChunk(1600))
	if n := silences.Load(); n != 1 {
		t.Errorf("OnSilence fired %d times after extra chunk, want still 1", n)
	}
}

func TestSessionLoudChunkResetsSilence(t *testing.T) {
	d := newTestDetector(t, &fakeRecognizer{scores: scoreFrames(1)})

	s, err := d.NewSession(context.Background(), Config{
		Target:               []string{"m"},
		SilenceDuration:      200 * time.Millisecond,
		MinChunksBeforeCheck: 100, // keep decoding out of the picture
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	s.AddChunk(silentChunk(1600)) // 100ms silence
	s.AddChunk(loudChunk(1600))   // resets the run
	s.AddChunk(silentChunk(1600)) // 100ms again, still under the limit
	if s.State() == StateSilenceStopped {
		t.Fatal("session stopped although silence was interrupted")
	}
	s.AddChunk(silentChunk(1600)) // 200ms consecutive: stop
	if s.State() != StateSilenceStopped {
		t.Errorf("state = %v, want silence-stopped", s.State())
	}
}

func TestSessionSilenceDuringDecodeDiscardsPass(t *testing.T) {
	rec := &fakeRecognizer{scores: scoreFrames(1, 2, 3, 4), gate: make(chan struct{})}
	d := newTestDetector(t, rec)

	var matches, silences atomic.Int32
	s, err := d.NewSession(context.Background(), Config{
		Target:               []string{"m", "oː", "n", "t"},
		Threshold:            0.9,
		MinChunksBeforeCheck: 1,
		SilenceDuration:      200 * time.Millisecond,
		OnMatch:              func(*align.Result) { matches.Add(1) },
		OnSilence:            func() { silences.Add(1) },
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	s.AddChunk(loudChunk(1600))
	waitFor(t, "pass start", func() bool { return rec.calls.Load() == 1 })

	// Silence resolves the session while the pass is blocked.
	s.AddChunk(silentChunk(1600))
	s.AddChunk(silentChunk(1600))
	if s.State() != StateSilenceStopped {
		t.Fatalf("state = %v, want silence-stopped", s.State())
	}

	// The late pass result must be discarded.
	close(rec.gate)
	time.Sleep(20 * time.Millisecond)
	if n := matches.Load(); n != 0 {
		t.Errorf("OnMatch fired %d times after silence stop, want 0", n)
	}
	if n := silences.Load(); n != 1 {
		t.Errorf("OnSilence fired %d times, want 1", n)
	}
	if r := s.LastResult(); r != nil {
		t.Errorf("LastResult = %+v, want nil for discarded pass", r)
	}
}

func TestSessionCancelDiscardsLateResult(t *testing.T) {
	rec := &fakeRecognizer{scores: scoreFrames(1, 2, 3, 4), gate: make(chan struct{})}
	d := newTestDetector(t, rec)

	var matches atomic.Int32
	s, err := d.NewSession(context.Background(), Config{
		Target:               []string{"m", "oː", "n", "t"},
		Threshold:            0.9,
		MinChunksBeforeCheck: 1,
		OnMatch:              func(*align.Result) { matches.Add(1) },
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	s.AddChunk(loudChunk(1600))
	waitFor(t, "pass start", func() bool { return rec.calls.Load() == 1 })

	s.Cancel()
	if s.State() != StateCancelled {
		t.Errorf("state = %v, want cancelled", s.State())
	}

	close(rec.gate)
	time.Sleep(20 * time.Millisecond)
	if n := matches.Load(); n != 0 {
		t.Errorf("OnMatch fired %d times after cancel, want 0", n)
	}

	// Cancel is idempotent and chunks are ignored afterwards.
	s.Cancel()
	s.AddChunk(loudChunk(1600))
	if n := rec.calls.Load(); n != 1 {
		t.Errorf("recognizer called %d times after cancel, want still 1", n)
	}
}

func TestSessionRecoversFromPassError(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("scoring backend down")}
	d := newTestDetector(t, rec)

	s, err := d.NewSession(context.Background(), Config{
		Target:               []string{"m"},
		MinChunksBeforeCheck: 1,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	s.AddChunk(loudChunk(1600))
	waitFor(t, "failed pass to settle", func() bool { return s.State() == StateAccumulating })

	// The failure did not end the session; a later chunk retries.
	rec.err = nil
	rec.scores = scoreFrames(1)
	s.AddChunk(loudChunk(1600))
	waitFor(t, "retry pass", func() bool { return rec.calls.Load() == 2 })
}

func TestSessionWordTarget(t *testing.T) {
	rec := &fakeRecognizer{scores: scoreFrames(1, 2, 3, 4)}
	d := newTestDetector(t, rec)

	s, err := d.NewSession(context.Background(), Config{
		TargetWords:          [][]string{{"m", "oː"}, {"n", "t"}},
		Threshold:            0.9,
		MinChunksBeforeCheck: 1,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	s.AddChunk(loudChunk(1600))
	waitFor(t, "match", func() bool { return s.State() == StateMatched })

	r := s.LastResult()
	if r == nil {
		t.Fatal("no result stored")
	}
	var boundaries int
	for _, item := range r.Alignment {
		if item.WordBoundary {
			boundaries++
		}
	}
	if boundaries != 2 {
		t.Errorf("alignment has %d word boundaries, want 2", boundaries)
	}
}

func TestNewSessionValidation(t *testing.T) {
	d := newTestDetector(t, &fakeRecognizer{})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty target", Config{}},
		{"threshold above one", Config{Target: []string{"m"}, Threshold: 1.5}},
		{"negative threshold", Config{Target: []string{"m"}, Threshold: -0.1}},
		{"negative min chunks", Config{Target: []string{"m"}, MinChunksBeforeCheck: -1}},
		{"negative silence threshold", Config{Target: []string{"m"}, SilenceThreshold: -1}},
		{"negative silence duration", Config{Target: []string{"m"}, SilenceDuration: -time.Second}},
		{"negative min confidence", Config{Target: []string{"m"}, MinConfidence: -0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.NewSession(context.Background(), tt.cfg); err == nil {
				t.Error("NewSession accepted invalid config")
			}
		})
	}
}

func TestSessionIDsUnique(t *testing.T) {
	d := newTestDetector(t, &fakeRecognizer{})
	cfg := Config{Target: []string{"m"}}
	a, err := d.NewSession(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	b, err := d.NewSession(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("session ids %q and %q, want distinct non-empty ids", a.ID(), b.ID())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateAccumulating, "accumulating"},
		{StateDecoding, "decoding"},
		{StateMatched, "matched"},
		{StateSilenceStopped, "silence-stopped"},
		{StateCancelled, "cancelled"},
		{State(42), "State(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
