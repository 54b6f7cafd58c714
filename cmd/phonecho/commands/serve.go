package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/phonecho/phonecho/pkg/align"
	"github.com/phonecho/phonecho/pkg/audio/pcm"
	"github.com/phonecho/phonecho/pkg/audio/stream"
	"github.com/phonecho/phonecho/pkg/ctc"
	"github.com/phonecho/phonecho/pkg/infer"
	"github.com/phonecho/phonecho/pkg/ipa"
	"github.com/phonecho/phonecho/pkg/lexicon"
	"github.com/phonecho/phonecho/pkg/listen"
	"github.com/phonecho/phonecho/pkg/panphon"
)

var (
	serveAddr       string
	serveScoreURL   string
	serveTokensFile string
	serveLexiconDir string
	serveChunk      time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "WebSocket harness streaming audio into a live detector",
	Long: `Serve a websocket endpoint at /listen.

The client opens a connection, sends one JSON text message configuring
the session, then streams raw PCM16 16kHz mono audio as binary messages.
The server runs the detector over the growing buffer and pushes JSON
events back:

  {"type": "match", "session": "...", "result": {...}}
  {"type": "silence", "session": "..."}

The session config names the target either directly ("target": an IPA
string) or by dictionary word ("word", requires --lexicon-dir):

  {"target": "/moːnt/", "threshold": 0.8}
  {"word": "mount", "threshold": 0.8, "silence_ms": 1500}

Examples:
  phonecho serve --addr :8080 --score-url http://localhost:9000/score --tokens tokens.txt
  phonecho serve --addr :8080 --score-url http://localhost:9000/score --tokens tokens.txt --lexicon-dir ~/.cache/phonecho/lexicon`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveScoreURL == "" || serveTokensFile == "" {
			return fmt.Errorf("--score-url and --tokens are required")
		}

		tf, err := os.Open(serveTokensFile)
		if err != nil {
			return fmt.Errorf("open tokens file: %w", err)
		}
		vocab, err := ctc.LoadTokens(tf)
		tf.Close()
		if err != nil {
			return err
		}

		table, err := panphon.Default()
		if err != nil {
			return err
		}

		logger := slog.Default()
		srv := &listenServer{
			detector: listen.NewDetector(
				infer.NewRecognizer(&infer.HTTPModel{URL: serveScoreURL}, pcm.L16Mono16K),
				vocab,
				align.New(table),
				logger,
			),
			logger: logger,
			upgrader: websocket.Upgrader{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		}
		if serveLexiconDir != "" {
			store, err := lexicon.NewBadger(lexicon.BadgerOptions{Dir: serveLexiconDir})
			if err != nil {
				return err
			}
			defer store.Close()
			srv.lexicon = store
		}

		mux := http.NewServeMux()
		mux.HandleFunc("/listen", srv.handleListen)

		logger.Info("serve: listening", slog.String("addr", serveAddr))
		return http.ListenAndServe(serveAddr, mux)
	},
}

// listenRequest is the client's session configuration message.
type listenRequest struct {
	Target           string  `json:"target"`
	Word             string  `json:"word"`
	Threshold        float64 `json:"threshold"`
	MinChunks        int     `json:"min_chunks"`
	MinConfidence    float64 `json:"min_confidence"`
	SilenceMs        int     `json:"silence_ms"`
	SilenceThreshold float64 `json:"silence_threshold"`
}

// listenEvent is one server-to-client message.
type listenEvent struct {
	Type    string        `json:"type"`
	Session string        `json:"session"`
	Result  *align.Result `json:"result,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type listenServer struct {
	detector *listen.Detector
	lexicon  lexicon.Store
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func (s *listenServer) handleListen(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := s.serveConn(r.Context(), conn); err != nil {
		s.logger.Warn("serve: session ended with error", slog.Any("error", err))
		conn.WriteJSON(listenEvent{Type: "error", Error: err.Error()})
	}
}

func (s *listenServer) serveConn(ctx context.Context, conn *websocket.Conn) error {
	var req listenRequest
	if err := conn.ReadJSON(&req); err != nil {
		return fmt.Errorf("read session config: %w", err)
	}
	target, err := s.resolveTarget(ctx, &req)
	if err != nil {
		return err
	}

	// Events funnel through one channel so a single goroutine owns writes.
	events := make(chan listenEvent, 2)
	cfg := listen.Config{
		TargetWords:          target,
		Threshold:            req.Threshold,
		MinChunksBeforeCheck: req.MinChunks,
		MinConfidence:        req.MinConfidence,
		SilenceThreshold:     req.SilenceThreshold,
		SilenceDuration:      time.Duration(req.SilenceMs) * time.Millisecond,
	}
	var session *listen.Session
	cfg.OnMatch = func(res *align.Result) {
		events <- listenEvent{Type: "match", Session: session.ID(), Result: res}
	}
	cfg.OnSilence = func() {
		events <- listenEvent{Type: "silence", Session: session.ID()}
	}
	session, err = s.detector.NewSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Cancel()
	s.logger.Info("serve: session started", slog.String("session", session.ID()))

	// Regroup arbitrary client frames into uniform detector chunks.
	chunker := stream.NewDuration(pcm.L16Mono16K, serveChunk)
	defer chunker.Close()
	go func() {
		for {
			chunk, err := chunker.Next()
			if err != nil {
				return
			}
			session.AddChunk(chunk)
		}
	}()

	// Reader: client audio frames in.
	readErr := make(chan error, 1)
	go func() {
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				chunker.CloseWithError(err)
				readErr <- err
				return
			}
			if msgType == websocket.BinaryMessage {
				chunker.Write(data)
			}
		}
	}()

	// Writer: detector events out, then close.
	select {
	case ev := <-events:
		if err := conn.WriteJSON(ev); err != nil {
			return err
		}
		s.logger.Info("serve: session resolved",
			slog.String("session", ev.Session),
			slog.String("event", ev.Type))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ev.Type))
		return nil
	case err := <-readErr:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil
		}
		return fmt.Errorf("read audio: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resolveTarget turns the request into a word-grouped phoneme target.
func (s *listenServer) resolveTarget(ctx context.Context, req *listenRequest) ([][]string, error) {
	switch {
	case req.Target != "":
		return ipa.Words(req.Target), nil
	case req.Word != "":
		if s.lexicon == nil {
			return nil, fmt.Errorf("word lookup requires --lexicon-dir")
		}
		entry, err := s.lexicon.Lookup(ctx, req.Word)
		if err != nil {
			if errors.Is(err, lexicon.ErrNotFound) {
				return nil, fmt.Errorf("no pronunciation stored for %q", req.Word)
			}
			return nil, err
		}
		return [][]string{entry.Phonemes}, nil
	default:
		return nil, fmt.Errorf(`session config needs "target" or "word"`)
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveScoreURL, "score-url", "", "remote scoring endpoint")
	serveCmd.Flags().StringVar(&serveTokensFile, "tokens", "", "tokens file mapping score columns to symbols")
	serveCmd.Flags().StringVar(&serveLexiconDir, "lexicon-dir", "", "pronunciation store for word lookups")
	serveCmd.Flags().DurationVar(&serveChunk, "chunk", 100*time.Millisecond, "detector chunk duration")

	rootCmd.AddCommand(serveCmd)
}
