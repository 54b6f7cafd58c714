package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phonecho/phonecho/pkg/audio/pcm"
	"github.com/phonecho/phonecho/pkg/audio/wave"
	"github.com/phonecho/phonecho/pkg/cli"
	"github.com/phonecho/phonecho/pkg/ctc"
	"github.com/phonecho/phonecho/pkg/infer"
)

var (
	decodeScoresFile string
	decodeAudioFile  string
	decodeScoreURL   string
	decodeTokensFile string
	decodeMinConf    float64
)

// scoresInput is the saved score matrix format: either the bare matrix
// or wrapped in a "scores" field.
type scoresInput struct {
	Scores [][]float32 `json:"scores" yaml:"scores"`
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Run the temporal decoder over model scores",
	Long: `Decode a per-frame score matrix into a phoneme sequence.

Input is either a saved score matrix (--scores, JSON or YAML with a
"scores" field) or a WAV file (--audio) scored by a remote endpoint
(--score-url). The tokens file maps score columns to symbols, one
"symbol id" pair per line.

Examples:
  phonecho decode --scores scores.json --tokens tokens.txt
  phonecho decode --audio say.wav --score-url http://localhost:9000/score --tokens tokens.txt
  phonecho decode --scores scores.json --tokens tokens.txt --min-confidence 0.7 -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if decodeTokensFile == "" {
			return fmt.Errorf("--tokens is required")
		}
		tf, err := os.Open(decodeTokensFile)
		if err != nil {
			return fmt.Errorf("open tokens file: %w", err)
		}
		vocab, err := ctc.LoadTokens(tf)
		tf.Close()
		if err != nil {
			return err
		}

		scores, err := loadScores(cmd)
		if err != nil {
			return err
		}

		var opts *ctc.Options
		if decodeMinConf != 0 {
			opts = &ctc.Options{MinConfidence: decodeMinConf}
		}
		phonemes, err := ctc.Decode(scores, vocab, opts)
		if err != nil {
			return err
		}

		if verbose {
			cli.PrintInfo("decoded %d frames into %d phonemes: %s",
				len(scores), len(phonemes), strings.Join(ctc.Symbols(phonemes), " "))
		}
		return outputResult(phonemes)
	},
}

// loadScores resolves the score matrix from whichever input mode is set.
func loadScores(cmd *cobra.Command) ([][]float32, error) {
	switch {
	case decodeScoresFile != "" && decodeAudioFile != "":
		return nil, fmt.Errorf("--scores and --audio are mutually exclusive")

	case decodeScoresFile != "":
		var in scoresInput
		if err := cli.LoadInput(decodeScoresFile, &in); err != nil {
			return nil, err
		}
		if len(in.Scores) == 0 {
			// Accept a bare [[...]] matrix too.
			var bare [][]float32
			if err := cli.LoadInput(decodeScoresFile, &bare); err == nil {
				in.Scores = bare
			}
		}
		if len(in.Scores) == 0 {
			return nil, fmt.Errorf("no scores found in %s", decodeScoresFile)
		}
		return in.Scores, nil

	case decodeAudioFile != "":
		if decodeScoreURL == "" {
			return nil, fmt.Errorf("--audio requires --score-url")
		}
		audio, err := wave.ReadFileAs(decodeAudioFile, pcm.L16Mono16K)
		if err != nil {
			return nil, err
		}
		rec := infer.NewRecognizer(&infer.HTTPModel{URL: decodeScoreURL}, pcm.L16Mono16K)
		return rec.Recognize(cmd.Context(), audio)

	default:
		return nil, fmt.Errorf("one of --scores or --audio is required")
	}
}

func init() {
	decodeCmd.Flags().StringVar(&decodeScoresFile, "scores", "", "saved score matrix file (JSON or YAML)")
	decodeCmd.Flags().StringVar(&decodeAudioFile, "audio", "", "WAV file to score via --score-url")
	decodeCmd.Flags().StringVar(&decodeScoreURL, "score-url", "", "remote scoring endpoint for --audio")
	decodeCmd.Flags().StringVar(&decodeTokensFile, "tokens", "", "tokens file mapping score columns to symbols")
	decodeCmd.Flags().Float64Var(&decodeMinConf, "min-confidence", 0, "confidence floor for decoded phonemes (0 = default)")

	rootCmd.AddCommand(decodeCmd)
}
