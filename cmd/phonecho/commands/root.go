package commands

import (
	"github.com/spf13/cobra"

	"github.com/phonecho/phonecho/pkg/cli"
)

var (
	// Global flags
	verbose      bool
	outputFormat string
	outputFile   string
	outputQuery  string
)

var rootCmd = &cobra.Command{
	Use:   "phonecho",
	Short: "Pronunciation comparison toolkit",
	Long: `phonecho - compare pronunciations at the phoneme level.

The pipeline decodes acoustic model scores into phoneme sequences and
aligns them against reference pronunciations using phonological feature
distances, so "t" vs "d" counts as a near miss while "t" vs "a" counts
as a real error.

Examples:
  # One-shot comparison of two IPA transcriptions
  phonecho compare "/moːnt/" "munda"

  # Decode a saved score matrix
  phonecho decode --scores scores.json --tokens tokens.txt

  # Stream audio into a live detector over websocket
  phonecho serve --addr :8080 --score-url http://localhost:9000/score --tokens tokens.txt`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "output format (yaml, json, raw)")
	rootCmd.PersistentFlags().StringVar(&outputFile, "out-file", "", "write output to file instead of stdout")
	rootCmd.PersistentFlags().StringVarP(&outputQuery, "query", "q", "", "jq expression applied to the result")
}

// outputResult writes a result honoring the global output flags.
func outputResult(result any) error {
	return cli.Output(result, cli.OutputOptions{
		Format: cli.OutputFormat(outputFormat),
		Query:  outputQuery,
		File:   outputFile,
	})
}
