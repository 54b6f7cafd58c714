package commands

import (
	"github.com/spf13/cobra"

	"github.com/phonecho/phonecho/pkg/ipa"
)

var tokenizeWords bool

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize <ipa>",
	Short: "Show how an IPA transcription splits into phonemes",
	Long: `Tokenize an IPA transcription into phoneme symbols.

Combining marks, length marks and tie bars group with their base letter,
so "t͡ʃɪːz" is three phonemes, not six. Slashes, brackets, stress marks
and syllable dots are dropped.

Examples:
  phonecho tokenize "/moːnt/"
  phonecho tokenize "ɡʊd ˈmɔːnɪŋ" --words -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenizeWords {
			return outputResult(ipa.Words(args[0]))
		}
		return outputResult(ipa.Tokenize(args[0]))
	},
}

func init() {
	tokenizeCmd.Flags().BoolVar(&tokenizeWords, "words", false, "group phonemes by word")

	rootCmd.AddCommand(tokenizeCmd)
}
