package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phonecho/phonecho/pkg/align"
	"github.com/phonecho/phonecho/pkg/cli"
	"github.com/phonecho/phonecho/pkg/ipa"
	"github.com/phonecho/phonecho/pkg/panphon"
)

var (
	compareRender bool
	compareLang   string
)

var compareCmd = &cobra.Command{
	Use:   "compare <target-ipa> <actual-ipa>",
	Short: "Compare a target pronunciation against what was said",
	Long: `Compare two IPA transcriptions phoneme by phoneme.

Both arguments are tokenized (slashes, brackets and stress marks are
ignored; spaces separate words), aligned with feature-weighted edit
distance, and scored. Similarity 1.0 is a perfect match; substituting a
phonetically close sound costs much less than an unrelated one.

Examples:
  phonecho compare "/moːnt/" "moːnt"
  phonecho compare "ɡʊd ˈmɔːnɪŋ" "ɡud mornin" --render
  phonecho compare "/moːnt/" "munda" -o json -q .similarity`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := panphon.Default()
		if err != nil {
			return err
		}
		var opts []align.Option
		if compareLang != "" {
			opts = append(opts, align.WithLanguage(compareLang))
		}
		comparer := align.New(table, opts...)

		targetWords := ipa.Words(args[0])
		actual := ipa.Tokenize(args[1])
		if len(targetWords) == 0 {
			return fmt.Errorf("target transcription %q contains no phonemes", args[0])
		}

		result := comparer.CompareWords(targetWords, actual)
		if compareRender {
			fmt.Print(cli.RenderAlignment(result, cli.DefaultTheme))
			return nil
		}
		return outputResult(result)
	},
}

func init() {
	compareCmd.Flags().BoolVar(&compareRender, "render", false, "print a colored alignment instead of structured output")
	compareCmd.Flags().StringVar(&compareLang, "lang", "", "language tag recorded with the comparison")

	rootCmd.AddCommand(compareCmd)
}
