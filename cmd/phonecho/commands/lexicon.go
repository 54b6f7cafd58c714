package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phonecho/phonecho/pkg/cli"
	"github.com/phonecho/phonecho/pkg/lexicon"
)

var lexiconDir string

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Manage the reference pronunciation store",
	Long: `Manage the word → IPA pronunciation store used as comparison targets.

Pronunciations come from YAML phrase packs:

  name: basics
  language: eng
  entries:
    - word: mount
      ipa: /moːnt/

Examples:
  phonecho lexicon import basics.yaml
  phonecho lexicon lookup mount -o json
  phonecho lexicon list`,
}

// openLexicon opens the store at --dir, defaulting to the user cache.
func openLexicon() (lexicon.Store, error) {
	dir := lexiconDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolve lexicon dir: %w", err)
		}
		dir = filepath.Join(base, "phonecho", "lexicon")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lexicon dir: %w", err)
	}
	return lexicon.NewBadger(lexicon.BadgerOptions{Dir: dir})
}

var lexiconImportCmd = &cobra.Command{
	Use:   "import <pack.yaml>...",
	Short: "Import YAML phrase packs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLexicon()
		if err != nil {
			return err
		}
		defer store.Close()

		for _, path := range args {
			pack, err := lexicon.ReadPackFile(path)
			if err != nil {
				return err
			}
			n, err := pack.Import(cmd.Context(), store)
			if err != nil {
				return err
			}
			cli.PrintSuccess("imported %d pronunciations from %s", n, path)
		}
		return nil
	},
}

var lexiconLookupCmd = &cobra.Command{
	Use:   "lookup <word>",
	Short: "Look up a stored pronunciation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLexicon()
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.Lookup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return outputResult(entry)
	},
}

var lexiconListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored pronunciations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLexicon()
		if err != nil {
			return err
		}
		defer store.Close()

		var entries []*lexicon.Entry
		for e, err := range store.All(cmd.Context()) {
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return outputResult(entries)
	},
}

func init() {
	lexiconCmd.PersistentFlags().StringVar(&lexiconDir, "dir", "", "pronunciation store directory (default: user cache)")

	lexiconCmd.AddCommand(lexiconImportCmd)
	lexiconCmd.AddCommand(lexiconLookupCmd)
	lexiconCmd.AddCommand(lexiconListCmd)
	rootCmd.AddCommand(lexiconCmd)
}
