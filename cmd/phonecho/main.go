// Package main provides the phonecho CLI tool.
//
// Usage:
//
//	phonecho [flags] <command> [args]
//
// Commands:
//
//	compare   - Compare a target pronunciation against what was said
//	tokenize  - Show how an IPA transcription splits into phonemes
//	decode    - Run the temporal decoder over a saved score matrix
//	serve     - WebSocket harness streaming audio into a live detector
//	models    - Manage cached model artifacts
//	lexicon   - Manage the reference pronunciation store
package main

import (
	"fmt"
	"os"

	"github.com/phonecho/phonecho/cmd/phonecho/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
