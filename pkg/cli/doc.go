// Package cli provides common utilities for the phonecho command-line tool.
//
// This package includes:
//   - Output formatting (YAML, JSON, raw) with optional jq filtering
//   - Colored terminal rendering of alignment results
//   - Input file loading (YAML/JSON)
//
// Example usage:
//
//	// Output a comparison result, filtered down to the similarity score
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    Query:  ".similarity",
//	})
package cli
