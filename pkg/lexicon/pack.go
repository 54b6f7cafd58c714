package lexicon

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// Pack is a curated set of pronunciations loaded from YAML:
//
//	name: basics
//	language: eng
//	entries:
//	  - word: mount
//	    ipa: /moːnt/
type Pack struct {
	Name     string      `yaml:"name"`
	Language string      `yaml:"language"`
	Entries  []PackEntry `yaml:"entries"`
}

// PackEntry is one word in a pack. The IPA may carry slashes and stress
// marks; tokenization strips them.
type PackEntry struct {
	Word string `yaml:"word"`
	IPA  string `yaml:"ipa"`
}

// ReadPack parses a YAML phrase pack.
func ReadPack(r io.Reader) (*Pack, error) {
	var p Pack
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("lexicon: parse pack: %w", err)
	}
	for i, e := range p.Entries {
		if e.Word == "" || e.IPA == "" {
			return nil, fmt.Errorf("lexicon: pack %q entry %d: word and ipa are required", p.Name, i)
		}
	}
	return &p, nil
}

// ReadPackFile parses a YAML phrase pack from disk.
func ReadPackFile(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: open pack: %w", err)
	}
	defer f.Close()
	return ReadPack(f)
}

// Import tokenizes every pack entry and stores it. It returns the number
// of entries written.
func (p *Pack) Import(ctx context.Context, store Store) (int, error) {
	entries := make([]*Entry, len(p.Entries))
	for i, e := range p.Entries {
		entries[i] = NewEntry(e.Word, e.IPA)
	}
	if err := store.PutAll(ctx, entries); err != nil {
		return 0, fmt.Errorf("lexicon: import pack %q: %w", p.Name, err)
	}
	return len(entries), nil
}
