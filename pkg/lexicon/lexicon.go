// Package lexicon stores reference pronunciations: the word → IPA entries
// that comparisons are scored against.
//
// Entries arrive either from curated YAML phrase packs or one at a time
// (for example, fetched from an upstream dictionary and cached). The
// BadgerDB-backed store persists them across runs; the in-memory store
// serves tests and ephemeral sessions.
package lexicon

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/phonecho/phonecho/pkg/ipa"
)

// ErrNotFound is returned when a word has no stored pronunciation.
var ErrNotFound = errors.New("lexicon: not found")

// Entry is one stored pronunciation.
type Entry struct {
	// Word is the orthographic form, stored case-insensitively.
	Word string `msgpack:"word" json:"word" yaml:"word"`

	// IPA is the pronunciation as written in the source material,
	// possibly with slashes and stress marks.
	IPA string `msgpack:"ipa" json:"ipa" yaml:"ipa"`

	// Phonemes is the tokenized form of IPA, ready for alignment.
	Phonemes []string `msgpack:"phonemes" json:"phonemes" yaml:"phonemes"`
}

// normalize returns the lookup key form of a word.
func normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// NewEntry builds an Entry from a word and its IPA transcription,
// tokenizing the pronunciation.
func NewEntry(word, transcription string) *Entry {
	return &Entry{
		Word:     normalize(word),
		IPA:      transcription,
		Phonemes: ipa.Tokenize(transcription),
	}
}

// Store is a pronunciation store. Implementations must be safe for
// concurrent use.
type Store interface {
	// Lookup returns the entry for a word, or ErrNotFound.
	Lookup(ctx context.Context, word string) (*Entry, error)

	// Put stores an entry, overwriting any existing pronunciation for
	// the same word.
	Put(ctx context.Context, e *Entry) error

	// PutAll atomically stores multiple entries.
	PutAll(ctx context.Context, entries []*Entry) error

	// All iterates over all entries in lexicographic word order.
	All(ctx context.Context) iter.Seq2[*Entry, error]

	// Close releases any resources held by the store.
	Close() error
}
