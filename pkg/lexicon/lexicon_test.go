package lexicon_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/phonecho/phonecho/pkg/lexicon"
)

// newTestStores returns one of each Store implementation so every test
// exercises both the in-memory map and the real badger engine.
func newTestStores(t *testing.T) map[string]lexicon.Store {
	t.Helper()
	b, err := lexicon.NewBadger(lexicon.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	stores := map[string]lexicon.Store{
		"memory": lexicon.NewMemory(),
		"badger": b,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoreLookup(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Lookup(ctx, "mount")
			if !errors.Is(err, lexicon.ErrNotFound) {
				t.Fatalf("Lookup on empty store = %v, want ErrNotFound", err)
			}

			if err := s.Put(ctx, lexicon.NewEntry("Mount", "/moːnt/")); err != nil {
				t.Fatalf("Put: %v", err)
			}

			// Lookup is case-insensitive both ways.
			for _, q := range []string{"mount", "Mount", "MOUNT", " mount "} {
				e, err := s.Lookup(ctx, q)
				if err != nil {
					t.Fatalf("Lookup(%q): %v", q, err)
				}
				if e.Word != "mount" || e.IPA != "/moːnt/" {
					t.Errorf("Lookup(%q) = %+v", q, e)
				}
				if want := []string{"m", "oː", "n", "t"}; !slices.Equal(e.Phonemes, want) {
					t.Errorf("Lookup(%q).Phonemes = %v, want %v", q, e.Phonemes, want)
				}
			}

			// Overwrite replaces the pronunciation.
			if err := s.Put(ctx, lexicon.NewEntry("mount", "/maʊnt/")); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			e, err := s.Lookup(ctx, "mount")
			if err != nil {
				t.Fatalf("Lookup after overwrite: %v", err)
			}
			if e.IPA != "/maʊnt/" {
				t.Errorf("IPA after overwrite = %q, want /maʊnt/", e.IPA)
			}
		})
	}
}

func TestStoreAll(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			entries := []*lexicon.Entry{
				lexicon.NewEntry("night", "/naɪt/"),
				lexicon.NewEntry("apple", "/ˈæpəl/"),
				lexicon.NewEntry("mount", "/moːnt/"),
			}
			if err := s.PutAll(ctx, entries); err != nil {
				t.Fatalf("PutAll: %v", err)
			}

			var words []string
			for e, err := range s.All(ctx) {
				if err != nil {
					t.Fatalf("All: %v", err)
				}
				words = append(words, e.Word)
			}
			want := []string{"apple", "mount", "night"}
			if !slices.Equal(words, want) {
				t.Errorf("All order = %v, want %v", words, want)
			}
		})
	}
}

func TestLookupCopyIsolation(t *testing.T) {
	ctx := context.Background()
	s := lexicon.NewMemory()
	if err := s.Put(ctx, lexicon.NewEntry("mount", "/moːnt/")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	e, err := s.Lookup(ctx, "mount")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	e.Phonemes[0] = "z"

	again, err := s.Lookup(ctx, "mount")
	if err != nil {
		t.Fatalf("Lookup again: %v", err)
	}
	if again.Phonemes[0] != "m" {
		t.Error("mutating a returned entry changed stored state")
	}
}

const packYAML = `
name: basics
language: eng
entries:
  - word: Mount
    ipa: /moːnt/
  - word: night
    ipa: /naɪt/
`

func TestReadPack(t *testing.T) {
	p, err := lexicon.ReadPack(strings.NewReader(packYAML))
	if err != nil {
		t.Fatalf("ReadPack: %v", err)
	}
	if p.Name != "basics" || p.Language != "eng" {
		t.Errorf("pack header = %q/%q", p.Name, p.Language)
	}
	if len(p.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(p.Entries))
	}
	if p.Entries[0].Word != "Mount" || p.Entries[0].IPA != "/moːnt/" {
		t.Errorf("entry 0 = %+v", p.Entries[0])
	}
}

func TestReadPackInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not yaml", "{{{"},
		{"missing ipa", "name: x\nentries:\n  - word: mount\n"},
		{"missing word", "name: x\nentries:\n  - ipa: /m/\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := lexicon.ReadPack(strings.NewReader(tt.in)); err == nil {
				t.Error("ReadPack accepted invalid pack")
			}
		})
	}
}

func TestPackImport(t *testing.T) {
	ctx := context.Background()
	p, err := lexicon.ReadPack(strings.NewReader(packYAML))
	if err != nil {
		t.Fatalf("ReadPack: %v", err)
	}

	s := lexicon.NewMemory()
	n, err := p.Import(ctx, s)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 {
		t.Errorf("Import wrote %d entries, want 2", n)
	}

	e, err := s.Lookup(ctx, "mount")
	if err != nil {
		t.Fatalf("Lookup after import: %v", err)
	}
	if want := []string{"m", "oː", "n", "t"}; !slices.Equal(e.Phonemes, want) {
		t.Errorf("imported phonemes = %v, want %v", e.Phonemes, want)
	}
}
