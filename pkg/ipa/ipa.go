// Package ipa tokenizes IPA transcription strings into logical phonetic
// symbols.
//
// A symbol is one to three code points: a base letter plus any combining
// diacritics, length marks or tie bars. Tokenization groups these into
// single symbols instead of splitting on raw code points, so "t͡ʃoːɛ̃"
// yields ["t͡ʃ", "oː", "ɛ̃"], not six fragments.
//
// Transcription delimiters (slashes, square brackets), stress marks and
// syllable dots carry no segmental content and are stripped.
package ipa

import (
	"strings"
	"unicode"
)

// Runes removed before tokenization: delimiters, stress and syllable
// separators, minor break bars.
const stripped = "/[]ˈˌ.|‖"

// Tie bars join the surrounding base letters into one symbol (t͡ʃ, d͜z).
func isTieBar(r rune) bool {
	return r == '͡' || r == '͜'
}

// attaches reports whether r extends the preceding symbol rather than
// starting a new one: combining marks (nasalization, syllabicity, ...)
// and modifier letters (length marks, aspiration, secondary articulation).
func attaches(r rune) bool {
	return unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Lm, r)
}

// Tokenize splits an IPA transcription into logical symbols.
//
// Delimiters and stress marks are stripped, whitespace separates symbols
// without producing tokens, and ASCII "g" is normalized to the IPA "ɡ".
// An empty or delimiter-only input yields an empty slice.
func Tokenize(s string) []string {
	var (
		tokens  []string
		current strings.Builder
		pending bool // a tie bar is waiting for its second base letter
	)
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
		pending = false
	}

	for _, r := range s {
		if strings.ContainsRune(stripped, r) {
			continue
		}
		if unicode.IsSpace(r) {
			flush()
			continue
		}
		if r == 'g' {
			r = 'ɡ'
		}
		switch {
		case isTieBar(r):
			if current.Len() == 0 {
				continue // dangling tie bar, nothing to join
			}
			current.WriteRune(r)
			pending = true
		case attaches(r):
			if current.Len() == 0 {
				// Diacritic with no base letter. Keep it as its own token
				// rather than dropping input on the floor.
				current.WriteRune(r)
				continue
			}
			current.WriteRune(r)
		default:
			if pending {
				current.WriteRune(r)
				pending = false
				continue
			}
			flush()
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// Words tokenizes a transcription word by word. The input is split on
// whitespace; each word is tokenized independently. The result feeds
// word-boundary annotation in alignment output.
func Words(s string) [][]string {
	fields := strings.Fields(s)
	words := make([][]string, 0, len(fields))
	for _, f := range fields {
		if toks := Tokenize(f); len(toks) > 0 {
			words = append(words, toks)
		}
	}
	return words
}
