// Package align scores how phonetically close an actual phoneme sequence
// is to a target sequence.
//
// The engine runs classic dynamic-programming sequence alignment, but the
// substitution cost is the phonological feature distance between symbols
// (see the panphon package) rather than a flat edit cost. Substituting a
// near miss (d for t) is cheap; substituting a vowel for a fricative costs
// as much as dropping the symbol entirely.
//
// A comparison yields both a scalar similarity in [0, 1] and the full
// alignment trace for display.
package align

import (
	"github.com/phonecho/phonecho/pkg/panphon"
)

// IndelCost is the fixed insertion/deletion cost. It equals the maximum
// substitution cost, so a phonetically close substitution always beats an
// indel and a maximally-dissimilar substitution never does better than one.
const IndelCost = 1.0

// Item is one step of an alignment trace. Target or Actual is empty for
// an insertion or deletion respectively.
type Item struct {
	Target string  `json:"target,omitempty" yaml:"target,omitempty"`
	Actual string  `json:"actual,omitempty" yaml:"actual,omitempty"`
	Cost   float64 `json:"cost" yaml:"cost"`

	// Match is true iff both symbols are present and identical. A cheap
	// near-miss substitution is not a match even though its cost is low.
	Match bool `json:"match" yaml:"match"`

	// WordBoundary marks the first phoneme of a word in the target text.
	// Display annotation only; it never affects cost.
	WordBoundary bool `json:"wordBoundary,omitempty" yaml:"word_boundary,omitempty"`
}

// Result is the outcome of one comparison. It is immutable once returned;
// the caller owns it.
type Result struct {
	Distance   float64  `json:"distance" yaml:"distance"`
	Similarity float64  `json:"similarity" yaml:"similarity"`
	Alignment  []Item   `json:"alignment" yaml:"alignment"`
	Target     []string `json:"target" yaml:"target"`
	Actual     []string `json:"actual" yaml:"actual"`
}

// Comparer aligns phoneme sequences against a shared feature table.
// It is an explicitly constructed handle (no package-level state) so tests
// can run in parallel with independent tables.
//
// A Comparer is safe for concurrent use: comparisons share only the
// read-only table.
type Comparer struct {
	table *panphon.Table
	lang  string
}

// Option configures a Comparer.
type Option func(*Comparer)

// WithLanguage sets a BCP 47 language tag, reserved for per-language cost
// tuning. The current cost model is language-independent.
func WithLanguage(tag string) Option {
	return func(c *Comparer) { c.lang = tag }
}

// New creates a Comparer over the given feature table.
func New(table *panphon.Table, opts ...Option) *Comparer {
	c := &Comparer{table: table}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Language returns the configured language tag, if any.
func (c *Comparer) Language() string { return c.lang }

// Compare aligns actual against target and scores the result.
//
// Either sequence may be empty. Two empty sequences are identical
// (similarity 1); a non-empty target against an empty actual is all
// deletions (similarity 0 for a single-symbol target).
func (c *Comparer) Compare(target, actual []string) *Result {
	return c.compare(target, actual, nil)
}

// CompareWords is Compare with the target supplied as word-tokenized
// symbol groups. The first phoneme of each word is marked WordBoundary
// in the alignment trace.
func (c *Comparer) CompareWords(words [][]string, actual []string) *Result {
	var (
		target []string
		starts = make(map[int]bool, len(words))
	)
	for _, w := range words {
		if len(w) == 0 {
			continue
		}
		starts[len(target)] = true
		target = append(target, w...)
	}
	return c.compare(target, actual, starts)
}

func (c *Comparer) compare(target, actual []string, wordStarts map[int]bool) *Result {
	m, n := len(target), len(actual)

	// DP table over a single flat slice; cell (i,j) is the minimum cost of
	// aligning target[:i] with actual[:j].
	w := n + 1
	dp := make([]float64, (m+1)*w)
	for j := 1; j <= n; j++ {
		dp[j] = float64(j) * IndelCost
	}
	for i := 1; i <= m; i++ {
		dp[i*w] = float64(i) * IndelCost
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			sub := dp[(i-1)*w+j-1] + c.table.Distance(target[i-1], actual[j-1])
			del := dp[(i-1)*w+j] + IndelCost
			ins := dp[i*w+j-1] + IndelCost
			best := sub
			if del < best {
				best = del
			}
			if ins < best {
				best = ins
			}
			dp[i*w+j] = best
		}
	}

	// Backtrace from the bottom-right cell. Ties prefer substitution, then
	// deletion, then insertion, keeping equal-cost alignments deterministic
	// and position-for-position.
	items := make([]Item, 0, max(m, n))
	i, j := m, n
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && dp[i*w+j] == dp[(i-1)*w+j-1]+c.table.Distance(target[i-1], actual[j-1]):
			cost := c.table.Distance(target[i-1], actual[j-1])
			items = append(items, Item{
				Target: target[i-1],
				Actual: actual[j-1],
				Cost:   cost,
				Match:  target[i-1] == actual[j-1],
			})
			i--
			j--
		case i > 0 && dp[i*w+j] == dp[(i-1)*w+j]+IndelCost:
			items = append(items, Item{Target: target[i-1], Cost: IndelCost})
			i--
		default:
			items = append(items, Item{Actual: actual[j-1], Cost: IndelCost})
			j--
		}
	}
	// Reverse into target order.
	for a, b := 0, len(items)-1; a < b; a, b = a+1, b-1 {
		items[a], items[b] = items[b], items[a]
	}

	if wordStarts != nil {
		ti := 0
		for k := range items {
			if items[k].Target == "" {
				continue
			}
			if wordStarts[ti] {
				items[k].WordBoundary = true
			}
			ti++
		}
	}

	var distance float64
	if d := max(m, n); d > 0 {
		distance = dp[m*w+n] / float64(d)
	}
	similarity := 1 - distance
	if similarity < 0 {
		similarity = 0
	} else if similarity > 1 {
		similarity = 1
	}

	return &Result{
		Distance:   distance,
		Similarity: similarity,
		Alignment:  items,
		Target:     target,
		Actual:     actual,
	}
}
