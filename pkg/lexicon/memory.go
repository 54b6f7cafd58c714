package lexicon

import (
	"context"
	"iter"
	"sort"
	"sync"
)

// Memory is an in-memory Store. It is safe for concurrent use and
// intended primarily for testing and ephemeral sessions.
type Memory struct {
	mu   sync.RWMutex
	data map[string]Entry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]Entry)}
}

func (m *Memory) Lookup(_ context.Context, word string) (*Entry, error) {
	m.mu.RLock()
	e, ok := m.data[normalize(word)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	// Copy so callers cannot mutate stored state.
	cp := e
	cp.Phonemes = append([]string(nil), e.Phonemes...)
	return &cp, nil
}

func (m *Memory) Put(_ context.Context, e *Entry) error {
	m.mu.Lock()
	m.put(e)
	m.mu.Unlock()
	return nil
}

func (m *Memory) PutAll(_ context.Context, entries []*Entry) error {
	m.mu.Lock()
	for _, e := range entries {
		m.put(e)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) put(e *Entry) {
	cp := *e
	cp.Word = normalize(e.Word)
	cp.Phonemes = append([]string(nil), e.Phonemes...)
	m.data[cp.Word] = cp
}

func (m *Memory) All(_ context.Context) iter.Seq2[*Entry, error] {
	m.mu.RLock()
	words := make([]string, 0, len(m.data))
	for w := range m.data {
		words = append(words, w)
	}
	snapshot := make(map[string]Entry, len(m.data))
	for w, e := range m.data {
		snapshot[w] = e
	}
	m.mu.RUnlock()
	sort.Strings(words)

	return func(yield func(*Entry, error) bool) {
		for _, w := range words {
			e := snapshot[w]
			if !yield(&e, nil) {
				return
			}
		}
	}
}

func (m *Memory) Close() error {
	return nil
}
