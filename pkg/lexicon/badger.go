package lexicon

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// keyPrefix namespaces pronunciation entries within the database.
const keyPrefix = "lex:"

// Badger is a Store backed by BadgerDB v4 with msgpack-encoded values.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB in memory-only mode (no disk persistence).
	// Useful for testing with a real badger engine.
	InMemory bool

	// Logger sets the badger logger. If nil, a quiet logger that only
	// surfaces warnings and errors is used.
	Logger badger.Logger
}

// NewBadger opens a BadgerDB-backed pronunciation store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("lexicon: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(quietLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("lexicon: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func wordKey(word string) []byte {
	return []byte(keyPrefix + normalize(word))
}

func (b *Badger) Lookup(_ context.Context, word string) (*Entry, error) {
	var raw []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(wordKey(word))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(raw)
}

func (b *Badger) Put(_ context.Context, e *Entry) error {
	raw, err := encodeEntry(e)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(wordKey(e.Word), raw)
	})
}

func (b *Badger) PutAll(_ context.Context, entries []*Entry) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range entries {
		raw, err := encodeEntry(e)
		if err != nil {
			return err
		}
		if err := wb.Set(wordKey(e.Word), raw); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *Badger) All(_ context.Context) iter.Seq2[*Entry, error] {
	prefix := []byte(keyPrefix)
	return func(yield func(*Entry, error) bool) {
		err := b.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = prefix
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				raw, err := it.Item().ValueCopy(nil)
				if err != nil {
					if !yield(nil, err) {
						return nil
					}
					continue
				}
				e, err := decodeEntry(raw)
				if !yield(e, err) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(nil, err)
		}
	}
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func encodeEntry(e *Entry) ([]byte, error) {
	raw, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("lexicon: encode %q: %w", e.Word, err)
	}
	return raw, nil
}

func decodeEntry(raw []byte) (*Entry, error) {
	var e Entry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("lexicon: decode entry: %w", err)
	}
	return &e, nil
}

// quietLogger suppresses badger's debug and info chatter.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
