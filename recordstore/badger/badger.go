// Package badger provides a recordstore.RecordStore on a single shared
// BadgerDB instance.
//
// Keys are laid out per location:
//
//	<location> 0x00 'm'          msgpack meta {dim, count, additional}
//	<location> 0x00 'r' <seq>    msgpack record, seq is a big-endian uint32
//
// Big-endian sequence numbers make key order equal to insertion order.
package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hupe1980/nanovdb/internal/conv"
	"github.com/hupe1980/nanovdb/model"
	"github.com/hupe1980/nanovdb/recordstore"
)

const (
	sep       = 0x00
	kindMeta  = 'm'
	kindEntry = 'r'
)

// Options configures the badger store.
type Options struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger receives badger's internal messages. Nil selects slog.Default().
	// Badger's info output is reported at debug level.
	Logger *slog.Logger
}

// Store implements recordstore.RecordStore on BadgerDB.
type Store struct {
	db *badger.DB
}

type meta struct {
	Dim        int    `msgpack:"dim"`
	Count      uint32 `msgpack:"count"`
	Additional []byte `msgpack:"additional,omitempty"`
}

// NewStore opens a BadgerDB-backed store.
func NewStore(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger: Options.Dir is required for on-disk mode")
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(newSlogLogger(logger))

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func prefix(location string) []byte {
	p := make([]byte, 0, len(location)+1)
	p = append(p, location...)
	return append(p, sep)
}

func metaKey(location string) []byte {
	return append(prefix(location), kindMeta)
}

func entryPrefix(location string) []byte {
	return append(prefix(location), kindEntry)
}

func entryKey(location string, seq uint32) []byte {
	return binary.BigEndian.AppendUint32(entryPrefix(location), seq)
}

// keys collects every key stored under location.
func keys(txn *badger.Txn, location string) [][]byte {
	p := prefix(location)

	iterOpts := badger.DefaultIteratorOptions
	iterOpts.PrefetchValues = false
	iterOpts.Prefix = p
	it := txn.NewIterator(iterOpts)
	defer it.Close()

	var out [][]byte
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		out = append(out, it.Item().KeyCopy(nil))
	}
	return out
}

// WriteRecords replaces the record set at location in one transaction.
func (s *Store) WriteRecords(ctx context.Context, location string, snap *model.Snapshot) error {
	if err := recordstore.Validate(snap); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	count, err := conv.IntToUint32(len(snap.Records))
	if err != nil {
		return err
	}

	m, err := msgpack.Marshal(meta{Dim: snap.Dimension, Count: count, Additional: snap.AdditionalData})
	if err != nil {
		return fmt.Errorf("failed to encode meta: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys(txn, location) {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for i, r := range snap.Records {
			v, err := msgpack.Marshal(&r)
			if err != nil {
				return fmt.Errorf("failed to encode record %q: %w", r.ID, err)
			}
			if err := txn.Set(entryKey(location, uint32(i)), v); err != nil { //nolint:gosec // bounded by count
				return err
			}
		}
		return txn.Set(metaKey(location), m)
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("record set at %q exceeds a single transaction: %w", location, err)
	}
	return err
}

// ReadRecords loads the record set at location.
func (s *Store) ReadRecords(ctx context.Context, location string) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snap *model.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(location))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var m meta
		if err := msgpack.Unmarshal(raw, &m); err != nil {
			return fmt.Errorf("%w: meta: %w", recordstore.ErrCorrupt, err)
		}

		snap = &model.Snapshot{Dimension: m.Dim, AdditionalData: m.Additional}
		if m.Count > 0 {
			snap.Records = make([]model.Record, 0, m.Count)
		}

		p := entryPrefix(location)
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = p
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var r model.Record
			if err := it.Item().Value(func(v []byte) error {
				return msgpack.Unmarshal(v, &r)
			}); err != nil {
				return fmt.Errorf("%w: record %d: %w", recordstore.ErrCorrupt, len(snap.Records), err)
			}
			snap.Records = append(snap.Records, r)
		}

		if len(snap.Records) != int(m.Count) {
			return fmt.Errorf("%w: found %d records, meta says %d", recordstore.ErrCorrupt, len(snap.Records), m.Count)
		}
		return recordstore.Validate(snap)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, recordstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Delete removes every key under location.
func (s *Store) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys(txn, location) {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Exists reports whether location has a meta entry.
func (s *Store) Exists(ctx context.Context, location string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(metaKey(location))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ badger.Logger = slogLogger{}

// slogLogger adapts a *slog.Logger to badger.Logger.
type slogLogger struct {
	l *slog.Logger
}

func newSlogLogger(l *slog.Logger) slogLogger {
	return slogLogger{l: l.With("component", "badger")}
}

func (s slogLogger) log(level slog.Level, format string, args ...any) {
	ctx := context.Background()
	if !s.l.Enabled(ctx, level) {
		return
	}
	s.l.Log(ctx, level, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (s slogLogger) Errorf(f string, v ...any)   { s.log(slog.LevelError, f, v...) }
func (s slogLogger) Warningf(f string, v ...any) { s.log(slog.LevelWarn, f, v...) }
func (s slogLogger) Infof(f string, v ...any)    { s.log(slog.LevelDebug, f, v...) }
func (s slogLogger) Debugf(f string, v ...any)   { s.log(slog.LevelDebug, f, v...) }
