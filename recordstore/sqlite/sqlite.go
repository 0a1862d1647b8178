// Package sqlite provides a SQLite-backed recordstore.RecordStore.
//
// Every location is its own database file with two tables:
//
//	meta(key TEXT PRIMARY KEY, value TEXT NOT NULL)
//	vectors(id TEXT PRIMARY KEY, dim INTEGER NOT NULL, vec BLOB NOT NULL)
//
// meta holds "embedding_dim" and, when set, "additional_data". Vectors are
// stored as little-endian float32 blobs and read back in insertion order.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/nanovdb/internal/conv"
	"github.com/hupe1980/nanovdb/model"
	"github.com/hupe1980/nanovdb/recordstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS vectors (
	id TEXT PRIMARY KEY,
	dim INTEGER NOT NULL,
	vec BLOB NOT NULL
);
`

const (
	metaDimension  = "embedding_dim"
	metaAdditional = "additional_data"
)

// Store implements recordstore.RecordStore with one SQLite file per location.
//
// Database handles are opened on first use and kept until Delete or Close.
type Store struct {
	root string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// NewStore creates a store whose locations resolve under root.
func NewStore(root string) *Store {
	return &Store{root: root, dbs: make(map[string]*sql.DB)}
}

// Extension is the suffix used for tenant database files.
func (s *Store) Extension() string { return ".db" }

func (s *Store) path(location string) string {
	p := filepath.FromSlash(location)
	if s.root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.root, p)
}

// open returns the cached handle for path, creating the file and schema when
// create is set.
func (s *Store) open(ctx context.Context, path string, create bool) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[path]; ok {
		return db, nil
	}

	if !create {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, recordstore.ErrNotFound
		} else if err != nil {
			return nil, err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection per file keeps transactions and schema setup serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.dbs[path] = db
	return db, nil
}

// WriteRecords replaces all rows and metadata in a single transaction.
func (s *Store) WriteRecords(ctx context.Context, location string, snap *model.Snapshot) error {
	if err := recordstore.Validate(snap); err != nil {
		return err
	}

	db, err := s.open(ctx, s.path(location), true)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vectors"); err != nil {
		return fmt.Errorf("failed to clear vectors: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO vectors (id, dim, vec) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range snap.Records {
		if _, err := stmt.ExecContext(ctx, r.ID, len(r.Vector), conv.Float32sToBytes(r.Vector)); err != nil {
			return fmt.Errorf("failed to insert vector %q: %w", r.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "REPLACE INTO meta (key, value) VALUES (?, ?)", metaDimension, strconv.Itoa(snap.Dimension)); err != nil {
		return fmt.Errorf("failed to write %s: %w", metaDimension, err)
	}
	if snap.AdditionalData != nil {
		_, err = tx.ExecContext(ctx, "REPLACE INTO meta (key, value) VALUES (?, ?)", metaAdditional, string(snap.AdditionalData))
	} else {
		_, err = tx.ExecContext(ctx, "DELETE FROM meta WHERE key = ?", metaAdditional)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", metaAdditional, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// ReadRecords loads all rows and metadata.
func (s *Store) ReadRecords(ctx context.Context, location string) (*model.Snapshot, error) {
	db, err := s.open(ctx, s.path(location), false)
	if err != nil {
		return nil, err
	}

	var dimText string
	err = db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", metaDimension).Scan(&dimText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recordstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", metaDimension, err)
	}
	dim, err := strconv.Atoi(dimText)
	if err != nil || dim <= 0 {
		return nil, fmt.Errorf("%w: invalid %s %q", recordstore.ErrCorrupt, metaDimension, dimText)
	}

	snap := &model.Snapshot{Dimension: dim}

	var additional string
	err = db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", metaAdditional).Scan(&additional)
	switch {
	case err == nil:
		snap.AdditionalData = []byte(additional)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to read %s: %w", metaAdditional, err)
	}

	rows, err := db.QueryContext(ctx, "SELECT id, dim, vec FROM vectors ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     string
			rowDim int
			blob   []byte
		)
		if err := rows.Scan(&id, &rowDim, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan vector: %w", err)
		}
		if rowDim != dim || len(blob) != dim*conv.Float32Size {
			return nil, fmt.Errorf("%w: vector %q has dim %d and %d bytes, want dim %d", recordstore.ErrCorrupt, id, rowDim, len(blob), dim)
		}
		vec, err := conv.BytesToFloat32s(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", recordstore.ErrCorrupt, err)
		}
		snap.Records = append(snap.Records, model.Record{ID: id, Vector: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vectors: %w", err)
	}

	return snap, nil
}

// Delete closes the handle and removes the database and its WAL files.
func (s *Store) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.path(location)

	s.mu.Lock()
	db, ok := s.dbs[path]
	delete(s.dbs, path)
	s.mu.Unlock()

	if ok {
		if err := db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Exists reports whether the location holds a written record set.
func (s *Store) Exists(ctx context.Context, location string) (bool, error) {
	db, err := s.open(ctx, s.path(location), false)
	if errors.Is(err, recordstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM meta WHERE key = ?", metaDimension).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes every open database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for path, db := range s.dbs {
		errs = append(errs, db.Close())
		delete(s.dbs, path)
	}
	return errors.Join(errs...)
}
