package nanovdb

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/nanovdb/blobstore"
	"github.com/hupe1980/nanovdb/distance"
	"github.com/hupe1980/nanovdb/internal/hash"
	"github.com/hupe1980/nanovdb/model"
)

// DefaultLocation is used by Open when no location is given.
const DefaultLocation = "nano-vectordb.json"

// Record is a single stored vector.
type Record = model.Record

// UpsertResult reports which ids an Upsert replaced and which it appended.
type UpsertResult struct {
	Updated  []string
	Inserted []string
}

// Store is an exact-search vector store with a fixed dimension.
//
// Vectors live in one contiguous row-major arena; row i belongs to ids[i].
// All methods are safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	dim      int
	metric   distance.Metric
	distFn   distance.Func
	location string

	ids        []string
	index      map[string]int
	rows       []float32
	additional json.RawMessage

	persist persister
	logger  *Logger
	metrics MetricsCollector
}

// Open creates a store of the given dimension and metric bound to location,
// loading any state persisted there. Nothing persisted means an empty store.
//
// Without WithBlobStore or WithRecordStore, location is a local file path.
func Open(ctx context.Context, dim int, metric distance.Metric, location string, optFns ...Option) (*Store, error) {
	if err := validateStoreConfig(dim, metric); err != nil {
		return nil, err
	}
	if location == "" {
		location = DefaultLocation
	}

	o := applyOptions(optFns)
	s, err := newStore(dim, metric, location, newPersister(&o, blobstore.NewLocalStore("")), &o)
	if err != nil {
		return nil, err
	}

	if err := s.load(ctx); err != nil && !isNotPersisted(err) {
		return nil, err
	}
	return s, nil
}

func validateStoreConfig(dim int, metric distance.Metric) error {
	if dim <= 0 {
		return &ErrInvalidDimension{Dimension: dim}
	}
	if !metric.Valid() {
		return invalidConfig("metric", "unsupported metric %v", metric)
	}
	return nil
}

func newStore(dim int, metric distance.Metric, location string, p persister, o *options) (*Store, error) {
	fn, err := distance.Provider(metric)
	if err != nil {
		return nil, invalidConfig("metric", "%v", err)
	}
	return &Store{
		dim:      dim,
		metric:   metric,
		distFn:   fn,
		location: location,
		index:    make(map[string]int),
		persist:  p,
		logger:   o.logger.WithLocation(location).WithDimension(dim),
		metrics:  o.metricsCollector,
	}, nil
}

// load replaces the in-memory state with the persisted one.
func (s *Store) load(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		if isNotPersisted(err) {
			s.metrics.RecordLoad(time.Since(start), nil)
			s.logger.LogLoad(ctx, s.location, 0, false, nil)
			return
		}
		s.metrics.RecordLoad(time.Since(start), err)
		s.logger.LogLoad(ctx, s.location, len(s.ids), true, err)
	}()

	snap, err := s.persist.load(ctx, s.location, s.dim)
	if err != nil {
		return err
	}
	return s.restore(snap)
}

func (s *Store) restore(snap *model.Snapshot) error {
	ids := make([]string, 0, len(snap.Records))
	index := make(map[string]int, len(snap.Records))
	rows := make([]float32, 0, len(snap.Records)*s.dim)

	for i, r := range snap.Records {
		if _, dup := index[r.ID]; dup {
			return corruption(s.location, nil, "duplicate id %q", r.ID)
		}
		index[r.ID] = i
		ids = append(ids, r.ID)
		rows = append(rows, r.Vector...)
		if s.metric.Normalizes() {
			distance.NormalizeL2InPlace(rows[i*s.dim:])
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids, s.index, s.rows = ids, index, rows
	s.additional = slices.Clone(json.RawMessage(snap.AdditionalData))
	return nil
}

// Dimension returns the fixed vector length.
func (s *Store) Dimension() int { return s.dim }

// Location returns where the store persists its state.
func (s *Store) Location() string { return s.location }

// Metric returns the active distance metric.
func (s *Store) Metric() distance.Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metric
}

// SetMetric switches the distance metric. Switching to cosine normalizes
// every stored vector.
func (s *Store) SetMetric(m distance.Metric) error {
	fn, err := distance.Provider(m)
	if err != nil {
		return invalidConfig("metric", "%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Normalizes() && !s.metric.Normalizes() {
		for i := range s.ids {
			distance.NormalizeL2InPlace(s.row(i))
		}
	}
	s.metric, s.distFn = m, fn
	return nil
}

// Size returns the number of stored records.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func (s *Store) row(i int) []float32 {
	return s.rows[i*s.dim : (i+1)*s.dim : (i+1)*s.dim]
}

func (s *Store) record(i int) Record {
	return Record{ID: s.ids[i], Vector: s.row(i)}.Clone()
}

// Upsert inserts or replaces records.
//
// Records without an id are keyed by a hash of their vector. Within one
// batch the last record for an id wins. Existing ids are replaced in place,
// new ids are appended in the order they first appear. Under cosine the
// stored vectors are unit-normalized copies.
//
// The whole batch is rejected if any vector has the wrong length.
func (s *Store) Upsert(ctx context.Context, records []Record) (res UpsertResult, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordUpsert(len(records), time.Since(start), err)
		s.logger.LogUpsert(ctx, len(res.Updated), len(res.Inserted), err)
	}()

	if err := ctx.Err(); err != nil {
		return UpsertResult{}, err
	}
	for _, r := range records {
		if len(r.Vector) != s.dim {
			return UpsertResult{}, &ErrDimensionMismatch{Expected: s.dim, Actual: len(r.Vector)}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order := make([]string, 0, len(records))
	latest := make(map[string][]float32, len(records))
	for _, r := range records {
		id := r.ID
		if id == "" {
			id = hash.ContentID(r.Vector)
		}
		vec := slices.Clone(r.Vector)
		if s.metric.Normalizes() {
			distance.NormalizeL2InPlace(vec)
		}
		if _, seen := latest[id]; !seen {
			order = append(order, id)
		}
		latest[id] = vec
	}

	for _, id := range order {
		vec := latest[id]
		if i, ok := s.index[id]; ok {
			copy(s.row(i), vec)
			res.Updated = append(res.Updated, id)
			continue
		}
		s.index[id] = len(s.ids)
		s.ids = append(s.ids, id)
		s.rows = append(s.rows, vec...)
		res.Inserted = append(res.Inserted, id)
	}
	return res, nil
}

// Get returns the records with the given ids in store order. Unknown ids
// are skipped.
func (s *Store) Get(ids ...string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]int, 0, len(ids))
	for _, id := range ids {
		if i, ok := s.index[id]; ok && !slices.Contains(rows, i) {
			rows = append(rows, i)
		}
	}
	slices.Sort(rows)

	out := make([]Record, len(rows))
	for j, i := range rows {
		out[j] = s.record(i)
	}
	return out
}

// Remove deletes the records with the given ids and returns how many were
// removed. Remaining records keep their relative order.
func (s *Store) Remove(ctx context.Context, ids ...string) int {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if i, ok := s.index[id]; ok {
			drop[i] = struct{}{}
		}
	}

	if len(drop) > 0 {
		w := 0
		for i, id := range s.ids {
			if _, ok := drop[i]; ok {
				delete(s.index, id)
				continue
			}
			if w != i {
				copy(s.row(w), s.row(i))
				s.ids[w] = id
				s.index[id] = w
			}
			w++
		}
		clear(s.ids[w:])
		s.ids = s.ids[:w]
		s.rows = s.rows[:w*s.dim]
	}

	s.metrics.RecordRemove(len(drop), time.Since(start))
	s.logger.LogRemove(ctx, len(ids), len(drop))
	return len(drop)
}

// Clear removes every record. Dimension, metric and additional data are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = nil
	s.rows = nil
	s.index = make(map[string]int)
}

// AdditionalData returns a copy of the opaque JSON document stored with the
// vectors, or nil.
func (s *Store) AdditionalData() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.additional)
}

// StoreAdditionalData replaces the additional data. data must be valid JSON
// or nil.
func (s *Store) StoreAdditionalData(data json.RawMessage) error {
	if data != nil && !gojson.Valid(data) {
		return invalidConfig("additional_data", "not valid JSON")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.additional = slices.Clone(data)
	return nil
}

// Save persists the store to its location.
func (s *Store) Save(ctx context.Context) (err error) {
	start := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	defer func() {
		s.metrics.RecordSave(time.Since(start), err)
		s.logger.LogSave(ctx, s.location, len(s.ids), time.Since(start), err)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.persist.save(ctx, s.location, s.snapshot())
}

// snapshot views the current state without copying vectors. The caller
// must hold s.mu.
func (s *Store) snapshot() *model.Snapshot {
	snap := &model.Snapshot{
		Dimension:      s.dim,
		Records:        make([]model.Record, len(s.ids)),
		AdditionalData: s.additional,
	}
	for i, id := range s.ids {
		snap.Records[i] = model.Record{ID: id, Vector: s.row(i)}
	}
	return snap
}
