package nanovdb

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/nanovdb/blobstore"
	"github.com/hupe1980/nanovdb/distance"
)

// DefaultStorageRoot is where tenants are stored when a configuration does
// not name a root.
const DefaultStorageRoot = "./nano_multi_tenant_storage"

// tenantPrefix is prepended to tenant ids to form storage names.
const tenantPrefix = "nanovdb_"

func newUUID() (string, error) {
	return UUIDGenerator(rand.Reader)()
}

// UUIDGenerator returns a generator of random (version 4) UUIDs drawn from r.
func UUIDGenerator(r io.Reader) IDGenerator {
	return func() (string, error) {
		id, err := uuid.NewRandomFromReader(r)
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
}

// MultiTenant manages many stores that share a dimension and metric.
//
// At most maxCachedTenants stores are held in memory. When the cache is
// full, the tenant cached first is saved and dropped to make room. Reads of
// cached tenants do not change that order.
type MultiTenant struct {
	mu sync.Mutex

	dim       int
	metric    distance.Metric
	maxCached int
	root      string
	ext       string

	queue []string
	cache map[string]*Store

	persist persister
	opts    options
}

// NewMultiTenant creates a tenant manager persisting under storageRoot.
//
// Without WithBlobStore or WithRecordStore, tenants are local files under
// storageRoot; the directory is created on first save.
func NewMultiTenant(dim int, metric distance.Metric, maxCachedTenants int, storageRoot string, optFns ...Option) (*MultiTenant, error) {
	if err := validateStoreConfig(dim, metric); err != nil {
		return nil, err
	}
	if maxCachedTenants <= 0 {
		return nil, invalidConfig("max_cached_tenants", "must be positive, got %d", maxCachedTenants)
	}
	if storageRoot == "" {
		return nil, invalidConfig("storage_root", "must not be empty")
	}

	o := applyOptions(optFns)
	if o.idGenerator == nil {
		return nil, invalidConfig("id_generator", "must not be nil")
	}

	return &MultiTenant{
		dim:       dim,
		metric:    metric,
		maxCached: maxCachedTenants,
		root:      storageRoot,
		ext:       o.extension(),
		cache:     make(map[string]*Store, maxCachedTenants),
		persist:   newPersister(&o, blobstore.NewLocalStore("")),
		opts:      o,
	}, nil
}

// Location returns where the tenant with the given id is persisted.
func (m *MultiTenant) Location(id string) string {
	return path.Join(m.root, tenantPrefix+id+m.ext)
}

func (m *MultiTenant) newTenantStore(id string) (*Store, error) {
	o := m.opts
	o.logger = o.logger.WithTenant(id)
	return newStore(m.dim, m.metric, m.Location(id), m.persist, &o)
}

// CreateTenant creates an empty tenant, caches it and returns its id.
func (m *MultiTenant) CreateTenant(ctx context.Context) (id string, err error) {
	defer func() { m.opts.logger.LogTenantCreate(ctx, id, err) }()

	id, err = m.opts.idGenerator()
	if err != nil {
		return "", fmt.Errorf("generate tenant id: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cache[id]; ok {
		return "", fmt.Errorf("tenant %q already exists", id)
	}

	s, err := m.newTenantStore(id)
	if err != nil {
		return "", err
	}
	if err := m.insert(ctx, id, s); err != nil {
		return "", err
	}
	return id, nil
}

// GetTenant returns the tenant with the given id, loading it from storage
// if it is not cached.
func (m *MultiTenant) GetTenant(ctx context.Context, id string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.cache[id]; ok {
		return s, nil
	}

	s, err := m.newTenantStore(id)
	if err != nil {
		return nil, err
	}
	if err := s.load(ctx); err != nil {
		if isNotPersisted(err) {
			return nil, fmt.Errorf("%w: %q", ErrTenantNotFound, id)
		}
		return nil, fmt.Errorf("load tenant %q: %w", id, err)
	}

	if err := m.insert(ctx, id, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ContainTenant reports whether the tenant is cached or persisted.
func (m *MultiTenant) ContainTenant(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cache[id]; ok {
		return true, nil
	}
	return m.persist.exists(ctx, m.Location(id))
}

// DeleteTenant drops the tenant from the cache and deletes its persisted state.
func (m *MultiTenant) DeleteTenant(ctx context.Context, id string) (err error) {
	defer func() { m.opts.logger.LogTenantDelete(ctx, id, err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	_, cached := m.cache[id]
	persisted, err := m.persist.exists(ctx, m.Location(id))
	if err != nil {
		return fmt.Errorf("delete tenant %q: %w", id, err)
	}
	if !cached && !persisted {
		return fmt.Errorf("%w: %q", ErrTenantNotFound, id)
	}

	if cached {
		delete(m.cache, id)
		m.queue = slices.DeleteFunc(m.queue, func(q string) bool { return q == id })
	}
	if persisted {
		if err := m.persist.delete(ctx, m.Location(id)); err != nil {
			return fmt.Errorf("delete tenant %q: %w", id, err)
		}
	}
	return nil
}

// Save persists every cached tenant. Up to WithSaveConcurrency tenants are
// saved in parallel; the first failure is returned after all attempts end.
func (m *MultiTenant) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(m.opts.saveConcurrency)

	for _, id := range m.queue {
		s := m.cache[id]
		g.Go(func() error {
			if err := s.Save(ctx); err != nil {
				return fmt.Errorf("save tenant %q: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// CachedTenants returns the cached tenant ids, oldest first.
func (m *MultiTenant) CachedTenants() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.queue)
}

// Len returns the number of cached tenants.
func (m *MultiTenant) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Close releases the storage backend. Cached tenants are not saved.
func (m *MultiTenant) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persist.Close()
}

// insert caches s, first evicting the oldest tenant if the cache is full.
// If the evicted tenant cannot be saved the cache is left unchanged.
// The caller must hold m.mu.
func (m *MultiTenant) insert(ctx context.Context, id string, s *Store) error {
	if len(m.queue) >= m.maxCached {
		oldest := m.queue[0]

		start := time.Now()
		err := m.cache[oldest].Save(ctx)
		m.opts.metricsCollector.RecordEviction(time.Since(start), err)
		m.opts.logger.LogEviction(ctx, oldest, err)
		if err != nil {
			return fmt.Errorf("evict tenant %q: %w", oldest, err)
		}

		delete(m.cache, oldest)
		m.queue = slices.Delete(m.queue, 0, 1)
	}

	m.cache[id] = s
	m.queue = append(m.queue, id)
	return nil
}
