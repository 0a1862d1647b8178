package nanovdb

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/nanovdb/blobstore"
	"github.com/hupe1980/nanovdb/codec"
	"github.com/hupe1980/nanovdb/model"
	"github.com/hupe1980/nanovdb/recordstore"
)

// persister binds a store to a backend. load returns an error matching
// errNotPersisted when nothing is stored at location.
type persister interface {
	load(ctx context.Context, location string, dim int) (*model.Snapshot, error)
	save(ctx context.Context, location string, snap *model.Snapshot) error
	delete(ctx context.Context, location string) error
	exists(ctx context.Context, location string) (bool, error)
	io.Closer
}

// newPersister prefers a record store over a blob store. fallback is used
// when neither is configured.
func newPersister(o *options, fallback blobstore.BlobStore) persister {
	if o.recordStore != nil {
		return &recordPersister{store: o.recordStore}
	}
	bs := o.blobStore
	if bs == nil {
		bs = fallback
	}
	return &blobPersister{store: bs, codec: o.codec}
}

type blobPersister struct {
	store blobstore.BlobStore
	codec codec.Codec
}

func (p *blobPersister) load(ctx context.Context, location string, dim int) (*model.Snapshot, error) {
	data, err := p.store.Read(ctx, location)
	if err != nil {
		return nil, translateError(location, err)
	}
	if len(data) == 0 {
		return nil, errNotPersisted
	}
	return decodeDocument(p.codec, location, dim, data)
}

func (p *blobPersister) save(ctx context.Context, location string, snap *model.Snapshot) error {
	data, err := encodeDocument(p.codec, snap)
	if err != nil {
		return err
	}
	return translateError(location, p.store.Write(ctx, location, data))
}

func (p *blobPersister) delete(ctx context.Context, location string) error {
	return translateError(location, p.store.Delete(ctx, location))
}

func (p *blobPersister) exists(ctx context.Context, location string) (bool, error) {
	ok, err := p.store.Exists(ctx, location)
	return ok, translateError(location, err)
}

func (p *blobPersister) Close() error {
	return closeBackend(p.store)
}

type recordPersister struct {
	store recordstore.RecordStore
}

func (p *recordPersister) load(ctx context.Context, location string, dim int) (*model.Snapshot, error) {
	snap, err := p.store.ReadRecords(ctx, location)
	if err != nil {
		return nil, translateError(location, err)
	}
	if snap.Dimension != dim {
		return nil, &ErrDimensionMismatch{Expected: dim, Actual: snap.Dimension}
	}
	for i, r := range snap.Records {
		if r.ID == "" {
			return nil, corruption(location, nil, "record %d has no id", i)
		}
		if len(r.Vector) != dim {
			return nil, corruption(location, nil, "record %q has dimension %d", r.ID, len(r.Vector))
		}
	}
	return snap, nil
}

func (p *recordPersister) save(ctx context.Context, location string, snap *model.Snapshot) error {
	return translateError(location, p.store.WriteRecords(ctx, location, snap))
}

func (p *recordPersister) delete(ctx context.Context, location string) error {
	return translateError(location, p.store.Delete(ctx, location))
}

func (p *recordPersister) exists(ctx context.Context, location string) (bool, error) {
	ok, err := p.store.Exists(ctx, location)
	return ok, translateError(location, err)
}

func (p *recordPersister) Close() error {
	return closeBackend(p.store)
}

func closeBackend(backend any) error {
	if c, ok := backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// isNotPersisted reports whether err means nothing is stored.
func isNotPersisted(err error) bool {
	return errors.Is(err, errNotPersisted)
}
