// Package storetest provides a conformance suite for recordstore.RecordStore
// implementations.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/nanovdb/model"
	"github.com/hupe1980/nanovdb/recordstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Snapshot builds a deterministic snapshot with n records of dimension dim.
func Snapshot(dim, n int, additional []byte) *model.Snapshot {
	snap := &model.Snapshot{Dimension: dim, AdditionalData: additional}
	for i := range n {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = float32(i*dim+j) / 10
		}
		snap.Records = append(snap.Records, model.Record{ID: fmt.Sprintf("rec-%03d", n-i), Vector: vec})
	}
	return snap
}

// Run exercises store against the RecordStore contract.
func Run(t *testing.T, store recordstore.RecordStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("MissingIsNotFound", func(t *testing.T) {
		_, err := store.ReadRecords(ctx, "missing/loc")
		assert.ErrorIs(t, err, recordstore.ErrNotFound)

		ok, err := store.Exists(ctx, "missing/loc")
		require.NoError(t, err)
		assert.False(t, ok)

		assert.NoError(t, store.Delete(ctx, "missing/loc"))
	})

	t.Run("RoundTripPreservesOrder", func(t *testing.T) {
		in := Snapshot(3, 7, []byte(`{"owner":"alice","tags":["x"]}`))
		require.NoError(t, store.WriteRecords(ctx, "tenants/a", in))

		ok, err := store.Exists(ctx, "tenants/a")
		require.NoError(t, err)
		assert.True(t, ok)

		out, err := store.ReadRecords(ctx, "tenants/a")
		require.NoError(t, err)
		assert.Equal(t, 3, out.Dimension)
		assert.Equal(t, in.Records, out.Records)
		assert.JSONEq(t, string(in.AdditionalData), string(out.AdditionalData))
	})

	t.Run("WriteReplacesEverything", func(t *testing.T) {
		require.NoError(t, store.WriteRecords(ctx, "tenants/b", Snapshot(2, 5, []byte(`{"v":1}`))))
		require.NoError(t, store.WriteRecords(ctx, "tenants/b", Snapshot(2, 2, nil)))

		out, err := store.ReadRecords(ctx, "tenants/b")
		require.NoError(t, err)
		assert.Len(t, out.Records, 2)
		assert.Nil(t, out.AdditionalData)
	})

	t.Run("EmptyRecordSet", func(t *testing.T) {
		require.NoError(t, store.WriteRecords(ctx, "tenants/empty", &model.Snapshot{Dimension: 4}))

		out, err := store.ReadRecords(ctx, "tenants/empty")
		require.NoError(t, err)
		assert.Equal(t, 4, out.Dimension)
		assert.Empty(t, out.Records)
	})

	t.Run("LocationsAreIsolated", func(t *testing.T) {
		require.NoError(t, store.WriteRecords(ctx, "iso/one", Snapshot(2, 1, nil)))
		require.NoError(t, store.WriteRecords(ctx, "iso/one-two", Snapshot(2, 3, nil)))

		out, err := store.ReadRecords(ctx, "iso/one")
		require.NoError(t, err)
		assert.Len(t, out.Records, 1)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.WriteRecords(ctx, "tenants/del", Snapshot(2, 3, nil)))
		require.NoError(t, store.Delete(ctx, "tenants/del"))

		_, err := store.ReadRecords(ctx, "tenants/del")
		assert.ErrorIs(t, err, recordstore.ErrNotFound)

		require.NoError(t, store.WriteRecords(ctx, "tenants/del", Snapshot(2, 1, nil)))
		out, err := store.ReadRecords(ctx, "tenants/del")
		require.NoError(t, err)
		assert.Len(t, out.Records, 1)
	})

	t.Run("RejectsInconsistentSnapshot", func(t *testing.T) {
		bad := &model.Snapshot{Dimension: 3, Records: []model.Record{{ID: "x", Vector: []float32{1}}}}
		assert.ErrorIs(t, store.WriteRecords(ctx, "tenants/bad", bad), recordstore.ErrCorrupt)
	})
}
