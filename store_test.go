package nanovdb

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hupe1980/nanovdb/blobstore"
	"github.com/hupe1980/nanovdb/distance"
	"github.com/hupe1980/nanovdb/internal/hash"
	"github.com/hupe1980/nanovdb/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T, dim int, metric distance.Metric, optFns ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), dim, metric, "db.json",
		append([]Option{WithBlobStore(blobstore.NewMemoryStore())}, optFns...)...)
	require.NoError(t, err)
	return s
}

func ids(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func resultIDs(res []QueryResult) []string {
	out := make([]string, len(res))
	for i, r := range res {
		out[i] = r.ID
	}
	return out
}

func assertRecordsInDelta(t *testing.T, want, got []Record) {
	t.Helper()
	require.Equal(t, ids(want), ids(got))
	for i := range want {
		require.Len(t, got[i].Vector, len(want[i].Vector))
		for j := range want[i].Vector {
			assert.InDelta(t, want[i].Vector[j], got[i].Vector[j], 1e-6)
		}
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, 0, distance.MetricL2, "x.json")
	var ide *ErrInvalidDimension
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 0, ide.Dimension)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Open(ctx, 4, distance.Metric(7), "x.json")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpen_DefaultLocation(t *testing.T) {
	s := openMemory(t, 2, distance.MetricL2)
	assert.Equal(t, "db.json", s.Location())

	s, err := Open(context.Background(), 2, distance.MetricL2, "", WithBlobStore(blobstore.NewMemoryStore()))
	require.NoError(t, err)
	assert.Equal(t, DefaultLocation, s.Location())
	assert.Equal(t, 2, s.Dimension())
	assert.Equal(t, distance.MetricL2, s.Metric())
}

func TestStore_Scenario(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t, 3, distance.MetricCosine)

	res, err := s.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0, 0}},
		{ID: "b", Vector: []float32{0, 1, 0}},
		{ID: "c", Vector: []float32{0, 0, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, res.Inserted)
	assert.Empty(t, res.Updated)
	assert.Equal(t, 3, s.Size())

	results, err := s.Query(ctx, []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"a", "b"}, resultIDs(results))
	assert.InDelta(t, 0.995, results[0].Score, 1e-3)
	assert.InDelta(t, 0.0995, results[1].Score, 1e-3)

	results, err = s.Query(ctx, []float32{1, 0.1, 0}, 3, WithThreshold(0.5))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, resultIDs(results))

	assert.Equal(t, 1, s.Remove(ctx, "b", "missing"))
	assert.Equal(t, []string{"a", "c"}, ids(s.Get("c", "a", "b")))
}

func TestStore_UpsertSemantics(t *testing.T) {
	ctx := context.Background()

	t.Run("LaterEntriesWin", func(t *testing.T) {
		s := openMemory(t, 2, distance.MetricL2)
		res, err := s.Upsert(ctx, []Record{
			{ID: "x", Vector: []float32{1, 1}},
			{ID: "y", Vector: []float32{2, 2}},
			{ID: "x", Vector: []float32{3, 3}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, res.Inserted)
		assert.Equal(t, []Record{{ID: "x", Vector: []float32{3, 3}}}, s.Get("x"))
	})

	t.Run("UpdateInPlace", func(t *testing.T) {
		s := openMemory(t, 2, distance.MetricL2)
		_, err := s.Upsert(ctx, []Record{{ID: "a", Vector: []float32{1, 0}}, {ID: "b", Vector: []float32{0, 1}}})
		require.NoError(t, err)

		res, err := s.Upsert(ctx, []Record{{ID: "c", Vector: []float32{5, 5}}, {ID: "a", Vector: []float32{9, 9}}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, res.Updated)
		assert.Equal(t, []string{"c"}, res.Inserted)
		assert.Equal(t, []Record{
			{ID: "a", Vector: []float32{9, 9}},
			{ID: "b", Vector: []float32{0, 1}},
			{ID: "c", Vector: []float32{5, 5}},
		}, s.Get("a", "b", "c"))
	})

	t.Run("ContentHashID", func(t *testing.T) {
		s := openMemory(t, 2, distance.MetricCosine)
		vec := []float32{3, 4}
		res, err := s.Upsert(ctx, []Record{{Vector: vec}})
		require.NoError(t, err)
		require.Len(t, res.Inserted, 1)
		assert.Equal(t, hash.ContentID([]float32{3, 4}), res.Inserted[0])
		assert.Len(t, res.Inserted[0], 16)

		res, err = s.Upsert(ctx, []Record{{Vector: []float32{3, 4}}})
		require.NoError(t, err)
		assert.Equal(t, []string{hash.ContentID(vec)}, res.Updated)
		assert.Equal(t, 1, s.Size())
	})

	t.Run("CallerSliceNotMutated", func(t *testing.T) {
		s := openMemory(t, 2, distance.MetricCosine)
		vec := []float32{3, 4}
		_, err := s.Upsert(ctx, []Record{{ID: "v", Vector: vec}})
		require.NoError(t, err)
		assert.Equal(t, []float32{3, 4}, vec)

		got := s.Get("v")[0].Vector
		assert.InDelta(t, 0.6, got[0], 1e-6)
		assert.InDelta(t, 0.8, got[1], 1e-6)

		got[0] = 100
		assert.InDelta(t, 0.6, s.Get("v")[0].Vector[0], 1e-6)
	})

	t.Run("ZeroVectorUnderCosine", func(t *testing.T) {
		s := openMemory(t, 2, distance.MetricCosine)
		_, err := s.Upsert(ctx, []Record{{ID: "z", Vector: []float32{0, 0}}})
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 0}, s.Get("z")[0].Vector)

		res, err := s.Query(ctx, []float32{1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.InDelta(t, 0, res[0].Score, 1e-6)
	})

	t.Run("DimensionMismatchIsAtomic", func(t *testing.T) {
		s := openMemory(t, 2, distance.MetricL2)
		_, err := s.Upsert(ctx, []Record{
			{ID: "ok", Vector: []float32{1, 2}},
			{ID: "bad", Vector: []float32{1, 2, 3}},
		})
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 2, dm.Expected)
		assert.Equal(t, 3, dm.Actual)
		assert.Equal(t, 0, s.Size())
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		s := openMemory(t, 2, distance.MetricL2)
		res, err := s.Upsert(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Inserted)
		assert.Empty(t, res.Updated)
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t, 2, distance.MetricL2)

	_, err := s.Upsert(ctx, []Record{{ID: "a", Vector: []float32{1, 2}}})
	require.NoError(t, err)

	got := s.Get("a")
	require.Len(t, got, 1)
	got[0].Vector[0] = 99

	res, err := s.Query(ctx, []float32{1, 2}, 1)
	require.NoError(t, err)
	res[0].Vector[1] = 99

	assert.Equal(t, []Record{{ID: "a", Vector: []float32{1, 2}}}, s.Get("a"))
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t, 2, distance.MetricL2)
	recs := testutil.NewRNG(1).Records(6, 2)
	_, err := s.Upsert(ctx, recs)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Remove(ctx, "rec-0000", "rec-0003", "rec-0005", "rec-0003"))
	assert.Equal(t, 3, s.Size())

	got := s.Get("rec-0001", "rec-0002", "rec-0004")
	assert.Equal(t, []Record{recs[1], recs[2], recs[4]}, got)

	assert.Equal(t, 0, s.Remove(ctx, "rec-0000"))
	assert.Equal(t, 0, s.Remove(ctx))

	_, err = s.Upsert(ctx, []Record{{ID: "new", Vector: []float32{0, 0}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"rec-0001", "rec-0002", "rec-0004", "new"}, ids(s.Get("new", "rec-0004", "rec-0002", "rec-0001")))
}

func TestStore_Query(t *testing.T) {
	ctx := context.Background()

	t.Run("MatchesExactSearch", func(t *testing.T) {
		for _, metric := range []distance.Metric{distance.MetricL2, distance.MetricCosine} {
			t.Run(metric.String(), func(t *testing.T) {
				rng := testutil.NewRNG(42)
				recs := rng.Records(200, 8)
				s := openMemory(t, 8, metric)
				_, err := s.Upsert(ctx, recs)
				require.NoError(t, err)

				query := rng.UniformRangeVectors(1, 8)[0]
				res, err := s.Query(ctx, query, 10)
				require.NoError(t, err)
				assert.Equal(t, testutil.ExactTopK(query, recs, 10, metric), resultIDs(res))

				for i := 1; i < len(res); i++ {
					assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
				}
			})
		}
	})

	t.Run("TiesKeepStoreOrder", func(t *testing.T) {
		s := openMemory(t, 2, distance.MetricL2)
		_, err := s.Upsert(ctx, []Record{
			{ID: "p", Vector: []float32{1, 0}},
			{ID: "q", Vector: []float32{0, 1}},
			{ID: "r", Vector: []float32{-1, 0}},
		})
		require.NoError(t, err)

		res, err := s.Query(ctx, []float32{0, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"p", "q", "r"}, resultIDs(res))
		assert.InDelta(t, -1, res[0].Score, 1e-6)
	})

	t.Run("ThresholdAppliedAfterTopK", func(t *testing.T) {
		s := openMemory(t, 1, distance.MetricL2)
		_, err := s.Upsert(ctx, []Record{
			{ID: "near", Vector: []float32{1}},
			{ID: "mid", Vector: []float32{2}},
			{ID: "far", Vector: []float32{5}},
		})
		require.NoError(t, err)

		res, err := s.Query(ctx, []float32{0}, 2, WithThreshold(-4))
		require.NoError(t, err)
		assert.Equal(t, []string{"near", "mid"}, resultIDs(res))

		res, err = s.Query(ctx, []float32{0}, 3, WithThreshold(-1))
		require.NoError(t, err)
		assert.Equal(t, []string{"near"}, resultIDs(res))
	})

	t.Run("Filter", func(t *testing.T) {
		s := openMemory(t, 2, distance.MetricL2)
		_, err := s.Upsert(ctx, testutil.NewRNG(3).Records(20, 2))
		require.NoError(t, err)

		res, err := s.Query(ctx, []float32{0, 0}, 20, WithFilter(func(r Record) bool {
			r.Vector[0] = 1000
			return r.ID == "rec-0007" || r.ID == "rec-0011"
		}))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"rec-0007", "rec-0011"}, resultIDs(res))
		assert.Less(t, s.Get("rec-0007")[0].Vector[0], float32(1000))
	})

	t.Run("Errors", func(t *testing.T) {
		s := openMemory(t, 2, distance.MetricL2)

		_, err := s.Query(ctx, []float32{1}, 1)
		var dm *ErrDimensionMismatch
		assert.ErrorAs(t, err, &dm)

		_, err = s.Query(ctx, []float32{1, 1}, 0)
		assert.ErrorIs(t, err, ErrInvalidK)
	})

	t.Run("EmptyStore", func(t *testing.T) {
		s := openMemory(t, 2, distance.MetricCosine)
		res, err := s.Query(ctx, []float32{1, 1}, 5)
		require.NoError(t, err)
		assert.Empty(t, res)
	})
}

func TestStore_SearchBuilder(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t, 2, distance.MetricL2)
	_, err := s.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{0, 0}},
		{ID: "b", Vector: []float32{1, 0}},
		{ID: "c", Vector: []float32{3, 0}},
	})
	require.NoError(t, err)

	res := s.Search([]float32{0, 0}).TopK(2).MustExecute(ctx)
	assert.Equal(t, []string{"a", "b"}, resultIDs(res))

	first, err := s.Search([]float32{0, 0}).WhereID("c", "b").First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", first.ID)

	n, err := s.Search([]float32{0, 0}).Threshold(-2).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Search([]float32{0, 0}).WhereID("missing").First(ctx)
	assert.ErrorIs(t, err, ErrNoResults)

	ok, err := s.Search([]float32{0, 0}).Filter(func(r Record) bool { return r.ID == "c" }).Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Filters combine.
	res = s.Search([]float32{0, 0}).
		WhereID("a", "c").
		Filter(func(r Record) bool { return r.ID != "a" }).
		MustExecute(ctx)
	assert.Equal(t, []string{"c"}, resultIDs(res))

	var streamed []string
	for r, err := range s.Search([]float32{0, 0}).TopK(3).Stream(ctx) {
		require.NoError(t, err)
		streamed = append(streamed, r.ID)
		if len(streamed) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, streamed)
}

func TestStore_AdditionalData(t *testing.T) {
	s := openMemory(t, 2, distance.MetricL2)
	assert.Nil(t, s.AdditionalData())

	require.NoError(t, s.StoreAdditionalData(json.RawMessage(`{"owner":"team-a"}`)))
	got := s.AdditionalData()
	assert.JSONEq(t, `{"owner":"team-a"}`, string(got))

	got[0] = 'X'
	assert.JSONEq(t, `{"owner":"team-a"}`, string(s.AdditionalData()))

	err := s.StoreAdditionalData(json.RawMessage(`{broken`))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.JSONEq(t, `{"owner":"team-a"}`, string(s.AdditionalData()))

	require.NoError(t, s.StoreAdditionalData(nil))
	assert.Nil(t, s.AdditionalData())
}

func TestStore_ClearAndSetMetric(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t, 2, distance.MetricL2)
	_, err := s.Upsert(ctx, []Record{{ID: "a", Vector: []float32{3, 4}}})
	require.NoError(t, err)

	require.NoError(t, s.SetMetric(distance.MetricCosine))
	assert.Equal(t, distance.MetricCosine, s.Metric())
	v := s.Get("a")[0].Vector
	assert.InDelta(t, 0.6, v[0], 1e-6)

	assert.ErrorIs(t, s.SetMetric(distance.Metric(99)), ErrInvalidConfig)

	require.NoError(t, s.StoreAdditionalData(json.RawMessage(`1`)))
	s.Clear()
	assert.Equal(t, 0, s.Size())
	assert.Equal(t, 2, s.Dimension())
	assert.Empty(t, s.Get("a"))
	assert.Equal(t, json.RawMessage(`1`), s.AdditionalData())

	_, err = s.Upsert(ctx, []Record{{ID: "b", Vector: []float32{1, 0}}})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Size())
}

func TestStore_SaveAndReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	location := filepath.Join(dir, "nested", "db.json")

	s, err := Open(ctx, 4, distance.MetricCosine, location)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Size())

	recs := testutil.NewRNG(5).Records(25, 4)
	_, err = s.Upsert(ctx, recs)
	require.NoError(t, err)
	require.NoError(t, s.StoreAdditionalData(json.RawMessage(`{"k":[1,2,3]}`)))
	require.NoError(t, s.Save(ctx))

	reopened, err := Open(ctx, 4, distance.MetricCosine, location)
	require.NoError(t, err)
	assert.Equal(t, 25, reopened.Size())
	assert.JSONEq(t, `{"k":[1,2,3]}`, string(reopened.AdditionalData()))

	all := make([]string, len(recs))
	for i, r := range recs {
		all[i] = r.ID
	}
	assertRecordsInDelta(t, s.Get(all...), reopened.Get(all...))

	query := recs[3].Vector
	want, err := s.Query(ctx, query, 5)
	require.NoError(t, err)
	got, err := reopened.Query(ctx, query, 5)
	require.NoError(t, err)
	assert.Equal(t, resultIDs(want), resultIDs(got))

	_, err = Open(ctx, 8, distance.MetricCosine, location)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 8, dm.Expected)
	assert.Equal(t, 4, dm.Actual)
}

func TestStore_CosineLoadRenormalizes(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	l2, err := Open(ctx, 2, distance.MetricL2, "db.json", WithBlobStore(bs))
	require.NoError(t, err)
	_, err = l2.Upsert(ctx, []Record{{ID: "a", Vector: []float32{0, 5}}})
	require.NoError(t, err)
	require.NoError(t, l2.Save(ctx))

	cos, err := Open(ctx, 2, distance.MetricCosine, "db.json", WithBlobStore(bs))
	require.NoError(t, err)
	assertRecordsInDelta(t, []Record{{ID: "a", Vector: []float32{0, 1}}}, cos.Get("a"))
}

func TestStore_ZeroLengthBlobIsEmpty(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	require.NoError(t, bs.Write(ctx, "db.json", nil))

	s, err := Open(ctx, 2, distance.MetricL2, "db.json", WithBlobStore(bs))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Size())
}

type failingBlobStore struct {
	blobstore.BlobStore
	err error
}

func (f failingBlobStore) Read(context.Context, string) ([]byte, error) { return nil, f.err }

func (f failingBlobStore) Write(context.Context, string, []byte) error { return f.err }

func TestStore_BackendFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")

	_, err := Open(ctx, 2, distance.MetricL2, "db.json", WithBlobStore(failingBlobStore{BlobStore: blobstore.NewMemoryStore(), err: boom}))
	assert.ErrorIs(t, err, boom)

	metrics := &BasicMetricsCollector{}
	s := openMemory(t, 2, distance.MetricL2, WithMetricsCollector(metrics))
	s.persist = &blobPersister{store: failingBlobStore{err: boom}, codec: s.persist.(*blobPersister).codec}
	assert.ErrorIs(t, s.Save(ctx), boom)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.LoadCount)
	assert.Equal(t, int64(1), stats.SaveErrors)
}

func TestStore_Metrics(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	s := openMemory(t, 2, distance.MetricL2, WithMetricsCollector(metrics), WithLogger(NoopLogger()))

	_, err := s.Upsert(ctx, []Record{{ID: "a", Vector: []float32{1, 1}}, {ID: "b", Vector: []float32{2, 2}}})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, []Record{{ID: "c", Vector: []float32{1}}})
	require.Error(t, err)
	_, err = s.Query(ctx, []float32{0, 0}, 1)
	require.NoError(t, err)
	s.Remove(ctx, "a")

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.UpsertCount)
	assert.Equal(t, int64(2), stats.UpsertRecords)
	assert.Equal(t, int64(1), stats.UpsertErrors)
	assert.Equal(t, int64(1), stats.QueryCount)
	assert.Equal(t, int64(1), stats.RemovedRecords)
}
