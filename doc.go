// Package nanovdb provides a small embedded vector database for Go.
//
// A Store keeps vectors of one fixed dimension in memory and answers
// exact (brute-force) top-k queries under L2 or cosine distance. State is
// persisted explicitly with Save, either as a single document through a
// blobstore.BlobStore or as rows through a recordstore.RecordStore.
//
// # Quick Start
//
//	ctx := context.Background()
//	db, _ := nanovdb.Open(ctx, 3, distance.MetricCosine, "vectors.json")
//
//	db.Upsert(ctx, []nanovdb.Record{
//	    {ID: "a", Vector: []float32{1, 0, 0}},
//	    {ID: "b", Vector: []float32{0, 1, 0}},
//	})
//
//	results, _ := db.Query(ctx, []float32{1, 0.1, 0}, 1)
//	fmt.Println(results[0].ID, results[0].Score) // a 0.995...
//
//	db.Save(ctx)
//
// # Scores
//
// Results are ranked by score, higher is better. Under cosine the score is
// the cosine similarity; under L2 it is the negated squared distance.
// WithThreshold drops results scoring below a bound.
//
// # Multi-Tenancy
//
// MultiTenant manages many stores sharing a dimension and metric, holding a
// bounded number in memory. When the cache is full the tenant cached first
// is saved and dropped:
//
//	mt, _ := nanovdb.NewMultiTenant(128, distance.MetricCosine, 100, "./tenants")
//	id, _ := mt.CreateTenant(ctx)
//	db, _ := mt.GetTenant(ctx, id)
//	defer mt.Save(ctx)
//
// # Storage Backends
//
// Byte-oriented (document codec applies):
//   - blobstore.LocalStore: atomic local files (default)
//   - blobstore.MmapStore: memory-mapped local files
//   - blobstore.MemoryStore: in-process
//   - s3.Store, minio.Store: object storage
//
// blobstore.CompressedStore and blobstore.RateLimitedStore wrap any of them.
//
// Record-oriented:
//   - sqlite.Store: one SQLite file per location
//   - badger.Store: one shared BadgerDB
//   - dynamodb.Store: DynamoDB with atomic generation swaps
package nanovdb
