package nanovdb_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/nanovdb"
	"github.com/hupe1980/nanovdb/blobstore"
	"github.com/hupe1980/nanovdb/distance"
)

func Example() {
	ctx := context.Background()

	db, err := nanovdb.Open(ctx, 2, distance.MetricCosine, "example.json",
		nanovdb.WithBlobStore(blobstore.NewMemoryStore()))
	if err != nil {
		log.Fatal(err)
	}

	res, err := db.Upsert(ctx, []nanovdb.Record{
		{ID: "north", Vector: []float32{0, 1}},
		{ID: "east", Vector: []float32{1, 0}},
		{ID: "north-east", Vector: []float32{1, 1}},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("inserted:", res.Inserted)

	hits, err := db.Query(ctx, []float32{0, 2}, 2)
	if err != nil {
		log.Fatal(err)
	}
	for _, h := range hits {
		fmt.Printf("%s %.2f\n", h.ID, h.Score)
	}

	// Output:
	// inserted: [north east north-east]
	// north 1.00
	// north-east 0.71
}

func ExampleStore_Search() {
	ctx := context.Background()

	db, err := nanovdb.Open(ctx, 1, distance.MetricL2, "example.json",
		nanovdb.WithBlobStore(blobstore.NewMemoryStore()))
	if err != nil {
		log.Fatal(err)
	}

	if _, err := db.Upsert(ctx, []nanovdb.Record{
		{ID: "a", Vector: []float32{1}},
		{ID: "b", Vector: []float32{2}},
		{ID: "c", Vector: []float32{3}},
	}); err != nil {
		log.Fatal(err)
	}

	best, err := db.Search([]float32{2.2}).WhereID("a", "c").First(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(best.ID)

	// Output:
	// c
}

func ExampleMultiTenant() {
	ctx := context.Background()

	mt, err := nanovdb.NewMultiTenant(2, distance.MetricL2, 1, "tenants",
		nanovdb.WithBlobStore(blobstore.NewMemoryStore()))
	if err != nil {
		log.Fatal(err)
	}

	first, err := mt.CreateTenant(ctx)
	if err != nil {
		log.Fatal(err)
	}
	second, err := mt.CreateTenant(ctx)
	if err != nil {
		log.Fatal(err)
	}

	ok, _ := mt.ContainTenant(ctx, first)
	fmt.Println("first still known:", ok)
	fmt.Println("cached:", len(mt.CachedTenants()), mt.CachedTenants()[0] == second)

	// Output:
	// first still known: true
	// cached: 1 true
}
