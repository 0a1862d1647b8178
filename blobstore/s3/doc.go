// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", "tenants/")
//	if err != nil { ... }
//
//	mt, err := nanovdb.NewMultiTenant(128, distance.MetricCosine, 100, "prod",
//	    nanovdb.WithBlobStore(store))
//
// Small documents are uploaded with a single PutObject carrying a CRC32C
// checksum; documents larger than the part size go through the multipart
// uploader from feature/s3/manager.
package s3
