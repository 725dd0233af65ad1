// Package storage provides an abstraction layer for the remote object store.
//
// It wraps the MinIO Go client to provide the minimal surface the archive
// reconciliation engine consumes. This abstraction supports AWS S3 (including
// the public NOAA scene buckets), self-hosted MinIO, and anything else
// S3-compatible.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it
// easier to mock storage interactions for unit testing (as seen in
// core/storage/mocks).
//
// # Operations
//
//   - BucketExists: Verifies access to a bucket; used as the pool health probe.
//   - ListObjects: Lists objects under a prefix (one call per time bucket).
//   - FGetObject: Downloads an object to a local file path.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "noaa-goes16")
package storage
