// Package reconcile orchestrates archive reconciliation jobs.
//
// A job expands its time range and selection criteria into the full set of
// expected scene identities, grouped into hourly time buckets. Buckets are
// scanned (cache first, remote listing second) under one concurrency bound;
// identities absent locally but present remotely are downloaded under a
// second, independent bound through the shared connection pool. The outcome
// is a Report.
//
// # Failure Model
//
// Per-identity errors never abort the job. Transient failures (timeouts,
// resets, 5xx, pool exhaustion) retry with exponential backoff up to an
// attempt cap; permanent failures (4xx, unsupported identities) fail
// immediately. The Report's Failed list is the single source of truth for
// partial failure.
//
// # Ordering
//
// Within a bucket, the listing completes before any of its downloads start.
// Across buckets no ordering is guaranteed. Progress callbacks are funneled
// through a single consumer goroutine and are never invoked concurrently.
//
// # Idempotence
//
// Re-running a job against unchanged remote and local state downloads
// nothing: classification finds every previously fetched file at its
// canonical path, and bucket listings come from the scan cache.
package reconcile
