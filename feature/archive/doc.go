// Package archive exposes the reconciliation engine to its thin consumers.
//
// The Service wraps the reconcile.Manager together with the job registry,
// scan cache, and connection pool. The CLI runs jobs synchronously through
// RunSync; the HTTP surface starts background jobs through the registry and
// polls their snapshots.
//
// Subpackages:
//
//   - models: domain value types
//   - resolver: naming conventions and canonical paths
//   - scancache: persistent bucket-scan cache
//   - reconcile: the job orchestrator
package archive
