// Package pool provides a bounded pool of reusable remote store clients.
//
// The reconciliation engine issues many short listing and download calls from
// concurrent workers. The pool caps the number of simultaneously borrowed
// clients, reuses released ones LIFO so the working set stays warm, evicts
// connections past a maximum age, and health-checks each connection on
// release with a cheap BucketExists probe.
//
// # Acquisition Semantics
//
//	conn, err := p.Acquire(ctx)
//	if err != nil { ... }
//	defer conn.Release()
//	conn.Client.ListObjects(...)
//
// Acquire blocks until a slot frees, the acquire timeout elapses
// (ErrPoolExhausted), or the context is cancelled. Release must be called on
// every exit path; deferring it immediately after Acquire is the expected
// pattern.
//
// # Observability
//
// Stats() exposes created/reused/closed counters, pool hits and misses, and
// the cumulative time callers spent waiting for a slot.
package pool
