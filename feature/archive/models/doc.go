// Package models defines the value types of the archive domain: scene
// identities, hourly time buckets, remote key candidates, job specifications,
// task states, and the reconciliation report.
//
// Everything here is plain data. Identity is immutable and hashable; it is
// the natural key for local paths, remote candidates, and report entries.
// TimeBucket is the hourly grouping at which remote listings are issued and
// cached.
package models
