// Package resolver maps logical scene identities to remote key candidates
// and canonical local archive paths.
//
// It is a pure function library: no I/O, no state. Every historical remote
// naming convention is encoded as a variant in a ranked list; resolution
// walks the list newest-convention-first and callers try candidates in order
// against listing results, stopping at the first hit.
//
// # Stability
//
// CanonicalLocalPath is version-stable by contract. Previously downloaded
// files must always be findable from the identity alone, which is what makes
// repeated reconciliation runs idempotent. Changing the layout requires a
// migration, not an edit.
package resolver
