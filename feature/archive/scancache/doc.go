// Package scancache persists the results of remote bucket listings.
//
// One row per time bucket records the object keys a listing confirmed
// present and when the listing happened. Reconciliation passes consult the
// cache first and skip the remote call entirely on a fresh hit, which is
// what makes repeated runs over the same window cheap.
//
// # Degradation
//
// The cache never raises structural problems to the caller: an expired or
// corrupt record is simply a miss, forcing a re-scan. Corruption is logged
// for operator diagnosis.
package scancache
