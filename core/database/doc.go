// Package database manages the persistent scan-cache database connection.
//
// It provides connectivity via GORM with two supported drivers:
//
//   - sqlite (default): a single local file colocated with the archive, so
//     cache state survives process restarts with zero external dependencies.
//   - mysql: for deployments where multiple archiver hosts share one cache.
//
// # Connection Management
//
// The sqlite path enables WAL journaling with a busy timeout so concurrent
// reconciliation workers can read bucket rows while one writer upserts. The
// mysql path configures connection pooling, I/O deadlines, and verifies the
// connection with a ping before returning.
package database
