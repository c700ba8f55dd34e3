// Package storage provides the BBolt journal kept next to a filevault store.
//
// Database structure uses two buckets:
//   - config: schema version, creation time, random store ID
//   - journal: msgpack-encoded records of completed mutations, keyed by a
//     big-endian sequence number so iteration is chronological
//
// The journal never stores file contents or keys. It is not an index: the
// store directory is the only source of truth for which files exist.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
