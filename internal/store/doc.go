// Package store implements the persistent ChatStore over SQLite, with
// the keys_blob column encrypted at rest under a passphrase-derived
// key. All methods are concurrency-safe: a single sync.RWMutex
// serializes writers while letting readers proceed in parallel.
package store
