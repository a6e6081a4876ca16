// Package store defines the [Store] interface for transactional counter
// backends and provides these implementations:
//
//   - [MemoryStore]: in-process counters that are lost on restart.
//   - [SQLiteStore]: persistent counters backed by a SQLite database.
//   - [TieredStore]: a persistent store fronted by an in-memory read cache.
//
// A Redis backend lives in the redis subpackage. Custom backends can be
// created by implementing the [Store] interface.
package store
