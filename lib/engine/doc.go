// Package engine defines the contract for the embedded transactional
// object-store engine that the Indexa access layer is built on. It contains
// only types and interfaces; implementations live in sub-packages (currently
// the bbolt-backed engine in lib/engine/bolt).
//
// The package focuses on:
//   - A unified interface for opening databases with version-upgrade semantics
//   - Per-operation transactions scoped to a single store in readonly or
//     readwrite mode
//   - Key-ordered storage, secondary index lookup and cursor traversal
//   - Order-preserving binary key encoding shared by all implementations
//
// Key Components:
//
//   - Engine Interface: the entry point. Open(name, version, upgrade) opens a
//     database and, when the requested version exceeds the stored one, runs
//     the caller's UpgradeFunc synchronously so all schema creation happens
//     inside the same upgrade step. DeleteDatabase removes a database and
//     reports ErrBlocked instead of hanging while connections are open.
//
//   - Connection / Txn / Store: one Connection per open database, shared by
//     all operations; every operation opens its own single-store Txn via
//     Begin and uses the bound Store handle for its requests. ReadWrite
//     transactions are serialized by the implementation.
//
//   - Key and KeyRange: keys are either uint64 or string. Key.Encode yields a
//     binary form whose lexicographic order equals semantic key order
//     (numeric keys before string keys), which is what store and index
//     buckets are sorted by. KeyRange expresses exact and range queries for
//     secondary indexes.
//
//   - StoreOptions / IndexSchema: the per-store schema (key path, auto
//     increment flag, declared indexes) that the engine persists at store
//     creation and enforces on every write.
//
// Error handling uses sentinel errors (ErrKeyExists, ErrUnknownStore, ...)
// so callers can classify failures with errors.Is regardless of the
// implementation.
package engine
