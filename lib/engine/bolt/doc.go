// Package bolt implements the engine contract on top of bbolt, giving every
// database a single memory-mapped B+tree file with real transactions.
//
// Layout:
//
//   - Each database (name, version) is one file "<name>.idx" in the engine's
//     data directory.
//   - The "__meta" bucket persists the database version and, per store, the
//     JSON-encoded engine.StoreOptions, so key paths and index definitions
//     survive reopening.
//   - Records of store S live in bucket "s:<S>", keyed by the
//     order-preserving engine.Key encoding; bbolt keeps bucket keys sorted,
//     which directly yields ascending-key cursors.
//   - Index I of store S lives in bucket "i:<S>:<I>". Entry keys are the
//     encoded index key, a zero separator and the encoded primary key;
//     the entry value is the encoded primary key. Entries are maintained
//     inside the same transaction as the record write.
//
// Connection sharing: bbolt holds an exclusive file lock, so all
// connections to one database share one bbolt handle, reference-counted by
// the engine. DeleteDatabase refuses with engine.ErrBlocked while the count
// is non-zero instead of waiting on the lock.
//
// Transactions: ReadWrite maps to a bbolt writable transaction (bbolt
// serializes writers, readers proceed concurrently via MVCC); ReadOnly maps
// to a read transaction released by Rollback.
//
// Index extraction parses records as JSON objects and walks the dotted key
// path. Stores without declared indexes never decode their records, so any
// serialization may be used for them.
package bolt
