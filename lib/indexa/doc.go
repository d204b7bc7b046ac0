// Package indexa provides a typed, reactive access layer over an embedded
// transactional object-store engine. Callers declare their stores once as a
// Schema (key path, auto increment, secondary indexes) and then work with
// plain CRUD operations, index lookups, cursor iteration and push-based
// change subscriptions, without touching engine transactions directly.
//
// Key Components:
//
//   - Database: the per-database entry point. Construction starts the engine
//     open in the background exactly once; the outcome is memoized and every
//     operation awaits it, so concurrent first users all share the same open.
//     A failed open is permanent for the lifetime of the instance. During the
//     engine's version upgrade the Database creates every schema store that
//     does not exist yet.
//
//   - Operation Layer: blocking CRUD/index/cursor/count/exists/bulk methods
//     on Database. Each call runs in its own single-store transaction with
//     the narrowest possible mode; write transactions commit before the call
//     returns. Bulk writes share one transaction and report per-item results.
//
//   - Subscription Registry: per-store change listeners. After every
//     committed mutation the registry re-reads the full store once and
//     delivers the snapshot to every listener in registration order, each
//     delivery isolated from listener faults. Stores without listeners pay
//     no re-read cost. Notifications are full snapshots, never deltas.
//
//   - Collection: a generic typed view (Collection[T]) on one store that
//     decodes records via the configured serializer.
//
//   - Error System: every failure surfaces as *Error carrying a Kind
//     (KindOpen, KindTransaction, KindRequest, KindBlocked) and the wrapped
//     engine cause. Nothing is retried or swallowed; explicitly documented
//     no-ops (delete of an absent key, unsubscribe of an unknown listener)
//     are the only silent paths.
//
// Thread-safety: all exported methods are safe for concurrent use.
package indexa
