// Package enginetest provides a reusable conformance test suite for engine
// implementations. An implementation package calls RunEngineTests from its
// own tests with a factory that produces fresh engine instances; the suite
// then exercises the full engine contract: open/upgrade/version semantics,
// CRUD requests, cursors, key ordering, secondary indexes, read-only
// enforcement, blocked deletion and persistence across reopen.
package enginetest
