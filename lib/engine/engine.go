package engine

import "errors"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplBolt Implementation = "bolt"
)

// Mode is the access mode of a transaction.
type Mode uint8

const (
	// ReadOnly transactions may only issue query requests.
	ReadOnly Mode = iota
	// ReadWrite transactions may issue both query and mutation requests.
	// The engine serializes conflicting ReadWrite transactions internally.
	ReadWrite
)

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "readonly"
	case ReadWrite:
		return "readwrite"
	default:
		return "unknown"
	}
}

// IndexSchema declares one secondary index on a store. Values of the store
// contribute one index entry each, keyed by the record field at KeyPath.
// Records without that field (or with an un-keyable value) are simply not
// indexed.
type IndexSchema struct {
	Name    string `json:"name"`
	KeyPath string `json:"key_path"`
}

// StoreOptions declares one store: how its records are keyed and which
// secondary indexes the engine maintains for it. The options are persisted
// by the engine when the store is created and enforced on every write.
type StoreOptions struct {
	// KeyPath is the record field holding the primary key ("" = records are
	// keyed externally, e.g. by the auto increment sequence alone).
	KeyPath string `json:"key_path"`
	// AutoIncrement enables the per-store key generator.
	AutoIncrement bool `json:"auto_increment"`
	// Indexes are the secondary indexes maintained for this store.
	Indexes []IndexSchema `json:"indexes,omitempty"`
}

// Record is one stored entry: its primary key and its serialized value.
type Record struct {
	Key   Key
	Value []byte
}

// --------------------------------------------------------------------------
// Sentinel Errors
// --------------------------------------------------------------------------

var (
	// ErrKeyExists is returned by Store.Insert when the key is already taken.
	ErrKeyExists = errors.New("engine: key already exists")
	// ErrKeyRequired is returned when a write carries no usable key.
	ErrKeyRequired = errors.New("engine: key required")
	// ErrUnknownStore is returned when a transaction names a store the
	// database does not contain.
	ErrUnknownStore = errors.New("engine: unknown store")
	// ErrUnknownIndex is returned by Store.Index for undeclared index names.
	ErrUnknownIndex = errors.New("engine: unknown index")
	// ErrVersionTooLow is returned by Open when the requested version is
	// below the version already stored on disk.
	ErrVersionTooLow = errors.New("engine: requested version below stored version")
	// ErrBlocked is returned by DeleteDatabase while connections are open.
	ErrBlocked = errors.New("engine: database deletion blocked by open connection")
	// ErrConnectionClosed is returned when a closed connection is used.
	ErrConnectionClosed = errors.New("engine: connection closed")
	// ErrTxnReadOnly is returned when a mutation is issued in a ReadOnly
	// transaction.
	ErrTxnReadOnly = errors.New("engine: transaction is read-only")
)

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// UpgradeFunc runs synchronously inside Open when the requested version
// exceeds the stored version. All store creation must happen here; the
// UpgradeTxn is invalid once the function returns.
type UpgradeFunc func(txn UpgradeTxn, oldVersion, newVersion uint64) error

// UpgradeTxn is the schema-mutation handle passed to an UpgradeFunc.
type UpgradeTxn interface {
	// StoreNames returns the names of all stores that currently exist.
	StoreNames() []string
	// HasStore reports whether a store with the given name exists.
	HasStore(name string) bool
	// CreateStore creates a new store with the given options. Creating a
	// store that already exists is an error.
	CreateStore(name string, opts StoreOptions) error
}

// Engine is the embedded transactional object-store engine. It owns the
// on-disk representation entirely: per-store key-ordered storage, index
// maintenance, cursor traversal and transaction commit/abort.
type Engine interface {
	// Open opens (and on first use creates) the database at (name, version).
	// If version exceeds the stored version, upgrade is invoked synchronously
	// before Open returns. Opening with a version below the stored version
	// fails with ErrVersionTooLow.
	Open(name string, version uint64, upgrade UpgradeFunc) (Connection, error)

	// DeleteDatabase removes the named database and everything in it.
	// It fails with ErrBlocked while any connection to it is still open.
	DeleteDatabase(name string) error
}

// Connection is one open session to a database. It is safe for concurrent
// use; every operation runs in its own transaction obtained via Begin.
type Connection interface {
	// Begin opens one transaction scoped to exactly the named store.
	Begin(store string, mode Mode) (Txn, error)
	// Close releases the session. Transactions begun earlier stay valid
	// until they commit or roll back.
	Close() error
}

// Txn is a single-store transaction. Exactly one of Commit or Rollback must
// be called; ReadOnly transactions are released via Rollback.
type Txn interface {
	// Store returns the handle bound to the transaction's store.
	Store() Store
	Commit() error
	Rollback() error
}

// Store is the per-transaction handle to one store. All byte slices
// returned by query methods are copies and remain valid after the
// transaction ends.
type Store interface {
	// Insert writes a new record, failing with ErrKeyExists on duplicates.
	Insert(key Key, value []byte) error
	// Put writes a record, replacing any existing one (upsert).
	Put(key Key, value []byte) error
	// Get retrieves the record value for an exact key.
	Get(key Key) (value []byte, found bool, err error)
	// GetKey performs a key-only lookup: it reports whether the key exists
	// without fetching the record value.
	GetKey(key Key) (Key, bool, error)
	// Delete removes a record. Deleting an absent key is a no-op.
	Delete(key Key) error
	// Clear removes all records. The key generator is not reset.
	Clear() error
	// Count returns the number of records in the store.
	Count() (uint64, error)
	// NextSequence returns the next value of the per-store key generator.
	// Only valid in ReadWrite transactions.
	NextSequence() (uint64, error)
	// Index returns the handle for a declared secondary index.
	Index(name string) (Index, error)
	// OpenCursor opens a cursor over all records in ascending key order.
	OpenCursor() (Cursor, error)
}

// Index is the per-transaction handle to one secondary index.
type Index interface {
	// GetAll returns all records whose index key falls into the range,
	// ordered by index key.
	GetAll(query KeyRange) ([]Record, error)
}

// Cursor traverses records in ascending key order. Usage:
//
//	cur, _ := store.OpenCursor()
//	for cur.Next() {
//		_ = cur.Key()
//		_ = cur.Value()
//	}
//	if err := cur.Err(); err != nil { ... }
type Cursor interface {
	// Next advances to the next record; the first call positions the cursor
	// at the first record. It returns false once the cursor is exhausted or
	// failed (see Err).
	Next() bool
	// Key returns the primary key of the current record.
	Key() Key
	// Value returns the value of the current record.
	Value() []byte
	// Err returns the first error encountered during traversal, if any.
	Err() error
}
