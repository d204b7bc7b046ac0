package indexa

import (
	"errors"

	"github.com/UndeffinedDev/Indexa/lib/engine"
	"github.com/UndeffinedDev/Indexa/lib/serializer"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Schema declares the stores a Database manages: store name to options.
// Stores missing on disk are created during the version upgrade; stores on
// disk that the schema does not mention are left untouched.
type Schema map[string]engine.StoreOptions

// Option configures a Database at construction time.
type Option func(*Database)

// WithSerializer replaces the default JSON record codec. Stores with a key
// path or secondary indexes require a serializer that also implements
// serializer.IFieldCodec (JSON does, gob does not).
func WithSerializer(s serializer.ISerializer) Option {
	return func(d *Database) {
		d.serializer = s
	}
}

// --------------------------------------------------------------------------
// Database
// --------------------------------------------------------------------------

// Database is the typed access layer over one engine database. Construction
// starts the open in the background; every operation awaits that single open
// and runs in its own transaction.
//
// Thread-safety: all methods are safe for concurrent use.
type Database struct {
	eng        engine.Engine
	name       string
	schema     Schema
	serializer serializer.ISerializer

	// connection future: ready is closed once the background open finished,
	// after which conn/openErr never change again
	ready   chan struct{}
	conn    engine.Connection
	openErr error

	subscribers *xsync.MapOf[string, *subscriberList]
}

// New creates the access layer for the database (name, version) and starts
// opening it in the background. The constructor never blocks; the first
// operation that needs the connection awaits the open. Open failure is
// permanent for the lifetime of the instance.
func New(eng engine.Engine, name string, version uint64, schema Schema, opts ...Option) *Database {
	d := &Database{
		eng:         eng,
		name:        name,
		schema:      schema,
		serializer:  serializer.NewJSONSerializer(),
		ready:       make(chan struct{}),
		subscribers: xsync.NewMapOf[string, *subscriberList](),
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.open(version)

	return d
}

// open performs the one-time engine open and memoizes the outcome.
func (d *Database) open(version uint64) {
	conn, err := d.eng.Open(d.name, version, d.createSchemaStores)
	if err != nil {
		d.openErr = NewError(KindOpen, "open", err)
		trace("open %q version %d failed: %v", d.name, version, err)
	} else {
		d.conn = conn
		trace("open %q version %d ok", d.name, version)
	}
	close(d.ready)
}

// createSchemaStores is the upgrade hook: it creates every schema store that
// does not exist yet. It runs inside the engine's open when the requested
// version exceeds the stored one.
func (d *Database) createSchemaStores(txn engine.UpgradeTxn, oldVersion, newVersion uint64) error {
	trace("upgrade %q: %d -> %d", d.name, oldVersion, newVersion)
	for name, opts := range d.schema {
		if txn.HasStore(name) {
			continue
		}
		if err := txn.CreateStore(name, opts); err != nil {
			return err
		}
	}
	return nil
}

// await blocks until the background open finished and returns its memoized
// outcome. Concurrent callers all wait on the same open.
func (d *Database) await() (engine.Connection, error) {
	<-d.ready
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.conn, nil
}

// acquire awaits the connection and begins one transaction scoped to
// exactly the named store.
func (d *Database) acquire(store string, mode engine.Mode) (engine.Txn, error) {
	conn, err := d.await()
	if err != nil {
		return nil, err
	}
	txn, err := conn.Begin(store, mode)
	if err != nil {
		return nil, NewError(KindTransaction, "begin", err)
	}
	return txn, nil
}

// fieldCodec returns the serializer's field access capability, required for
// stores with a key path.
func (d *Database) fieldCodec(op string) (serializer.IFieldCodec, error) {
	codec, ok := d.serializer.(serializer.IFieldCodec)
	if !ok {
		return nil, NewError(KindRequest, op, errKeyPathCodec)
	}
	return codec, nil
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Close awaits the pending open (if any) and releases the connection.
// Transactions begun earlier stay valid until they finish.
func (d *Database) Close() error {
	conn, err := d.await()
	if err != nil {
		return err
	}
	if err := conn.Close(); err != nil {
		return NewError(KindTransaction, "close", err)
	}
	trace("closed %q", d.name)
	return nil
}

// DeleteDatabase closes the own connection and drops the database. If
// another live connection still holds the database open the engine refuses
// and the error surfaces as KindBlocked rather than a silent hang.
func (d *Database) DeleteDatabase() error {
	// a failed open leaves nothing to close, the delete may still proceed
	if conn, err := d.await(); err == nil {
		_ = conn.Close()
	}
	if err := d.eng.DeleteDatabase(d.name); err != nil {
		kind := KindTransaction
		if errors.Is(err, engine.ErrBlocked) {
			kind = KindBlocked
		}
		return NewError(kind, "delete database", err)
	}
	trace("deleted %q", d.name)
	return nil
}
