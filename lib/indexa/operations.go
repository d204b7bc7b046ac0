package indexa

import (
	"errors"
	"fmt"
	"math"

	"github.com/UndeffinedDev/Indexa/lib/engine"
)

// Re-exported engine types so callers of the access layer rarely need to
// import lib/engine directly.
type (
	// Key identifies one record (docu see engine.Key).
	Key = engine.Key
	// Record is one stored entry (docu see engine.Record).
	Record = engine.Record
	// KeyRange selects index entries (docu see engine.KeyRange).
	KeyRange = engine.KeyRange
)

var (
	// errKeyPathCodec is raised when a store declares a key path but the
	// configured serializer cannot read record fields.
	errKeyPathCodec = errors.New("store has a key path but the serializer does not support field access")
	// errNoKey is raised when a write can derive no key for the record.
	errNoKey = errors.New("record carries no key and the store has no key generator")
)

// --------------------------------------------------------------------------
// Transaction helpers
// --------------------------------------------------------------------------

// view runs fn inside one readonly transaction on the store.
func (d *Database) view(op, store string, fn func(st engine.Store) error) error {
	countOp(op)
	txn, err := d.acquire(store, engine.ReadOnly)
	if err != nil {
		countOpError(op)
		return err
	}
	defer func() { _ = txn.Rollback() }()

	if err := fn(txn.Store()); err != nil {
		countOpError(op)
		return err
	}
	return nil
}

// mutate runs fn inside one readwrite transaction on the store, commits, and
// triggers the notification cycle as a background continuation. fn returning
// an error rolls the transaction back and suppresses the notification.
func (d *Database) mutate(op, store string, fn func(st engine.Store) error) error {
	countOp(op)
	txn, err := d.acquire(store, engine.ReadWrite)
	if err != nil {
		countOpError(op)
		return err
	}
	if err := fn(txn.Store()); err != nil {
		_ = txn.Rollback()
		countOpError(op)
		return err
	}
	if err := txn.Commit(); err != nil {
		countOpError(op)
		return NewError(KindTransaction, op, err)
	}

	// fire-and-continue: the caller never waits for listener delivery
	go d.notify(store)

	return nil
}

// --------------------------------------------------------------------------
// Key resolution
// --------------------------------------------------------------------------

// keyFromField converts a value read from a record's key path into a Key.
func keyFromField(v any) (engine.Key, error) {
	switch n := v.(type) {
	case string:
		return engine.StringKey(n), nil
	case uint64:
		return engine.UintKey(n), nil
	case float64:
		if n < 0 || n != math.Trunc(n) {
			return engine.Key{}, fmt.Errorf("key field %v is not a non-negative integer", n)
		}
		return engine.UintKey(uint64(n)), nil
	default:
		return engine.Key{}, fmt.Errorf("key field type %T is not a valid key", v)
	}
}

// zeroKeyField reports whether a key-path value is the zero value of its
// type. Serialized structs always carry their key field, so for generator
// stores a zero value means "no key assigned yet", not key 0.
func zeroKeyField(v any) bool {
	switch n := v.(type) {
	case nil:
		return true
	case string:
		return n == ""
	case float64:
		return n == 0
	case uint64:
		return n == 0
	default:
		return false
	}
}

// resolveWriteKey derives the key for a write: for key-path stores it reads
// the key field (assigning and injecting the next sequence value when the
// field is absent - or zero on a generator store - and the store
// auto-increments); for stores without a key path the sequence alone keys
// the record. The returned data is the value to store, rewritten when an id
// was injected.
func (d *Database) resolveWriteKey(op string, st engine.Store, opts engine.StoreOptions, data []byte) (engine.Key, []byte, error) {
	if opts.KeyPath == "" {
		if !opts.AutoIncrement {
			return engine.Key{}, nil, NewError(KindRequest, op, errNoKey)
		}
		seq, err := st.NextSequence()
		if err != nil {
			return engine.Key{}, nil, NewError(KindRequest, op, err)
		}
		return engine.UintKey(seq), data, nil
	}

	codec, err := d.fieldCodec(op)
	if err != nil {
		return engine.Key{}, nil, err
	}

	field, found, err := codec.ExtractField(data, opts.KeyPath)
	if err != nil {
		return engine.Key{}, nil, NewError(KindRequest, op, err)
	}
	if found && opts.AutoIncrement && zeroKeyField(field) {
		// a zero key field on a generator store is an unassigned key
		found = false
	}
	if found {
		key, err := keyFromField(field)
		if err != nil {
			return engine.Key{}, nil, NewError(KindRequest, op, err)
		}
		return key, data, nil
	}

	if !opts.AutoIncrement {
		return engine.Key{}, nil, NewError(KindRequest, op, errNoKey)
	}

	// assign the next sequence value and write it back into the record, so
	// the stored value carries its own id
	seq, err := st.NextSequence()
	if err != nil {
		return engine.Key{}, nil, NewError(KindRequest, op, err)
	}
	data, err = codec.InjectField(data, opts.KeyPath, seq)
	if err != nil {
		return engine.Key{}, nil, NewError(KindRequest, op, err)
	}
	return engine.UintKey(seq), data, nil
}

// storeOptions returns the declared options for a store. Stores the schema
// does not mention behave as externally keyed, index-less stores.
func (d *Database) storeOptions(store string) engine.StoreOptions {
	return d.schema[store]
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Add inserts a new record and returns its key (extracted from the record's
// key path or assigned by the store's key generator). Adding a record whose
// key is already taken fails with a KindRequest error.
func (d *Database) Add(store string, value any) (engine.Key, error) {
	const op = "add"

	data, err := d.serializer.Serialize(value)
	if err != nil {
		return engine.Key{}, NewError(KindRequest, op, err)
	}

	var key engine.Key
	err = d.mutate(op, store, func(st engine.Store) error {
		var data2 []byte
		key, data2, err = d.resolveWriteKey(op, st, d.storeOptions(store), data)
		if err != nil {
			return err
		}
		if err := st.Insert(key, data2); err != nil {
			return NewError(KindRequest, op, err)
		}
		return nil
	})
	if err != nil {
		return engine.Key{}, err
	}
	return key, nil
}

// Update writes a record with insert-or-replace semantics and returns its
// key. No "must exist" check is performed.
func (d *Database) Update(store string, value any) (engine.Key, error) {
	const op = "update"

	data, err := d.serializer.Serialize(value)
	if err != nil {
		return engine.Key{}, NewError(KindRequest, op, err)
	}

	var key engine.Key
	err = d.mutate(op, store, func(st engine.Store) error {
		var data2 []byte
		key, data2, err = d.resolveWriteKey(op, st, d.storeOptions(store), data)
		if err != nil {
			return err
		}
		if err := st.Put(key, data2); err != nil {
			return NewError(KindRequest, op, err)
		}
		return nil
	})
	if err != nil {
		return engine.Key{}, err
	}
	return key, nil
}

// Delete removes the record with the given key. Deleting an absent key is a
// no-op, not an error.
func (d *Database) Delete(store string, key engine.Key) error {
	return d.mutate("delete", store, func(st engine.Store) error {
		if err := st.Delete(key); err != nil {
			return NewError(KindRequest, "delete", err)
		}
		return nil
	})
}

// Clear removes all records in the store.
func (d *Database) Clear(store string) error {
	return d.mutate("clear", store, func(st engine.Store) error {
		if err := st.Clear(); err != nil {
			return NewError(KindRequest, "clear", err)
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Bulk Operations
// --------------------------------------------------------------------------

// BulkResult is the per-item outcome of a bulk write, index-aligned with the
// input values. Exactly one of Key and Err is meaningful.
type BulkResult struct {
	Key engine.Key
	Err error
}

// BulkAdd inserts all values inside one transaction and returns one result
// per input, index-aligned. A failed item rejects only its own slot; the
// transaction still commits for the others, and the store notifies its
// listeners once for the whole call. Only a transaction-level failure (which
// applies none of the items) is returned as the call's own error.
func (d *Database) BulkAdd(store string, values []any) ([]BulkResult, error) {
	return d.bulkWrite("bulkAdd", store, values, func(st engine.Store) func(engine.Key, []byte) error {
		return func(key engine.Key, data []byte) error { return st.Insert(key, data) }
	})
}

// BulkUpdate writes all values with insert-or-replace semantics inside one
// transaction. Same per-item partial-failure contract as BulkAdd.
func (d *Database) BulkUpdate(store string, values []any) ([]BulkResult, error) {
	return d.bulkWrite("bulkUpdate", store, values, func(st engine.Store) func(engine.Key, []byte) error {
		return func(key engine.Key, data []byte) error { return st.Put(key, data) }
	})
}

func (d *Database) bulkWrite(op, store string, values []any, write func(st engine.Store) func(engine.Key, []byte) error) ([]BulkResult, error) {
	results := make([]BulkResult, len(values))
	opts := d.storeOptions(store)

	err := d.mutate(op, store, func(st engine.Store) error {
		writeOne := write(st)
		for i, value := range values {
			data, err := d.serializer.Serialize(value)
			if err != nil {
				results[i].Err = NewError(KindRequest, op, err)
				continue
			}
			key, data, err := d.resolveWriteKey(op, st, opts, data)
			if err != nil {
				results[i].Err = err
				continue
			}
			if err := writeOne(key, data); err != nil {
				results[i].Err = NewError(KindRequest, op, err)
				continue
			}
			results[i].Key = key
		}
		return nil
	})
	if err != nil {
		// transaction-level failure: nothing was applied
		return nil, err
	}
	return results, nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get looks up one record by key and deserializes it into dest. The boolean
// return value reports whether the key was found; an absent key is not an
// error.
func (d *Database) Get(store string, key engine.Key, dest any) (bool, error) {
	const op = "get"
	var found bool
	err := d.view(op, store, func(st engine.Store) error {
		data, ok, err := st.Get(key)
		if err != nil {
			return NewError(KindRequest, op, err)
		}
		if !ok {
			return nil
		}
		if err := d.serializer.Deserialize(data, dest); err != nil {
			return NewError(KindRequest, op, err)
		}
		found = true
		return nil
	})
	return found, err
}

// GetAll returns every record in the store in ascending key order.
func (d *Database) GetAll(store string) ([]Record, error) {
	const op = "getAll"
	var records []Record
	err := d.view(op, store, func(st engine.Store) error {
		var err error
		records, err = readAll(st)
		if err != nil {
			return NewError(KindRequest, op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetByIndex returns all records whose entry in the named secondary index
// falls into the query range, ordered by index key. Querying an undeclared
// index is a KindTransaction error.
func (d *Database) GetByIndex(store, index string, query KeyRange) ([]Record, error) {
	const op = "getByIndex"
	var records []Record
	err := d.view(op, store, func(st engine.Store) error {
		idx, err := st.Index(index)
		if err != nil {
			return NewError(KindTransaction, op, err)
		}
		records, err = idx.GetAll(query)
		if err != nil {
			return NewError(KindRequest, op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of records in the store.
func (d *Database) Count(store string) (uint64, error) {
	const op = "count"
	var n uint64
	err := d.view(op, store, func(st engine.Store) error {
		var err error
		n, err = st.Count()
		if err != nil {
			return NewError(KindRequest, op, err)
		}
		return nil
	})
	return n, err
}

// Exists reports whether a record with the given key exists. The check is a
// key-only lookup, the record value is never fetched.
func (d *Database) Exists(store string, key engine.Key) (bool, error) {
	const op = "exists"
	var found bool
	err := d.view(op, store, func(st engine.Store) error {
		_, ok, err := st.GetKey(key)
		if err != nil {
			return NewError(KindRequest, op, err)
		}
		found = ok
		return nil
	})
	return found, err
}

// Iterate opens a cursor over the store and invokes fn for every record in
// ascending key order, each record exactly once. fn returning an error stops
// the traversal and surfaces that error to the caller.
func (d *Database) Iterate(store string, fn func(key engine.Key, value []byte) error) error {
	const op = "iterate"
	return d.view(op, store, func(st engine.Store) error {
		cur, err := st.OpenCursor()
		if err != nil {
			return NewError(KindRequest, op, err)
		}
		for cur.Next() {
			if err := fn(cur.Key(), cur.Value()); err != nil {
				return err
			}
		}
		if err := cur.Err(); err != nil {
			return NewError(KindRequest, op, err)
		}
		return nil
	})
}

// readAll collects every record of the store in ascending key order. Shared
// by GetAll and the notification cycle.
func readAll(st engine.Store) ([]Record, error) {
	cur, err := st.OpenCursor()
	if err != nil {
		return nil, err
	}
	var records []Record
	for cur.Next() {
		records = append(records, Record{Key: cur.Key(), Value: cur.Value()})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
