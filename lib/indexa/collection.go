package indexa

import "github.com/UndeffinedDev/Indexa/lib/engine"

// --------------------------------------------------------------------------
// Typed Collection
// --------------------------------------------------------------------------

// Collection is the schema-typed view on one store: the same operations as
// the Database methods, with values decoded into T instead of raw records.
type Collection[T any] struct {
	db    *Database
	store string
}

// NewCollection binds a typed collection to one store of the database.
func NewCollection[T any](db *Database, store string) *Collection[T] {
	return &Collection[T]{db: db, store: store}
}

// Store returns the name of the underlying store.
func (c *Collection[T]) Store() string {
	return c.store
}

// Add inserts a new record (docu see Database.Add).
func (c *Collection[T]) Add(value T) (engine.Key, error) {
	return c.db.Add(c.store, value)
}

// Update upserts a record (docu see Database.Update).
func (c *Collection[T]) Update(value T) (engine.Key, error) {
	return c.db.Update(c.store, value)
}

// Get looks up one record by key. The boolean reports whether it was found.
func (c *Collection[T]) Get(key engine.Key) (T, bool, error) {
	var value T
	found, err := c.db.Get(c.store, key, &value)
	return value, found, err
}

// GetAll returns all records decoded into T, in ascending key order.
func (c *Collection[T]) GetAll() ([]T, error) {
	records, err := c.db.GetAll(c.store)
	if err != nil {
		return nil, err
	}
	return c.decode("getAll", records)
}

// GetByIndex returns the decoded records matching the index query
// (docu see Database.GetByIndex).
func (c *Collection[T]) GetByIndex(index string, query KeyRange) ([]T, error) {
	records, err := c.db.GetByIndex(c.store, index, query)
	if err != nil {
		return nil, err
	}
	return c.decode("getByIndex", records)
}

// Delete removes a record by key (docu see Database.Delete).
func (c *Collection[T]) Delete(key engine.Key) error {
	return c.db.Delete(c.store, key)
}

// Clear removes all records (docu see Database.Clear).
func (c *Collection[T]) Clear() error {
	return c.db.Clear(c.store)
}

// Count returns the number of records in the store.
func (c *Collection[T]) Count() (uint64, error) {
	return c.db.Count(c.store)
}

// Exists reports whether a key exists, without fetching the record.
func (c *Collection[T]) Exists(key engine.Key) (bool, error) {
	return c.db.Exists(c.store, key)
}

// BulkAdd inserts all values in one transaction (docu see Database.BulkAdd).
func (c *Collection[T]) BulkAdd(values []T) ([]BulkResult, error) {
	return c.db.BulkAdd(c.store, anySlice(values))
}

// BulkUpdate upserts all values in one transaction (docu see
// Database.BulkUpdate).
func (c *Collection[T]) BulkUpdate(values []T) ([]BulkResult, error) {
	return c.db.BulkUpdate(c.store, anySlice(values))
}

// Iterate visits every record in ascending key order, decoded into T.
func (c *Collection[T]) Iterate(fn func(key engine.Key, value T) error) error {
	return c.db.Iterate(c.store, func(key engine.Key, data []byte) error {
		var value T
		if err := c.db.serializer.Deserialize(data, &value); err != nil {
			return NewError(KindRequest, "iterate", err)
		}
		return fn(key, value)
	})
}

// Subscribe registers a typed change listener: every snapshot is decoded
// into []T before delivery. Records that fail to decode drop the whole
// delivery (the listener never sees a partial snapshot).
func (c *Collection[T]) Subscribe(fn func([]T)) (*Subscription, error) {
	return c.db.Subscribe(c.store, func(records []Record) {
		values, err := c.decode("subscribe", records)
		if err != nil {
			trace("typed listener on %q: decode failed: %v", c.store, err)
			return
		}
		fn(values)
	})
}

// Unsubscribe removes a subscription (docu see Database.Unsubscribe).
func (c *Collection[T]) Unsubscribe(sub *Subscription) {
	c.db.Unsubscribe(sub)
}

// decode deserializes raw records into values of T.
func (c *Collection[T]) decode(op string, records []Record) ([]T, error) {
	values := make([]T, len(records))
	for i, rec := range records {
		if err := c.db.serializer.Deserialize(rec.Value, &values[i]); err != nil {
			return nil, NewError(KindRequest, op, err)
		}
	}
	return values, nil
}

// anySlice widens a typed slice for the untyped bulk entry points.
func anySlice[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
