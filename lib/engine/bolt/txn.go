package bolt

import (
	"fmt"
	"sync/atomic"

	"github.com/UndeffinedDev/Indexa/lib/engine"
	"go.etcd.io/bbolt"
)

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

type connImpl struct {
	eng    *engineImpl
	name   string
	handle *dbHandle
	closed atomic.Bool
}

// Begin opens one single-store transaction (docu see engine.Connection).
// ReadWrite transactions map to bbolt writable transactions, which bbolt
// serializes internally; the caller never manages that ordering.
func (c *connImpl) Begin(store string, mode engine.Mode) (engine.Txn, error) {
	if c.closed.Load() {
		return nil, engine.ErrConnectionClosed
	}
	opts, ok := c.handle.lookupStore(store)
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownStore, store)
	}
	tx, err := c.handle.db.Begin(mode == engine.ReadWrite)
	if err != nil {
		return nil, fmt.Errorf("bolt: begin %s txn on %q: %w", mode, store, err)
	}
	return &txnImpl{tx: tx, store: store, opts: opts}, nil
}

func (c *connImpl) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.eng.release(c.name, c.handle)
	return nil
}

// --------------------------------------------------------------------------
// Transaction
// --------------------------------------------------------------------------

type txnImpl struct {
	tx    *bbolt.Tx
	store string
	opts  engine.StoreOptions
}

func (t *txnImpl) Store() engine.Store {
	return &storeHandle{t: t}
}

func (t *txnImpl) Commit() error {
	return t.tx.Commit()
}

func (t *txnImpl) Rollback() error {
	return t.tx.Rollback()
}

func (t *txnImpl) bucket() (*bbolt.Bucket, error) {
	b := t.tx.Bucket(storeBucketName(t.store))
	if b == nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownStore, t.store)
	}
	return b, nil
}

// --------------------------------------------------------------------------
// Store handle
// --------------------------------------------------------------------------

type storeHandle struct {
	t *txnImpl
}

func (s *storeHandle) writable() error {
	if !s.t.tx.Writable() {
		return engine.ErrTxnReadOnly
	}
	return nil
}

// Insert writes a new record (docu see engine.Store). Index entries are
// written in the same transaction, so a failed extraction aborts the whole
// request instead of leaving a half-indexed record.
func (s *storeHandle) Insert(key engine.Key, value []byte) error {
	if err := s.writable(); err != nil {
		return err
	}
	if key.IsZero() {
		return engine.ErrKeyRequired
	}
	b, err := s.t.bucket()
	if err != nil {
		return err
	}
	kb := key.Encode()
	if b.Get(kb) != nil {
		return fmt.Errorf("%w: %s[%s]", engine.ErrKeyExists, s.t.store, key)
	}
	if err := s.addIndexEntries(key, value); err != nil {
		return err
	}
	return b.Put(kb, value)
}

func (s *storeHandle) Put(key engine.Key, value []byte) error {
	if err := s.writable(); err != nil {
		return err
	}
	if key.IsZero() {
		return engine.ErrKeyRequired
	}
	b, err := s.t.bucket()
	if err != nil {
		return err
	}
	kb := key.Encode()
	if old := b.Get(kb); old != nil {
		if err := s.removeIndexEntries(key, old); err != nil {
			return err
		}
	}
	if err := s.addIndexEntries(key, value); err != nil {
		return err
	}
	return b.Put(kb, value)
}

func (s *storeHandle) Get(key engine.Key) ([]byte, bool, error) {
	b, err := s.t.bucket()
	if err != nil {
		return nil, false, err
	}
	v := b.Get(key.Encode())
	if v == nil {
		return nil, false, nil
	}
	// copy out: bbolt slices are only valid during the transaction
	return append([]byte(nil), v...), true, nil
}

func (s *storeHandle) GetKey(key engine.Key) (engine.Key, bool, error) {
	b, err := s.t.bucket()
	if err != nil {
		return engine.Key{}, false, err
	}
	if b.Get(key.Encode()) == nil {
		return engine.Key{}, false, nil
	}
	return key, true, nil
}

func (s *storeHandle) Delete(key engine.Key) error {
	if err := s.writable(); err != nil {
		return err
	}
	b, err := s.t.bucket()
	if err != nil {
		return err
	}
	kb := key.Encode()
	old := b.Get(kb)
	if old == nil {
		return nil
	}
	if err := s.removeIndexEntries(key, old); err != nil {
		return err
	}
	return b.Delete(kb)
}

// Clear removes every record and index entry. The buckets themselves are
// kept so the per-store sequence survives, matching the engine contract.
func (s *storeHandle) Clear() error {
	if err := s.writable(); err != nil {
		return err
	}
	b, err := s.t.bucket()
	if err != nil {
		return err
	}
	if err := clearBucket(b); err != nil {
		return err
	}
	for _, idx := range s.t.opts.Indexes {
		ib := s.t.tx.Bucket(indexBucketName(s.t.store, idx.Name))
		if ib == nil {
			return fmt.Errorf("%w: %s.%s", engine.ErrUnknownIndex, s.t.store, idx.Name)
		}
		if err := clearBucket(ib); err != nil {
			return err
		}
	}
	return nil
}

func clearBucket(b *bbolt.Bucket) error {
	var keys [][]byte
	if err := b.ForEach(func(k, _ []byte) error {
		keys = append(keys, append([]byte(nil), k...))
		return nil
	}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *storeHandle) Count() (uint64, error) {
	b, err := s.t.bucket()
	if err != nil {
		return 0, err
	}
	var n uint64
	if err := b.ForEach(func(_, _ []byte) error {
		n++
		return nil
	}); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *storeHandle) NextSequence() (uint64, error) {
	if err := s.writable(); err != nil {
		return 0, err
	}
	b, err := s.t.bucket()
	if err != nil {
		return 0, err
	}
	return b.NextSequence()
}

func (s *storeHandle) Index(name string) (engine.Index, error) {
	for _, idx := range s.t.opts.Indexes {
		if idx.Name == name {
			return &indexHandle{t: s.t, schema: idx}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s", engine.ErrUnknownIndex, s.t.store, name)
}

func (s *storeHandle) OpenCursor() (engine.Cursor, error) {
	b, err := s.t.bucket()
	if err != nil {
		return nil, err
	}
	return &cursorImpl{c: b.Cursor()}, nil
}

// --------------------------------------------------------------------------
// Cursor
// --------------------------------------------------------------------------

type cursorImpl struct {
	c       *bbolt.Cursor
	started bool
	key     engine.Key
	value   []byte
	err     error
}

func (c *cursorImpl) Next() bool {
	if c.err != nil {
		return false
	}
	var k, v []byte
	if !c.started {
		k, v = c.c.First()
		c.started = true
	} else {
		k, v = c.c.Next()
	}
	if k == nil {
		return false
	}
	key, err := engine.DecodeKey(k)
	if err != nil {
		c.err = err
		return false
	}
	c.key = key
	c.value = append([]byte(nil), v...)
	return true
}

func (c *cursorImpl) Key() engine.Key { return c.key }

func (c *cursorImpl) Value() []byte { return c.value }

func (c *cursorImpl) Err() error { return c.err }
