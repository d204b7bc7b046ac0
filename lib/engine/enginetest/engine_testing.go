package enginetest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/UndeffinedDev/Indexa/lib/engine"
)

// EngineFactory creates a fresh, empty engine instance for one test.
type EngineFactory func(t testing.TB) engine.Engine

// RunEngineTests runs the conformance suite for an engine implementation.
func RunEngineTests(t *testing.T, name string, factory EngineFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("OpenCreatesStores", func(t *testing.T) {
			testOpenCreatesStores(t, factory(t))
		})

		t.Run("VersionLifecycle", func(t *testing.T) {
			testVersionLifecycle(t, factory(t))
		})

		t.Run("Insert&Get", func(t *testing.T) {
			testInsertGet(t, factory(t))
		})

		t.Run("Put", func(t *testing.T) {
			testPut(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("GetKey", func(t *testing.T) {
			testGetKey(t, factory(t))
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory(t))
		})

		t.Run("Count", func(t *testing.T) {
			testCount(t, factory(t))
		})

		t.Run("NextSequence", func(t *testing.T) {
			testNextSequence(t, factory(t))
		})

		t.Run("CursorOrder", func(t *testing.T) {
			testCursorOrder(t, factory(t))
		})

		t.Run("Index", func(t *testing.T) {
			testIndex(t, factory(t))
		})

		t.Run("IndexBinaryStringKeys", func(t *testing.T) {
			testIndexBinaryStringKeys(t, factory(t))
		})

		t.Run("ReadOnlyRejectsWrites", func(t *testing.T) {
			testReadOnlyRejectsWrites(t, factory(t))
		})

		t.Run("BlockedDelete", func(t *testing.T) {
			testBlockedDelete(t, factory(t))
		})

		t.Run("Persistence", func(t *testing.T) {
			testPersistence(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

const testDB = "enginetest"

// createStores returns an upgrade func that creates the given stores if
// they do not exist yet.
func createStores(stores map[string]engine.StoreOptions) engine.UpgradeFunc {
	return func(txn engine.UpgradeTxn, _, _ uint64) error {
		for name, opts := range stores {
			if txn.HasStore(name) {
				continue
			}
			if err := txn.CreateStore(name, opts); err != nil {
				return err
			}
		}
		return nil
	}
}

// open opens the shared test database with a single plain "items" store.
func open(t testing.TB, eng engine.Engine, version uint64) engine.Connection {
	t.Helper()
	conn, err := eng.Open(testDB, version, createStores(map[string]engine.StoreOptions{
		"items": {},
	}))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return conn
}

// inTxn runs fn in a transaction on the "items" store and commits readwrite
// transactions.
func inTxn(t testing.TB, conn engine.Connection, mode engine.Mode, fn func(st engine.Store) error) {
	t.Helper()
	txn, err := conn.Begin("items", mode)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := fn(txn.Store()); err != nil {
		_ = txn.Rollback()
		t.Fatalf("store operation failed: %v", err)
	}
	if mode == engine.ReadWrite {
		if err := txn.Commit(); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
	} else {
		_ = txn.Rollback()
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testOpenCreatesStores(t *testing.T, eng engine.Engine) {
	conn := open(t, eng, 1)
	defer conn.Close()

	txn, err := conn.Begin("items", engine.ReadOnly)
	if err != nil {
		t.Fatalf("Begin on created store failed: %v", err)
	}
	_ = txn.Rollback()

	if _, err := conn.Begin("nonexistent", engine.ReadOnly); !errors.Is(err, engine.ErrUnknownStore) {
		t.Errorf("Begin on unknown store: expected ErrUnknownStore, got %v", err)
	}
}

func testVersionLifecycle(t *testing.T, eng engine.Engine) {
	upgrades := 0
	openAt := func(version uint64, stores map[string]engine.StoreOptions) (engine.Connection, error) {
		inner := createStores(stores)
		return eng.Open(testDB, version, func(txn engine.UpgradeTxn, oldV, newV uint64) error {
			upgrades++
			if newV != version {
				t.Errorf("upgrade newVersion = %d, want %d", newV, version)
			}
			return inner(txn, oldV, newV)
		})
	}

	conn, err := openAt(1, map[string]engine.StoreOptions{"items": {}})
	if err != nil {
		t.Fatalf("initial open failed: %v", err)
	}
	if upgrades != 1 {
		t.Errorf("expected 1 upgrade after first open, got %d", upgrades)
	}
	_ = conn.Close()

	// same version again: no upgrade
	conn, err = openAt(1, map[string]engine.StoreOptions{"items": {}})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if upgrades != 1 {
		t.Errorf("upgrade must not run when the version is unchanged (got %d)", upgrades)
	}
	_ = conn.Close()

	// version bump: upgrade runs again and can add stores
	conn, err = openAt(2, map[string]engine.StoreOptions{"items": {}, "extra": {}})
	if err != nil {
		t.Fatalf("version bump open failed: %v", err)
	}
	if upgrades != 2 {
		t.Errorf("expected 2 upgrades after version bump, got %d", upgrades)
	}
	if txn, err := conn.Begin("extra", engine.ReadOnly); err != nil {
		t.Errorf("store added during upgrade is not usable: %v", err)
	} else {
		_ = txn.Rollback()
	}
	_ = conn.Close()

	// version below stored: permanent failure
	if _, err := eng.Open(testDB, 1, nil); !errors.Is(err, engine.ErrVersionTooLow) {
		t.Errorf("expected ErrVersionTooLow, got %v", err)
	}
}

func testInsertGet(t *testing.T, eng engine.Engine) {
	conn := open(t, eng, 1)
	defer conn.Close()

	key := engine.StringKey("a")
	value := []byte(`{"v":1}`)

	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		return st.Insert(key, value)
	})

	inTxn(t, conn, engine.ReadOnly, func(st engine.Store) error {
		got, found, err := st.Get(key)
		if err != nil {
			return err
		}
		if !found {
			t.Errorf("expected key %s to exist after Insert", key)
		}
		if !bytes.Equal(got, value) {
			t.Errorf("expected value %s, got %s", value, got)
		}

		_, found, err = st.Get(engine.StringKey("missing"))
		if err != nil {
			return err
		}
		if found {
			t.Errorf("expected missing key to return found=false")
		}
		return nil
	})

	// duplicate insert fails with ErrKeyExists
	txn, err := conn.Begin("items", engine.ReadWrite)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := txn.Store().Insert(key, value); !errors.Is(err, engine.ErrKeyExists) {
		t.Errorf("duplicate Insert: expected ErrKeyExists, got %v", err)
	}
	_ = txn.Rollback()
}

func testPut(t *testing.T, eng engine.Engine) {
	conn := open(t, eng, 1)
	defer conn.Close()

	key := engine.UintKey(7)

	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		return st.Put(key, []byte(`{"v":"old"}`))
	})
	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		return st.Put(key, []byte(`{"v":"new"}`))
	})

	inTxn(t, conn, engine.ReadOnly, func(st engine.Store) error {
		got, found, err := st.Get(key)
		if err != nil || !found {
			t.Fatalf("Get after Put: found=%v err=%v", found, err)
		}
		if !bytes.Equal(got, []byte(`{"v":"new"}`)) {
			t.Errorf("Put must replace: got %s", got)
		}
		return nil
	})
}

func testDelete(t *testing.T, eng engine.Engine) {
	conn := open(t, eng, 1)
	defer conn.Close()

	key := engine.StringKey("gone")

	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		return st.Insert(key, []byte(`1`))
	})
	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		return st.Delete(key)
	})
	inTxn(t, conn, engine.ReadOnly, func(st engine.Store) error {
		_, found, err := st.Get(key)
		if err != nil {
			return err
		}
		if found {
			t.Errorf("expected key to be gone after Delete")
		}
		return nil
	})

	// deleting an absent key is a no-op, not an error
	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		return st.Delete(engine.StringKey("never-existed"))
	})
}

func testGetKey(t *testing.T, eng engine.Engine) {
	conn := open(t, eng, 1)
	defer conn.Close()

	key := engine.UintKey(1)

	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		return st.Insert(key, []byte(`{"big":"record"}`))
	})

	inTxn(t, conn, engine.ReadOnly, func(st engine.Store) error {
		got, found, err := st.GetKey(key)
		if err != nil {
			return err
		}
		if !found || !got.Equal(key) {
			t.Errorf("GetKey(%s) = (%s, %v), want (%s, true)", key, got, found, key)
		}

		_, found, err = st.GetKey(engine.UintKey(99))
		if err != nil {
			return err
		}
		if found {
			t.Errorf("GetKey on absent key must report found=false")
		}
		return nil
	})
}

func testClear(t *testing.T, eng engine.Engine) {
	conn := open(t, eng, 1)
	defer conn.Close()

	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		for i := 0; i < 10; i++ {
			if err := st.Insert(engine.UintKey(uint64(i)), []byte(`0`)); err != nil {
				return err
			}
		}
		return nil
	})

	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		return st.Clear()
	})

	inTxn(t, conn, engine.ReadOnly, func(st engine.Store) error {
		n, err := st.Count()
		if err != nil {
			return err
		}
		if n != 0 {
			t.Errorf("Count after Clear = %d, want 0", n)
		}
		return nil
	})

	// the key generator must survive a Clear
	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		seq, err := st.NextSequence()
		if err != nil {
			return err
		}
		if seq == 1 {
			t.Errorf("Clear must not reset the sequence (got %d)", seq)
		}
		return nil
	})
}

func testCount(t *testing.T, eng engine.Engine) {
	conn := open(t, eng, 1)
	defer conn.Close()

	const n = 25
	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		for i := 0; i < n; i++ {
			if err := st.Insert(engine.UintKey(uint64(i)), []byte(`0`)); err != nil {
				return err
			}
		}
		return nil
	})

	inTxn(t, conn, engine.ReadOnly, func(st engine.Store) error {
		got, err := st.Count()
		if err != nil {
			return err
		}
		if got != n {
			t.Errorf("Count = %d, want %d", got, n)
		}
		return nil
	})
}

func testNextSequence(t *testing.T, eng engine.Engine) {
	conn := open(t, eng, 1)
	defer conn.Close()

	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		for want := uint64(1); want <= 3; want++ {
			seq, err := st.NextSequence()
			if err != nil {
				return err
			}
			if seq != want {
				t.Errorf("NextSequence = %d, want %d", seq, want)
			}
		}
		return nil
	})

	// sequences are per store and persist across transactions
	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		seq, err := st.NextSequence()
		if err != nil {
			return err
		}
		if seq != 4 {
			t.Errorf("NextSequence after reopen txn = %d, want 4", seq)
		}
		return nil
	})
}

func testCursorOrder(t *testing.T, eng engine.Engine) {
	conn := open(t, eng, 1)
	defer conn.Close()

	// insert out of order; numeric keys must come back first, ascending,
	// then string keys in lexicographic order
	keys := []engine.Key{
		engine.StringKey("b"),
		engine.UintKey(3),
		engine.StringKey("a"),
		engine.UintKey(1),
		engine.UintKey(2),
	}
	want := []engine.Key{
		engine.UintKey(1),
		engine.UintKey(2),
		engine.UintKey(3),
		engine.StringKey("a"),
		engine.StringKey("b"),
	}

	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		for _, k := range keys {
			if err := st.Insert(k, []byte(`0`)); err != nil {
				return err
			}
		}
		return nil
	})

	inTxn(t, conn, engine.ReadOnly, func(st engine.Store) error {
		cur, err := st.OpenCursor()
		if err != nil {
			return err
		}
		var got []engine.Key
		for cur.Next() {
			got = append(got, cur.Key())
		}
		if err := cur.Err(); err != nil {
			return err
		}
		if len(got) != len(want) {
			t.Fatalf("cursor visited %d records, want %d", len(got), len(want))
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Errorf("cursor position %d: got %s, want %s", i, got[i], want[i])
			}
		}
		return nil
	})
}

func testIndex(t *testing.T, eng engine.Engine) {
	conn, err := eng.Open(testDB, 1, createStores(map[string]engine.StoreOptions{
		"users": {
			KeyPath:       "id",
			AutoIncrement: true,
			Indexes:       []engine.IndexSchema{{Name: "byAge", KeyPath: "age"}},
		},
	}))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()

	type user struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
		Age  uint64 `json:"age"`
	}
	users := []user{
		{ID: 1, Name: "Alice", Age: 30},
		{ID: 2, Name: "Bob", Age: 25},
		{ID: 3, Name: "Carol", Age: 30},
		{ID: 4, Name: "Dave", Age: 40},
	}

	txn, err := conn.Begin("users", engine.ReadWrite)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for _, u := range users {
		raw, _ := json.Marshal(u)
		if err := txn.Store().Insert(engine.UintKey(u.ID), raw); err != nil {
			t.Fatalf("Insert %s failed: %v", u.Name, err)
		}
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	queryNames := func(q engine.KeyRange) []string {
		t.Helper()
		txn, err := conn.Begin("users", engine.ReadOnly)
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		defer txn.Rollback()

		idx, err := txn.Store().Index("byAge")
		if err != nil {
			t.Fatalf("Index failed: %v", err)
		}
		recs, err := idx.GetAll(q)
		if err != nil {
			t.Fatalf("GetAll failed: %v", err)
		}
		var names []string
		for _, rec := range recs {
			var u user
			if err := json.Unmarshal(rec.Value, &u); err != nil {
				t.Fatalf("record decode failed: %v", err)
			}
			names = append(names, u.Name)
		}
		return names
	}

	assertNames := func(got, want []string) {
		t.Helper()
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("index query returned %v, want %v", got, want)
		}
	}

	// exact match returns all records with that index key
	assertNames(queryNames(engine.Only(engine.UintKey(30))), []string{"Alice", "Carol"})

	// range queries honor bounds and openness
	assertNames(queryNames(engine.Bound(engine.UintKey(25), engine.UintKey(30), false, false)), []string{"Bob", "Alice", "Carol"})
	assertNames(queryNames(engine.Bound(engine.UintKey(25), engine.UintKey(30), true, true)), nil)
	assertNames(queryNames(engine.LowerBound(engine.UintKey(31), false)), []string{"Dave"})

	// index entries follow updates and deletes
	txn, err = conn.Begin("users", engine.ReadWrite)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	raw, _ := json.Marshal(user{ID: 2, Name: "Bob", Age: 30})
	if err := txn.Store().Put(engine.UintKey(2), raw); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := txn.Store().Delete(engine.UintKey(4)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	assertNames(queryNames(engine.Only(engine.UintKey(25))), nil)
	assertNames(queryNames(engine.Only(engine.UintKey(30))), []string{"Alice", "Bob", "Carol"})
	assertNames(queryNames(engine.Only(engine.UintKey(40))), nil)

	// undeclared index names fail
	txn, err = conn.Begin("users", engine.ReadOnly)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := txn.Store().Index("nonexistent"); !errors.Is(err, engine.ErrUnknownIndex) {
		t.Errorf("expected ErrUnknownIndex, got %v", err)
	}
	_ = txn.Rollback()
}

// testIndexBinaryStringKeys pins down index ordering for string keys that
// contain NUL bytes: "a" must sort before "a\x00", and an exact query for
// "a" must not be shadowed by the longer key.
func testIndexBinaryStringKeys(t *testing.T, eng engine.Engine) {
	conn, err := eng.Open(testDB, 1, createStores(map[string]engine.StoreOptions{
		"docs": {
			KeyPath: "id",
			Indexes: []engine.IndexSchema{{Name: "byName", KeyPath: "name"}},
		},
	}))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()

	type doc struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	}
	docs := []doc{
		{ID: 1, Name: "a\x00"},
		{ID: 2, Name: "a"},
		{ID: 3, Name: "a\x00b"},
		{ID: 4, Name: "b"},
	}

	txn, err := conn.Begin("docs", engine.ReadWrite)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for _, d := range docs {
		raw, _ := json.Marshal(d)
		if err := txn.Store().Insert(engine.UintKey(d.ID), raw); err != nil {
			t.Fatalf("Insert %d failed: %v", d.ID, err)
		}
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	queryIDs := func(q engine.KeyRange) []uint64 {
		t.Helper()
		txn, err := conn.Begin("docs", engine.ReadOnly)
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		defer txn.Rollback()

		idx, err := txn.Store().Index("byName")
		if err != nil {
			t.Fatalf("Index failed: %v", err)
		}
		recs, err := idx.GetAll(q)
		if err != nil {
			t.Fatalf("GetAll failed: %v", err)
		}
		var ids []uint64
		for _, rec := range recs {
			var d doc
			if err := json.Unmarshal(rec.Value, &d); err != nil {
				t.Fatalf("record decode failed: %v", err)
			}
			ids = append(ids, d.ID)
		}
		return ids
	}

	assertIDs := func(got, want []uint64) {
		t.Helper()
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("index query returned %v, want %v", got, want)
		}
	}

	// exact matches are never shadowed by a longer NUL-bearing sibling
	assertIDs(queryIDs(engine.Only(engine.StringKey("a"))), []uint64{2})
	assertIDs(queryIDs(engine.Only(engine.StringKey("a\x00"))), []uint64{1})
	assertIDs(queryIDs(engine.Only(engine.StringKey("a\x00b"))), []uint64{3})

	// a full scan returns entries in index key order: "a" < "a\x00" < "a\x00b" < "b"
	assertIDs(queryIDs(engine.KeyRange{}), []uint64{2, 1, 3, 4})

	// range bounds apply in the same order
	assertIDs(queryIDs(engine.Bound(engine.StringKey("a"), engine.StringKey("a\x00b"), true, false)), []uint64{1, 3})
	assertIDs(queryIDs(engine.UpperBound(engine.StringKey("a\x00"), true)), []uint64{2})
}

func testReadOnlyRejectsWrites(t *testing.T, eng engine.Engine) {
	conn := open(t, eng, 1)
	defer conn.Close()

	txn, err := conn.Begin("items", engine.ReadOnly)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer txn.Rollback()

	if err := txn.Store().Insert(engine.UintKey(1), []byte(`0`)); !errors.Is(err, engine.ErrTxnReadOnly) {
		t.Errorf("Insert in readonly txn: expected ErrTxnReadOnly, got %v", err)
	}
	if err := txn.Store().Clear(); !errors.Is(err, engine.ErrTxnReadOnly) {
		t.Errorf("Clear in readonly txn: expected ErrTxnReadOnly, got %v", err)
	}
}

func testBlockedDelete(t *testing.T, eng engine.Engine) {
	conn := open(t, eng, 1)

	if err := eng.DeleteDatabase(testDB); !errors.Is(err, engine.ErrBlocked) {
		t.Errorf("DeleteDatabase with open connection: expected ErrBlocked, got %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := eng.DeleteDatabase(testDB); err != nil {
		t.Fatalf("DeleteDatabase after Close failed: %v", err)
	}

	// deleting a database that does not exist is a no-op
	if err := eng.DeleteDatabase(testDB); err != nil {
		t.Errorf("DeleteDatabase on absent database: %v", err)
	}

	// a fresh open starts from version zero again
	upgraded := false
	conn, err := eng.Open(testDB, 1, func(txn engine.UpgradeTxn, oldV, _ uint64) error {
		upgraded = true
		if oldV != 0 {
			t.Errorf("oldVersion after delete = %d, want 0", oldV)
		}
		return txn.CreateStore("items", engine.StoreOptions{})
	})
	if err != nil {
		t.Fatalf("reopen after delete failed: %v", err)
	}
	if !upgraded {
		t.Errorf("upgrade must run after the database was deleted")
	}
	_ = conn.Close()
}

func testPersistence(t *testing.T, eng engine.Engine) {
	key := engine.StringKey("persisted")
	value := []byte(`{"v":42}`)

	conn := open(t, eng, 1)
	inTxn(t, conn, engine.ReadWrite, func(st engine.Store) error {
		return st.Insert(key, value)
	})
	if err := conn.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	conn = open(t, eng, 1)
	defer conn.Close()
	inTxn(t, conn, engine.ReadOnly, func(st engine.Store) error {
		got, found, err := st.Get(key)
		if err != nil {
			return err
		}
		if !found {
			t.Fatalf("record lost after close/reopen")
		}
		if !bytes.Equal(got, value) {
			t.Errorf("expected value %s after reopen, got %s", value, got)
		}
		return nil
	})
}
