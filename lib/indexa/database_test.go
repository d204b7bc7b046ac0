package indexa

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/UndeffinedDev/Indexa/lib/engine"
	"github.com/UndeffinedDev/Indexa/lib/engine/bolt"
)

// testSchema covers every keying mode: key path with generator, externally
// provided key path, generator-only, and an indexed store.
var testSchema = Schema{
	"users":  {KeyPath: "id", AutoIncrement: true},
	"items":  {KeyPath: "sku"},
	"events": {AutoIncrement: true},
	"people": {KeyPath: "id", AutoIncrement: true, Indexes: []engine.IndexSchema{
		{Name: "byAge", KeyPath: "age"},
	}},
}

// newTestDB creates a database on a fresh bolt engine in a temp directory.
func newTestDB(t *testing.T) *Database {
	t.Helper()
	eng := bolt.NewEngine(bolt.Options{Dir: t.TempDir()})
	d := New(eng, "testdb", 1, testSchema)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

type user struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// waitSnapshot receives one delivered snapshot or fails the test.
func waitSnapshot(t *testing.T, ch <-chan []Record) []Record {
	t.Helper()
	select {
	case recs := <-ch:
		return recs
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot delivery")
		return nil
	}
}

func TestOpenCreatesSchemaStores(t *testing.T) {
	d := newTestDB(t)

	for store := range testSchema {
		if _, err := d.Count(store); err != nil {
			t.Errorf("store %q not usable after open: %v", store, err)
		}
	}
}

func TestConcurrentFirstUseSharesOneOpen(t *testing.T) {
	eng := bolt.NewEngine(bolt.Options{Dir: t.TempDir()})
	d := New(eng, "testdb", 1, testSchema)
	defer func() { _ = d.Close() }()

	// hammer the database right after construction: every goroutine must
	// await the same pending open and succeed
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := d.Add("users", user{Name: fmt.Sprintf("u%d", i)}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent first use failed: %v", err)
	}

	n, err := d.Count("users")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 16 {
		t.Errorf("Count = %d, want 16", n)
	}
}

func TestOpenFailureIsPermanent(t *testing.T) {
	dir := t.TempDir()
	eng := bolt.NewEngine(bolt.Options{Dir: dir})

	// establish version 2 on disk, then ask for version 1
	d := New(eng, "testdb", 2, testSchema)
	if _, err := d.Count("users"); err != nil {
		t.Fatalf("initial open failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	stale := New(eng, "testdb", 1, testSchema)

	// every dependent operation surfaces the same open failure
	if _, err := stale.Count("users"); !IsKind(err, KindOpen) {
		t.Errorf("Count after failed open: got %v, want KindOpen", err)
	}
	if _, err := stale.Add("users", user{Name: "x"}); !IsKind(err, KindOpen) {
		t.Errorf("Add after failed open: got %v, want KindOpen", err)
	}
	if _, err := stale.Subscribe("users", func([]Record) {}); !IsKind(err, KindOpen) {
		t.Errorf("Subscribe after failed open: got %v, want KindOpen", err)
	}
	if err := stale.Close(); !IsKind(err, KindOpen) {
		t.Errorf("Close after failed open: got %v, want KindOpen", err)
	}
}

func TestUnknownStoreIsTransactionError(t *testing.T) {
	d := newTestDB(t)

	if _, err := d.Count("nope"); !IsKind(err, KindTransaction) {
		t.Errorf("Count on unknown store: got %v, want KindTransaction", err)
	}
}

func TestUpgradeKeepsExistingStores(t *testing.T) {
	dir := t.TempDir()
	eng := bolt.NewEngine(bolt.Options{Dir: dir})

	d := New(eng, "testdb", 1, Schema{"users": {KeyPath: "id", AutoIncrement: true}})
	if _, err := d.Add("users", user{Name: "Alice"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// reopen at a higher version with an extended schema: the new store is
	// created, the old one keeps its records
	d2 := New(eng, "testdb", 2, Schema{
		"users": {KeyPath: "id", AutoIncrement: true},
		"tags":  {KeyPath: "name"},
	})
	defer func() { _ = d2.Close() }()

	n, err := d2.Count("users")
	if err != nil {
		t.Fatalf("Count after upgrade failed: %v", err)
	}
	if n != 1 {
		t.Errorf("users count after upgrade = %d, want 1", n)
	}
	if _, err := d2.Count("tags"); err != nil {
		t.Errorf("new store not usable after upgrade: %v", err)
	}
}

func TestDeleteDatabase(t *testing.T) {
	dir := t.TempDir()
	eng := bolt.NewEngine(bolt.Options{Dir: dir})

	d := New(eng, "testdb", 1, testSchema)
	if _, err := d.Add("users", user{Name: "Alice"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := d.DeleteDatabase(); err != nil {
		t.Fatalf("DeleteDatabase failed: %v", err)
	}

	// a fresh instance starts from an empty database
	d2 := New(eng, "testdb", 1, testSchema)
	defer func() { _ = d2.Close() }()
	n, err := d2.Count("users")
	if err != nil {
		t.Fatalf("Count after delete failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Count after delete = %d, want 0", n)
	}
}

func TestDeleteDatabaseBlockedByOtherConnection(t *testing.T) {
	dir := t.TempDir()
	eng := bolt.NewEngine(bolt.Options{Dir: dir})

	d1 := New(eng, "testdb", 1, testSchema)
	d2 := New(eng, "testdb", 1, testSchema)

	// d1 still holds the database open, so d2 must be refused, not hang
	if _, err := d1.Count("users"); err != nil {
		t.Fatalf("d1 open failed: %v", err)
	}
	if err := d2.DeleteDatabase(); !IsKind(err, KindBlocked) {
		t.Fatalf("DeleteDatabase with live sibling: got %v, want KindBlocked", err)
	}

	if err := d1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := eng.DeleteDatabase("testdb"); err != nil {
		t.Fatalf("delete after close failed: %v", err)
	}
}
