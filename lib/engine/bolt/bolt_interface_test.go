package bolt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/UndeffinedDev/Indexa/lib/engine"
	"github.com/UndeffinedDev/Indexa/lib/engine/enginetest"
)

// TestBoltEngineConformance runs the shared engine suite against the bbolt
// implementation.
func TestBoltEngineConformance(t *testing.T) {
	enginetest.RunEngineTests(t, "Bolt", func(t testing.TB) engine.Engine {
		return NewEngine(Options{Dir: t.TempDir()})
	})
}

func TestDatabaseFileLifecycle(t *testing.T) {
	dir := t.TempDir()
	eng := NewEngine(Options{Dir: dir})

	conn, err := eng.Open("files", 1, func(txn engine.UpgradeTxn, _, _ uint64) error {
		return txn.CreateStore("items", engine.StoreOptions{})
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	path := filepath.Join(dir, "files.idx")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file at %s: %v", path, err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := eng.DeleteDatabase("files"); err != nil {
		t.Fatalf("DeleteDatabase failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected database file to be removed, stat err = %v", err)
	}
}

func TestSharedHandleAcrossConnections(t *testing.T) {
	eng := NewEngine(Options{Dir: t.TempDir()})

	upgrade := func(txn engine.UpgradeTxn, _, _ uint64) error {
		if txn.HasStore("items") {
			return nil
		}
		return txn.CreateStore("items", engine.StoreOptions{})
	}

	// two concurrent connections to the same database must share the file
	// lock instead of deadlocking on it
	conn1, err := eng.Open("shared", 1, upgrade)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	conn2, err := eng.Open("shared", 1, upgrade)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}

	txn, err := conn1.Begin("items", engine.ReadWrite)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := txn.Store().Insert(engine.UintKey(1), []byte(`1`)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// the write is visible through the other connection
	txn, err = conn2.Begin("items", engine.ReadOnly)
	if err != nil {
		t.Fatalf("Begin via second connection failed: %v", err)
	}
	_, found, err := txn.Store().Get(engine.UintKey(1))
	if err != nil || !found {
		t.Errorf("expected record via second connection, found=%v err=%v", found, err)
	}
	_ = txn.Rollback()

	// closing one connection keeps the handle alive for the other
	if err := conn1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	txn, err = conn2.Begin("items", engine.ReadOnly)
	if err != nil {
		t.Fatalf("Begin after sibling Close failed: %v", err)
	}
	_ = txn.Rollback()

	// a closed connection refuses further transactions
	if _, err := conn1.Begin("items", engine.ReadOnly); err == nil {
		t.Errorf("Begin on closed connection must fail")
	}

	_ = conn2.Close()
}
