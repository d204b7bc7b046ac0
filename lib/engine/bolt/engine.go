package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/UndeffinedDev/Indexa/lib/engine"
	"go.etcd.io/bbolt"
)

// --------------------------------------------------------------------------
// Constants and bucket layout
// --------------------------------------------------------------------------

const (
	// fileSuffix is appended to the database name to form the file name.
	fileSuffix = ".idx"
	// openTimeout bounds the wait for the bbolt file lock.
	openTimeout = 1 * time.Second
	// fileMode is the permission mask for newly created database files.
	fileMode = 0600
)

var (
	metaBucketName = []byte("__meta")
	metaVersionKey = []byte("version")

	// entrySep separates the index key from the primary key inside an
	// index bucket entry. It sorts below every payload byte of interest,
	// so entries stay grouped and ordered by index key.
	entrySep = byte(0x00)
)

func storeBucketName(store string) []byte {
	return []byte("s:" + store)
}

func indexBucketName(store, index string) []byte {
	return []byte("i:" + store + ":" + index)
}

func storeMetaKey(store string) []byte {
	return []byte("store:" + store)
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// engineImpl manages one data directory. Every database is a single bbolt
// file; open connections to the same database share one bbolt handle because
// bbolt file locks are exclusive per process.
type engineImpl struct {
	dir string

	mu      sync.Mutex
	handles map[string]*dbHandle
}

// Options configures the bolt engine.
type Options struct {
	// Dir is the directory holding the database files. Created on demand.
	Dir string
}

// NewEngine creates a bbolt-backed engine rooted at the given directory.
//
// Thread-safety: the returned engine is safe for concurrent use.
func NewEngine(opts Options) engine.Engine {
	return &engineImpl{
		dir:     opts.Dir,
		handles: make(map[string]*dbHandle),
	}
}

func (e *engineImpl) path(name string) string {
	return filepath.Join(e.dir, name+fileSuffix)
}

// Open opens or creates the database at (name, version). The upgrade
// callback runs inside a single bbolt update transaction, so store creation
// is atomic with the version bump (docu see engine.Engine).
func (e *engineImpl) Open(name string, version uint64, upgrade engine.UpgradeFunc) (engine.Connection, error) {
	if name == "" || strings.ContainsRune(name, os.PathSeparator) {
		return nil, fmt.Errorf("bolt: invalid database name %q", name)
	}
	if version == 0 {
		return nil, fmt.Errorf("bolt: database version must be positive")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.handles[name]
	if h == nil {
		if e.dir != "" {
			if err := os.MkdirAll(e.dir, 0700); err != nil {
				return nil, fmt.Errorf("bolt: create data dir: %w", err)
			}
		}
		db, err := bbolt.Open(e.path(name), fileMode, &bbolt.Options{Timeout: openTimeout})
		if err != nil {
			return nil, fmt.Errorf("bolt: open %s: %w", name, err)
		}
		h = &dbHandle{db: db}
		if err := h.loadMeta(); err != nil {
			_ = db.Close()
			return nil, err
		}
		e.handles[name] = h
	}

	if version < h.version {
		err := fmt.Errorf("%w: stored %d, requested %d", engine.ErrVersionTooLow, h.version, version)
		e.dropIfUnused(name, h)
		return nil, err
	}
	if version > h.version {
		if err := h.runUpgrade(version, upgrade); err != nil {
			e.dropIfUnused(name, h)
			return nil, err
		}
	}

	h.refs++
	return &connImpl{eng: e, name: name, handle: h}, nil
}

// DeleteDatabase removes the database file. It never waits for open
// connections; a live connection yields engine.ErrBlocked immediately.
func (e *engineImpl) DeleteDatabase(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if h := e.handles[name]; h != nil {
		if h.refs > 0 {
			return fmt.Errorf("%w: %s", engine.ErrBlocked, name)
		}
		_ = h.db.Close()
		delete(e.handles, name)
	}

	if err := os.Remove(e.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("bolt: delete %s: %w", name, err)
	}
	return nil
}

// release is called by connections on Close. The bbolt handle (and its file
// lock) is dropped once the last connection is gone.
func (e *engineImpl) release(name string, h *dbHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h.refs--
	e.dropIfUnused(name, h)
}

// dropIfUnused closes and forgets a handle with no remaining references.
// Caller must hold e.mu.
func (e *engineImpl) dropIfUnused(name string, h *dbHandle) {
	if h.refs <= 0 {
		_ = h.db.Close()
		delete(e.handles, name)
	}
}

// --------------------------------------------------------------------------
// Database handle (shared by all connections to one database)
// --------------------------------------------------------------------------

type dbHandle struct {
	db      *bbolt.DB
	refs    int
	version uint64
	schema  map[string]engine.StoreOptions
}

// loadMeta ensures the meta bucket exists and reads the stored version and
// store options.
func (h *dbHandle) loadMeta() error {
	schema := make(map[string]engine.StoreOptions)
	var version uint64

	err := h.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucketName)
		if err != nil {
			return err
		}
		if raw := meta.Get(metaVersionKey); raw != nil {
			version = binary.BigEndian.Uint64(raw)
		}
		return meta.ForEach(func(k, v []byte) error {
			name, ok := strings.CutPrefix(string(k), "store:")
			if !ok {
				return nil
			}
			var opts engine.StoreOptions
			if err := json.Unmarshal(v, &opts); err != nil {
				return fmt.Errorf("bolt: corrupt store meta for %q: %w", name, err)
			}
			schema[name] = opts
			return nil
		})
	})
	if err != nil {
		return err
	}

	h.version = version
	h.schema = schema
	return nil
}

// runUpgrade bumps the stored version and lets the caller create stores.
// The schema map is replaced wholesale only after the transaction commits,
// so a failed upgrade leaves the in-memory view untouched.
func (h *dbHandle) runUpgrade(newVersion uint64, upgrade engine.UpgradeFunc) error {
	oldVersion := h.version
	schema := make(map[string]engine.StoreOptions, len(h.schema))
	for name, opts := range h.schema {
		schema[name] = opts
	}

	err := h.db.Update(func(tx *bbolt.Tx) error {
		if upgrade != nil {
			utx := &upgradeTxn{tx: tx, schema: schema}
			if err := upgrade(utx, oldVersion, newVersion); err != nil {
				return err
			}
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], newVersion)
		return tx.Bucket(metaBucketName).Put(metaVersionKey, buf[:])
	})
	if err != nil {
		return err
	}

	h.version = newVersion
	h.schema = schema
	return nil
}

func (h *dbHandle) lookupStore(name string) (engine.StoreOptions, bool) {
	opts, ok := h.schema[name]
	return opts, ok
}

// --------------------------------------------------------------------------
// Upgrade transaction
// --------------------------------------------------------------------------

// upgradeTxn implements engine.UpgradeTxn on top of a bbolt update
// transaction. It mutates the pending schema copy; the handle adopts it only
// after the transaction commits.
type upgradeTxn struct {
	tx     *bbolt.Tx
	schema map[string]engine.StoreOptions
}

func (u *upgradeTxn) StoreNames() []string {
	names := make([]string, 0, len(u.schema))
	for name := range u.schema {
		names = append(names, name)
	}
	return names
}

func (u *upgradeTxn) HasStore(name string) bool {
	_, ok := u.schema[name]
	return ok
}

func (u *upgradeTxn) CreateStore(name string, opts engine.StoreOptions) error {
	if name == "" {
		return fmt.Errorf("bolt: store name must not be empty")
	}
	if _, exists := u.schema[name]; exists {
		return fmt.Errorf("bolt: store %q already exists", name)
	}

	if _, err := u.tx.CreateBucket(storeBucketName(name)); err != nil {
		return fmt.Errorf("bolt: create store %q: %w", name, err)
	}
	for _, idx := range opts.Indexes {
		if idx.Name == "" || idx.KeyPath == "" {
			return fmt.Errorf("bolt: store %q: index needs name and key path", name)
		}
		if _, err := u.tx.CreateBucket(indexBucketName(name, idx.Name)); err != nil {
			return fmt.Errorf("bolt: create index %q on %q: %w", idx.Name, name, err)
		}
	}

	raw, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	if err := u.tx.Bucket(metaBucketName).Put(storeMetaKey(name), raw); err != nil {
		return err
	}

	u.schema[name] = opts
	return nil
}
