package bolt

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/UndeffinedDev/Indexa/lib/engine"
)

// --------------------------------------------------------------------------
// Index entry encoding
// --------------------------------------------------------------------------

// Index buckets map entryKey(indexKey, primaryKey) -> encoded primary key.
// Appending the primary key keeps entries unique per record while the bucket
// stays ordered by index key; the stored value lets a scan recover the
// primary key without parsing the entry key.
//
// The index key portion is escaped so the 0x00 separator stays unambiguous:
// a raw 0x00 inside an encoded string key would otherwise make the entry for
// "a\x00" sort below the entry for "a". The escape (0x00 -> 0x00 0xFF) is
// order preserving because the separator is always followed by a key kind
// byte, which is smaller than 0xFF.
func entryKey(indexKey, primaryKey engine.Key) []byte {
	ik := escapeIndexKey(indexKey.Encode())
	pk := primaryKey.Encode()
	buf := make([]byte, 0, len(ik)+1+len(pk))
	buf = append(buf, ik...)
	buf = append(buf, entrySep)
	buf = append(buf, pk...)
	return buf
}

func escapeIndexKey(b []byte) []byte {
	out := make([]byte, 0, len(b)+1)
	for _, c := range b {
		out = append(out, c)
		if c == entrySep {
			out = append(out, 0xFF)
		}
	}
	return out
}

func unescapeIndexKey(b []byte) ([]byte, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		c := b[i]
		out = append(out, c)
		if c == entrySep {
			i++
			if i >= len(b) || b[i] != 0xFF {
				return nil, fmt.Errorf("bolt: invalid escape in index entry")
			}
		}
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Index maintenance (called from storeHandle writes)
// --------------------------------------------------------------------------

func (s *storeHandle) addIndexEntries(key engine.Key, value []byte) error {
	return s.eachIndexEntry(key, value, func(ib bucketWriter, ek []byte, pk []byte) error {
		return ib.Put(ek, pk)
	})
}

func (s *storeHandle) removeIndexEntries(key engine.Key, value []byte) error {
	return s.eachIndexEntry(key, value, func(ib bucketWriter, ek []byte, _ []byte) error {
		return ib.Delete(ek)
	})
}

type bucketWriter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// eachIndexEntry decodes the record once and visits the entry of every
// declared index the record contributes to. Records with a missing or
// un-keyable field for an index are simply skipped for that index.
func (s *storeHandle) eachIndexEntry(key engine.Key, value []byte, fn func(ib bucketWriter, entryKey, primaryKey []byte) error) error {
	if len(s.t.opts.Indexes) == 0 {
		return nil
	}

	var fields map[string]any
	if err := json.Unmarshal(value, &fields); err != nil {
		return fmt.Errorf("bolt: store %q has indexes but the record is not a JSON object: %w", s.t.store, err)
	}

	pk := key.Encode()
	for _, idx := range s.t.opts.Indexes {
		ik, ok := extractIndexKey(fields, idx.KeyPath)
		if !ok {
			continue
		}
		ib := s.t.tx.Bucket(indexBucketName(s.t.store, idx.Name))
		if ib == nil {
			return fmt.Errorf("%w: %s.%s", engine.ErrUnknownIndex, s.t.store, idx.Name)
		}
		if err := fn(ib, entryKey(ik, key), pk); err != nil {
			return err
		}
	}
	return nil
}

// extractIndexKey walks a dotted key path through the decoded record and
// converts the field value into a key. Strings and non-negative integral
// numbers are keyable; everything else is not.
func extractIndexKey(fields map[string]any, path string) (engine.Key, bool) {
	segments := strings.Split(path, ".")
	var cur any = fields
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return engine.Key{}, false
		}
		cur, ok = m[seg]
		if !ok {
			return engine.Key{}, false
		}
	}

	switch v := cur.(type) {
	case string:
		return engine.StringKey(v), true
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return engine.Key{}, false
		}
		return engine.UintKey(uint64(v)), true
	default:
		return engine.Key{}, false
	}
}

// --------------------------------------------------------------------------
// Index handle
// --------------------------------------------------------------------------

type indexHandle struct {
	t      *txnImpl
	schema engine.IndexSchema
}

// GetAll scans the index bucket for entries in the query range and resolves
// each to its record (docu see engine.Index).
func (i *indexHandle) GetAll(query engine.KeyRange) ([]engine.Record, error) {
	ib := i.t.tx.Bucket(indexBucketName(i.t.store, i.schema.Name))
	if ib == nil {
		return nil, fmt.Errorf("%w: %s.%s", engine.ErrUnknownIndex, i.t.store, i.schema.Name)
	}
	sb, err := i.t.bucket()
	if err != nil {
		return nil, err
	}

	c := ib.Cursor()
	var k, v []byte
	if query.Lower.IsZero() {
		k, v = c.First()
	} else {
		k, v = c.Seek(escapeIndexKey(query.Lower.Encode()))
	}

	var out []engine.Record
	for ; k != nil; k, v = c.Next() {
		// the entry key is escaped indexKey + sep + primaryKey; the value
		// holds the encoded primary key, so the index key part is the prefix
		if len(k) < len(v)+1 {
			return nil, fmt.Errorf("bolt: corrupt index entry in %s.%s", i.t.store, i.schema.Name)
		}
		raw, err := unescapeIndexKey(k[:len(k)-len(v)-1])
		if err != nil {
			return nil, err
		}
		ik, err := engine.DecodeKey(raw)
		if err != nil {
			return nil, err
		}

		if !query.Upper.IsZero() {
			cmp := ik.Compare(query.Upper)
			if cmp > 0 || (cmp == 0 && query.UpperOpen) {
				break
			}
		}
		if !query.Lower.IsZero() {
			cmp := ik.Compare(query.Lower)
			if cmp < 0 || (cmp == 0 && query.LowerOpen) {
				continue
			}
		}

		pk, err := engine.DecodeKey(v)
		if err != nil {
			return nil, err
		}
		rec := sb.Get(v)
		if rec == nil {
			return nil, fmt.Errorf("bolt: index %s.%s points at missing record %s", i.t.store, i.schema.Name, pk)
		}
		out = append(out, engine.Record{Key: pk, Value: append([]byte(nil), rec...)})
	}
	return out, nil
}
