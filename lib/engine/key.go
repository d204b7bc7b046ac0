package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// --------------------------------------------------------------------------
// Key
// --------------------------------------------------------------------------

// KeyKind discriminates the two supported key types. Numeric keys order
// before string keys, and the binary encoding preserves that.
type KeyKind uint8

const (
	KeyKindNone KeyKind = iota
	KeyKindUint
	KeyKindString
)

// Key is a primary or index key: either a uint64 or a string. The zero Key
// is no key at all (see IsZero).
type Key struct {
	kind KeyKind
	num  uint64
	str  string
}

// UintKey creates a numeric key.
func UintKey(n uint64) Key {
	return Key{kind: KeyKindUint, num: n}
}

// StringKey creates a string key.
func StringKey(s string) Key {
	return Key{kind: KeyKindString, str: s}
}

func (k Key) Kind() KeyKind { return k.kind }

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool { return k.kind == KeyKindNone }

// Uint returns the numeric value; ok is false for non-numeric keys.
func (k Key) Uint() (n uint64, ok bool) {
	return k.num, k.kind == KeyKindUint
}

// Str returns the string value; ok is false for non-string keys.
func (k Key) Str() (s string, ok bool) {
	return k.str, k.kind == KeyKindString
}

// String renders the key for display.
func (k Key) String() string {
	switch k.kind {
	case KeyKindUint:
		return strconv.FormatUint(k.num, 10)
	case KeyKindString:
		return k.str
	default:
		return "<none>"
	}
}

// Equal reports whether two keys are the same kind and value.
func (k Key) Equal(other Key) bool {
	return k.kind == other.kind && k.num == other.num && k.str == other.str
}

// Compare orders keys: numeric before string, then by value.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k.Encode(), other.Encode())
}

// Encode returns the order-preserving binary form of the key: one kind byte
// followed by the payload (big-endian for numbers, raw bytes for strings).
// Lexicographic comparison of encoded keys equals semantic key order.
func (k Key) Encode() []byte {
	switch k.kind {
	case KeyKindUint:
		buf := make([]byte, 9)
		buf[0] = byte(KeyKindUint)
		binary.BigEndian.PutUint64(buf[1:], k.num)
		return buf
	case KeyKindString:
		buf := make([]byte, 1+len(k.str))
		buf[0] = byte(KeyKindString)
		copy(buf[1:], k.str)
		return buf
	default:
		return nil
	}
}

// DecodeKey parses the binary form produced by Encode.
func DecodeKey(b []byte) (Key, error) {
	if len(b) == 0 {
		return Key{}, fmt.Errorf("engine: empty key encoding")
	}
	switch KeyKind(b[0]) {
	case KeyKindUint:
		if len(b) != 9 {
			return Key{}, fmt.Errorf("engine: invalid numeric key encoding (len %d)", len(b))
		}
		return UintKey(binary.BigEndian.Uint64(b[1:])), nil
	case KeyKindString:
		return StringKey(string(b[1:])), nil
	default:
		return Key{}, fmt.Errorf("engine: unknown key kind 0x%02x", b[0])
	}
}

// --------------------------------------------------------------------------
// KeyRange
// --------------------------------------------------------------------------

// KeyRange selects keys between Lower and Upper. A zero bound means
// unbounded on that side; the Open flags exclude the bound itself.
type KeyRange struct {
	Lower     Key
	Upper     Key
	LowerOpen bool
	UpperOpen bool
}

// Only selects exactly one key.
func Only(k Key) KeyRange {
	return KeyRange{Lower: k, Upper: k}
}

// LowerBound selects all keys >= k (or > k when open).
func LowerBound(k Key, open bool) KeyRange {
	return KeyRange{Lower: k, LowerOpen: open}
}

// UpperBound selects all keys <= k (or < k when open).
func UpperBound(k Key, open bool) KeyRange {
	return KeyRange{Upper: k, UpperOpen: open}
}

// Bound selects all keys between lower and upper.
func Bound(lower, upper Key, lowerOpen, upperOpen bool) KeyRange {
	return KeyRange{Lower: lower, Upper: upper, LowerOpen: lowerOpen, UpperOpen: upperOpen}
}

// Contains reports whether the range includes k.
func (r KeyRange) Contains(k Key) bool {
	if !r.Lower.IsZero() {
		c := k.Compare(r.Lower)
		if c < 0 || (c == 0 && r.LowerOpen) {
			return false
		}
	}
	if !r.Upper.IsZero() {
		c := k.Compare(r.Upper)
		if c > 0 || (c == 0 && r.UpperOpen) {
			return false
		}
	}
	return true
}
