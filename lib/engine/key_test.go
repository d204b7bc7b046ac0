package engine

import (
	"bytes"
	"sort"
	"testing"
)

func TestKeyEncodeDecodeRoundTrip(t *testing.T) {
	keys := []Key{
		UintKey(0),
		UintKey(1),
		UintKey(1 << 40),
		StringKey(""),
		StringKey("alice"),
		StringKey("älice"),
	}

	for _, k := range keys {
		got, err := DecodeKey(k.Encode())
		if err != nil {
			t.Errorf("DecodeKey(%s): %v", k, err)
			continue
		}
		if !got.Equal(k) {
			t.Errorf("round trip changed key: got %s, want %s", got, k)
		}
	}

	if _, err := DecodeKey(nil); err == nil {
		t.Errorf("DecodeKey(nil) must fail")
	}
	if _, err := DecodeKey([]byte{0x01, 0x02}); err == nil {
		t.Errorf("DecodeKey on truncated numeric key must fail")
	}
	if _, err := DecodeKey([]byte{0xff}); err == nil {
		t.Errorf("DecodeKey on unknown kind must fail")
	}
}

// TestKeyEncodingPreservesOrder checks the core property the storage layout
// relies on: byte-wise order of encoded keys equals semantic key order,
// with all numeric keys before all string keys.
func TestKeyEncodingPreservesOrder(t *testing.T) {
	want := []Key{
		UintKey(0),
		UintKey(1),
		UintKey(255),
		UintKey(256),
		UintKey(1 << 40),
		StringKey(""),
		StringKey("a"),
		StringKey("ab"),
		StringKey("b"),
	}

	got := make([]Key, len(want))
	copy(got, want)
	// shuffle deterministically, then sort by encoded bytes
	for i := range got {
		j := (i * 7) % len(got)
		got[i], got[j] = got[j], got[i]
	}
	sort.Slice(got, func(i, j int) bool {
		return bytes.Compare(got[i].Encode(), got[j].Encode()) < 0
	})

	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("encoded order position %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestKeyRangeContains(t *testing.T) {
	cases := []struct {
		name string
		r    KeyRange
		in   []Key
		out  []Key
	}{
		{
			name: "only",
			r:    Only(UintKey(5)),
			in:   []Key{UintKey(5)},
			out:  []Key{UintKey(4), UintKey(6), StringKey("5")},
		},
		{
			name: "closed bound",
			r:    Bound(UintKey(2), UintKey(4), false, false),
			in:   []Key{UintKey(2), UintKey(3), UintKey(4)},
			out:  []Key{UintKey(1), UintKey(5)},
		},
		{
			name: "open bound",
			r:    Bound(UintKey(2), UintKey(4), true, true),
			in:   []Key{UintKey(3)},
			out:  []Key{UintKey(2), UintKey(4)},
		},
		{
			name: "lower bound only",
			r:    LowerBound(StringKey("m"), false),
			in:   []Key{StringKey("m"), StringKey("z")},
			out:  []Key{StringKey("a"), UintKey(1000)},
		},
		{
			name: "upper bound only",
			r:    UpperBound(UintKey(3), true),
			in:   []Key{UintKey(0), UintKey(2)},
			out:  []Key{UintKey(3), StringKey("a")},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, k := range tc.in {
				if !tc.r.Contains(k) {
					t.Errorf("range must contain %s", k)
				}
			}
			for _, k := range tc.out {
				if tc.r.Contains(k) {
					t.Errorf("range must not contain %s", k)
				}
			}
		})
	}
}
