package serializer

import (
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() ISerializer{
	"JSON": NewJSONSerializer,
	"GOB":  NewGOBSerializer,
}

type testRecord struct {
	ID    uint64
	Name  string
	Tags  []string
	Meta  map[string]string
	Score float64
}

func testRecords() []testRecord {
	return []testRecord{
		{},
		{ID: 1, Name: "alice"},
		{ID: 2, Name: "bob", Tags: []string{"a", "b"}, Score: 0.5},
		{ID: 3, Name: "unicode äöü", Meta: map[string]string{"k": "v"}},
	}
}

// TestSerializerRoundTrip tests that records can be serialized and
// deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()
			for i, rec := range testRecords() {
				data, err := s.Serialize(rec)
				if err != nil {
					t.Errorf("record %d: Serialize failed: %v", i, err)
					continue
				}

				var got testRecord
				if err := s.Deserialize(data, &got); err != nil {
					t.Errorf("record %d: Deserialize failed: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(got, rec) {
					t.Errorf("record %d: round trip mismatch:\ngot  %+v\nwant %+v", i, got, rec)
				}
			}
		})
	}
}

func TestJSONFieldCodec(t *testing.T) {
	codec, ok := NewJSONSerializer().(IFieldCodec)
	if !ok {
		t.Fatalf("JSON serializer must implement IFieldCodec")
	}

	data := []byte(`{"id":7,"name":"alice","address":{"city":"ulm"}}`)

	// extract: flat and nested paths
	v, found, err := codec.ExtractField(data, "id")
	if err != nil || !found {
		t.Fatalf("ExtractField(id): found=%v err=%v", found, err)
	}
	if v != float64(7) {
		t.Errorf("ExtractField(id) = %v, want 7", v)
	}

	v, found, err = codec.ExtractField(data, "address.city")
	if err != nil || !found {
		t.Fatalf("ExtractField(address.city): found=%v err=%v", found, err)
	}
	if v != "ulm" {
		t.Errorf("ExtractField(address.city) = %v, want ulm", v)
	}

	// absent fields are reported, not errors
	if _, found, err = codec.ExtractField(data, "nope"); err != nil || found {
		t.Errorf("ExtractField(nope): found=%v err=%v, want false, nil", found, err)
	}
	if _, found, err = codec.ExtractField(data, "name.sub"); err != nil || found {
		t.Errorf("ExtractField through scalar: found=%v err=%v, want false, nil", found, err)
	}

	// non-object records fail explicitly
	if _, _, err := codec.ExtractField([]byte(`[1,2]`), "id"); err == nil {
		t.Errorf("ExtractField on non-object must fail")
	}

	// inject a new field and read it back
	out, err := codec.InjectField(data, "id", uint64(42))
	if err != nil {
		t.Fatalf("InjectField failed: %v", err)
	}
	v, found, err = codec.ExtractField(out, "id")
	if err != nil || !found {
		t.Fatalf("ExtractField after inject: found=%v err=%v", found, err)
	}
	if v != float64(42) {
		t.Errorf("injected id = %v, want 42", v)
	}

	// injecting along a missing path creates the intermediate objects
	out, err = codec.InjectField(data, "audit.created_by", "system")
	if err != nil {
		t.Fatalf("InjectField nested failed: %v", err)
	}
	v, found, _ = codec.ExtractField(out, "audit.created_by")
	if !found || v != "system" {
		t.Errorf("nested inject: got (%v, %v), want (system, true)", v, found)
	}
}

func TestGOBIsNotAFieldCodec(t *testing.T) {
	if _, ok := NewGOBSerializer().(IFieldCodec); ok {
		t.Fatalf("gob serializer must not advertise field access")
	}
}
