package serializer

// ISerializer is the interface for all record serializers. Records are
// application-defined value objects; the serializer turns them into the
// bytes the engine stores and back.
type ISerializer interface {
	// Serialize serializes a record into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(v any) ([]byte, error)
	// Deserialize deserializes a byte array into a record
	// It takes a byte array and a pointer to the destination as parameters
	// It returns an error if any
	Deserialize(b []byte, dest any) error
}

// IFieldCodec is the optional capability of a serializer to read and write
// single record fields by key path without knowing the record type. Stores
// with a key path (and the auto increment key injection) require it;
// serializers without it can only serve externally keyed stores.
type IFieldCodec interface {
	// ExtractField returns the value of the field at the dotted path.
	// The boolean return value indicates whether the field was present.
	ExtractField(data []byte, path string) (value any, found bool, err error)
	// InjectField returns a copy of the record bytes with the field at the
	// dotted path set to the given value, creating intermediate objects as
	// needed.
	InjectField(data []byte, path string, value any) ([]byte, error)
}
