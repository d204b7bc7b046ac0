package serializer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NewJSONSerializer creates a new serializer using json encoding.
// It is the only serializer implementing IFieldCodec, which makes it the
// required choice for stores with a key path or secondary indexes.
func NewJSONSerializer() ISerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the ISerializer and IFieldCodec interfaces
// using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (j jsonSerializerImpl) Deserialize(b []byte, dest any) error {
	return json.Unmarshal(b, dest)
}

// --------------------------------------------------------------------------
// Field Codec Methods (docu see serializer.IFieldCodec)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) ExtractField(data []byte, path string) (any, bool, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false, fmt.Errorf("serializer: record is not a JSON object: %w", err)
	}

	var cur any = fields
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false, nil
		}
	}
	return cur, true, nil
}

func (j jsonSerializerImpl) InjectField(data []byte, path string, value any) ([]byte, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("serializer: record is not a JSON object: %w", err)
	}

	segments := strings.Split(path, ".")
	m := fields
	for _, seg := range segments[:len(segments)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[seg] = next
		}
		m = next
	}
	m[segments[len(segments)-1]] = value

	return json.Marshal(fields)
}
