package upload

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeChunk normalizes the wire representations a chunk may arrive in:
// a base64 JSON string, a JSON array of byte values, or a serialized
// buffer object {"type":"Buffer","data":[...]}. Raw binary frames bypass
// this and reach the session directly.
func DecodeChunk(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode chunk string: %w", err)
		}
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode chunk base64: %w", err)
		}
		return data, nil

	case '[':
		var values []int
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("decode chunk array: %w", err)
		}
		return bytesFromValues(values)

	case '{':
		var buf struct {
			Type string `json:"type"`
			Data []int  `json:"data"`
		}
		if err := json.Unmarshal(raw, &buf); err != nil {
			return nil, fmt.Errorf("decode chunk object: %w", err)
		}
		if buf.Type != "Buffer" {
			return nil, fmt.Errorf("unsupported chunk object type %q", buf.Type)
		}
		return bytesFromValues(buf.Data)
	}

	return nil, errors.New("unsupported chunk representation")
}

func bytesFromValues(values []int) ([]byte, error) {
	data := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("chunk byte value %d out of range", v)
		}
		data[i] = byte(v)
	}
	return data, nil
}
