package upload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChunkBase64String(t *testing.T) {
	data, err := DecodeChunk(json.RawMessage(`"aGVsbG8="`))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestDecodeChunkByteArray(t *testing.T) {
	data, err := DecodeChunk(json.RawMessage(`[104,101,108,108,111]`))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestDecodeChunkBufferObject(t *testing.T) {
	data, err := DecodeChunk(json.RawMessage(`{"type":"Buffer","data":[104,105]}`))
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), data)
}

func TestDecodeChunkEmpty(t *testing.T) {
	data, err := DecodeChunk(nil)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDecodeChunkRejects(t *testing.T) {
	cases := map[string]string{
		"invalid base64":     `"not base64!!"`,
		"byte out of range":  `[104,300]`,
		"negative byte":      `[-1]`,
		"wrong object type":  `{"type":"Blob","data":[1]}`,
		"unsupported scalar": `42`,
		"malformed json":     `[1,2`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeChunk(json.RawMessage(raw))
			assert.Error(t, err)
		})
	}
}
