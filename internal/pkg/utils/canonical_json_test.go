package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSON(t *testing.T) {
	out, err := CanonicalJSON([]byte(` {"b": 1, "a": {"z": true, "y": [3, 1.50]}} `))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"y":[3,1.50],"z":true},"b":1}`, string(out))

	_, err = CanonicalJSON([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
	_, err = CanonicalJSON([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestJSONEqual(t *testing.T) {
	assert.True(t, JSONEqual([]byte(`{"a":1,"b":[1,2]}`), []byte(`{ "b":[1,2], "a":1 }`)))
	assert.False(t, JSONEqual([]byte(`{"b":[2,1]}`), []byte(`{"b":[1,2]}`)))
	assert.False(t, JSONEqual([]byte(`nope`), []byte(`nope`)))
}

func TestMarshalCanonical(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{"z": 1, "a": map[string]int{"d": 2, "c": 1}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"c":1,"d":2},"z":1}`, string(out))
}
