package config

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSecret_String(t *testing.T) {
	s := Secret("password123")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))

	empty := Secret("")
	assert.Equal(t, "", empty.String())
}

func TestSecret_Reveal(t *testing.T) {
	assert.Equal(t, "password123", Secret("password123").Reveal())
}

func TestSecret_GoString(t *testing.T) {
	assert.Equal(t, `"[REDACTED]"`, fmt.Sprintf("%#v", Secret("password123")))
	assert.Equal(t, `""`, fmt.Sprintf("%#v", Secret("")))
}

func TestSecret_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{Key: "password123"})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"key":"[REDACTED]"}`, string(data))
}

func TestSecret_MarshalYAML(t *testing.T) {
	val, err := Secret("password123").MarshalYAML()
	assert.NoError(t, err)
	assert.Equal(t, "[REDACTED]", val)
}

func TestSecret_Hint(t *testing.T) {
	assert.Equal(t, "****wxyz", Secret("abcdefghijklmnopqrstuvwxyz").Hint())
	assert.Equal(t, "[REDACTED]", Secret("short").Hint())
	assert.Equal(t, "", Secret("").Hint())
}

func TestSecret_UnmarshalYAML(t *testing.T) {
	var out struct {
		Key Secret `yaml:"key"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("key: \"  spaced  \"\n"), &out))
	assert.Equal(t, "spaced", out.Key.Reveal())

	assert.Error(t, yaml.Unmarshal([]byte("key: [1, 2]\n"), &out))
}
