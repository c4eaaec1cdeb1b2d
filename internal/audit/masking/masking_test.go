package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "****6789", MaskSecret("sk_live_123456789"))
}

func TestMaskSensitive(t *testing.T) {
	out := MaskSensitive(map[string]any{
		"entity_name": "Acme",
		"api_key":     "hera_abcdefgh",
		"nested":      map[string]any{"Password": "hunter22"},
		"count":       3,
		" ":           "dropped",
	})

	assert.Equal(t, "Acme", out["entity_name"])
	assert.Equal(t, "****efgh", out["api_key"])
	assert.Equal(t, map[string]any{"Password": "****er22"}, out["nested"])
	assert.Equal(t, 3, out["count"])
	assert.Len(t, out, 4)
}
