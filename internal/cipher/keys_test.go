package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyMaterial_Defaults(t *testing.T) {
	km, err := NewKeyMaterial("", "", true)
	require.NoError(t, err)
	assert.True(t, km.Insecure)
	assert.Equal(t, []byte(InsecureDefaultKey), km.Key)
	assert.Equal(t, []byte(InsecureDefaultIV), km.IV)
}

func TestNewKeyMaterial_PartialFallback(t *testing.T) {
	km, err := NewKeyMaterial("fedcba9876543210fedcba9876543210", "", true)
	require.NoError(t, err)
	assert.True(t, km.Insecure)
	assert.Equal(t, []byte(InsecureDefaultIV), km.IV)
}

func TestNewKeyMaterial_FallbackRefused(t *testing.T) {
	_, err := NewKeyMaterial("", "", false)
	require.ErrorIs(t, err, ErrKeyMaterial)
}

func TestNewKeyMaterial_Sizes(t *testing.T) {
	_, err := NewKeyMaterial("too-short", InsecureDefaultIV, false)
	require.ErrorIs(t, err, ErrKeyMaterial)

	_, err = NewKeyMaterial(InsecureDefaultKey, "short-iv", false)
	require.ErrorIs(t, err, ErrKeyMaterial)

	km, err := NewKeyMaterial(InsecureDefaultKey, InsecureDefaultIV, false)
	require.NoError(t, err)
	assert.False(t, km.Insecure)
}
