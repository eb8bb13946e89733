package utils

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateResetToken(t *testing.T) {
	token, hash, err := GenerateResetToken()
	require.NoError(t, err)

	assert.Len(t, token, ResetTokenBytes*2)
	_, err = hex.DecodeString(token)
	require.NoError(t, err)

	assert.Len(t, hash, 64)
	assert.NotEqual(t, token, hash)
	assert.Equal(t, HashResetToken(token), hash)
}

func TestGenerateResetToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		token, _, err := GenerateResetToken()
		require.NoError(t, err)
		assert.False(t, seen[token])
		seen[token] = true
	}
}

func TestHashResetToken_Known(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashResetToken("abc"))
}
