package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := GenerateToken("patient-1", secret, time.Minute)
	require.NoError(t, err)

	sub, err := ExtractIDFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "patient-1", sub)

	_, err = ExtractIDFromToken(tok, []byte("other"))
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := GenerateToken("patient-1", secret, -time.Minute)
	require.NoError(t, err)

	_, err = ExtractIDFromToken(tok, secret)
	assert.Error(t, err)
}
