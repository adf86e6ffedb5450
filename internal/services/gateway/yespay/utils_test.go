package yespay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHmac256(t *testing.T) {
	// echo -n "hello" | openssl dgst -sha256 -hmac "key"
	got := Hmac256([]byte("hello"), []byte("key"))

	assert.Equal(t, "9307b3b915efb5171ff14d8cb55fbcc798c6c0ef1456d66ded1a6aa723a58b7b", got)
}

func TestRandomNumber(t *testing.T) {
	n, err := randomNumber()

	require.NoError(t, err)
	assert.Len(t, n, 18)

	other, err := randomNumber()
	require.NoError(t, err)
	assert.NotEqual(t, n, other)
}

func TestCallbackSecretRoundTrip(t *testing.T) {
	hash, err := HashCallbackSecret("s3cret")
	require.NoError(t, err)

	assert.True(t, VerifyCallbackSecret(hash, "s3cret"))
	assert.False(t, VerifyCallbackSecret(hash, "wrong"))
	assert.False(t, VerifyCallbackSecret("", "s3cret"))
}
