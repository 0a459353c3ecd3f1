package security_test

import (
	"testing"

	"kinto-admin/internal/auth/adapter/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	sealer, err := security.NewSealer("console-secret")
	require.NoError(t, err)

	plain := []byte(`{"authType":"basicauth","credentials":{"username":"alice","password":"s3cret"}}`)
	sealed, err := sealer.Seal(plain)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "s3cret")

	again, err := sealer.Seal(plain)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces must differ")

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, opened)
}

func TestSealer_RejectsTamperingAndOtherKeys(t *testing.T) {
	sealer, err := security.NewSealer("console-secret")
	require.NoError(t, err)
	other, err := security.NewSealer("another-secret")
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, security.ErrSealedDataInvalid)

	_, err = sealer.Open("too-short")
	assert.ErrorIs(t, err, security.ErrSealedDataInvalid)

	tampered := []byte(sealed)
	tampered[len(tampered)-2] ^= 0x01
	_, err = sealer.Open(string(tampered))
	assert.Error(t, err)
}

func TestNewSealer_EmptySecret(t *testing.T) {
	_, err := security.NewSealer("")
	assert.Error(t, err)
}
