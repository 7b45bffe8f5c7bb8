package textvault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVault(t *testing.T) Vault {
	t.Helper()
	key := make([]byte, 32)
	copy(key, "0123456789abcdef0123456789abcdef")
	v, err := New(key)
	require.NoError(t, err)
	return v
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	v := testVault(t)

	plain := "Today I climbed the hill behind the house."
	sealed, err := v.Encrypt(plain)
	require.NoError(t, err)
	assert.NotEqual(t, plain, sealed)

	opened, err := v.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, opened)
}

func TestEncryptProducesFreshNonces(t *testing.T) {
	v := testVault(t)

	a, err := v.Encrypt("same text")
	require.NoError(t, err)
	b, err := v.Encrypt("same text")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	v := testVault(t)

	sealed, err := v.Encrypt("secret")
	require.NoError(t, err)

	_, err = v.Decrypt(sealed[:len(sealed)-4] + "AAAA")
	assert.Error(t, err)

	_, err = v.Decrypt("not base64 at all !!!")
	assert.Error(t, err)
}

func TestNewRejectsShortKey(t *testing.T) {
	_, err := New([]byte("short"))
	assert.Error(t, err)
}
