package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	c, err := NewCipher("MySecretEncryptionKey!")
	require.NoError(t, err)

	sealed, err := c.Encrypt("late twice this week, otherwise solid")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "solid")

	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "late twice this week, otherwise solid", plain)
}

func TestDecryptRejectsTamperedInput(t *testing.T) {
	c, err := NewCipher("k")
	require.NoError(t, err)

	_, err = c.Decrypt("AAAA")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	sealed, err := c.Encrypt("hello")
	require.NoError(t, err)
	other, err := NewCipher("another key")
	require.NoError(t, err)
	_, err = other.Decrypt(sealed)
	assert.Error(t, err)
}

func TestFixEncryptionKey(t *testing.T) {
	assert.Len(t, FixEncryptionKey("short"), 32)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", FixEncryptionKey("0123456789abcdef0123456789abcdefXYZ"))
}
