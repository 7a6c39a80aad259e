package crypto

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealCredential_RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	sealed, err := SealCredential(key, "eyJhbGciOi.token")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "eyJhbGciOi")

	got, err := OpenCredential(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOi.token", got)
}

func TestSealCredential_RandomNonce(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	a, err := SealCredential(key, "same")
	require.NoError(t, err)
	b, err := SealCredential(key, "same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenCredential_WrongKey(t *testing.T) {
	k1, _ := GenerateKey()
	k2, _ := GenerateKey()
	sealed, err := SealCredential(k1, "secret")
	require.NoError(t, err)

	_, err = OpenCredential(k2, sealed)
	require.Error(t, err)
}

func TestDecrypt_TooShort(t *testing.T) {
	key, _ := GenerateKey()
	_, err := OpenCredential(key, []byte("short"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCiphertextTooShort))
}

func TestKeyFile_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "credential.key")
	assert.False(t, KeyExists(path))

	key, err := GenerateKey()
	require.NoError(t, err)
	require.NoError(t, SaveKey(path, key))
	assert.True(t, KeyExists(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadKey(path)
	require.NoError(t, err)
	assert.Equal(t, key, loaded)
	assert.Len(t, loaded.Fingerprint(), 16)

	require.NoError(t, RemoveKey(path))
	assert.False(t, KeyExists(path))
	require.NoError(t, RemoveKey(path), "removing twice is fine")
}

func TestSaveKey_RejectsWrongLength(t *testing.T) {
	err := SaveKey(filepath.Join(t.TempDir(), "k"), SealingKey([]byte("short")))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestLoadKey_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k")
	require.NoError(t, os.WriteFile(path, []byte("not pem"), 0600))
	_, err := LoadKey(path)
	require.Error(t, err)
}
