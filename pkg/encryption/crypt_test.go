package encryption

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/fbx-agent/pkg/file"
)

func newManager(t *testing.T, material string) *EncryptionManager {
	t.Helper()
	m := NewEncryptionManager(file.NewFileService())
	require.NoError(t, m.InitializeWithKey([]byte(material)))
	return m
}

func TestEncryptionManager_RoundTrip(t *testing.T) {
	m := newManager(t, "0123456789abcdef-secret")
	plaintext := []byte(`{"auth":{"app_token":"tok"}}`)

	sealed, err := m.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "app_token")

	opened, err := m.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestEncryptionManager_FreshNonce(t *testing.T) {
	m := newManager(t, "0123456789abcdef-secret")

	a, err := m.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := m.Encrypt([]byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestEncryptionManager_WrongKey(t *testing.T) {
	sealed, err := newManager(t, "0123456789abcdef-secret").Encrypt([]byte("payload"))
	require.NoError(t, err)

	_, err = newManager(t, "fedcba9876543210-secret").Decrypt(sealed)
	assert.Error(t, err)
}

func TestEncryptionManager_Tampered(t *testing.T) {
	m := newManager(t, "0123456789abcdef-secret")
	sealed, err := m.Encrypt([]byte("payload"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = m.Decrypt(sealed)
	assert.Error(t, err)

	_, err = m.Decrypt([]byte("short"))
	assert.EqualError(t, err, "ciphertext too short: must include nonce and encrypted data")
}

func TestEncryptionManager_NotInitialized(t *testing.T) {
	m := NewEncryptionManager(file.NewFileService())

	_, err := m.Encrypt([]byte("payload"))
	assert.EqualError(t, err, "encryption manager not initialized")
	_, err = m.Decrypt(make([]byte, 32))
	assert.EqualError(t, err, "encryption manager not initialized")
}

func TestEncryptionManager_Initialize(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key")
	require.NoError(t, os.WriteFile(keyPath, []byte("a long enough secret key"), 0600))
	shortPath := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(shortPath, []byte("short"), 0600))

	m := NewEncryptionManager(file.NewFileService())
	require.NoError(t, m.Initialize(keyPath))
	assert.Error(t, m.Initialize(shortPath))
	assert.Error(t, m.Initialize(filepath.Join(dir, "missing")))
}
