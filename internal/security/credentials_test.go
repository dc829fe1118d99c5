package security

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileBackedManager(t *testing.T) *CredentialManager {
	t.Helper()

	cm := &CredentialManager{useKeyring: false, dir: t.TempDir()}
	key, err := cm.getMasterKey()
	require.NoError(t, err)
	cm.masterKey = key
	return cm
}

func TestStoreAndGetCredential(t *testing.T) {
	cm := newFileBackedManager(t)

	err := cm.StoreCredential("snowflake-password", "password", "hunter2", map[string]string{
		"account": "xy12345",
	})
	require.NoError(t, err)

	cred, err := cm.GetCredential("snowflake-password")
	require.NoError(t, err)

	assert.Equal(t, "hunter2", cred.Value)
	assert.False(t, cred.Encrypted)
	assert.Equal(t, "xy12345", cred.Metadata["account"])
}

func TestCredentialStoredEncrypted(t *testing.T) {
	cm := newFileBackedManager(t)

	require.NoError(t, cm.StoreCredential("snowflake-password", "password", "hunter2", nil))

	// The file on disk must hold ciphertext, not the plaintext value
	raw, err := os.ReadFile(cm.credentialPath("snowflake-password"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")

	var stored Credential
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.True(t, stored.Encrypted)
	assert.NotEqual(t, "hunter2", stored.Value)
}

func TestDeleteCredential(t *testing.T) {
	cm := newFileBackedManager(t)

	require.NoError(t, cm.StoreCredential("snowflake-password", "password", "hunter2", nil))
	require.NoError(t, cm.DeleteCredential("snowflake-password"))

	_, err := cm.GetCredential("snowflake-password")
	assert.Error(t, err)
}

func TestMasterKeyIsStable(t *testing.T) {
	cm := newFileBackedManager(t)

	again, err := cm.getMasterKey()
	require.NoError(t, err)
	assert.Equal(t, cm.masterKey, again)
}
