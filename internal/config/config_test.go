package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"graphdrop/pkg/models"
)

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GRAPHDROP_CONFIG", filepath.Join(dir, "config.yaml"))

	cfg := &models.Config{
		Snowflake: models.Snowflake{
			Account:   "xy12345.us-east-1",
			Username:  "pipeline_user",
			Password:  "secret",
			Role:      "ACCOUNTADMIN",
			Warehouse: "COMPUTE_WH",
			Database:  "FRAUD_DEMO",
			Schema:    "PUBLIC",
		},
		Pipeline: models.Pipeline{
			TransactionTable: "P2P_TRANSACTIONS",
			SourceColumn:     "SOURCENODEID",
			TargetColumn:     "TARGETNODEID",
			AmountColumn:     "TRANSACTION_AMOUNT",
			EntityTable:      "P2P_USERS",
			EntityColumn:     "NODEID",
			EdgeTable:        "P2P_AGG_TRANSACTIONS",
			NodeView:         "P2P_USERS_VW",
		},
		Engine: models.Engine{
			Application: "NEO4J_GRAPH_ANALYTICS",
			ComputePool: "CPU_X64_XS",
			Algorithm:   "louvain",
			OutputTable: "P2P_COMMUNITIES",
		},
	}

	require.NoError(t, Save(cfg))
	assert.True(t, Exists())

	loaded, err := Load()
	require.NoError(t, err)

	assert.Equal(t, cfg.Snowflake.Account, loaded.Snowflake.Account)
	assert.Equal(t, "P2P_AGG_TRANSACTIONS", loaded.Pipeline.EdgeTable)
	assert.Equal(t, "louvain", loaded.Engine.Algorithm)
}

func TestLoadMissingFileReturnsEmptyConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GRAPHDROP_CONFIG", filepath.Join(dir, "nope.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, &models.Config{}, cfg)
}

func TestEncryptDecryptPassword(t *testing.T) {
	encrypted, err := EncryptPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, IsEncrypted(encrypted))
	assert.NotContains(t, encrypted, "hunter2")

	decrypted, err := DecryptPassword(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", decrypted)
}

func TestEncryptPasswordIdempotent(t *testing.T) {
	encrypted, err := EncryptPassword("hunter2")
	require.NoError(t, err)

	again, err := EncryptPassword(encrypted)
	require.NoError(t, err)
	assert.Equal(t, encrypted, again)
}

func TestSaveEncryptsPasswordAtRest(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GRAPHDROP_CONFIG", filepath.Join(dir, "config.yaml"))

	cfg := &models.Config{
		Snowflake: models.Snowflake{Account: "xy12345", Password: "topsecret"},
	}
	require.NoError(t, Save(cfg))

	// The in-memory config stays in plaintext for the current process
	assert.Equal(t, "topsecret", cfg.Snowflake.Password)

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ENC[")
	assert.NotContains(t, string(data), "topsecret")

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "topsecret", loaded.Snowflake.Password)
}

func TestLoadDecryptsPassword(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GRAPHDROP_CONFIG", filepath.Join(dir, "config.yaml"))

	cfg := &models.Config{
		Snowflake: models.Snowflake{Password: "topsecret"},
	}
	require.NoError(t, EncryptConfig(cfg))
	require.NoError(t, Save(cfg))

	// Saved file must not contain the plaintext password
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "topsecret")

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "topsecret", loaded.Snowflake.Password)
}
