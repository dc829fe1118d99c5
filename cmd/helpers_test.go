package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphdrop/internal/security"
	"graphdrop/pkg/errors"
	"graphdrop/pkg/models"
)

func testAppConfig() *models.Config {
	return &models.Config{
		Snowflake: models.Snowflake{
			Account:   "xy12345",
			Username:  "analyst",
			Password:  "secret",
			Database:  "FRAUD_DB",
			Schema:    "PUBLIC",
			Warehouse: "COMPUTE_WH",
			Role:      "ANALYST",
		},
		Pipeline: models.Pipeline{
			TransactionTable: "P2P_TRANSACTIONS",
			SourceColumn:     "SOURCE_ID",
			TargetColumn:     "TARGET_ID",
			AmountColumn:     "AMOUNT",
			EntityTable:      "P2P_USERS",
			EntityColumn:     "ID",
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
}

func TestSnowflakeConfig(t *testing.T) {
	cfg := testAppConfig()
	cfg.Snowflake.Timeout = "2m"

	sfConfig, err := snowflakeConfig(cfg.Snowflake)
	require.NoError(t, err)
	assert.Equal(t, "xy12345", sfConfig.Account)
	assert.Equal(t, 2*time.Minute, sfConfig.Timeout)
}

func TestSnowflakeConfigDefaultTimeout(t *testing.T) {
	sfConfig, err := snowflakeConfig(testAppConfig().Snowflake)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, sfConfig.Timeout)
}

func TestSnowflakeConfigBadTimeout(t *testing.T) {
	cfg := testAppConfig()
	cfg.Snowflake.Timeout = "soon"

	_, err := snowflakeConfig(cfg.Snowflake)
	require.Error(t, err)
}

func TestBuildJobSpec(t *testing.T) {
	cfg := testAppConfig()

	job := buildJobSpec(cfg, "")
	require.NoError(t, job.Validate())

	assert.Equal(t, "louvain", job.Algorithm)
	assert.Equal(t, "CPU_X64_XS", job.ComputePool)
	assert.Equal(t, []string{"P2P_USERS_VW"}, job.Project.NodeTables)

	rel, ok := job.Project.RelationshipTables["P2P_AGG_TRANSACTIONS"]
	require.True(t, ok)
	assert.Equal(t, "P2P_USERS_VW", rel.SourceTable)
	assert.Equal(t, "P2P_USERS_VW", rel.TargetTable)

	require.Len(t, job.Write, 1)
	assert.Equal(t, "P2P_COMMUNITIES", job.Write[0].OutputTable)
}

func TestBuildJobSpecAlgorithmOverride(t *testing.T) {
	job := buildJobSpec(testAppConfig(), "pagerank")
	assert.Equal(t, "pagerank", job.Algorithm)
	require.NoError(t, job.Validate())
}

func TestResolvePasswordFromCredentialStore(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GRAPHDROP_USE_KEYCHAIN", "false")

	manager, err := security.NewCredentialManager()
	require.NoError(t, err)
	require.NoError(t, manager.StoreCredential(security.PasswordCredential, "password", "hunter2", nil))

	// Setup blanks the password in the saved config when the credential
	// store holds it; connecting must recover it from there.
	sf := testAppConfig().Snowflake
	sf.Password = ""

	require.NoError(t, resolvePassword(&sf))
	assert.Equal(t, "hunter2", sf.Password)
}

func TestResolvePasswordMissingCredential(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GRAPHDROP_USE_KEYCHAIN", "false")

	sf := testAppConfig().Snowflake
	sf.Password = ""

	err := resolvePassword(&sf)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCredentialStorage, errors.GetErrorCode(err))
}

func TestResolvePasswordKeepsExplicitPassword(t *testing.T) {
	sf := testAppConfig().Snowflake
	require.NoError(t, resolvePassword(&sf))
	assert.Equal(t, "secret", sf.Password)
}

type fakeTableChecker struct {
	existing map[string]bool
}

func (f *fakeTableChecker) TableExists(ctx context.Context, name string) (bool, error) {
	return f.existing[name], nil
}

func TestPreflightDataset(t *testing.T) {
	cfg := testAppConfig()
	checker := &fakeTableChecker{existing: map[string]bool{
		"P2P_USERS_VW":         true,
		"P2P_AGG_TRANSACTIONS": true,
	}}

	require.NoError(t, preflightDataset(context.Background(), checker, cfg.Pipeline))
}

func TestPreflightDatasetMissingEdgeTable(t *testing.T) {
	cfg := testAppConfig()
	checker := &fakeTableChecker{existing: map[string]bool{"P2P_USERS_VW": true}}

	err := preflightDataset(context.Background(), checker, cfg.Pipeline)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSQLObjectNotFound, errors.GetErrorCode(err))
}
