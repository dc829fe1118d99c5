package provision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphdrop/pkg/errors"
	"graphdrop/pkg/models"
)

type recordingDB struct {
	executed []string
	failOn   string
	failErr  error
}

func (r *recordingDB) Exec(ctx context.Context, query string) error {
	if r.failOn != "" && query == r.failOn {
		return r.failErr
	}
	r.executed = append(r.executed, query)
	return nil
}

func (r *recordingDB) UseRole(ctx context.Context, role string) error {
	return r.Exec(ctx, "USE ROLE "+role)
}

func testConfig() (models.Snowflake, models.Provision, models.Pipeline) {
	sf := models.Snowflake{
		Account:  "xy12345",
		Database: "FRAUD_DB",
		Schema:   "PUBLIC",
	}
	prov := models.Provision{
		AdminRole:       "ACCOUNTADMIN",
		ConsumerRole:    "ANALYST",
		ApplicationRole: "NEO4J_GRAPH_ANALYTICS.APP_USER",
	}
	pipe := models.Pipeline{
		TransactionTable: "P2P_TRANSACTIONS",
		EntityTable:      "P2P_USERS",
		EdgeTable:        "P2P_AGG_TRANSACTIONS",
		NodeView:         "P2P_USERS_VW",
	}
	return sf, prov, pipe
}

func TestStatements(t *testing.T) {
	sf, prov, pipe := testConfig()
	svc := NewService(&recordingDB{}, sf, prov, pipe)

	statements, err := svc.Statements()
	require.NoError(t, err)

	assert.Equal(t, "GRANT APPLICATION ROLE NEO4J_GRAPH_ANALYTICS.APP_USER TO ROLE ANALYST", statements[0])
	assert.Equal(t, "GRANT USAGE ON DATABASE FRAUD_DB TO APPLICATION NEO4J_GRAPH_ANALYTICS", statements[1])
	assert.Equal(t, "GRANT USAGE ON SCHEMA FRAUD_DB.PUBLIC TO APPLICATION NEO4J_GRAPH_ANALYTICS", statements[2])
	assert.Contains(t, statements, "GRANT SELECT ON FRAUD_DB.PUBLIC.P2P_TRANSACTIONS TO APPLICATION NEO4J_GRAPH_ANALYTICS")
	assert.Contains(t, statements, "GRANT SELECT ON FRAUD_DB.PUBLIC.P2P_USERS_VW TO APPLICATION NEO4J_GRAPH_ANALYTICS")
	assert.Contains(t, statements, "GRANT CREATE TABLE ON SCHEMA FRAUD_DB.PUBLIC TO APPLICATION NEO4J_GRAPH_ANALYTICS")
	assert.Contains(t, statements, "GRANT CREATE VIEW ON SCHEMA FRAUD_DB.PUBLIC TO APPLICATION NEO4J_GRAPH_ANALYTICS")
}

func TestStatementsResultsSchemaOverride(t *testing.T) {
	sf, prov, pipe := testConfig()
	prov.ResultsSchema = "FRAUD_DB.RESULTS"
	svc := NewService(&recordingDB{}, sf, prov, pipe)

	statements, err := svc.Statements()
	require.NoError(t, err)
	assert.Contains(t, statements, "GRANT CREATE TABLE ON SCHEMA FRAUD_DB.RESULTS TO APPLICATION NEO4J_GRAPH_ANALYTICS")
}

func TestStatementsRejectsBadApplicationRole(t *testing.T) {
	sf, prov, pipe := testConfig()
	prov.ApplicationRole = "APP_USER"
	svc := NewService(&recordingDB{}, sf, prov, pipe)

	_, err := svc.Statements()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetErrorCode(err))
}

func TestStatementsRejectsInjection(t *testing.T) {
	sf, prov, pipe := testConfig()
	prov.ConsumerRole = "ANALYST; DROP TABLE USERS"
	svc := NewService(&recordingDB{}, sf, prov, pipe)

	_, err := svc.Statements()
	require.Error(t, err)
}

func TestApplyAssumesAdminRoleFirst(t *testing.T) {
	db := &recordingDB{}
	sf, prov, pipe := testConfig()
	svc := NewService(db, sf, prov, pipe)

	applied, err := svc.Apply(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "USE ROLE ACCOUNTADMIN", db.executed[0])
	assert.Len(t, applied, len(db.executed)-1)
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	db := &recordingDB{
		failOn:  "GRANT USAGE ON DATABASE FRAUD_DB TO APPLICATION NEO4J_GRAPH_ANALYTICS",
		failErr: assert.AnError,
	}
	sf, prov, pipe := testConfig()
	prov.AdminRole = ""
	svc := NewService(db, sf, prov, pipe)

	applied, err := svc.Apply(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeGrantFailed, errors.GetErrorCode(err))
	assert.Len(t, applied, 1)
	assert.Len(t, db.executed, 1)
}
