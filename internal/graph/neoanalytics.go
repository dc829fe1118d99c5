package graph

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"graphdrop/internal/snowflake"
	"graphdrop/pkg/errors"
)

// Database is the subset of the Snowflake service the engine adapter needs.
type Database interface {
	Query(ctx context.Context, query string) (*sql.Rows, error)
}

// NeoAnalytics invokes the Neo4j Graph Analytics packaged application
// through its stored-procedure surface. The application runs projection,
// computation and result materialization on its own compute pool; this
// adapter only hands over the configuration and blocks until completion.
type NeoAnalytics struct {
	db          Database
	application string
}

// NewNeoAnalytics creates an adapter for the named application installation
// (usually NEO4J_GRAPH_ANALYTICS).
func NewNeoAnalytics(db Database, application string) (*NeoAnalytics, error) {
	if err := snowflake.ValidIdentifier(application); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEngineConfig,
			fmt.Sprintf("Invalid application name %q", application))
	}
	return &NeoAnalytics{db: db, application: application}, nil
}

// CallSQL returns the procedure call for a job. The configuration object is
// passed as a JSON literal; single quotes are doubled for SQL embedding.
func (e *NeoAnalytics) CallSQL(job JobSpec) (string, error) {
	algo, err := LookupAlgorithm(job.Algorithm)
	if err != nil {
		return "", err
	}

	config, err := job.ConfigJSON()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("CALL %s.graph.%s('%s', PARSE_JSON('%s'))",
		e.application,
		algo.Procedure,
		job.ComputePool,
		strings.ReplaceAll(config, "'", "''"),
	), nil
}

// Run validates the job, invokes the engine and blocks until it finishes.
// Engine failures are surfaced with their original error as the cause and
// are never retried here.
func (e *NeoAnalytics) Run(ctx context.Context, job JobSpec) (*JobResult, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	call, err := e.CallSQL(job)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	rows, err := e.db.Query(ctx, call)
	if err != nil {
		return nil, errors.EngineError(
			fmt.Sprintf("Graph algorithm %s failed", job.Algorithm), err).
			WithContext("algorithm", job.Algorithm).
			WithContext("compute_pool", job.ComputePool)
	}
	defer rows.Close()

	result := &JobResult{Duration: time.Since(started)}

	// The procedure returns a single status row; the first column carries
	// the job identifier when present.
	if rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}

		values := make([]interface{}, len(cols))
		valuePtrs := make([]interface{}, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		if len(values) > 0 {
			if id, ok := values[0].(string); ok {
				result.JobID = id
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.EngineError(
			fmt.Sprintf("Graph algorithm %s failed", job.Algorithm), err)
	}

	result.Duration = time.Since(started)
	return result, nil
}
