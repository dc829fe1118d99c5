package pipeline

import (
	"context"
	"fmt"
	"math/big"

	"graphdrop/internal/snowflake"
	"graphdrop/pkg/errors"
	"graphdrop/pkg/models"
)

// Materializer turns the raw transaction and entity tables into the
// graph-ready artifacts: an aggregated weighted-edge table and a
// deduplicated node view. Both are created with replace semantics, so the
// materialized result is a full recompute, never an incremental update.
// Concurrent runs against the same destinations race destructively; keep
// one run in flight per destination.
type Materializer struct {
	db  Database
	cfg models.Pipeline
}

// NewMaterializer creates a Materializer over the given database.
func NewMaterializer(db Database, cfg models.Pipeline) *Materializer {
	return &Materializer{db: db, cfg: cfg}
}

// PreviewResult is what a dry-run materialization would have written.
type PreviewResult struct {
	Transactions int
	Edges        []Edge
	TotalWeight  *big.Rat
}

// VerifyResult reports the post-materialization consistency checks.
type VerifyResult struct {
	EdgeCount      int
	NodeCount      int
	Conserved      bool
	DuplicatePairs int
	// OrphanEdges counts edges referencing a node missing from the node
	// view. The external engine's handling of these is undefined, so they
	// are reported as a data-quality warning rather than an error.
	OrphanEdges int
}

func (m *Materializer) validate() error {
	fields := map[string]string{
		"transaction_table": m.cfg.TransactionTable,
		"source_column":     m.cfg.SourceColumn,
		"target_column":     m.cfg.TargetColumn,
		"amount_column":     m.cfg.AmountColumn,
		"entity_table":      m.cfg.EntityTable,
		"entity_column":     m.cfg.EntityColumn,
		"edge_table":        m.cfg.EdgeTable,
		"node_view":         m.cfg.NodeView,
	}
	for field, value := range fields {
		if value == "" {
			return errors.New(errors.ErrCodeRequiredField,
				fmt.Sprintf("Pipeline configuration field %s is required", field))
		}
		if err := snowflake.ValidIdentifier(value); err != nil {
			return errors.ConfigError(fmt.Sprintf("Invalid identifier in %s: %v", field, err), field)
		}
	}
	return nil
}

// EdgeSQL returns the statement materializing the aggregated edge table.
// SUM over the NUMBER amount column is exact in Snowflake, so no local
// accumulation error can creep in on this path.
func (m *Materializer) EdgeSQL() string {
	return fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT %s, %s, SUM(%s) AS TOTAL_AMOUNT FROM %s GROUP BY %s, %s",
		m.cfg.EdgeTable,
		m.cfg.SourceColumn, m.cfg.TargetColumn, m.cfg.AmountColumn,
		m.cfg.TransactionTable,
		m.cfg.SourceColumn, m.cfg.TargetColumn,
	)
}

// NodeSQL returns the statement materializing the deduplicated node view.
// The identifier column is renamed to NODEID so downstream consumers do not
// depend on the entity table's schema.
func (m *Materializer) NodeSQL() string {
	return fmt.Sprintf(
		"CREATE OR REPLACE VIEW %s (NODEID) AS SELECT DISTINCT %s FROM %s",
		m.cfg.NodeView, m.cfg.EntityColumn, m.cfg.EntityTable,
	)
}

// Materialize creates the edge table and node view. Each statement either
// fully succeeds or fails loudly; a failure leaves the prior artifact as it
// was, but there is no rollback across the two statements.
func (m *Materializer) Materialize(ctx context.Context) error {
	if err := m.validate(); err != nil {
		return err
	}

	if err := m.db.Exec(ctx, m.EdgeSQL()); err != nil {
		return errors.Wrap(err, errors.ErrCodeMaterializeFailed,
			fmt.Sprintf("Failed to materialize edge table %s", m.cfg.EdgeTable))
	}

	if err := m.db.Exec(ctx, m.NodeSQL()); err != nil {
		return errors.Wrap(err, errors.ErrCodeMaterializeFailed,
			fmt.Sprintf("Failed to materialize node view %s", m.cfg.NodeView))
	}

	return nil
}

// Preview computes the aggregation locally over up to limit source rows
// without writing anything, showing what Materialize would produce. A limit
// of 0 reads every row.
func (m *Materializer) Preview(ctx context.Context, limit int) (*PreviewResult, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s, %s, %s FROM %s",
		m.cfg.SourceColumn, m.cfg.TargetColumn, m.cfg.AmountColumn, m.cfg.TransactionTable)
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}

	rows, err := m.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.Source, &tx.Target, &tx.Amount); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSQLExecution, "Failed to scan transaction row")
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	edges, err := AggregateEdges(transactions)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Failed to aggregate transactions")
	}

	return &PreviewResult{
		Transactions: len(transactions),
		Edges:        edges,
		TotalWeight:  TotalWeight(edges),
	}, nil
}

// Verify runs the consistency checks over the materialized artifacts:
// the summed edge weight equals the summed transaction amount, no ordered
// pair appears twice, and every edge endpoint appears in the node view.
func (m *Materializer) Verify(ctx context.Context) (*VerifyResult, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	result := &VerifyResult{}

	conservationSQL := fmt.Sprintf(
		"SELECT COALESCE((SELECT SUM(%s) FROM %s), 0) = COALESCE((SELECT SUM(TOTAL_AMOUNT) FROM %s), 0)",
		m.cfg.AmountColumn, m.cfg.TransactionTable, m.cfg.EdgeTable,
	)
	if err := m.db.QueryRow(ctx, conservationSQL, &result.Conserved); err != nil {
		return nil, err
	}

	duplicateSQL := fmt.Sprintf(
		"SELECT COUNT(*) FROM (SELECT %s, %s FROM %s GROUP BY %s, %s HAVING COUNT(*) > 1)",
		m.cfg.SourceColumn, m.cfg.TargetColumn, m.cfg.EdgeTable,
		m.cfg.SourceColumn, m.cfg.TargetColumn,
	)
	if err := m.db.QueryRow(ctx, duplicateSQL, &result.DuplicatePairs); err != nil {
		return nil, err
	}

	orphanSQL := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s e WHERE NOT EXISTS (SELECT 1 FROM %s n WHERE n.NODEID = e.%s) OR NOT EXISTS (SELECT 1 FROM %s n WHERE n.NODEID = e.%s)",
		m.cfg.EdgeTable, m.cfg.NodeView, m.cfg.SourceColumn, m.cfg.NodeView, m.cfg.TargetColumn,
	)
	if err := m.db.QueryRow(ctx, orphanSQL, &result.OrphanEdges); err != nil {
		return nil, err
	}

	countSQL := fmt.Sprintf("SELECT (SELECT COUNT(*) FROM %s), (SELECT COUNT(*) FROM %s)",
		m.cfg.EdgeTable, m.cfg.NodeView)
	if err := m.db.QueryRow(ctx, countSQL, &result.EdgeCount, &result.NodeCount); err != nil {
		return nil, err
	}

	if !result.Conserved {
		return result, errors.New(errors.ErrCodeVerificationFailed,
			"Total edge weight does not match total transaction amount")
	}
	if result.DuplicatePairs > 0 {
		return result, errors.New(errors.ErrCodeVerificationFailed,
			fmt.Sprintf("%d ordered pairs appear more than once in the edge table", result.DuplicatePairs))
	}

	return result, nil
}
