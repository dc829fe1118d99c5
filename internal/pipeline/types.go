package pipeline

import (
	"context"
	"database/sql"
	"math/big"
)

// Transaction is one directed payment event between two node identifiers.
// The amount is carried as decimal text so aggregation stays exact.
type Transaction struct {
	Source int64
	Target int64
	Amount string
}

// Edge is the aggregated weight of all transactions for one ordered
// (source, target) pair.
type Edge struct {
	Source int64
	Target int64
	Total  *big.Rat
}

// TotalString renders the aggregated amount as plain decimal text.
func (e Edge) TotalString() string {
	return FormatAmount(e.Total)
}

// Database is the subset of the Snowflake service the pipeline needs.
type Database interface {
	Exec(ctx context.Context, query string) error
	Query(ctx context.Context, query string) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, dest ...interface{}) error
}
