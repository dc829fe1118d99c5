package pipeline

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"graphdrop/pkg/errors"
)

// AggregateEdges groups transactions by ordered (source, target) pair and
// sums the amounts with an exact rational accumulator, so the result is
// independent of input order. Output is sorted by source then target,
// making repeated runs over the same input byte-identical. An empty input
// yields an empty output.
func AggregateEdges(transactions []Transaction) ([]Edge, error) {
	type pair struct{ source, target int64 }

	totals := make(map[pair]*big.Rat, len(transactions))
	for _, tx := range transactions {
		amount, err := ParseAmount(tx.Amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %d->%d: %w", tx.Source, tx.Target, err)
		}

		key := pair{tx.Source, tx.Target}
		if total, ok := totals[key]; ok {
			total.Add(total, amount)
		} else {
			totals[key] = amount
		}
	}

	edges := make([]Edge, 0, len(totals))
	for key, total := range totals {
		edges = append(edges, Edge{Source: key.source, Target: key.target, Total: total})
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})

	return edges, nil
}

// ProjectNodes deduplicates entity identifiers into the canonical vertex
// set, sorted ascending. Projection is idempotent: projecting an already
// distinct set returns the same set.
func ProjectNodes(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	nodes := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		nodes = append(nodes, id)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

// TotalWeight sums the aggregated edge weights. Together with
// AggregateEdges this preserves the total weight of the input transactions.
func TotalWeight(edges []Edge) *big.Rat {
	total := new(big.Rat)
	for _, e := range edges {
		total.Add(total, e.Total)
	}
	return total
}

// ParseAmount parses decimal text into an exact rational.
func ParseAmount(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, errors.ValidationError("amount", s, "not a decimal number")
	}
	return r, nil
}

// FormatAmount renders a rational as plain decimal text with trailing
// zeros trimmed. Snowflake NUMBER amounts always have finite decimal
// expansions, so 20 digits of precision never truncates real data.
func FormatAmount(r *big.Rat) string {
	if r == nil {
		return "0"
	}
	if r.IsInt() {
		return r.Num().String()
	}

	s := r.FloatString(20)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}
