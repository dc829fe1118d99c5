package graph

import (
	"context"
	"time"
)

// Engine is the narrow contract to an external graph-computation service.
// Run blocks until the computation completes; results are materialized by
// the engine at the job's write destination, not returned. Implementations
// must surface engine failures verbatim and must not retry: the computation
// may be expensive and partial re-execution semantics are unknown, so
// retries are the caller's decision.
type Engine interface {
	Run(ctx context.Context, job JobSpec) (*JobResult, error)
}

// JobResult is the completion signal of a finished engine job.
type JobResult struct {
	JobID    string
	Duration time.Duration
}
