package errors

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
	}{
		{
			name: "basic error",
			err:  New(ErrCodeConnectionFailed, "Connection failed"),
		},
		{
			name: "error with suggestions",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithSuggestions("Check network", "Verify credentials"),
		},
		{
			name: "error with context",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithContext("account", "xy12345").
				WithContext("warehouse", "COMPUTE_WH"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != ErrCodeConnectionFailed {
				t.Errorf("Expected code %s, got %s", ErrCodeConnectionFailed, tt.err.Code)
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	baseErr := fmt.Errorf("database connection refused")

	appErr := Wrap(baseErr, ErrCodeConnectionFailed, "Failed to connect to Snowflake")

	if appErr.Cause != baseErr {
		t.Error("Wrapped error should contain original error as cause")
	}

	if appErr.Code != ErrCodeConnectionFailed {
		t.Errorf("Expected code %s, got %s", ErrCodeConnectionFailed, appErr.Code)
	}
}

func TestSQLErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		cause    error
		expected ErrorCode
	}{
		{
			name:     "permission failure",
			cause:    fmt.Errorf("SQL access control error: Insufficient privileges to operate on table 'P2P_TRANSACTIONS'"),
			expected: ErrCodeSQLPermission,
		},
		{
			name:     "missing object",
			cause:    fmt.Errorf("Object 'P2P_AGG_TRANSACTIONS' does not exist or not authorized"),
			expected: ErrCodeSQLObjectNotFound,
		},
		{
			name:     "timeout",
			cause:    fmt.Errorf("statement reached its statement or warehouse timeout"),
			expected: ErrCodeSQLTimeout,
		},
		{
			name:     "generic failure",
			cause:    fmt.Errorf("unexpected failure"),
			expected: ErrCodeSQLExecution,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SQLError("statement failed", "SELECT 1", tt.cause)
			if err.Code != tt.expected {
				t.Errorf("Expected code %s, got %s", tt.expected, err.Code)
			}
		})
	}
}

func TestEngineErrorCarriesCauseVerbatim(t *testing.T) {
	cause := fmt.Errorf("Node table 'NO_SUCH_TABLE' referenced by relationship table not found in projection")

	err := EngineError("graph job failed", cause)

	if err.Cause != cause {
		t.Error("Engine error must carry the engine failure verbatim as cause")
	}
	if err.Code != ErrCodeEngineInvocation {
		t.Errorf("Expected code %s, got %s", ErrCodeEngineInvocation, err.Code)
	}
}

func TestRetryLogic(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	config := &RetryConfig{
		MaxRetries:   maxAttempts - 1,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
		RetryableError: func(err error) bool {
			return true
		},
	}

	ctx := context.Background()

	err := Retry(ctx, config, func(ctx context.Context) error {
		attempts++
		if attempts < maxAttempts {
			return New(ErrCodeConnectionTimeout, "Timeout").AsRecoverable()
		}
		return nil
	})

	if err != nil {
		t.Error("Expected retry to succeed")
	}

	if attempts != maxAttempts {
		t.Errorf("Expected %d attempts, got %d", maxAttempts, attempts)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0

	config := DefaultRetryConfig()
	config.InitialDelay = time.Millisecond

	err := Retry(context.Background(), config, func(ctx context.Context) error {
		attempts++
		return New(ErrCodeEngineInvocation, "graph job failed")
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Engine invocation errors must not be retried, got %d attempts", attempts)
	}
}

func TestCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 100*time.Millisecond)
	ctx := context.Background()

	failing := func() error { return fmt.Errorf("boom") }

	_ = cb.Execute(ctx, failing)
	_ = cb.Execute(ctx, failing)

	if cb.GetState() != "open" {
		t.Errorf("Expected circuit to open after max failures, state is %s", cb.GetState())
	}

	err := cb.Execute(ctx, func() error { return nil })
	if err == nil {
		t.Error("Expected open circuit to reject execution")
	}

	time.Sleep(150 * time.Millisecond)

	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Errorf("Expected half-open circuit to allow execution, got %v", err)
	}

	if cb.GetState() != "closed" {
		t.Errorf("Expected circuit to close after success, state is %s", cb.GetState())
	}
}
