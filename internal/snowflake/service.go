package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"graphdrop/pkg/errors"
	_ "github.com/snowflakedb/gosnowflake"
)

// Service provides Snowflake database operations. All statements run
// against the session context (database, schema, warehouse, role) fixed at
// connect time rather than ambient state mutated mid-run.
type Service struct {
	db             *sql.DB
	config         Config
	connected      bool
	circuitBreaker *errors.CircuitBreaker
}

// Config holds Snowflake connection configuration
type Config struct {
	Account   string
	Username  string
	Password  string
	Database  string
	Schema    string
	Warehouse string
	Role      string
	Timeout   time.Duration
}

// NewService creates a new Snowflake service
func NewService(config Config) *Service {
	return &Service{
		config:         config,
		circuitBreaker: errors.NewCircuitBreaker("snowflake", 5, 30*time.Second),
	}
}

// Connect establishes a connection to Snowflake
func (s *Service) Connect() error {
	if s.connected {
		return nil
	}

	// Use circuit breaker for connection attempts
	return s.circuitBreaker.Execute(context.Background(), func() error {
		return errors.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
			dsn := fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s&role=%s",
				s.config.Username,
				s.config.Password,
				s.config.Account,
				s.config.Database,
				s.config.Schema,
				s.config.Warehouse,
				s.config.Role,
			)

			db, err := sql.Open("snowflake", dsn)
			if err != nil {
				return errors.ConnectionError("Failed to open Snowflake connection", err).
					WithContext("account", s.config.Account).
					WithContext("warehouse", s.config.Warehouse)
			}

			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(10 * time.Minute)

			connCtx, cancel := s.getContext(context.Background())
			defer cancel()

			if err := db.PingContext(connCtx); err != nil {
				db.Close()

				if strings.Contains(err.Error(), "authentication") {
					return errors.New(errors.ErrCodeAuthenticationFailed, "Authentication failed").
						WithContext("user", s.config.Username).
						WithSuggestions(
							"Verify your username and password",
							"Check if your account is locked",
							"Ensure MFA is properly configured if required",
						)
				}

				return errors.ConnectionError("Failed to connect to Snowflake", err).
					WithContext("account", s.config.Account).
					AsRecoverable()
			}

			s.db = db
			s.connected = true
			return nil
		})
	})
}

// Close closes the database connection
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	s.connected = false
	return nil
}

// Exec executes a single statement. DDL against Snowflake autocommits per
// statement, so CREATE OR REPLACE is atomic at the statement level.
func (s *Service) Exec(ctx context.Context, query string) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to database").
			WithSuggestions("Call Connect() before executing SQL")
	}

	execCtx, cancel := s.getContext(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(execCtx, query); err != nil {
		return errors.SQLError("Failed to execute statement", query, err)
	}
	return nil
}

// Query executes a query and returns results
func (s *Service) Query(ctx context.Context, query string) (*sql.Rows, error) {
	if !s.connected {
		return nil, fmt.Errorf("not connected to database")
	}

	queryCtx, cancel := s.getContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(queryCtx, query)
	if err != nil {
		return nil, errors.SQLError("Query failed", query, err)
	}
	return rows, nil
}

// QueryRow executes a query expected to return a single row
func (s *Service) QueryRow(ctx context.Context, query string, dest ...interface{}) error {
	if !s.connected {
		return fmt.Errorf("not connected to database")
	}

	queryCtx, cancel := s.getContext(ctx)
	defer cancel()

	if err := s.db.QueryRowContext(queryCtx, query).Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return errors.New(errors.ErrCodeNoResults, "Query returned no rows").
				WithContext("query", query)
		}
		return errors.SQLError("Query failed", query, err)
	}
	return nil
}

// UseRole switches the active role for the session. Provisioning needs an
// administrative role; everything else runs as the configured role.
func (s *Service) UseRole(ctx context.Context, role string) error {
	if err := ValidIdentifier(role); err != nil {
		return err
	}
	return s.Exec(ctx, fmt.Sprintf("USE ROLE %s", role))
}

// TableExists reports whether a table or view with the given name exists in
// the session's database and schema.
func (s *Service) TableExists(ctx context.Context, name string) (bool, error) {
	if err := ValidIdentifier(name); err != nil {
		return false, err
	}

	var count int
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = '%s' AND table_name = '%s'",
		strings.ToUpper(s.config.Schema),
		strings.ToUpper(unqualified(name)),
	)
	if err := s.QueryRow(ctx, query, &count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// TestConnection tests the database connection
func (s *Service) TestConnection() error {
	if !s.connected {
		if err := s.Connect(); err != nil {
			return err
		}
	}

	ctx, cancel := s.getContext(context.Background())
	defer cancel()

	return s.db.PingContext(ctx)
}

// Database returns the configured database name
func (s *Service) Database() string {
	return s.config.Database
}

// Schema returns the configured schema name
func (s *Service) Schema() string {
	return s.config.Schema
}

// Helper methods

func (s *Service) getContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := s.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*){0,2}$`)

// ValidIdentifier rejects names that cannot be safely interpolated into
// generated SQL. Accepts optionally qualified names (db.schema.object).
func ValidIdentifier(name string) error {
	if name == "" {
		return errors.New(errors.ErrCodeRequiredField, "Identifier must not be empty")
	}
	if !identifierPattern.MatchString(name) {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("Invalid identifier %q", name)).
			WithSuggestions("Use unquoted Snowflake identifiers (letters, digits, _, $)")
	}
	return nil
}

func unqualified(name string) string {
	parts := strings.Split(name, ".")
	return parts[len(parts)-1]
}

// ValidateConfig validates the Snowflake configuration
func ValidateConfig(config Config) error {
	if config.Account == "" {
		return fmt.Errorf("account is required")
	}
	if config.Username == "" {
		return fmt.Errorf("username is required")
	}
	if config.Password == "" {
		return fmt.Errorf("password is required")
	}
	if config.Warehouse == "" {
		return fmt.Errorf("warehouse is required")
	}
	if config.Role == "" {
		return fmt.Errorf("role is required")
	}
	return nil
}
