package provision

import (
	"context"
	"fmt"
	"strings"

	"graphdrop/internal/snowflake"
	"graphdrop/pkg/errors"
	"graphdrop/pkg/models"
)

// Database is the subset of the Snowflake service provisioning needs.
type Database interface {
	Exec(ctx context.Context, query string) error
	UseRole(ctx context.Context, role string) error
}

// Service applies the role and privilege grants that let the graph
// analytics application read the source tables and write results. Grants
// are pure platform configuration: each statement either succeeds or the
// run stops at the first failure, with nothing to roll back.
type Service struct {
	db        Database
	snowflake models.Snowflake
	cfg       models.Provision
	pipeline  models.Pipeline
}

// NewService creates a provisioning service.
func NewService(db Database, snowflakeCfg models.Snowflake, cfg models.Provision, pipeline models.Pipeline) *Service {
	return &Service{db: db, snowflake: snowflakeCfg, cfg: cfg, pipeline: pipeline}
}

func (s *Service) validate() error {
	if s.cfg.ApplicationRole == "" {
		return errors.New(errors.ErrCodeRequiredField, "provision.application_role is required").
			WithSuggestions("For Neo4j Graph Analytics this is typically NEO4J_GRAPH_ANALYTICS.APP_USER")
	}
	if s.cfg.ConsumerRole == "" {
		return errors.New(errors.ErrCodeRequiredField, "provision.consumer_role is required")
	}

	idents := []string{s.cfg.ConsumerRole, s.snowflake.Database, s.snowflake.Schema}
	if s.cfg.AdminRole != "" {
		idents = append(idents, s.cfg.AdminRole)
	}
	if s.cfg.ResultsSchema != "" {
		idents = append(idents, s.cfg.ResultsSchema)
	}
	idents = append(idents, s.readTables()...)
	for _, ident := range idents {
		if err := snowflake.ValidIdentifier(ident); err != nil {
			return err
		}
	}

	// Application roles are APP.ROLE pairs, outside the plain identifier shape
	parts := strings.Split(s.cfg.ApplicationRole, ".")
	if len(parts) != 2 {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("provision.application_role must be APPLICATION.ROLE, got %q", s.cfg.ApplicationRole))
	}
	for _, part := range parts {
		if err := snowflake.ValidIdentifier(part); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) readTables() []string {
	tables := []string{s.pipeline.TransactionTable, s.pipeline.EntityTable,
		s.pipeline.EdgeTable, s.pipeline.NodeView}
	tables = append(tables, s.cfg.ReadTables...)

	var out []string
	for _, t := range tables {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (s *Service) resultsSchema() string {
	if s.cfg.ResultsSchema != "" {
		return s.cfg.ResultsSchema
	}
	return fmt.Sprintf("%s.%s", s.snowflake.Database, s.snowflake.Schema)
}

// Statements returns the grant statements in application order: role
// wiring first, then read access to the sources, then write access to the
// results schema.
func (s *Service) Statements() ([]string, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	database := s.snowflake.Database
	schema := fmt.Sprintf("%s.%s", database, s.snowflake.Schema)

	statements := []string{
		fmt.Sprintf("GRANT APPLICATION ROLE %s TO ROLE %s", s.cfg.ApplicationRole, s.cfg.ConsumerRole),
		fmt.Sprintf("GRANT USAGE ON DATABASE %s TO APPLICATION %s", database, s.application()),
		fmt.Sprintf("GRANT USAGE ON SCHEMA %s TO APPLICATION %s", schema, s.application()),
	}

	for _, table := range s.readTables() {
		statements = append(statements,
			fmt.Sprintf("GRANT SELECT ON %s TO APPLICATION %s", s.qualify(table), s.application()))
	}

	statements = append(statements,
		fmt.Sprintf("GRANT CREATE TABLE ON SCHEMA %s TO APPLICATION %s", s.resultsSchema(), s.application()),
		fmt.Sprintf("GRANT CREATE VIEW ON SCHEMA %s TO APPLICATION %s", s.resultsSchema(), s.application()),
	)

	return statements, nil
}

// Apply executes the grant statements, switching to the administrative
// role first when one is configured. It stops at the first failure;
// permission errors are not recoverable without administrative action.
func (s *Service) Apply(ctx context.Context) ([]string, error) {
	statements, err := s.Statements()
	if err != nil {
		return nil, err
	}

	if s.cfg.AdminRole != "" {
		if err := s.db.UseRole(ctx, s.cfg.AdminRole); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRoleNotFound,
				fmt.Sprintf("Failed to assume administrative role %s", s.cfg.AdminRole))
		}
	}

	var applied []string
	for _, stmt := range statements {
		if err := s.db.Exec(ctx, stmt); err != nil {
			return applied, errors.Wrap(err, errors.ErrCodeGrantFailed,
				fmt.Sprintf("Grant failed: %s", stmt))
		}
		applied = append(applied, stmt)
	}

	return applied, nil
}

// application is the application name half of the application role.
func (s *Service) application() string {
	return strings.SplitN(s.cfg.ApplicationRole, ".", 2)[0]
}

// qualify prefixes an unqualified table name with the session database and
// schema, so grants name objects unambiguously.
func (s *Service) qualify(table string) string {
	if strings.Contains(table, ".") {
		return table
	}
	return fmt.Sprintf("%s.%s.%s", s.snowflake.Database, s.snowflake.Schema, table)
}
