package cmd

import (
	"context"
	"fmt"
	"time"

	"graphdrop/internal/config"
	"graphdrop/internal/graph"
	"graphdrop/internal/security"
	"graphdrop/internal/snowflake"
	"graphdrop/internal/ui"
	"graphdrop/pkg/errors"
	"graphdrop/pkg/models"
)

// snowflakeConfig converts the YAML connection settings into the service
// configuration, parsing the timeout string.
func snowflakeConfig(cfg models.Snowflake) (snowflake.Config, error) {
	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		parsed, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return snowflake.Config{}, errors.ConfigError(
				fmt.Sprintf("Invalid timeout %q", cfg.Timeout), "snowflake.timeout")
		}
		timeout = parsed
	}

	return snowflake.Config{
		Account:   cfg.Account,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
		Timeout:   timeout,
	}, nil
}

// buildJobSpec assembles the engine job from the pipeline and engine
// configuration. The node view and aggregated edge table feed the
// projection; the algorithm may be overridden per run.
func buildJobSpec(cfg *models.Config, algorithm string) graph.JobSpec {
	if algorithm == "" {
		algorithm = cfg.Engine.Algorithm
	}

	return graph.JobSpec{
		Algorithm:   algorithm,
		ComputePool: cfg.Engine.ComputePool,
		Project: graph.ProjectSpec{
			NodeTables: []string{cfg.Pipeline.NodeView},
			RelationshipTables: map[string]graph.RelationshipSpec{
				cfg.Pipeline.EdgeTable: {
					SourceTable: cfg.Pipeline.NodeView,
					TargetTable: cfg.Pipeline.NodeView,
					Orientation: graph.OrientationNatural,
				},
			},
		},
		Compute: graph.ComputeSpec{
			ConsecutiveIDs:             true,
			RelationshipWeightProperty: "TOTAL_AMOUNT",
		},
		Write: []graph.WriteSpec{
			{NodeLabel: cfg.Pipeline.NodeView, OutputTable: cfg.Engine.OutputTable},
		},
	}
}

type tableChecker interface {
	TableExists(ctx context.Context, name string) (bool, error)
}

// preflightDataset verifies the projected objects exist before an engine
// call spends compute pool credits on a job that cannot project.
func preflightDataset(ctx context.Context, db tableChecker, pipeline models.Pipeline) error {
	for _, name := range []string{pipeline.NodeView, pipeline.EdgeTable} {
		exists, err := db.TableExists(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			return errors.New(errors.ErrCodeSQLObjectNotFound,
				fmt.Sprintf("%s does not exist in the session schema", name)).
				WithSuggestions("Run 'graphdrop prepare' to materialize the dataset first")
		}
	}
	return nil
}

// loadConfigOrExit loads the configuration, showing a setup hint when none
// exists yet.
func loadConfigOrExit() (*models.Config, bool) {
	cfg, err := config.Load()
	if err != nil {
		ui.ShowError(err)
		return nil, false
	}
	if cfg.Snowflake.Account == "" {
		ui.ShowError(fmt.Errorf("no configuration found at %s", config.GetConfigFile()))
		ui.ShowInfo("Run 'graphdrop setup' to create one")
		return nil, false
	}
	return cfg, true
}

// resolvePassword fills in the password from the credential store when the
// config carries none, which is how setup stores keychain-backed secrets.
func resolvePassword(cfg *models.Snowflake) error {
	if cfg.Password != "" {
		return nil
	}

	manager, err := security.NewCredentialManager()
	if err != nil {
		return err
	}

	cred, err := manager.GetCredential(security.PasswordCredential)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCredentialStorage,
			"No password in the config file and none found in the credential store").
			WithSuggestions("Run 'graphdrop setup' to store credentials")
	}

	cfg.Password = cred.Value
	return nil
}

// connectService opens a Snowflake session with a spinner.
func connectService(cfg *models.Config) (*snowflake.Service, bool) {
	if err := resolvePassword(&cfg.Snowflake); err != nil {
		ui.ShowError(err)
		return nil, false
	}

	sfConfig, err := snowflakeConfig(cfg.Snowflake)
	if err != nil {
		ui.ShowError(err)
		return nil, false
	}
	if err := snowflake.ValidateConfig(sfConfig); err != nil {
		ui.ShowError(err)
		return nil, false
	}

	service := snowflake.NewService(sfConfig)

	spinner := ui.NewSpinner("Connecting to Snowflake...")
	spinner.Start()
	if err := service.Connect(); err != nil {
		spinner.Stop(false, "Connection failed")
		ui.ShowError(err)
		return nil, false
	}
	spinner.Stop(true, fmt.Sprintf("Connected to %s", cfg.Snowflake.Account))

	return service, true
}
