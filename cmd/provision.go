package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"graphdrop/internal/provision"
	"graphdrop/internal/ui"
)

var provisionDryRun bool

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Grant the graph analytics application access",
	Long: `Apply the role and privilege grants that let the Neo4j Graph Analytics
application read the source tables and write result tables.

Grants are applied in order and the command stops at the first failure.
Use --dry-run to print the statements without executing them.`,
	Run: runProvision,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().BoolVarP(&provisionDryRun, "dry-run", "d", false, "Print grant statements without executing")
}

func runProvision(cmd *cobra.Command, args []string) {
	cfg, ok := loadConfigOrExit()
	if !ok {
		return
	}

	ui.ShowHeader("GraphDrop - Provision Access")

	if provisionDryRun {
		svc := provision.NewService(nil, cfg.Snowflake, cfg.Provision, cfg.Pipeline)
		statements, err := svc.Statements()
		if err != nil {
			ui.ShowError(err)
			return
		}
		ui.ShowInfo("Statements that would be executed:")
		for _, stmt := range statements {
			ui.ShowSQL(stmt)
		}
		return
	}

	service, ok := connectService(cfg)
	if !ok {
		return
	}
	defer service.Close()

	svc := provision.NewService(service, cfg.Snowflake, cfg.Provision, cfg.Pipeline)

	spinner := ui.NewSpinner("Applying grants...")
	spinner.Start()
	applied, err := svc.Apply(context.Background())
	if err != nil {
		spinner.Stop(false, fmt.Sprintf("Provisioning failed after %d grants", len(applied)))
		ui.ShowError(err)
		return
	}
	spinner.Stop(true, fmt.Sprintf("Applied %d grants", len(applied)))

	for _, stmt := range applied {
		ui.ShowSQL(stmt)
	}
	ui.ShowSuccess(fmt.Sprintf("Application %s can now read the sources and write results",
		cfg.Engine.Application))
}
