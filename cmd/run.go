package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"graphdrop/internal/graph"
	"graphdrop/internal/ui"
)

var (
	runAlgorithm string
	runShowJSON  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a graph algorithm on the prepared dataset",
	Long: `Invoke the Neo4j Graph Analytics application over the materialized edge
table and node view.

The call blocks until the engine finishes: projection, computation, and the
write of the output table all happen inside the stored procedure. Engine
failures are reported verbatim and the command never retries on its own,
since a failed run may already have consumed compute credits.`,
	Run: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runAlgorithm, "algorithm", "a", "", "Algorithm to run (louvain, pagerank, wcc); defaults to the configured one")
	runCmd.Flags().BoolVar(&runShowJSON, "show-config", false, "Print the engine configuration JSON before running")
}

func runRun(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg, ok := loadConfigOrExit()
	if !ok {
		return
	}

	job := buildJobSpec(cfg, runAlgorithm)
	if err := job.Validate(); err != nil {
		ui.ShowError(err)
		return
	}

	algo, _ := graph.LookupAlgorithm(job.Algorithm)
	ui.ShowHeader(fmt.Sprintf("GraphDrop - Run %s", algo.Name))

	if runShowJSON {
		configJSON, err := job.ConfigJSON()
		if err != nil {
			ui.ShowError(err)
			return
		}
		ui.ShowInfo("Engine configuration:")
		fmt.Println(configJSON)
	}

	service, ok := connectService(cfg)
	if !ok {
		return
	}
	defer service.Close()

	if err := preflightDataset(ctx, service, cfg.Pipeline); err != nil {
		ui.ShowError(err)
		return
	}

	engine, err := graph.NewNeoAnalytics(service, cfg.Engine.Application)
	if err != nil {
		ui.ShowError(err)
		return
	}

	spinner := ui.NewSpinner(fmt.Sprintf("Running %s on compute pool %s...", algo.Name, job.ComputePool))
	spinner.Start()
	result, err := engine.Run(ctx, job)
	if err != nil {
		spinner.Stop(false, fmt.Sprintf("%s failed", algo.Name))
		ui.ShowError(err)
		return
	}
	spinner.Stop(true, fmt.Sprintf("%s completed in %s", algo.Name, result.Duration.Round(time.Second)))

	if result.JobID != "" {
		ui.ShowInfo(fmt.Sprintf("Engine job id: %s", result.JobID))
	}
	ui.ShowSuccess(fmt.Sprintf("Results written to %s", cfg.Engine.OutputTable))
	ui.ShowInfo("Summarize with: graphdrop communities")
}
