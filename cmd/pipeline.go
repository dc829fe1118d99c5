package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"graphdrop/internal/graph"
	"graphdrop/internal/pipeline"
	"graphdrop/internal/provision"
	"graphdrop/internal/summary"
	"graphdrop/internal/ui"
)

var (
	pipelineSkipProvision bool
	pipelineAlgorithm     string
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the full pipeline: provision, prepare, run, summarize",
	Long: `Execute every stage in order: grant access, materialize the graph-ready
dataset, invoke the algorithm, and summarize the communities.

Each stage must succeed before the next starts. A failed stage stops the
pipeline with the underlying error; completed stages are left in place and
the pipeline can simply be run again, since every stage is idempotent.`,
	Run: runPipeline,
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.Flags().BoolVar(&pipelineSkipProvision, "skip-provision", false, "Assume grants are already in place")
	pipelineCmd.Flags().StringVarP(&pipelineAlgorithm, "algorithm", "a", "", "Algorithm to run; defaults to the configured one")
}

func runPipeline(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg, ok := loadConfigOrExit()
	if !ok {
		return
	}

	job := buildJobSpec(cfg, pipelineAlgorithm)
	if err := job.Validate(); err != nil {
		ui.ShowError(err)
		return
	}

	ui.ShowHeader("GraphDrop - Full Pipeline")

	service, ok := connectService(cfg)
	if !ok {
		return
	}
	defer service.Close()

	stages := 4
	if pipelineSkipProvision {
		stages = 3
	}
	progress := ui.NewStageProgress(stages)
	stage := 0

	if !pipelineSkipProvision {
		svc := provision.NewService(service, cfg.Snowflake, cfg.Provision, cfg.Pipeline)
		applied, err := svc.Apply(ctx)
		if err != nil {
			stage++
			progress.Update(stage, "provision", false)
			fmt.Println()
			ui.ShowError(err)
			return
		}
		stage++
		progress.Update(stage, fmt.Sprintf("provision (%d grants)", len(applied)), true)
	}

	m := pipeline.NewMaterializer(service, cfg.Pipeline)
	if err := m.Materialize(ctx); err != nil {
		stage++
		progress.Update(stage, "prepare", false)
		fmt.Println()
		ui.ShowError(err)
		return
	}
	stage++
	progress.Update(stage, "prepare", true)

	engine, err := graph.NewNeoAnalytics(service, cfg.Engine.Application)
	if err != nil {
		fmt.Println()
		ui.ShowError(err)
		return
	}
	result, err := engine.Run(ctx, job)
	if err != nil {
		stage++
		progress.Update(stage, job.Algorithm, false)
		fmt.Println()
		ui.ShowError(err)
		return
	}
	stage++
	progress.Update(stage, fmt.Sprintf("%s (%s)", job.Algorithm, result.Duration.Round(time.Second)), true)

	summarizer := summary.NewService(service)
	stats, err := summarizer.Distribution(ctx, cfg.Engine.OutputTable, 0)
	if err != nil {
		stage++
		progress.Update(stage, "summarize", false)
		fmt.Println()
		ui.ShowError(err)
		return
	}
	stage++
	progress.Update(stage, "summarize", true)
	progress.Finish()

	total, err := summarizer.MemberCount(ctx, cfg.Engine.OutputTable)
	if err != nil {
		ui.ShowError(err)
		return
	}

	fmt.Println()
	summary.Render(os.Stdout, stats, total, isatty.IsTerminal(os.Stdout.Fd()))
}
