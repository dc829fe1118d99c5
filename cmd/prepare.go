package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"graphdrop/internal/pipeline"
	"graphdrop/internal/ui"
)

var (
	prepareDryRun  bool
	prepareVerify  bool
	preparePreview int
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Materialize the graph-ready dataset",
	Long: `Build the aggregated edge table and deduplicated node view from the raw
transaction table.

Parallel transfers between the same ordered pair are collapsed into a single
edge carrying the summed amount. Both objects are created with replace
semantics, so repeated runs converge on the same state.`,
	Run: runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)
	prepareCmd.Flags().BoolVarP(&prepareDryRun, "dry-run", "d", false, "Preview the aggregation without creating objects")
	prepareCmd.Flags().BoolVar(&prepareVerify, "verify", false, "Run consistency checks after materializing")
	prepareCmd.Flags().IntVar(&preparePreview, "preview-rows", 0, "Row limit for --dry-run sampling (0 = all)")
}

func runPrepare(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg, ok := loadConfigOrExit()
	if !ok {
		return
	}

	ui.ShowHeader("GraphDrop - Prepare Dataset")

	service, ok := connectService(cfg)
	if !ok {
		return
	}
	defer service.Close()

	m := pipeline.NewMaterializer(service, cfg.Pipeline)

	if prepareDryRun {
		showPreview(ctx, m)
		return
	}

	ui.ShowSQL(m.EdgeSQL())
	ui.ShowSQL(m.NodeSQL())

	spinner := ui.NewSpinner("Materializing edge table and node view...")
	spinner.Start()
	if err := m.Materialize(ctx); err != nil {
		spinner.Stop(false, "Materialization failed")
		ui.ShowError(err)
		return
	}
	spinner.Stop(true, fmt.Sprintf("Created %s and %s", cfg.Pipeline.EdgeTable, cfg.Pipeline.NodeView))

	if prepareVerify {
		showVerification(ctx, m)
	}
}

func showPreview(ctx context.Context, m *pipeline.Materializer) {
	spinner := ui.NewSpinner("Sampling transactions...")
	spinner.Start()
	preview, err := m.Preview(ctx, preparePreview)
	if err != nil {
		spinner.Stop(false, "Preview failed")
		ui.ShowError(err)
		return
	}
	spinner.Stop(true, fmt.Sprintf("Aggregated %d transactions into %d edges",
		preview.Transactions, len(preview.Edges)))

	table := ui.NewTable()
	table.AddHeader("SOURCE", "TARGET", "TOTAL_AMOUNT")
	for _, edge := range preview.Edges {
		table.AddRow(
			fmt.Sprintf("%d", edge.Source),
			fmt.Sprintf("%d", edge.Target),
			edge.TotalString(),
		)
	}
	table.Render()

	ui.ShowInfo(fmt.Sprintf("Total weight: %s", pipeline.FormatAmount(preview.TotalWeight)))
	ui.ShowInfo("No objects were created. Statements that would run:")
	ui.ShowSQL(m.EdgeSQL())
	ui.ShowSQL(m.NodeSQL())
}

func showVerification(ctx context.Context, m *pipeline.Materializer) {
	result, err := m.Verify(ctx)
	if err != nil {
		ui.ShowError(err)
		return
	}

	table := ui.NewTable()
	table.AddHeader("CHECK", "RESULT")
	table.AddRow("Edges", ui.FormatCount(int64(result.EdgeCount)))
	table.AddRow("Nodes", ui.FormatCount(int64(result.NodeCount)))
	table.AddRow("Weight conserved", fmt.Sprintf("%t", result.Conserved))
	table.AddRow("Duplicate pairs", ui.FormatCount(int64(result.DuplicatePairs)))
	table.AddRow("Orphan edges", ui.FormatCount(int64(result.OrphanEdges)))
	table.Render()

	if result.OrphanEdges > 0 {
		ui.ShowWarning(fmt.Sprintf("%d edges reference entities missing from the node view", result.OrphanEdges))
	}
	ui.ShowSuccess("Dataset verified")
}
