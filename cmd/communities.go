package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"graphdrop/internal/summary"
	"graphdrop/internal/ui"
)

var (
	communitiesLimit int
	communitiesTable string
)

var communitiesCmd = &cobra.Command{
	Use:   "communities",
	Short: "Summarize the community detection results",
	Long: `Read the algorithm output table and report the community size
distribution, largest community first.`,
	Run: runCommunities,
}

func init() {
	rootCmd.AddCommand(communitiesCmd)
	communitiesCmd.Flags().IntVarP(&communitiesLimit, "limit", "n", 0, "Show only the N largest communities (0 = all)")
	communitiesCmd.Flags().StringVarP(&communitiesTable, "table", "t", "", "Output table to summarize; defaults to the configured one")
}

func runCommunities(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg, ok := loadConfigOrExit()
	if !ok {
		return
	}

	outputTable := communitiesTable
	if outputTable == "" {
		outputTable = cfg.Engine.OutputTable
	}

	ui.ShowHeader("GraphDrop - Communities")

	service, ok := connectService(cfg)
	if !ok {
		return
	}
	defer service.Close()

	svc := summary.NewService(service)

	stats, err := svc.Distribution(ctx, outputTable, communitiesLimit)
	if err != nil {
		ui.ShowError(err)
		return
	}

	total, err := svc.MemberCount(ctx, outputTable)
	if err != nil {
		ui.ShowError(err)
		return
	}

	fmt.Println()
	summary.Render(os.Stdout, stats, total, isatty.IsTerminal(os.Stdout.Fd()))
}
