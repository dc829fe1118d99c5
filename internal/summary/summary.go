package summary

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"graphdrop/internal/snowflake"
	"graphdrop/pkg/errors"
)

// Database is the subset of the Snowflake service summarization needs.
type Database interface {
	Query(ctx context.Context, query string) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, dest ...interface{}) error
}

// CommunityStat is one row of the community size distribution.
type CommunityStat struct {
	Community int64
	Size      int64
}

// Service reads algorithm output tables and reports community
// distributions.
type Service struct {
	db Database
}

// NewService creates a summarization service.
func NewService(db Database) *Service {
	return &Service{db: db}
}

// DistributionSQL returns the community distribution query for the given
// output table. Ties in size are broken by community id ascending so the
// ordering is stable across runs.
func DistributionSQL(outputTable string, limit int) (string, error) {
	if err := snowflake.ValidIdentifier(outputTable); err != nil {
		return "", err
	}
	query := fmt.Sprintf(
		"SELECT community, COUNT(*) AS community_size FROM %s GROUP BY community ORDER BY community_size DESC, community ASC",
		outputTable)
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	return query, nil
}

// Distribution returns community sizes for the output table, largest
// first. A limit of 0 returns every community.
func (s *Service) Distribution(ctx context.Context, outputTable string, limit int) ([]CommunityStat, error) {
	query, err := DistributionSQL(outputTable, limit)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []CommunityStat
	for rows.Next() {
		var stat CommunityStat
		if err := rows.Scan(&stat.Community, &stat.Size); err != nil {
			return nil, errors.SQLError("Failed to scan community row", query, err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.SQLError("Failed to read community distribution", query, err)
	}

	if len(stats) == 0 {
		return nil, errors.New(errors.ErrCodeNoResults,
			fmt.Sprintf("No communities found in %s", outputTable)).
			WithSuggestions(
				"Run the algorithm first with 'graphdrop run'",
				"Check that the output table name matches the run configuration")
	}

	return stats, nil
}

// MemberCount returns the number of labeled nodes in the output table.
func (s *Service) MemberCount(ctx context.Context, outputTable string) (int64, error) {
	if err := snowflake.ValidIdentifier(outputTable); err != nil {
		return 0, err
	}
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", outputTable)
	if err := s.db.QueryRow(ctx, query, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Render writes the distribution as a table. Shares are computed against
// totalMembers, the full labeled-node count, so a limited listing still
// reports each community's share of the whole graph; pass 0 to fall back
// to the displayed subset. Sizes are colored by share so dominant
// communities stand out.
func Render(w io.Writer, stats []CommunityStat, totalMembers int64, useColor bool) {
	var shown int64
	for _, stat := range stats {
		shown += stat.Size
	}
	total := totalMembers
	if total <= 0 {
		total = shown
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Community", "Size", "Share"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, stat := range stats {
		share := float64(stat.Size) / float64(total) * 100
		shareCell := fmt.Sprintf("%.1f%%", share)
		sizeCell := fmt.Sprintf("%d", stat.Size)
		if useColor {
			switch {
			case share >= 25:
				sizeCell = color.RedString(sizeCell)
			case share >= 10:
				sizeCell = color.YellowString(sizeCell)
			default:
				sizeCell = color.GreenString(sizeCell)
			}
		}
		table.Append([]string{fmt.Sprintf("%d", stat.Community), sizeCell, shareCell})
	}

	table.Render()
	if shown < total {
		fmt.Fprintf(w, "\n%d communities shown, covering %d of %d members\n", len(stats), shown, total)
	} else {
		fmt.Fprintf(w, "\n%d communities, %d members\n", len(stats), total)
	}
}

// RenderString renders the full distribution to a string without color.
func RenderString(stats []CommunityStat) string {
	var buf strings.Builder
	Render(&buf, stats, 0, false)
	return buf.String()
}
