package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ca-srg/mailscope/internal/filter"
	"github.com/ca-srg/mailscope/internal/metrics"
	"github.com/ca-srg/mailscope/internal/types"
)

var (
	statsStartDate string
	statsEndDate   string
	statsOutput    string
	statsTimeout   int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard statistics",
	Long: `
Show protocol distribution, CGNAT / RADIUS correlation counts and daily traffic.
Without dates the trailing STATS_WINDOW_YEARS window is used.

Examples:
  mailscope stats
  mailscope stats --start-date 2024-01-01 --end-date 2024-01-31 --output yaml
`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsStartDate, "start-date", "", "Window start (RFC3339 or YYYY-MM-DD)")
	statsCmd.Flags().StringVar(&statsEndDate, "end-date", "", "Window end (RFC3339 or YYYY-MM-DD)")
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", outputText, "Output format: text|json|yaml")
	statsCmd.Flags().IntVar(&statsTimeout, "timeout", 60, "Request timeout in seconds")
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(statsOutput); err != nil {
		return err
	}

	a, err := newApp("stats", os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(statsTimeout)*time.Second)
	defer cancel()

	a.usage.Record(ctx, metrics.EndpointStats)

	window := &types.DateRange{
		From: filter.ParseDate(statsStartDate),
		To:   filter.ParseDate(statsEndDate),
	}
	if window.IsEmpty() {
		window = nil
	}

	resp, err := a.service.DashboardStats(ctx, window)
	if err != nil {
		return err
	}

	return writeOutput(cmd.OutOrStdout(), statsOutput, resp, func(w io.Writer) error {
		return printStats(w, resp)
	})
}

func printStats(w io.Writer, resp *types.StatsResponse) error {
	sections := []struct {
		title   string
		buckets []types.Bucket
	}{
		{"Protocols", resp.Protocols},
		{"CGNAT matched", resp.CGNAT},
		{"RADIUS session found", resp.Radius},
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, section := range sections {
		fmt.Fprintf(tw, "=== %s ===\n", section.title)
		if len(section.buckets) == 0 {
			fmt.Fprintln(tw, "(no data)")
		}
		for _, b := range section.buckets {
			fmt.Fprintf(tw, "%s\t%d\n", b.Key, b.Count)
		}
		fmt.Fprintln(tw)
	}

	var total int64
	var active int
	for _, b := range resp.Traffic {
		total += b.Count
		if b.Count > 0 {
			active++
		}
	}
	fmt.Fprintln(tw, "=== Traffic ===")
	fmt.Fprintf(tw, "Days\t%d\n", len(resp.Traffic))
	fmt.Fprintf(tw, "Days with traffic\t%d\n", active)
	fmt.Fprintf(tw, "Emails\t%d\n", total)
	if n := len(resp.Traffic); n > 0 {
		fmt.Fprintf(tw, "Range\t%s .. %s\n", resp.Traffic[0].BucketStart, resp.Traffic[n-1].BucketStart)
	}

	return tw.Flush()
}
