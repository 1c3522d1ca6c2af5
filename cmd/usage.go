package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appconfig "github.com/ca-srg/mailscope/internal/config"
	"github.com/ca-srg/mailscope/internal/metrics"
)

var (
	usageDays   int
	usageOutput string
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show API usage counts recorded in the local usage database",
	RunE:  runUsage,
}

func init() {
	usageCmd.Flags().IntVar(&usageDays, "days", 7, "Number of recent days to list")
	usageCmd.Flags().StringVarP(&usageOutput, "output", "o", outputText, "Output format: text|json|yaml")
}

// UsageReport is the output of the usage command
type UsageReport struct {
	Totals map[metrics.Endpoint]int64 `json:"totals"`
	Daily  []metrics.DailyCount       `json:"daily"`
}

func runUsage(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(usageOutput); err != nil {
		return err
	}

	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := metrics.NewStore(cfg.UsageDBPath)
	if err != nil {
		return fmt.Errorf("failed to open usage database: %w", err)
	}
	defer func() { _ = store.Close() }()

	totals, err := store.GetAllTotals(cmd.Context())
	if err != nil {
		return err
	}
	daily, err := store.GetDailyCounts(cmd.Context(), usageDays)
	if err != nil {
		return err
	}

	report := UsageReport{Totals: totals, Daily: daily}
	return writeOutput(cmd.OutOrStdout(), usageOutput, report, func(w io.Writer) error {
		return printUsage(w, report)
	})
}

func printUsage(w io.Writer, report UsageReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENDPOINT\tTOTAL")
	for _, endpoint := range metrics.Endpoints {
		fmt.Fprintf(tw, "%s\t%d\n", endpoint, report.Totals[endpoint])
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "DATE\tENDPOINT\tCOUNT")
	if len(report.Daily) == 0 {
		fmt.Fprintln(tw, "(no usage recorded)")
	}
	for _, row := range report.Daily {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", row.Date, row.Endpoint, row.Count)
	}
	return tw.Flush()
}
