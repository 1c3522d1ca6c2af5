package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ca-srg/mailscope/internal/filter"
	"github.com/ca-srg/mailscope/internal/metrics"
	"github.com/ca-srg/mailscope/internal/pagination"
	"github.com/ca-srg/mailscope/internal/types"
)

var (
	searchEmail     string
	searchDomain    string
	searchStartDate string
	searchEndDate   string
	searchProtocol  string
	searchSourceIP  string
	searchMSISDN    string
	searchPage      string
	searchSize      string
	searchSortField string
	searchSortOrder string
	searchOutput    string
	searchTimeout   int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search captured email metadata",
	Long: `
Search captured emails with the same filters the API accepts. Every filter is
optional; invalid page, size and date values fall back to defaults.

Examples:
  mailscope search --email alice@example.com
  mailscope search --domain example.com --protocol IMAP
  mailscope search --source-ip 10.0.0.0/24 --protocol SMTP --start-date 2024-01-01
  mailscope search --source-ip "10.0.*.5" --page 2 --size 50 --output json
`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchEmail, "email", "e", "", "Substring of a from/to/cc/bcc address")
	searchCmd.Flags().StringVar(&searchDomain, "domain", "", "Domain of a from/to/cc/bcc address")
	searchCmd.Flags().StringVar(&searchStartDate, "start-date", "", "Inclusive start (RFC3339 or YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchEndDate, "end-date", "", "Inclusive end (RFC3339 or YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchProtocol, "protocol", "", "Exact protocol (SMTP, IMAP, POP3)")
	searchCmd.Flags().StringVar(&searchSourceIP, "source-ip", "", "Source IP, CIDR or wildcard pattern")
	searchCmd.Flags().StringVar(&searchMSISDN, "msisdn", "", "Subscriber MSISDN")
	searchCmd.Flags().StringVarP(&searchPage, "page", "p", "", "Page number (default 1)")
	searchCmd.Flags().StringVarP(&searchSize, "size", "s", "", "Page size, 1-100 (default 10)")
	searchCmd.Flags().StringVar(&searchSortField, "sort-field", "", "Sort field (default timestamp)")
	searchCmd.Flags().StringVar(&searchSortOrder, "sort-order", "", "asc or desc (default desc)")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", outputText, "Output format: text|json|yaml")
	searchCmd.Flags().IntVar(&searchTimeout, "timeout", 30, "Request timeout in seconds")
}

// searchParams collects the flags under the API parameter names
func searchParams() map[string]string {
	return map[string]string{
		filter.ParamEmail:     searchEmail,
		filter.ParamDomain:    searchDomain,
		filter.ParamStartDate: searchStartDate,
		filter.ParamEndDate:   searchEndDate,
		filter.ParamProtocol:  searchProtocol,
		filter.ParamSourceIP:  searchSourceIP,
		filter.ParamMSISDN:    searchMSISDN,
		filter.ParamPage:      searchPage,
		filter.ParamSize:      searchSize,
		filter.ParamSortField: searchSortField,
		filter.ParamSortOrder: searchSortOrder,
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(searchOutput); err != nil {
		return err
	}

	a, err := newApp("search", os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(searchTimeout)*time.Second)
	defer cancel()

	a.usage.Record(ctx, metrics.EndpointSearch)

	resp, err := a.service.Search(ctx, filter.Normalize(searchParams()))
	if err != nil {
		return err
	}

	return writeOutput(cmd.OutOrStdout(), searchOutput, resp, func(w io.Writer) error {
		return printSearchResults(w, resp)
	})
}

func printSearchResults(w io.Writer, resp *types.SearchResponse) error {
	page := pagination.NewDescriptor(resp.Page, resp.Size, resp.Total)

	if resp.Total == 0 {
		_, err := fmt.Fprintln(w, "No emails matched.")
		return err
	}

	fmt.Fprintf(w, "Found %d emails (page %d of %d)\n\n", resp.Total, page.CurrentPage, page.TotalPages)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tPROTOCOL\tFROM\tTO\tSOURCE IP\tSUBJECT\tCGNAT\tRADIUS\tSCORE\tID")
	for _, r := range resp.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp,
			r.Protocol,
			r.From,
			strings.Join(r.To, ","),
			r.SourceIP,
			truncate(r.Subject, 48),
			yesNo(r.Correlation.CGNATMatched),
			yesNo(r.Correlation.RadiusSessionFound),
			formatScore(r.RelevanceScore),
			r.ID,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if page.HasControls() && page.TotalPages > 1 {
		tokens := make([]string, 0, len(page.Pages))
		for _, t := range page.Pages {
			label := t.String()
			if !t.Ellipsis && t.Page == page.CurrentPage {
				label = "[" + label + "]"
			}
			tokens = append(tokens, label)
		}
		fmt.Fprintf(w, "\nPages: %s\n", strings.Join(tokens, " "))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return strconv.FormatFloat(*score, 'f', 3, 64)
}
