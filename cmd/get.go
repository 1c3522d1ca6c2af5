package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ca-srg/mailscope/internal/metrics"
	"github.com/ca-srg/mailscope/internal/search"
	"github.com/ca-srg/mailscope/internal/types"
)

var (
	getOutput  string
	getTimeout int
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show the full record of one email",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().StringVarP(&getOutput, "output", "o", outputText, "Output format: text|json|yaml")
	getCmd.Flags().IntVar(&getTimeout, "timeout", 30, "Request timeout in seconds")
}

func runGet(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(getOutput); err != nil {
		return err
	}

	a, err := newApp("get", os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(getTimeout)*time.Second)
	defer cancel()

	a.usage.Record(ctx, metrics.EndpointDocument)

	detail, err := a.service.GetEmail(ctx, strings.TrimSpace(args[0]))
	if errors.Is(err, search.ErrNotFound) {
		return fmt.Errorf("email %q not found", args[0])
	}
	if err != nil {
		return err
	}

	return writeOutput(cmd.OutOrStdout(), getOutput, detail, func(w io.Writer) error {
		return printEmailDetail(w, detail)
	})
}

func printEmailDetail(w io.Writer, d *types.EmailDetail) error {
	fmt.Fprintf(w, "ID:          %s\n", d.ID)
	fmt.Fprintf(w, "Timestamp:   %s\n", d.Timestamp)
	fmt.Fprintf(w, "Protocol:    %s\n", d.Protocol)
	fmt.Fprintf(w, "From:        %s\n", d.From)
	fmt.Fprintf(w, "To:          %s\n", strings.Join(d.To, ", "))
	if len(d.Cc) > 0 {
		fmt.Fprintf(w, "Cc:          %s\n", strings.Join(d.Cc, ", "))
	}
	if len(d.Bcc) > 0 {
		fmt.Fprintf(w, "Bcc:         %s\n", strings.Join(d.Bcc, ", "))
	}
	fmt.Fprintf(w, "Subject:     %s\n", d.Subject)
	fmt.Fprintf(w, "Message-ID:  %s\n", d.MessageID)
	fmt.Fprintf(w, "Source:      %s\n", formatEndpoint(d.Source))
	fmt.Fprintf(w, "Destination: %s\n", formatEndpoint(d.Destination))
	fmt.Fprintf(w, "CGNAT:       %s\n", yesNo(d.Correlation.CGNATMatched))
	fmt.Fprintf(w, "RADIUS:      %s\n", yesNo(d.Correlation.RadiusSessionFound))
	if d.Correlation.MSISDN != "" {
		fmt.Fprintf(w, "MSISDN:      %s\n", d.Correlation.MSISDN)
	}

	if len(d.Attachments) > 0 {
		fmt.Fprintf(w, "\nAttachments (%d):\n", len(d.Attachments))
		for _, att := range d.Attachments {
			fmt.Fprintf(w, "  - %s (%s, %d bytes) sha256:%s\n", att.FileName, att.MimeType, att.FileSize, att.FileHash)
		}
	}

	if d.BodyText != "" {
		fmt.Fprintf(w, "\n%s\n", d.BodyText)
	}
	return nil
}

func formatEndpoint(e types.Endpoint) string {
	if e.IP == "" {
		return "-"
	}
	out := e.IP
	if e.Port != "" {
		out += ":" + e.Port
	}
	if e.IsPrivate {
		out += " (private)"
	}
	if e.PublicIP != "" {
		out += " public=" + e.PublicIP
	}
	return out
}
