package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mailscope",
	Short: "mailscope - email metadata search and correlation service",
	Long: `mailscope searches captured email metadata stored in OpenSearch and correlates it
with CGNAT and RADIUS session data. It serves an HTTP JSON API and MCP tools, and
offers the same queries from the command line.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(initIndexCmd)
	rootCmd.AddCommand(usageCmd)
}
