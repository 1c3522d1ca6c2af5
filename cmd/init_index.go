package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	initIndexName     string
	initIndexRecreate bool
)

var initIndexCmd = &cobra.Command{
	Use:   "init-index",
	Short: "Create the OpenSearch email index with the expected mapping",
	Long: `
Create the email index with the field types the query layer relies on
(keyword addresses, ip source/destination, date timestamp, boolean correlation flags).
An existing index is left alone unless --recreate is given, which deletes it first.
`,
	RunE: runInitIndex,
}

func init() {
	initIndexCmd.Flags().StringVar(&initIndexName, "index", "", "Index name (defaults to OPENSEARCH_INDEX)")
	initIndexCmd.Flags().BoolVar(&initIndexRecreate, "recreate", false, "Delete and recreate the index if it exists")
}

func runInitIndex(cmd *cobra.Command, args []string) error {
	a, err := newApp("init-index", os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	indexName := initIndexName
	if indexName == "" {
		indexName = a.client.Index()
	}

	exists, err := a.client.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", indexName, err)
	}

	if exists {
		if !initIndexRecreate {
			a.logger.Printf("Index %s already exists; use --recreate to rebuild it", indexName)
			return nil
		}
		a.logger.Printf("Deleting existing index: %s", indexName)
		if err := a.client.DeleteIndex(ctx, indexName); err != nil {
			return fmt.Errorf("failed to delete index %s: %w", indexName, err)
		}
		if err := waitForIndexGone(ctx, func(ctx context.Context) (bool, error) {
			return a.client.IndexExists(ctx, indexName)
		}); err != nil {
			return err
		}
	}

	a.logger.Printf("Creating index with email mapping: %s", indexName)
	if err := a.client.CreateEmailIndex(ctx, indexName); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	exists, err = a.client.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("failed to verify index creation: %w", err)
	}
	if !exists {
		return fmt.Errorf("index was not created successfully")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Index %s is ready\n", indexName)
	return nil
}

// waitForIndexGone polls until the deleted index stops being reported
func waitForIndexGone(ctx context.Context, exists func(context.Context) (bool, error)) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		present, err := exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check index deletion: %w", err)
		}
		if !present {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("index still present after delete: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
