package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/beaconlabs-io/muse-evidence/internal/indexer"
)

var indexClear bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the evidence corpus into the vector store",
	Long: `Load all evidence documents, chunk them, and upsert the chunks into
the configured vector store.

Examples:
  # Incremental index (re-ingestion supersedes existing chunks)
  mused index

  # Drop the collection first so removed documents disappear
  mused index --clear`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexClear, "clear", false, "drop the collection before indexing")
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := a.indexer.IndexAll(ctx, indexer.Options{ClearFirst: indexClear}, func(p indexer.Progress) {
		status := "ok"
		if p.Err != nil {
			status = "FAILED: " + p.Err.Error()
		}
		fmt.Printf("[%d/%d] %s %s\n", p.Current, p.Total, p.DocumentID, status)
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nindexed %d documents in %s (est. cost $%.6f)\n",
		result.TotalEmbedded, result.Duration.Round(time.Millisecond), result.EstimatedCost)
	fmt.Printf("vectors: %d -> %d\n", result.VectorsBefore, result.VectorsAfter)
	if len(result.Errors) > 0 {
		fmt.Printf("%d documents failed:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  %s: %s\n", e.DocumentID, e.Message)
		}
	}
	if !result.Success {
		return fmt.Errorf("indexing run failed")
	}
	return nil
}
