package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed evidence corpus",
	Long: `Run a semantic search against the indexed evidence corpus and print
the matching documents.

Examples:
  mused search "class size reduction effects on test scores"
  mused search --top-k 10 "teacher training"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 5, "maximum number of documents to return")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	query := strings.Join(args, " ")
	result, err := a.retriever.Retrieve(ctx, query, searchTopK)
	if err != nil {
		return err
	}

	if len(result.Evidence) == 0 {
		fmt.Println("no matching evidence found")
		return nil
	}

	for i, ev := range result.Evidence {
		fmt.Printf("%d. %s (score %.3f)\n", i+1, ev.Title, ev.Score)
		fmt.Printf("   id: %s\n", ev.DocumentID)
		if ev.Strength != nil {
			fmt.Printf("   strength: %d/5\n", ev.Strength.Int())
		}
		if ev.Citation != "" {
			fmt.Printf("   citation: %s\n", ev.Citation)
		}
		summary := ev.Summary
		if len(summary) > 200 {
			summary = summary[:200] + "..."
		}
		fmt.Printf("   %s\n\n", strings.ReplaceAll(summary, "\n", " "))
	}
	return nil
}
