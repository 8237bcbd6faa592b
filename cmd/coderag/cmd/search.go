package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coderag/coderag/internal/vectorstore"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Embed a query and return the nearest indexed chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 5, "maximum number of results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	vector, err := a.embed.Embed(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := a.store.Nearest(ctx, vector, searchLimit, vectorstore.Filter{ProjectID: a.proj.ProjectID()})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. %s:%d-%d (score=%.3f)\n", i+1, r.Payload.FilePath, r.Payload.StartLine, r.Payload.EndLine, r.Score)
		if r.Payload.Symbol != "" {
			fmt.Printf("   %s %s\n", r.Payload.SymbolType, r.Payload.Symbol)
		}
	}
	return nil
}
