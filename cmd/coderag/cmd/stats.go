package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coderag/coderag/internal/vectorstore"
)

var statsPrometheus bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print indexed chunk/file counts for the current project",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsPrometheus, "prometheus", false, "print in Prometheus text-exposition format")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	filter := vectorstore.Filter{ProjectID: a.proj.ProjectID()}

	chunks, err := a.store.CountChunks(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}
	files, err := a.store.ListFiles(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if statsPrometheus {
		fmt.Printf("coderag_chunks_indexed{project_id=%q} %d\n", a.proj.ProjectID(), chunks)
		fmt.Printf("coderag_files_indexed{project_id=%q} %d\n", a.proj.ProjectID(), len(files))
		return nil
	}

	fmt.Printf("project:  %s\n", a.proj.ProjectID())
	fmt.Printf("files:    %d\n", len(files))
	fmt.Printf("chunks:   %d\n", chunks)
	return nil
}
