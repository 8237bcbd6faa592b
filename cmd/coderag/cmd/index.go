package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coderag/coderag/internal/pipeline"
)

var (
	indexForce bool
	indexPaths []string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the current project, or specific paths within it",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "reindex files even if their mtime is not newer than the indexed one")
	indexCmd.Flags().StringSliceVar(&indexPaths, "path", nil, "limit indexing to these project-relative paths (repeatable); default: whole project")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	opts := a.indexOpts
	opts.Force = indexForce

	ctx := context.Background()
	var res pipeline.ProcessingResult
	if len(indexPaths) == 0 {
		res, err = a.indexer.IndexAll(ctx, a.proj, a.store, a.chunk, a.embed, opts)
	} else {
		res, err = a.indexer.IndexPaths(ctx, a.proj, a.store, a.chunk, a.embed, indexPaths, opts)
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	a.logger.Info("index run complete",
		zap.Int("files_processed", res.FilesProcessed),
		zap.Int("chunks_created", res.ChunksCreated),
		zap.Int("errors", len(res.Errors)),
		zap.Bool("aborted", res.Aborted))

	fmt.Println(res.Summary())

	switch {
	case res.Aborted:
		lastExitCode = 3
	case len(res.Errors) > 0:
		lastExitCode = 2
	default:
		lastExitCode = 0
	}
	return nil
}
