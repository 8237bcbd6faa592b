package watch

import (
	"context"

	"github.com/coderag/coderag/internal/chunker"
	"github.com/coderag/coderag/internal/embedder"
	"github.com/coderag/coderag/internal/pipeline"
	"github.com/coderag/coderag/internal/project"
	"github.com/coderag/coderag/internal/vectorstore"
)

// PipelineDispatcher adapts a pipeline.ParallelIndexer into the Dispatcher
// interface the reconciler drives, fixing the project/store/chunker/embedder
// for the watched root and inflating batch sizes for bulk runs.
type PipelineDispatcher struct {
	Indexer *pipeline.ParallelIndexer
	Project project.DetectedProject
	Store   vectorstore.Store
	Chunk   chunker.Chunker
	Embed   embedder.Provider
	Options pipeline.IndexOptions

	// BulkBatchMultiplier scales EmbedBatchSize/StoreBatchSize for runs the
	// reconciler has flagged as bulk (mass-change) events.
	BulkBatchMultiplier int
}

// IndexPaths reindexes paths, using inflated batch sizes when bulk is set.
func (d *PipelineDispatcher) IndexPaths(ctx context.Context, paths []string, bulk bool) (pipeline.ProcessingResult, error) {
	opts := d.Options
	if bulk {
		mult := d.BulkBatchMultiplier
		if mult <= 0 {
			mult = 4
		}
		opts.EmbedBatchSize *= mult
		opts.StoreBatchSize *= mult
	}
	return d.Indexer.IndexPaths(ctx, d.Project, d.Store, d.Chunk, d.Embed, paths, opts)
}

// RemovePaths deletes stored chunks for paths.
func (d *PipelineDispatcher) RemovePaths(ctx context.Context, paths []string) pipeline.ProcessingResult {
	return d.Indexer.RemovePaths(ctx, d.Project, d.Store, paths)
}
