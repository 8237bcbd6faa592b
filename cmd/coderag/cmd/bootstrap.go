package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/coderag/coderag/internal/chunker"
	"github.com/coderag/coderag/internal/config"
	"github.com/coderag/coderag/internal/embedder"
	"github.com/coderag/coderag/internal/logging"
	"github.com/coderag/coderag/internal/pipeline"
	"github.com/coderag/coderag/internal/project"
	"github.com/coderag/coderag/internal/vectorstore"
)

// app bundles the components every subcommand needs, wired once from the
// resolved project and its effective configuration.
type app struct {
	logger    *zap.Logger
	cfg       *config.Manager
	projCfg   *config.ProjectConfig
	proj      project.DetectedProject
	loc       project.StorageLocation
	store     vectorstore.Store
	embed     embedder.Provider
	chunk     *chunker.Factory
	indexer   *pipeline.ParallelIndexer
	indexOpts pipeline.IndexOptions
}

// bootstrap detects the project rooted at (or above) the working directory,
// resolves its storage location, loads configuration (layering any
// per-project .coderag/config.yaml override), and constructs the embedder
// and vector store.
func bootstrap() (*app, error) {
	logger, err := logging.New(logging.Options{Level: logLevel, JSON: logJSON})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	detected, err := project.NewDetector().Detect(wd)
	if err != nil {
		return nil, userError("no project detected at or above %s: %v", wd, err)
	}

	loc, err := project.NewResolver().Resolve(detected)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage location: %w", err)
	}

	if cfgPath != "" {
		os.Setenv("CONFIG_PATH", cfgPath)
	}
	mgr, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := mgr.Get()

	projCfg, err := config.LoadProjectConfigForRoot(detected.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}

	effectiveChunking := projCfg.GetEffectiveChunking(cfg.Chunking)
	effectiveIndex := projCfg.GetEffectiveIndex(cfg.Index)

	store, err := vectorstore.NewStore(vectorstore.Config{
		Provider:       cfg.Vector.Provider,
		Endpoint:       cfg.Vector.Endpoint,
		CollectionName: cfg.Vector.CollectionName,
		Path:           cfg.Vector.Path,
		TimeoutSeconds: int(cfg.Vector.GetTimeout().Seconds()),
	}, loc.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	emb, err := embedder.NewProvider(cfg.Embedding)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureCollection(ctx, emb.ModelInfo().Dimensions); err != nil {
		store.Close()
		emb.Close()
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	indexOpts := pipeline.IndexOptions{
		ReadConcurrency:  effectiveIndex.ReadConcurrency,
		ChunkConcurrency: effectiveIndex.ChunkConcurrency,
		EmbedBatchSize:   effectiveIndex.EmbedBatchSize,
		EmbedConcurrency: effectiveIndex.EmbedConcurrency,
		StoreBatchSize:   effectiveIndex.StoreBatchSize,
		MaxErrors:        effectiveIndex.MaxErrors,
		RespectVCSIgnore: effectiveIndex.RespectVCSIgnore,
		MaxFileSizeBytes: effectiveIndex.MaxFileSizeBytes,
		EmbedTimeout:     effectiveIndex.GetEmbedTimeout(),
	}
	if info := emb.ModelInfo(); info.MaxBatchSize > 0 && indexOpts.EmbedBatchSize > info.MaxBatchSize {
		indexOpts.EmbedBatchSize = info.MaxBatchSize
	}

	return &app{
		logger:    logger,
		cfg:       mgr,
		projCfg:   projCfg,
		proj:      detected,
		loc:       loc,
		store:     store,
		embed:     emb,
		chunk:     chunker.NewFactory(effectiveChunking),
		indexer:   pipeline.NewParallelIndexer(),
		indexOpts: indexOpts,
	}, nil
}

func (a *app) close() {
	a.store.Close()
	a.embed.Close()
	a.logger.Sync()
}
