// Package pipeline implements the staged, concurrent indexing engine: file
// discovery, chunking, embedding, and vector store upsert, connected by
// bounded channels with graceful degradation on a per-file failure budget.
package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coderag/coderag/internal/chunker"
	"github.com/coderag/coderag/internal/embedder"
	"github.com/coderag/coderag/internal/project"
	"github.com/coderag/coderag/internal/vectorstore"
)

// IndexOptions configures one run of the pipeline.
type IndexOptions struct {
	ReadConcurrency  int
	ChunkConcurrency int
	EmbedBatchSize   int
	EmbedConcurrency int
	StoreBatchSize   int
	StoreConcurrency int
	MaxErrors        int

	IncludeGlobs     []string
	ExcludeGlobs     []string
	RespectVCSIgnore bool
	Force            bool
	MaxFileSizeBytes int64
	EmbedTimeout     time.Duration

	// Progress, if non-nil, receives a progress snapshot after every counter
	// change; snapshots are not coalesced or rate-limited. It must return
	// quickly: it runs on the pipeline's own goroutines.
	Progress ProgressFunc
}

// Progress is a point-in-time snapshot of an in-flight run.
type Progress struct {
	FilesSeen     int
	FilesIndexed  int
	ChunksEmitted int
	EmbeddingsDone int
	Errors        int
}

// ProgressFunc receives progress snapshots. It is an observation
// side-channel only: it must never influence the result of a run.
type ProgressFunc func(Progress)

// DefaultOptions returns sane defaults for ad-hoc callers; production
// callers should derive options from config.IndexConfig instead.
func DefaultOptions() IndexOptions {
	return IndexOptions{
		ReadConcurrency:  8,
		ChunkConcurrency: 4,
		EmbedBatchSize:   32,
		EmbedConcurrency: 2,
		StoreBatchSize:   64,
		StoreConcurrency: 4,
		MaxErrors:        50,
		RespectVCSIgnore: true,
		MaxFileSizeBytes: 2 << 20,
		EmbedTimeout:     30 * time.Second,
	}
}

// fileStripeCount bounds the number of mutexes backing fileStripes: a fixed
// table rather than one mutex per file path, so memory stays bounded
// regardless of how large a project is.
const fileStripeCount = 64

// fileStripes serializes stage 4's delete-then-upsert sequence per file
// across concurrent IndexPaths/IndexAll calls sharing one ParallelIndexer
// (e.g. a CLI index run racing a watch-triggered reindex in the same
// process). Every call routes a given file to the same stripe via
// hash(file_path) mod N, so their delete+upsert sequences for that file
// are mutually exclusive instead of merely ordered within a single run.
type fileStripes struct {
	mus [fileStripeCount]sync.Mutex
}

func (s *fileStripes) lock(file string) func() {
	i := fileShard(file, fileStripeCount)
	s.mus[i].Lock()
	return s.mus[i].Unlock
}

// fileShard maps a file path deterministically onto one of n partitions.
func fileShard(file string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(file))
	return int(h.Sum32() % uint32(n))
}

// ParallelIndexer runs the Discover&Read -> Chunk -> Embed -> Store
// pipeline. Per-invocation state lives in the run() closure; the only
// state ParallelIndexer itself carries is the stripe lock table, which
// must outlive any single run to serialize across concurrent calls.
type ParallelIndexer struct {
	stripes *fileStripes
}

// NewParallelIndexer returns a ready-to-use ParallelIndexer.
func NewParallelIndexer() *ParallelIndexer {
	return &ParallelIndexer{stripes: &fileStripes{}}
}

// IndexAll discovers every candidate file under project.Root and indexes it.
func (idx *ParallelIndexer) IndexAll(
	ctx context.Context,
	proj project.DetectedProject,
	store vectorstore.Store,
	chunk chunker.Chunker,
	embed embedder.Provider,
	opts IndexOptions,
) (ProcessingResult, error) {
	d := newDiscoverer(proj.Root, opts.RespectVCSIgnore, opts.IncludeGlobs, opts.ExcludeGlobs)
	paths, err := d.Walk()
	if err != nil {
		return ProcessingResult{}, fmt.Errorf("pipeline: discovery failed: %w", err)
	}
	return idx.IndexPaths(ctx, proj, store, chunk, embed, paths, opts)
}

// IndexPaths indexes an explicit set of paths, relative to project.Root.
// Stage 1 compares each file's mtime against the store's recorded maximum
// and skips unchanged files unless opts.Force is set.
func (idx *ParallelIndexer) IndexPaths(
	ctx context.Context,
	proj project.DetectedProject,
	store vectorstore.Store,
	chunk chunker.Chunker,
	embed embedder.Provider,
	paths []string,
	opts IndexOptions,
) (ProcessingResult, error) {
	opts = fillDefaults(opts)
	run := newRun(ctx, proj, store, chunk, embed, opts, idx.stripes)
	return run.execute(paths), nil
}

// RemovePaths bypasses chunking and embedding entirely, issuing
// delete_by_file for each path.
func (idx *ParallelIndexer) RemovePaths(ctx context.Context, proj project.DetectedProject, store vectorstore.Store, paths []string) ProcessingResult {
	collector := NewErrorCollector(0)
	result := NewProcessingResult()

	for _, p := range paths {
		if err := store.DeleteByFile(ctx, proj.ProjectID(), p); err != nil {
			collector.Record(p, err, StageStore)
			continue
		}
		result.FilesProcessed++
	}

	result.Errors = collector.GetReport().flatten()
	return result
}

func fillDefaults(opts IndexOptions) IndexOptions {
	d := DefaultOptions()
	if opts.ReadConcurrency <= 0 {
		opts.ReadConcurrency = d.ReadConcurrency
	}
	if opts.ChunkConcurrency <= 0 {
		opts.ChunkConcurrency = d.ChunkConcurrency
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = d.EmbedBatchSize
	}
	if opts.EmbedConcurrency <= 0 {
		opts.EmbedConcurrency = d.EmbedConcurrency
	}
	if opts.StoreBatchSize <= 0 {
		opts.StoreBatchSize = d.StoreBatchSize
	}
	if opts.StoreConcurrency <= 0 {
		opts.StoreConcurrency = d.StoreConcurrency
	}
	if opts.MaxFileSizeBytes <= 0 {
		opts.MaxFileSizeBytes = d.MaxFileSizeBytes
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = d.EmbedTimeout
	}
	return opts
}

// flatten is a small convenience so RemovePaths can reuse ErrorReport's
// grouping without re-deriving a flat slice by hand.
func (r ErrorReport) flatten() []FileError {
	out := make([]FileError, 0, r.TotalErrors)
	for _, stage := range []Stage{StageRead, StageChunking, StageEmbed, StageStore} {
		out = append(out, r.ByStage[stage]...)
	}
	return out
}

// run holds the mutable state of one pipeline invocation.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc

	proj  project.DetectedProject
	store vectorstore.Store
	chunk chunker.Chunker
	embed embedder.Provider
	opts  IndexOptions

	stripes *fileStripes

	collector *ErrorCollector

	filesSeen      int64
	filesIndexed   int64
	chunksEmitted  int64
	embeddingsDone int64

	progressMu sync.Mutex
}

func newRun(ctx context.Context, proj project.DetectedProject, store vectorstore.Store, chunk chunker.Chunker, embed embedder.Provider, opts IndexOptions, stripes *fileStripes) *run {
	runCtx, cancel := context.WithCancel(ctx)
	if stripes == nil {
		stripes = &fileStripes{}
	}
	return &run{
		ctx:       runCtx,
		cancel:    cancel,
		proj:      proj,
		store:     store,
		chunk:     chunk,
		embed:     embed,
		opts:      opts,
		stripes:   stripes,
		collector: NewErrorCollector(opts.MaxErrors),
	}
}

func (r *run) execute(paths []string) ProcessingResult {
	defer r.cancel()

	readOut := make(chan FileContent, r.opts.ReadConcurrency*2)
	chunkOut := make(chan RawChunk, r.opts.ChunkConcurrency*4)
	embedOut := make(chan embeddedChunk, r.opts.EmbedConcurrency*r.opts.EmbedBatchSize)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(readOut)
		r.stageRead(paths, readOut)
	}()

	var chunkWG sync.WaitGroup
	for i := 0; i < r.opts.ChunkConcurrency; i++ {
		chunkWG.Add(1)
		go func() {
			defer chunkWG.Done()
			r.stageChunk(readOut, chunkOut)
		}()
	}
	go func() {
		chunkWG.Wait()
		close(chunkOut)
	}()

	var embedWG sync.WaitGroup
	batches := batchChunks(chunkOut, r.opts.EmbedBatchSize)
	for i := 0; i < r.opts.EmbedConcurrency; i++ {
		embedWG.Add(1)
		go func() {
			defer embedWG.Done()
			r.stageEmbed(batches, embedOut)
		}()
	}
	go func() {
		embedWG.Wait()
		close(embedOut)
	}()

	result := r.stageStore(embedOut)

	wg.Wait()

	result.Errors = r.collector.GetReport().flatten()
	if !r.collector.ShouldContinue() {
		result.Aborted = true
	}
	return result
}

// stageRead implements Discover & Read: stat, size/binary filter, read.
func (r *run) stageRead(paths []string, out chan<- FileContent) {
	sem := make(chan struct{}, r.opts.ReadConcurrency)
	var wg sync.WaitGroup

	for _, p := range paths {
		if r.ctx.Err() != nil || !r.collector.ShouldContinue() {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(relPath string) {
			defer wg.Done()
			defer func() { <-sem }()
			r.readOne(relPath, out)
		}(p)
	}

	wg.Wait()
}

func (r *run) readOne(relPath string, out chan<- FileContent) {
	r.bumpFilesSeen()

	abs := filepath.Join(r.proj.Root, relPath)
	info, err := os.Stat(abs)
	if err != nil {
		r.fail(relPath, err, StageRead)
		return
	}
	if info.Size() > r.opts.MaxFileSizeBytes {
		return
	}

	mtime := info.ModTime().Unix()
	if !r.opts.Force {
		if maxMtime, ok, err := r.store.MaxMtime(r.ctx, r.proj.ProjectID(), relPath); err == nil && ok && mtime <= maxMtime {
			return
		}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		r.fail(relPath, err, StageRead)
		return
	}
	if looksBinary(data) {
		return
	}

	select {
	case out <- FileContent{Path: relPath, Content: string(data), Mtime: mtime}:
	case <-r.ctx.Done():
	}
}

// stageChunk invokes the external chunker for each file.
func (r *run) stageChunk(in <-chan FileContent, out chan<- RawChunk) {
	for fc := range in {
		if r.ctx.Err() != nil || !r.collector.ShouldContinue() {
			continue
		}

		meta := chunker.FileMetadata{
			FilePath:  fc.Path,
			Language:  chunker.DetectLanguage(fc.Path),
			Module:    chunker.ExtractModule(fc.Path),
			ProjectID: r.proj.ProjectID(),
		}

		chunks, err := r.chunk.Chunk([]byte(fc.Content), meta)
		if err != nil {
			r.fail(fc.Path, err, StageChunking)
			continue
		}

		for _, c := range chunks {
			raw := RawChunk{
				Content:      c.Content,
				FilePath:     fc.Path,
				StartLine:    c.StartLine,
				EndLine:      c.EndLine,
				Language:     c.Language,
				Mtime:        fc.Mtime,
				SemanticKind: c.SymbolType,
				SymbolName:   c.Symbol,
				Signature:    c.Signature,
				Parent:       c.Parent,
				Visibility:   c.Visibility,
			}
			r.bumpChunksEmitted()
			select {
			case out <- raw:
			case <-r.ctx.Done():
				return
			}
		}
		r.bumpFilesIndexed()
	}
}

type chunkBatch []RawChunk

// batchChunks groups the chunk stream into fixed-size batches, forwarding a
// final partial batch when the input closes.
func batchChunks(in <-chan RawChunk, size int) <-chan chunkBatch {
	out := make(chan chunkBatch)
	go func() {
		defer close(out)
		buf := make(chunkBatch, 0, size)
		for c := range in {
			buf = append(buf, c)
			if len(buf) >= size {
				out <- buf
				buf = make(chunkBatch, 0, size)
			}
		}
		if len(buf) > 0 {
			out <- buf
		}
	}()
	return out
}

type embeddedChunk struct {
	chunk  RawChunk
	vector []float32
}

// stageEmbed embeds whole batches, preserving 1:1 order with their batch so
// vectors join back onto the right RawChunk.
func (r *run) stageEmbed(in <-chan chunkBatch, out chan<- embeddedChunk) {
	for batch := range in {
		if r.ctx.Err() != nil || !r.collector.ShouldContinue() {
			continue
		}

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		ctx := r.ctx
		var cancel context.CancelFunc
		if r.opts.EmbedTimeout > 0 {
			ctx, cancel = context.WithTimeout(r.ctx, r.opts.EmbedTimeout)
		}
		vectors, err := r.embed.EmbedBatch(ctx, texts)
		if cancel != nil {
			cancel()
		}

		if err != nil {
			for _, c := range batch {
				r.fail(c.FilePath, err, StageEmbed)
			}
			continue
		}

		for i, c := range batch {
			r.bumpEmbeddingsDone()
			select {
			case out <- embeddedChunk{chunk: c, vector: vectors[i]}:
			case <-r.ctx.Done():
				return
			}
		}
	}
}

// stageStore partitions the embedded-chunk stream across opts.StoreConcurrency
// workers by hash(file_path) mod N, so every chunk for a given file is
// always handled by the same worker within this run: a worker groups by
// file and performs delete-then-upsert at file granularity once
// store_batch_size chunks have accumulated for it, or when the stream ends.
// Partitioning workers run concurrently; the run's own files never race
// each other because they never share a worker. r.stripes additionally
// serializes each file's delete+upsert against any *other* concurrent run
// sharing this ParallelIndexer (see fileStripes).
func (r *run) stageStore(in <-chan embeddedChunk) ProcessingResult {
	n := r.opts.StoreConcurrency
	if n < 1 {
		n = 1
	}

	shards := make([]chan embeddedChunk, n)
	for i := range shards {
		shards[i] = make(chan embeddedChunk, r.opts.StoreBatchSize)
	}

	var wg sync.WaitGroup
	results := make([]ProcessingResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.storeWorker(shards[i])
		}(i)
	}

	for ec := range in {
		shard := fileShard(ec.chunk.FilePath, n)
		select {
		case shards[shard] <- ec:
		case <-r.ctx.Done():
		}
	}
	for _, ch := range shards {
		close(ch)
	}
	wg.Wait()

	result := NewProcessingResult()
	for _, rr := range results {
		result = result.Merge(rr)
	}
	return result
}

// storeWorker owns one shard of files for the duration of a run: it groups
// its shard's chunks by file and flushes each file's batch independently.
// Only a file's first flush in the run deletes its previously stored chunks;
// later flushes of the same file only upsert.
func (r *run) storeWorker(in <-chan embeddedChunk) ProcessingResult {
	result := NewProcessingResult()

	byFile := make(map[string][]embeddedChunk)
	flushed := make(map[string]bool)
	pending := 0

	flush := func() {
		if pending == 0 {
			return
		}
		for file, chunks := range byFile {
			r.flushFile(file, chunks, !flushed[file], &result)
			flushed[file] = true
		}
		byFile = make(map[string][]embeddedChunk)
		pending = 0
	}

	for ec := range in {
		byFile[ec.chunk.FilePath] = append(byFile[ec.chunk.FilePath], ec)
		pending++
		if pending >= r.opts.StoreBatchSize {
			flush()
		}
	}
	flush()

	return result
}

func (r *run) flushFile(file string, chunks []embeddedChunk, replace bool, result *ProcessingResult) {
	unlock := r.stripes.lock(file)
	defer unlock()

	if replace {
		if err := r.store.DeleteByFile(r.ctx, r.proj.ProjectID(), file); err != nil {
			r.fail(file, err, StageStore)
			return
		}
	}

	points := make([]vectorstore.Point, len(chunks))
	indexedAt := time.Now().UTC().Format(time.RFC3339)
	for i, ec := range chunks {
		hash := HashContent(ec.chunk.Content)
		id := ChunkID(ec.chunk.FilePath, ec.chunk.StartLine, ec.chunk.EndLine, hash)
		points[i] = vectorstore.Point{
			ID:     id,
			Vector: ec.vector,
			Payload: vectorstore.Payload{
				ProjectID:   r.proj.ProjectID(),
				FilePath:    ec.chunk.FilePath,
				Symbol:      ec.chunk.SymbolName,
				SymbolType:  ec.chunk.SemanticKind,
				Language:    ec.chunk.Language,
				StartLine:   ec.chunk.StartLine,
				EndLine:     ec.chunk.EndLine,
				Content:     ec.chunk.Content,
				ContentHash: hash,
				Mtime:       ec.chunk.Mtime,
				IndexedAt:   indexedAt,
			},
		}
		result.Successful = append(result.Successful, IndexedChunk{
			ID: id, Chunk: ec.chunk, Vector: ec.vector, ProjectID: r.proj.ProjectID(),
		})
	}

	if err := r.store.Upsert(r.ctx, points); err != nil {
		r.fail(file, err, StageStore)
		return
	}

	if replace {
		result.FilesProcessed++
	}
	result.ChunksCreated += len(points)
}

func (r *run) fail(path string, err error, stage Stage) {
	r.collector.Record(path, err, stage)
	if !r.collector.ShouldContinue() {
		r.cancel()
	}
}

func (r *run) bumpFilesSeen()      { r.bump(&r.filesSeen) }
func (r *run) bumpFilesIndexed()   { r.bump(&r.filesIndexed) }
func (r *run) bumpChunksEmitted()  { r.bump(&r.chunksEmitted) }
func (r *run) bumpEmbeddingsDone() { r.bump(&r.embeddingsDone) }

func (r *run) bump(counter *int64) {
	r.progressMu.Lock()
	*counter++
	r.progressMu.Unlock()
	r.reportProgress()
}

func (r *run) reportProgress() {
	if r.opts.Progress == nil {
		return
	}
	r.progressMu.Lock()
	snap := Progress{
		FilesSeen:      int(r.filesSeen),
		FilesIndexed:   int(r.filesIndexed),
		ChunksEmitted:  int(r.chunksEmitted),
		EmbeddingsDone: int(r.embeddingsDone),
		Errors:         r.collector.ErrorCount(),
	}
	r.progressMu.Unlock()
	r.opts.Progress(snap)
}
