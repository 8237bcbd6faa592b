// Package autoindex implements zero-ceremony indexing: given a filesystem
// path, detect the owning project, resolve where its index lives, and
// bring that index up to date according to a configurable policy, before a
// query is served.
package autoindex

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/coderag/coderag/internal/chunker"
	"github.com/coderag/coderag/internal/embedder"
	"github.com/coderag/coderag/internal/pipeline"
	"github.com/coderag/coderag/internal/project"
	"github.com/coderag/coderag/internal/vectorstore"
)

// Policy controls when Service.EnsureIndexed actually builds an index.
type Policy string

const (
	// Never performs no indexing. A missing index is not reported:
	// EnsureIndexed returns ActionNone and a nil error either way.
	Never Policy = "never"
	// OnMissing builds only if no index artifact exists at the resolved
	// storage location (StorageLocation.IndexExists).
	OnMissing Policy = "on_missing"
	// OnMissingOrStale additionally rebuilds when any source file is newer
	// than the index's recorded maximum mtime. This is the default.
	OnMissingOrStale Policy = "on_missing_or_stale"
	// Always runs a full index on every call.
	Always Policy = "always"
)

// Action records what EnsureIndexed actually did.
type Action string

const (
	ActionNone    Action = "none"
	ActionBuilt   Action = "built"
	ActionRebuilt Action = "rebuilt"
)

// Result is the outcome of one EnsureIndexed call.
type Result struct {
	Location     project.StorageLocation
	Action       Action
	FilesIndexed int
	ChunksIndexed int
	Errors       []pipeline.FileError
}

// Errors returned by EnsureIndexed. A failed run is returned as
// *IndexingFailedError, which carries the ErrorReport; callers recover it
// with errors.As.
var (
	ErrProjectNotDetected = errors.New("autoindex: project not detected")
	ErrStorageUnavailable = errors.New("autoindex: storage unavailable")
)

// IndexingFailedError wraps a pipeline error report from a failed run.
type IndexingFailedError struct {
	Report pipeline.ErrorReport
}

func (e *IndexingFailedError) Error() string {
	return fmt.Sprintf("autoindex: indexing failed: %s", e.Report.Summary)
}

// Service ties project detection, storage resolution, and the indexing
// pipeline together behind a single ensure_indexed entry point, with a
// single-flight guard so concurrent callers against the same storage
// location share one in-flight build.
type Service struct {
	Policy    Policy
	Detector  *project.Detector
	Resolver  *project.Resolver
	Store     func(project.StorageLocation) (vectorstore.Store, error)
	Indexer   *pipeline.ParallelIndexer
	Chunker   chunker.Chunker
	Embedder  embedder.Provider
	Options   pipeline.IndexOptions

	group singleflight.Group
}

// NewService constructs a Service with the OnMissingOrStale default policy.
func NewService(
	detector *project.Detector,
	resolver *project.Resolver,
	storeFactory func(project.StorageLocation) (vectorstore.Store, error),
	indexer *pipeline.ParallelIndexer,
	chunk chunker.Chunker,
	embed embedder.Provider,
	opts pipeline.IndexOptions,
) *Service {
	return &Service{
		Policy:   OnMissingOrStale,
		Detector: detector,
		Resolver: resolver,
		Store:    storeFactory,
		Indexer:  indexer,
		Chunker:  chunk,
		Embedder: embed,
		Options:  opts,
	}
}

// EnsureIndexed detects the project owning path, resolves its storage
// location, and applies Policy to decide whether (and how) to bring the
// index up to date. Concurrent calls resolving to the same storage location
// share a single in-flight run.
func (s *Service) EnsureIndexed(ctx context.Context, path string) (Result, error) {
	detected, err := s.Detector.Detect(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrProjectNotDetected, err)
	}

	loc, err := s.Resolver.Resolve(detected)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	key := loc.DBPath()
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.ensure(ctx, detected, loc)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (s *Service) ensure(ctx context.Context, detected project.DetectedProject, loc project.StorageLocation) (Result, error) {
	store, err := s.Store(loc)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := store.Health(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	needsBuild, rebuild, err := s.decide(ctx, detected, loc, store)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !needsBuild {
		return Result{Location: loc, Action: ActionNone}, nil
	}

	res, runErr := s.Indexer.IndexAll(ctx, detected, store, s.Chunker, s.Embedder, s.Options)
	if runErr != nil {
		return Result{}, &IndexingFailedError{Report: pipeline.ErrorReport{Summary: runErr.Error()}}
	}
	if res.Aborted {
		return Result{}, &IndexingFailedError{Report: newErrorReportFrom(res)}
	}

	action := ActionBuilt
	if rebuild {
		action = ActionRebuilt
	}
	return Result{
		Location:      loc,
		Action:        action,
		FilesIndexed:  res.FilesProcessed,
		ChunksIndexed: res.ChunksCreated,
		Errors:        res.Errors,
	}, nil
}

// decide reports whether a build is needed and whether it is a rebuild of an
// existing index (as opposed to building from nothing), per s.Policy.
// "Exists" is a storage-artifact presence test at the resolved location
// (StorageLocation.IndexExists), per spec: OnMissing/OnMissingOrStale ask
// "is there an index at all," not "does the store currently hold chunks for
// this project" (a project whose every file failed to chunk would otherwise
// look permanently missing).
func (s *Service) decide(ctx context.Context, detected project.DetectedProject, loc project.StorageLocation, store vectorstore.Store) (needsBuild, rebuild bool, err error) {
	exists := loc.IndexExists()

	switch s.Policy {
	case Never:
		return false, false, nil
	case OnMissing:
		return !exists, false, nil
	case Always:
		return true, exists, nil
	case OnMissingOrStale:
		if !exists {
			return true, false, nil
		}
		stale, err := s.isStale(ctx, detected, store)
		if err != nil {
			return false, false, err
		}
		return stale, stale, nil
	default:
		return !exists, exists, nil
	}
}

// isStale compares the whole source tree (per pipeline.DiscoverFiles, the
// same walk stage 1 would perform) against the store's already-indexed file
// set and their recorded max mtimes. A file is stale if: it is newer on
// disk than its recorded max mtime, it has never been indexed at all (a
// file present on disk but absent from the store's file list), or it has
// vanished from disk since the last index (present in the store but
// missing now). Comparing only the store's own file list - as the previous
// implementation did - would never detect a newly added, never-indexed
// file, since there is nothing in the store yet for isStale to iterate.
func (s *Service) isStale(ctx context.Context, detected project.DetectedProject, store vectorstore.Store) (bool, error) {
	indexed, err := store.ListFiles(ctx, vectorstore.Filter{ProjectID: detected.ProjectID()})
	if err != nil {
		return false, err
	}
	indexedSet := make(map[string]bool, len(indexed))
	for _, f := range indexed {
		indexedSet[f] = true
	}

	onDisk, err := pipeline.DiscoverFiles(detected.Root, s.Options)
	if err != nil {
		return false, err
	}
	onDiskSet := make(map[string]bool, len(onDisk))
	for _, f := range onDisk {
		onDiskSet[f] = true
		if !indexedSet[f] {
			// never indexed: a new source file the store has no record of.
			return true, nil
		}
	}

	for _, f := range indexed {
		if !onDiskSet[f] {
			// vanished since last index: stale so the run picks up the
			// deletion via a normal index_paths pass.
			return true, nil
		}
		mtime, found, err := store.MaxMtime(ctx, detected.ProjectID(), f)
		if err != nil {
			return false, err
		}
		srcMtime, ok := sourceMtime(detected.Root, f)
		if !ok {
			return true, nil
		}
		if !found || srcMtime > mtime {
			return true, nil
		}
	}
	return false, nil
}

func newErrorReportFrom(res pipeline.ProcessingResult) pipeline.ErrorReport {
	byStage := make(map[pipeline.Stage][]pipeline.FileError)
	for _, e := range res.Errors {
		byStage[e.Stage] = append(byStage[e.Stage], e)
	}
	return pipeline.ErrorReport{
		TotalErrors: len(res.Errors),
		ByStage:     byStage,
		Summary:     "run aborted after exceeding the configured error threshold",
	}
}
