package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/coderag/coderag/internal/pipeline"
	"github.com/coderag/coderag/internal/project"
)

// state is the reconciler's internal state machine position.
type state int

const (
	stateIdle state = iota
	stateCollecting
	stateDispatching
)

// Dispatcher runs the index/remove operations the reconciler decides on.
// PipelineDispatcher adapts internal/pipeline.ParallelIndexer to it against
// a concrete store/chunker/embedder triple, bound once at construction.
type Dispatcher interface {
	IndexPaths(ctx context.Context, paths []string, bulk bool) (pipeline.ProcessingResult, error)
	RemovePaths(ctx context.Context, paths []string) pipeline.ProcessingResult
}

// Reconciler watches a project root for filesystem changes and turns raw
// fsnotify events into deduplicated reindex batches, consulting the batch
// and git detectors to decide how long to wait before dispatching.
type Reconciler struct {
	root       string
	watcher    *fsnotify.Watcher
	dispatcher Dispatcher
	batch      *BatchDetector
	logger     *zap.Logger

	ignore func(relPath string) bool

	mu       sync.Mutex
	st       state
	touched  map[string]bool
	deleted  map[string]bool
	bulk     bool
	timer    *time.Timer
	timerC   <-chan time.Time
	resetReq chan time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReconciler builds a reconciler for root, dispatching reindex work
// through dispatcher. ignore, if non-nil, is consulted with a root-relative
// path and should return true for paths that must never trigger a reindex.
func NewReconciler(root string, dispatcher Dispatcher, logger *zap.Logger, ignore func(string) bool) (*Reconciler, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		root:       root,
		watcher:    w,
		dispatcher: dispatcher,
		batch:      NewBatchDetector(50, 20.0, 3*time.Second),
		logger:     logger,
		ignore:     ignore,
		st:         stateIdle,
		touched:    make(map[string]bool),
		deleted:    make(map[string]bool),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// NewReconcilerWithBatch is NewReconciler with an explicit C6 BatchDetector,
// letting callers honor config.WatchConfig instead of the package default.
func NewReconcilerWithBatch(root string, dispatcher Dispatcher, logger *zap.Logger, ignore func(string) bool, batch *BatchDetector) (*Reconciler, error) {
	r, err := NewReconciler(root, dispatcher, logger, ignore)
	if err != nil {
		return nil, err
	}
	if batch != nil {
		r.batch = batch
	}
	return r, nil
}

// Start walks root adding every non-ignored directory to the watch set, then
// begins processing events in the background.
func (r *Reconciler) Start() error {
	err := filepath.WalkDir(r.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(r.root, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && r.ignore != nil && r.ignore(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := r.watcher.Add(path); err != nil {
				r.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.wg.Add(1)
	go r.loop()
	return nil
}

// Stop requests shutdown and waits for the current dispatch, if any, to
// finish before returning.
func (r *Reconciler) Stop() error {
	r.cancel()
	r.wg.Wait()
	return r.watcher.Close()
}

func (r *Reconciler) loop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return

		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.handleEvent(ev)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("watcher error", zap.Error(err))

		case <-r.timerFireC():
			r.dispatch()
		}
	}
}

// timerFireC returns the active collection timer's channel, or a nil
// channel (which blocks forever) when idle.
func (r *Reconciler) timerFireC() <-chan time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer == nil {
		return nil
	}
	return r.timerC
}

func (r *Reconciler) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(r.root, ev.Name)
	if err != nil {
		return
	}
	if r.ignore != nil && r.ignore(rel) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := r.watcher.Add(ev.Name); err != nil {
				r.logger.Warn("failed to watch new directory", zap.String("path", ev.Name), zap.Error(err))
			}
		}
	}

	if !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		r.deleted[rel] = true
		delete(r.touched, rel)
	} else {
		r.touched[rel] = true
		delete(r.deleted, rel)
	}

	paths := make([]string, 0, len(r.touched)+len(r.deleted))
	for p := range r.touched {
		paths = append(paths, p)
	}
	for p := range r.deleted {
		paths = append(paths, p)
	}

	delay := r.batch.CollectionDelay()
	if op, ok := DetectGitOperationType(paths); ok {
		delay = time.Duration(SuggestedDelayMillis(op)) * time.Millisecond
	} else if r.batch.DetectMassChange(len(r.touched)) {
		r.bulk = true
		delay = r.batch.CollectionDelay()
	}

	switch r.st {
	case stateIdle:
		r.st = stateCollecting
		r.armTimer(delay)
	case stateCollecting:
		r.armTimer(delay)
	case stateDispatching:
		// accumulate; the next dispatch picks these up once the
		// in-flight one completes and re-enters Collecting.
	}
}

// armTimer (re)starts the collection timer; callers must hold r.mu.
func (r *Reconciler) armTimer(delay time.Duration) {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.NewTimer(delay)
	r.timerC = r.timer.C
}

func (r *Reconciler) dispatch() {
	r.mu.Lock()
	touched := make([]string, 0, len(r.touched))
	for p := range r.touched {
		if !r.deleted[p] {
			touched = append(touched, p)
		}
	}
	deleted := make([]string, 0, len(r.deleted))
	for p := range r.deleted {
		deleted = append(deleted, p)
	}
	bulk := r.bulk
	r.touched = make(map[string]bool)
	r.deleted = make(map[string]bool)
	r.bulk = false
	r.timer = nil
	r.timerC = nil
	r.st = stateDispatching
	r.mu.Unlock()

	r.batch.Reset()

	if len(deleted) > 0 {
		if res := r.dispatcher.RemovePaths(r.ctx, deleted); len(res.Errors) > 0 {
			r.logger.Warn("remove_paths reported errors", zap.Int("count", len(res.Errors)))
		}
	}
	if len(touched) > 0 {
		if res, err := r.dispatcher.IndexPaths(r.ctx, touched, bulk); err != nil {
			r.logger.Warn("index_paths failed", zap.Error(err))
		} else if len(res.Errors) > 0 {
			r.logger.Info("index_paths completed with errors", zap.Int("errors", len(res.Errors)))
		}
	}

	r.mu.Lock()
	// Events that arrived while dispatching re-enter Collecting immediately.
	if len(r.touched) > 0 || len(r.deleted) > 0 {
		r.st = stateCollecting
		r.armTimer(r.batch.CollectionDelay())
	} else {
		r.st = stateIdle
	}
	r.mu.Unlock()
}

// ProjectIgnore builds an ignore predicate from a fixed list of directory
// names: .coderag plus the usual VCS/build noise, so the reconciler never
// reindexes a local index. The project argument is not consulted.
func ProjectIgnore(_ project.DetectedProject) func(string) bool {
	noise := map[string]bool{
		".git": true, ".coderag": true, "node_modules": true, "vendor": true,
		"dist": true, "build": true, "__pycache__": true, "target": true,
	}
	return func(rel string) bool {
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if noise[part] {
				return true
			}
		}
		return false
	}
}
