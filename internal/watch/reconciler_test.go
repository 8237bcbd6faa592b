package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coderag/coderag/internal/pipeline"
	"github.com/coderag/coderag/internal/project"
)

// recordingDispatcher records every IndexPaths/RemovePaths call it receives,
// signaling dispatched on every IndexPaths call.
type recordingDispatcher struct {
	mu         sync.Mutex
	indexed    [][]string
	removed    [][]string
	bulkFlags  []bool
	dispatched chan struct{}
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{dispatched: make(chan struct{}, 8)}
}

func (d *recordingDispatcher) IndexPaths(ctx context.Context, paths []string, bulk bool) (pipeline.ProcessingResult, error) {
	d.mu.Lock()
	d.indexed = append(d.indexed, paths)
	d.bulkFlags = append(d.bulkFlags, bulk)
	d.mu.Unlock()
	d.dispatched <- struct{}{}
	return pipeline.ProcessingResult{FilesProcessed: len(paths)}, nil
}

func (d *recordingDispatcher) RemovePaths(ctx context.Context, paths []string) pipeline.ProcessingResult {
	d.mu.Lock()
	d.removed = append(d.removed, paths)
	d.mu.Unlock()
	return pipeline.ProcessingResult{FilesProcessed: len(paths)}
}

func TestReconciler_DispatchesAfterCollectionDelay(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "existing.go"), []byte("package x"), 0o644))

	dispatcher := newRecordingDispatcher()
	r, err := NewReconciler(root, dispatcher, zap.NewNop(), nil)
	require.NoError(t, err)
	r.batch = NewBatchDetector(50, 20.0, 50*time.Millisecond)

	require.NoError(t, r.Start())
	defer r.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.go"), []byte("package x"), 0o644))

	select {
	case <-dispatcher.dispatched:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	assert.Len(t, dispatcher.indexed, 1)
	assert.False(t, dispatcher.bulkFlags[0])
}

func TestReconciler_IgnoresConfiguredPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	dispatcher := newRecordingDispatcher()
	r, err := NewReconciler(root, dispatcher, zap.NewNop(), ProjectIgnore(project.DetectedProject{Root: root}))
	require.NoError(t, err)
	r.batch = NewBatchDetector(50, 20.0, 30*time.Millisecond)

	require.NoError(t, r.Start())
	defer r.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref: refs/heads/main"), 0o644))

	select {
	case <-dispatcher.dispatched:
		t.Fatal("expected no dispatch for an ignored .git path")
	case <-time.After(200 * time.Millisecond):
	}
}
