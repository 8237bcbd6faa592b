package autoindex

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/coderag/coderag/internal/pipeline"
	"github.com/coderag/coderag/internal/project"
	"github.com/coderag/coderag/internal/vectorstore"
)

// fakeStore is a minimal in-memory vectorstore.Store for policy-decision
// tests; it never actually stores vectors.
type fakeStore struct {
	chunkCount int
	files      []string
	mtimes     map[string]int64
	healthErr  error
}

func (f *fakeStore) Upsert(ctx context.Context, points []vectorstore.Point) error { return nil }
func (f *fakeStore) DeleteByFile(ctx context.Context, projectID, filePath string) error {
	return nil
}
func (f *fakeStore) Nearest(ctx context.Context, query []float32, k int, filter vectorstore.Filter) ([]vectorstore.ScoredPoint, error) {
	return nil, nil
}
func (f *fakeStore) CountChunks(ctx context.Context, filter vectorstore.Filter) (int, error) {
	return f.chunkCount, nil
}
func (f *fakeStore) ListFiles(ctx context.Context, filter vectorstore.Filter) ([]string, error) {
	return f.files, nil
}
func (f *fakeStore) MaxMtime(ctx context.Context, projectID, filePath string) (int64, bool, error) {
	mt, ok := f.mtimes[filePath]
	return mt, ok, nil
}
func (f *fakeStore) EnsureCollection(ctx context.Context, dimensions int) error { return nil }
func (f *fakeStore) Health(ctx context.Context) error                          { return f.healthErr }
func (f *fakeStore) Close() error                                              { return nil }

// localLoc resolves a StorageLocation rooted at a .coderag-marked temp
// project, optionally pre-creating the index directory (and a file inside
// it) so IndexExists() reports true.
func localLoc(t *testing.T, withArtifact bool) (project.DetectedProject, project.StorageLocation) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".coderag"), 0o755); err != nil {
		t.Fatalf("failed to set up fixture: %v", err)
	}
	detected, err := project.NewDetector().Detect(root)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	loc, err := project.NewResolver().Resolve(detected)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if withArtifact {
		if err := os.MkdirAll(loc.DBPath(), 0o755); err != nil {
			t.Fatalf("failed to create index dir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(loc.DBPath(), "store.db"), []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to write artifact: %v", err)
		}
	}
	return detected, loc
}

func TestService_Decide_NeverPolicy(t *testing.T) {
	s := &Service{Policy: Never}
	detected, loc := localLoc(t, false)
	needsBuild, rebuild, err := s.decide(context.Background(), detected, loc, &fakeStore{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if needsBuild || rebuild {
		t.Error("Never policy must never request a build")
	}
}

func TestService_Decide_OnMissingPolicy(t *testing.T) {
	s := &Service{Policy: OnMissing}

	detected, loc := localLoc(t, false)
	needsBuild, _, err := s.decide(context.Background(), detected, loc, &fakeStore{})
	if err != nil || !needsBuild {
		t.Errorf("expected build needed with no index artifact, got needsBuild=%v err=%v", needsBuild, err)
	}

	detected, loc = localLoc(t, true)
	needsBuild, _, err = s.decide(context.Background(), detected, loc, &fakeStore{})
	if err != nil || needsBuild {
		t.Errorf("expected no build needed with an existing index artifact, got needsBuild=%v err=%v", needsBuild, err)
	}
}

func TestService_Decide_AlwaysPolicy(t *testing.T) {
	s := &Service{Policy: Always}
	detected, loc := localLoc(t, true)
	needsBuild, rebuild, err := s.decide(context.Background(), detected, loc, &fakeStore{})
	if err != nil || !needsBuild || !rebuild {
		t.Errorf("Always policy must always rebuild an existing index, got needsBuild=%v rebuild=%v err=%v", needsBuild, rebuild, err)
	}
}

func TestService_Decide_OnMissingOrStale_VanishedFile(t *testing.T) {
	s := &Service{Policy: OnMissingOrStale}
	detected, loc := localLoc(t, true)
	store := &fakeStore{
		files:  []string{"missing.go"},
		mtimes: map[string]int64{"missing.go": 100},
	}
	needsBuild, rebuild, err := s.decide(context.Background(), detected, loc, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !needsBuild || !rebuild {
		t.Error("expected rebuild when an indexed file has vanished from source")
	}
}

func TestService_Decide_OnMissingOrStale_NewUnindexedFile(t *testing.T) {
	s := &Service{Policy: OnMissingOrStale}
	detected, loc := localLoc(t, true)
	if err := os.WriteFile(filepath.Join(detected.Root, "fresh.go"), []byte("package x"), 0o644); err != nil {
		t.Fatalf("failed to write fixture file: %v", err)
	}
	// store has no record of fresh.go at all: a file added after the last
	// index run, which the store's own file list can never surface.
	store := &fakeStore{files: nil, mtimes: map[string]int64{}}

	needsBuild, rebuild, err := s.decide(context.Background(), detected, loc, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !needsBuild || !rebuild {
		t.Error("expected rebuild when a new, never-indexed source file exists on disk")
	}
}

func TestService_Decide_OnMissingOrStale_UpToDate(t *testing.T) {
	s := &Service{Policy: OnMissingOrStale}
	detected, loc := localLoc(t, true)
	if err := os.WriteFile(filepath.Join(detected.Root, "current.go"), []byte("package x"), 0o644); err != nil {
		t.Fatalf("failed to write fixture file: %v", err)
	}
	info, err := os.Stat(filepath.Join(detected.Root, "current.go"))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	store := &fakeStore{
		files:  []string{"current.go"},
		mtimes: map[string]int64{"current.go": info.ModTime().Unix() + 60},
	}

	needsBuild, rebuild, err := s.decide(context.Background(), detected, loc, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if needsBuild || rebuild {
		t.Error("expected no rebuild when every on-disk file is already indexed and not newer than recorded")
	}
}

// Concurrent EnsureIndexed calls through the single-flight guard must all
// succeed. storeCalls is counted but not asserted: how many calls share one
// flight depends on goroutine scheduling.
func TestEnsureIndexed_SingleFlightDedupesConcurrentCalls(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("failed to set up fixture: %v", err)
	}
	var storeCalls int32

	s := &Service{
		Policy:   Never,
		Detector: project.NewDetector(),
		Resolver: project.NewResolverWithDataDir(t.TempDir()),
		Options:  pipeline.IndexOptions{},
		Store: func(loc project.StorageLocation) (vectorstore.Store, error) {
			atomic.AddInt32(&storeCalls, 1)
			return &fakeStore{}, nil
		},
	}

	const n = 8
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := s.EnsureIndexed(context.Background(), root)
			results <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-results; err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
}
