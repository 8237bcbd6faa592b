package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve_LocalConfigWins(t *testing.T) {
	root := t.TempDir()
	r := NewResolverWithDataDir(t.TempDir())

	loc, err := r.Resolve(DetectedProject{Root: root, HasLocalConfig: true, Marker: CoderagMarker})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if loc.Kind != StorageLocal {
		t.Errorf("Kind = %q, want %q", loc.Kind, StorageLocal)
	}
	want := filepath.Join(root, ".coderag", "index")
	if loc.DBPath() != want {
		t.Errorf("DBPath = %q, want %q", loc.DBPath(), want)
	}
}

func TestResolve_GlobalForNoLocalConfig(t *testing.T) {
	root := t.TempDir()
	dataDir := t.TempDir()
	r := NewResolverWithDataDir(dataDir)

	loc, err := r.Resolve(DetectedProject{Root: root, HasLocalConfig: false, ProjectType: TypeGo})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if loc.Kind != StorageGlobal {
		t.Errorf("Kind = %q, want %q", loc.Kind, StorageGlobal)
	}
	if loc.ProjectID == "" {
		t.Error("ProjectID must be set for global storage")
	}
	want := filepath.Join(dataDir, "coderag", "indexes", loc.ProjectID, "index")
	if loc.DBPath() != want {
		t.Errorf("DBPath = %q, want %q", loc.DBPath(), want)
	}
}

func TestComputeProjectID_DistinctRootsSameBasename(t *testing.T) {
	a := filepath.Join(t.TempDir(), "myproject")
	b := filepath.Join(t.TempDir(), "myproject")
	if err := os.MkdirAll(a, 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", a, err)
	}
	if err := os.MkdirAll(b, 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", b, err)
	}

	idA, err := ComputeProjectID(a)
	if err != nil {
		t.Fatalf("ComputeProjectID(a) failed: %v", err)
	}
	idB, err := ComputeProjectID(b)
	if err != nil {
		t.Fatalf("ComputeProjectID(b) failed: %v", err)
	}

	if idA == idB {
		t.Errorf("expected distinct IDs for distinct canonical roots, got %q for both", idA)
	}
}

func TestSanitizeName_IsIdempotent(t *testing.T) {
	cases := []string{"my project!!", "hello-world", "a/b\\c", "", "____"}
	for _, s := range cases {
		once := SanitizeName(s)
		twice := SanitizeName(once)
		if once != twice {
			t.Errorf("SanitizeName not idempotent for %q: once=%q twice=%q", s, once, twice)
		}
	}
}
