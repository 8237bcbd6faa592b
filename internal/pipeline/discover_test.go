package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestDiscoverer_Walk_RespectsDefaultIgnores(t *testing.T) {
	root := t.TempDir()
	write(t, root, "main.go", "package main")
	write(t, root, filepath.Join(".git", "HEAD"), "ref: refs/heads/main")
	write(t, root, filepath.Join("vendor", "dep.go"), "package dep")

	d := newDiscoverer(root, false, nil, nil)
	paths, err := d.Walk()
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	sort.Strings(paths)

	if len(paths) != 1 || paths[0] != "main.go" {
		t.Errorf("paths = %v, want [main.go]", paths)
	}
}

func TestDiscoverer_Walk_RespectsGitignore(t *testing.T) {
	root := t.TempDir()
	write(t, root, "keep.go", "package a")
	write(t, root, "skip.log", "noise")
	write(t, root, ".gitignore", "*.log\n")

	d := newDiscoverer(root, true, nil, nil)
	paths, err := d.Walk()
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	for _, p := range paths {
		if p == "skip.log" {
			t.Error("expected skip.log to be excluded by .gitignore")
		}
	}
}

func TestDiscoverer_Walk_IncludeExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.go", "package a")
	write(t, root, "b.md", "# doc")
	write(t, root, "a_test.go", "package a")

	d := newDiscoverer(root, false, []string{"*.go"}, []string{"*_test.go"})
	paths, err := d.Walk()
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	sort.Strings(paths)

	if len(paths) != 1 || paths[0] != "a.go" {
		t.Errorf("paths = %v, want [a.go]", paths)
	}
}

func TestLooksBinary(t *testing.T) {
	if looksBinary([]byte("plain text")) {
		t.Error("plain text misdetected as binary")
	}
	if !looksBinary([]byte{0x00, 0x01, 0x02}) {
		t.Error("null-byte content should be detected as binary")
	}
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
}
