package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetect_FromNestedDirectory(t *testing.T) {
	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("[package]\nname = \"test\""), 0o644); err != nil {
		t.Fatalf("failed to write Cargo.toml: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("failed to create .git: %v", err)
	}

	nested := filepath.Join(root, "src", "utils", "helpers")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("failed to create nested dirs: %v", err)
	}

	d := NewDetector()
	got, err := d.Detect(nested)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	wantRoot, _ := filepath.EvalSymlinks(root)
	if got.Root != wantRoot {
		t.Errorf("Root = %q, want %q", got.Root, wantRoot)
	}
	// .git (priority 10) beats Cargo.toml (priority 20) at the same depth.
	if got.ProjectType != TypeGit {
		t.Errorf("ProjectType = %q, want %q", got.ProjectType, TypeGit)
	}
	if got.HasLocalConfig {
		t.Error("HasLocalConfig = true, want false")
	}
}

func TestDetect_CoderagWinsTies(t *testing.T) {
	root := t.TempDir()

	if err := os.Mkdir(filepath.Join(root, ".coderag"), 0o755); err != nil {
		t.Fatalf("failed to create .coderag: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("failed to create .git: %v", err)
	}

	d := NewDetector()
	got, err := d.Detect(root)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if !got.HasLocalConfig {
		t.Error("HasLocalConfig = false, want true")
	}
	if got.Marker.Name != CoderagMarker.Name {
		t.Errorf("Marker.Name = %q, want %q", got.Marker.Name, CoderagMarker.Name)
	}
}

func TestDetect_CloserMarkerWinsOverPriority(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("failed to create .git: %v", err)
	}

	sub := filepath.Join(root, "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("failed to create sub dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "go.mod"), []byte("module example.com/x\n"), 0o644); err != nil {
		t.Fatalf("failed to write go.mod: %v", err)
	}

	d := NewDetector()
	got, err := d.Detect(sub)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	wantRoot, _ := filepath.EvalSymlinks(sub)
	if got.Root != wantRoot {
		t.Errorf("Root = %q, want %q (closer marker must win over priority)", got.Root, wantRoot)
	}
	if got.ProjectType != TypeGo {
		t.Errorf("ProjectType = %q, want %q", got.ProjectType, TypeGo)
	}
}

func TestDetect_NotFound(t *testing.T) {
	root := t.TempDir()
	empty := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatalf("failed to create dirs: %v", err)
	}

	d := NewDetector()
	_, err := d.Detect(empty)
	if err == nil {
		t.Fatal("expected an error when no marker exists up to the filesystem root")
	}
}
