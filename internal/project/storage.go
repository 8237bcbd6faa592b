package project

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StorageKind distinguishes the two places an index can live.
type StorageKind string

const (
	StorageLocal  StorageKind = "local"
	StorageGlobal StorageKind = "global"
)

// StorageLocation is the resolved, canonical location of a project's index.
// Exactly one of the two layouts applies, selected by Kind.
type StorageLocation struct {
	Kind      StorageKind
	ProjectID string // set only for Kind == StorageGlobal
	indexPath string
}

// DBPath returns the absolute filesystem path to the index directory.
func (s StorageLocation) DBPath() string {
	return s.indexPath
}

// IsLocal reports whether this location is the project-local layout
// (<root>/.coderag/index) rather than the global per-user store.
func (s StorageLocation) IsLocal() bool {
	return s.Kind == StorageLocal
}

// IndexExists tests for the presence of store artifacts at DBPath(): the
// index directory exists and contains at least one entry. This is a
// filesystem-level presence check only; it says nothing about whether the
// store's content is current (see autoindex.isStale for that).
func (s StorageLocation) IndexExists() bool {
	entries, err := os.ReadDir(s.indexPath)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// Resolver computes a DetectedProject's StorageLocation.
type Resolver struct {
	// userDataDir overrides os.UserConfigDir, used in tests.
	userDataDir string
}

// NewResolver returns a Resolver using the OS-standard user data directory.
func NewResolver() *Resolver {
	return &Resolver{}
}

// NewResolverWithDataDir returns a Resolver rooted at an explicit data
// directory, bypassing os.UserConfigDir. Intended for tests.
func NewResolverWithDataDir(dir string) *Resolver {
	return &Resolver{userDataDir: dir}
}

// Resolve computes where a detected project's index lives. Projects with a
// local .coderag marker keep using local storage for backward compatibility;
// everything else is indexed into the global per-user store.
func (r *Resolver) Resolve(p DetectedProject) (StorageLocation, error) {
	if p.HasLocalConfig {
		return StorageLocation{
			Kind:      StorageLocal,
			indexPath: filepath.Join(p.Root, ".coderag", "index"),
		}, nil
	}

	dataDir, err := r.dataDir()
	if err != nil {
		return StorageLocation{}, fmt.Errorf("project: failed to resolve user data dir: %w", err)
	}

	id, err := ComputeProjectID(p.Root)
	if err != nil {
		return StorageLocation{}, err
	}

	return StorageLocation{
		Kind:      StorageGlobal,
		ProjectID: id,
		indexPath: filepath.Join(dataDir, "coderag", "indexes", id, "index"),
	}, nil
}

func (r *Resolver) dataDir() (string, error) {
	if r.userDataDir != "" {
		return r.userDataDir, nil
	}
	return os.UserConfigDir()
}

// ComputeProjectID derives a stable, filesystem-safe identifier for root:
// sanitize(basename(root)) + "-" + short hash of the canonical root. Two
// distinct canonical roots sharing a basename still get distinct IDs.
func ComputeProjectID(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("project: failed to resolve %q: %w", root, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("project: failed to canonicalize %q: %w", root, err)
	}

	base := SanitizeName(filepath.Base(canonical))
	sum := sha256.Sum256([]byte(canonical))
	short := hex.EncodeToString(sum[:])[:12]

	return base + "-" + short, nil
}

// SanitizeName replaces every character outside [A-Za-z0-9_-] with '_'. It
// is idempotent: SanitizeName(SanitizeName(s)) == SanitizeName(s).
func SanitizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
