// Package project implements project root detection and index storage
// location resolution, the two pieces that let CodeRAG operate from any
// subdirectory without explicit initialization.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MaxTraversalDepth bounds how far Detect ascends before giving up. It is
// deliberately generous: real project trees are never this deep, but a
// misconfigured bind mount or a symlink loop must not spin forever.
const MaxTraversalDepth = 64

// ErrNotFound is returned when the filesystem root is reached without
// finding a marker.
var ErrNotFound = errors.New("project: no project marker found")

// ErrDepthLimit is returned when traversal exhausts MaxTraversalDepth
// without finding a marker or reaching the filesystem root.
var ErrDepthLimit = errors.New("project: traversal depth limit exceeded")

// ErrIO is returned when an ancestor directory exists but cannot be read
// (e.g. permission denied), distinguishing a genuine I/O fault from "no
// marker found here."
var ErrIO = errors.New("project: ancestor directory unreadable")

// DetectedProject is the result of a successful Detect call.
type DetectedProject struct {
	Root           string
	ProjectType    ProjectType
	Marker         Marker
	HasLocalConfig bool
}

// ProjectID returns the stable identifier used to scope index entries to
// this project, regardless of whether storage ends up local or global:
// sanitize(basename(root)) + "-" + short hash of the canonical root. Falls
// back to a sanitized basename alone if the root cannot be canonicalized
// (e.g. it no longer exists), which only affects display, not correctness,
// since a DetectedProject's Root is always canonical at detection time.
func (p DetectedProject) ProjectID() string {
	id, err := ComputeProjectID(p.Root)
	if err != nil {
		return SanitizeName(filepath.Base(p.Root))
	}
	return id
}

// Detector walks upward from a starting path looking for project markers.
type Detector struct{}

// NewDetector returns a ready-to-use Detector. It holds no state: detection
// is a pure function of the filesystem at call time.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect canonicalizes path and ascends parent directories, testing markers
// at each level. .coderag always wins ties at its own level; otherwise the
// closest directory with any matching marker wins, and ties within that
// directory are broken by marker priority.
func (d *Detector) Detect(path string) (DetectedProject, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return DetectedProject{}, fmt.Errorf("project: failed to resolve %q: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return DetectedProject{}, fmt.Errorf("project: failed to canonicalize %q: %w", path, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return DetectedProject{}, fmt.Errorf("project: failed to stat %q: %w", resolved, err)
	}
	dir := resolved
	if !info.IsDir() {
		dir = filepath.Dir(resolved)
	}

	for depth := 0; depth < MaxTraversalDepth; depth++ {
		entries, err := markersPresent(dir)
		if err != nil {
			if errors.Is(err, ErrIO) {
				return DetectedProject{}, fmt.Errorf("%w: %q: %v", ErrIO, dir, err)
			}
			return DetectedProject{}, fmt.Errorf("project: failed to read %q: %w", dir, err)
		}

		if marker, ok := findMarker(entries); ok {
			return DetectedProject{
				Root:           dir,
				ProjectType:    marker.ProjectType,
				Marker:         marker,
				HasLocalConfig: marker.Name == CoderagMarker.Name,
			}, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return DetectedProject{}, ErrNotFound
		}
		dir = parent
	}

	return DetectedProject{}, ErrDepthLimit
}

// markersPresent reports, for every marker name Detect cares about, whether
// it exists directly under dir. A vanished ancestor (raced out from under
// us mid-walk) is treated as "no markers here" so traversal can continue to
// the parent; a permission fault is a genuine I/O error and is surfaced as
// ErrIO rather than silently swallowed, since it leaves the caller unable
// to tell "not a project" from "couldn't check."
func markersPresent(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
		return nil, err
	}

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	return names, nil
}
