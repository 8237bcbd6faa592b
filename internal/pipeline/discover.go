package pipeline

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// defaultIgnorePatterns are skipped regardless of .gitignore contents or
// RespectVCSIgnore: these directories are never source.
var defaultIgnorePatterns = []string{
	".git", ".coderag", "node_modules", "vendor", "dist", "build",
	"__pycache__", "target", ".idea", ".vscode",
}

// discoverer walks a project root and yields the set of candidate files for
// stage 1, after applying include/exclude globs and (optionally) VCS-ignore
// rules. It holds no goroutine state: Walk is synchronous, called by
// IndexAll before the stages start and by DiscoverFiles.
type discoverer struct {
	root          string
	ignoreMatcher gitignore.IgnoreParser
	includeGlobs  []string
	excludeGlobs  []string
}

// DiscoverFiles enumerates the candidate source files under root that the
// pipeline would consider indexing, applying the same VCS-ignore and
// include/exclude glob rules stage 1 uses. Exported so callers outside the
// package (autoindex's staleness check) can compare the whole source tree
// against the store's already-indexed file set, not just already-indexed
// files.
func DiscoverFiles(root string, opts IndexOptions) ([]string, error) {
	d := newDiscoverer(root, opts.RespectVCSIgnore, opts.IncludeGlobs, opts.ExcludeGlobs)
	return d.Walk()
}

func newDiscoverer(root string, respectVCSIgnore bool, includeGlobs, excludeGlobs []string) *discoverer {
	patterns := append([]string{}, defaultIgnorePatterns...)
	if respectVCSIgnore {
		patterns = append(patterns, loadGitignorePatterns(root)...)
	}

	return &discoverer{
		root:          root,
		ignoreMatcher: gitignore.CompileIgnoreLines(patterns...),
		includeGlobs:  includeGlobs,
		excludeGlobs:  excludeGlobs,
	}
}

// Walk enumerates candidate files under root and returns their paths,
// relative to root, once the whole walk is done; it keeps no background
// state.
func (d *discoverer) Walk() ([]string, error) {
	var paths []string

	err := filepath.WalkDir(d.root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		rel, relErr := filepath.Rel(d.root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}

		if d.ignoreMatcher.MatchesPath(rel) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			return nil
		}

		if !d.matchesIncludes(rel) || d.matchesExcludes(rel) {
			return nil
		}

		paths = append(paths, rel)
		return nil
	})

	return paths, err
}

func (d *discoverer) matchesIncludes(rel string) bool {
	if len(d.includeGlobs) == 0 {
		return true
	}
	for _, g := range d.includeGlobs {
		if ok, _ := filepath.Match(g, filepath.Base(rel)); ok {
			return true
		}
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
	}
	return false
}

func (d *discoverer) matchesExcludes(rel string) bool {
	for _, g := range d.excludeGlobs {
		if ok, _ := filepath.Match(g, filepath.Base(rel)); ok {
			return true
		}
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
	}
	return false
}

func loadGitignorePatterns(root string) []string {
	var patterns []string

	rootFile := filepath.Join(root, ".gitignore")
	if lines, err := readGitignoreLines(rootFile); err == nil {
		patterns = append(patterns, lines...)
	}

	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != ".gitignore" || path == rootFile {
			return nil
		}
		if lines, err := readGitignoreLines(path); err == nil {
			patterns = append(patterns, lines...)
		}
		return nil
	})

	return patterns
}

func readGitignoreLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// looksBinary applies the classic null-byte heuristic over the first few KB.
func looksBinary(data []byte) bool {
	probe := data
	if len(probe) > 8192 {
		probe = probe[:8192]
	}
	return bytes.IndexByte(probe, 0) != -1
}
