package watch

import (
	"path/filepath"
	"strings"
)

// GitOp identifies a category of git operation inferred from which files
// inside .git changed.
type GitOp string

const (
	GitCheckout GitOp = "checkout"
	GitMerge    GitOp = "merge"
	GitRebase   GitOp = "rebase"
	GitPull     GitOp = "pull"
	GitReset    GitOp = "reset"
	GitStash    GitOp = "stash"
)

// IsGitOperation reports whether any path in paths touches a .git directory.
func IsGitOperation(paths []string) bool {
	for _, p := range paths {
		if pathHasGitComponent(p) {
			return true
		}
	}
	return false
}

// DetectGitOperationType inspects the set of changed paths and infers which
// git operation is in progress, if any. Detection order mirrors the
// specificity of each indicator: HEAD/refs changes imply a checkout, then
// merge, rebase, pull, reset, and stash markers, falling back to a generic
// checkout when only .git/index changed.
func DetectGitOperationType(paths []string) (GitOp, bool) {
	var gitPaths []string
	for _, p := range paths {
		if pathHasGitComponent(p) {
			gitPaths = append(gitPaths, filepath.ToSlash(p))
		}
	}
	if len(gitPaths) == 0 {
		return "", false
	}

	for _, p := range gitPaths {
		switch {
		case strings.Contains(p, ".git/HEAD"), strings.Contains(p, ".git/refs/heads"):
			return GitCheckout, true
		case strings.Contains(p, ".git/MERGE_HEAD"), strings.Contains(p, ".git/MERGE_MSG"):
			return GitMerge, true
		case strings.Contains(p, ".git/rebase-merge"), strings.Contains(p, ".git/rebase-apply"):
			return GitRebase, true
		case strings.Contains(p, ".git/FETCH_HEAD"):
			return GitPull, true
		case strings.Contains(p, ".git/ORIG_HEAD"):
			return GitReset, true
		case strings.Contains(p, ".git/refs/stash"):
			return GitStash, true
		}
	}

	for _, p := range gitPaths {
		if strings.Contains(p, ".git/index") {
			return GitCheckout, true
		}
	}
	return "", false
}

// SuggestedDelayMillis returns the settle delay recommended before
// reindexing after the given git operation completes.
func SuggestedDelayMillis(op GitOp) int {
	switch op {
	case GitCheckout:
		return 5000
	case GitMerge:
		return 4000
	case GitRebase:
		return 6000
	case GitPull:
		return 5000
	case GitReset:
		return 3000
	case GitStash:
		return 2000
	default:
		return 0
	}
}

func pathHasGitComponent(p string) bool {
	p = filepath.ToSlash(p)
	for _, part := range strings.Split(p, "/") {
		if part == ".git" {
			return true
		}
	}
	return false
}
