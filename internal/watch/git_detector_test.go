package watch

import "testing"

func TestDetectGitOperationType(t *testing.T) {
	cases := []struct {
		name  string
		paths []string
		want  GitOp
	}{
		{"checkout via HEAD", []string{".git/HEAD"}, GitCheckout},
		{"checkout via refs/heads", []string{".git/refs/heads/main"}, GitCheckout},
		{"merge", []string{".git/MERGE_HEAD"}, GitMerge},
		{"rebase", []string{".git/rebase-merge/done"}, GitRebase},
		{"pull", []string{".git/FETCH_HEAD"}, GitPull},
		{"reset", []string{".git/ORIG_HEAD"}, GitReset},
		{"stash", []string{".git/refs/stash"}, GitStash},
		{"index fallback", []string{".git/index"}, GitCheckout},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			op, ok := DetectGitOperationType(c.paths)
			if !ok {
				t.Fatalf("expected a detected operation for %v", c.paths)
			}
			if op != c.want {
				t.Errorf("op = %q, want %q", op, c.want)
			}
		})
	}
}

func TestDetectGitOperationType_NoGitPaths(t *testing.T) {
	if _, ok := DetectGitOperationType([]string{"src/main.go", "README.md"}); ok {
		t.Error("expected no operation detected for non-.git paths")
	}
}

func TestIsGitOperation(t *testing.T) {
	if !IsGitOperation([]string{"project/.git/HEAD"}) {
		t.Error("expected IsGitOperation true for a path with a .git component")
	}
	if IsGitOperation([]string{"project/src/main.go"}) {
		t.Error("expected IsGitOperation false for a path without a .git component")
	}
}

func TestSuggestedDelayMillis(t *testing.T) {
	cases := map[GitOp]int{
		GitCheckout: 5000,
		GitMerge:    4000,
		GitRebase:   6000,
		GitPull:     5000,
		GitReset:    3000,
		GitStash:    2000,
		GitOp("unknown"): 0,
	}
	for op, want := range cases {
		if got := SuggestedDelayMillis(op); got != want {
			t.Errorf("SuggestedDelayMillis(%q) = %d, want %d", op, got, want)
		}
	}
}
