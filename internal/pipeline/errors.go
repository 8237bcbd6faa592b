package pipeline

import (
	"fmt"
	"sort"
	"sync"
)

// Stage identifies which pipeline stage produced a FileError.
type Stage string

const (
	StageRead     Stage = "read"
	StageChunking Stage = "chunking"
	StageEmbed    Stage = "embedding"
	StageStore    Stage = "storage"
)

func (s Stage) String() string { return string(s) }

// FileError records a single file's failure at a given stage.
type FileError struct {
	Path  string
	Err   error
	Stage Stage
}

// ErrorCollector is a thread-safe, append-only error log with a
// threshold-based abort signal. Share it by pointer across goroutines:
// copying it would split the mutex from the data it guards.
type ErrorCollector struct {
	mu        sync.Mutex
	errors    []FileError
	maxErrors int
}

// NewErrorCollector returns a collector that signals abort once maxErrors
// errors have been recorded. maxErrors <= 0 means unlimited.
func NewErrorCollector(maxErrors int) *ErrorCollector {
	return &ErrorCollector{maxErrors: maxErrors}
}

// Record appends an error. Safe to call from any number of goroutines.
func (c *ErrorCollector) Record(path string, err error, stage Stage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, FileError{Path: path, Err: err, Stage: stage})
}

// ShouldContinue reports whether the run is still under its error budget.
func (c *ErrorCollector) ShouldContinue() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxErrors <= 0 {
		return true
	}
	return len(c.errors) < c.maxErrors
}

// ErrorCount returns the number of errors recorded so far.
func (c *ErrorCollector) ErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// Clear discards all recorded errors.
func (c *ErrorCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = nil
}

// GetReport snapshots the collected errors into a stable, stage-grouped
// ErrorReport.
func (c *ErrorCollector) GetReport() ErrorReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	errsCopy := make([]FileError, len(c.errors))
	copy(errsCopy, c.errors)
	return newErrorReport(errsCopy)
}

// ErrorReport is a point-in-time, stage-grouped view of collected errors.
type ErrorReport struct {
	TotalErrors int
	ByStage     map[Stage][]FileError
	Summary     string
}

// HasErrors reports whether the report contains any errors.
func (r ErrorReport) HasErrors() bool { return r.TotalErrors > 0 }

func newErrorReport(errs []FileError) ErrorReport {
	byStage := make(map[Stage][]FileError)
	for _, e := range errs {
		byStage[e.Stage] = append(byStage[e.Stage], e)
	}

	return ErrorReport{
		TotalErrors: len(errs),
		ByStage:     byStage,
		Summary:     summarize(len(errs), byStage),
	}
}

func summarize(total int, byStage map[Stage][]FileError) string {
	if total == 0 {
		return "no errors"
	}
	stages := make([]string, 0, len(byStage))
	for s := range byStage {
		stages = append(stages, string(s))
	}
	sort.Strings(stages)

	out := fmt.Sprintf("%d error(s) across %d stage(s)", total, len(stages))
	for _, s := range stages {
		out += fmt.Sprintf(", %s: %d", s, len(byStage[Stage(s)]))
	}
	return out
}

// PrintSummary renders a human-readable report to a string: a per-stage
// breakdown capped at five examples each, with a count of any remainder.
func (r ErrorReport) PrintSummary() string {
	if !r.HasErrors() {
		return "✅ no errors\n"
	}

	out := fmt.Sprintf("⚠️  %d error(s) encountered\n", r.TotalErrors)

	stages := make([]string, 0, len(r.ByStage))
	for s := range r.ByStage {
		stages = append(stages, string(s))
	}
	sort.Strings(stages)

	const maxExamples = 5
	for _, s := range stages {
		errs := r.ByStage[Stage(s)]
		out += fmt.Sprintf("\n%s (%d):\n", s, len(errs))
		limit := len(errs)
		if limit > maxExamples {
			limit = maxExamples
		}
		for _, e := range errs[:limit] {
			out += fmt.Sprintf("  - %s: %v\n", e.Path, e.Err)
		}
		if remaining := len(errs) - limit; remaining > 0 {
			out += fmt.Sprintf("  ... and %d more\n", remaining)
		}
	}
	return out
}
