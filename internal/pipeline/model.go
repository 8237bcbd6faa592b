package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// FileContent is the output of stage 1 (Discover & Read): a file's raw text
// plus the metadata needed to decide whether it is stale on a later run.
type FileContent struct {
	Path    string
	Content string
	Mtime   int64
}

// RawChunk is the output of stage 2 (Chunk), before an identity or vector
// has been assigned. It intentionally carries no ID: stage 4 computes the
// canonical chunk identity from (FilePath, StartLine, EndLine, ContentHash)
// once a chunk is about to be persisted, so identity is independent of
// whatever bookkeeping ID the external chunker assigned internally.
type RawChunk struct {
	Content      string
	FilePath     string
	StartLine    int
	EndLine      int
	Language     string
	Mtime        int64
	FileHeader   string
	SemanticKind string
	SymbolName   string
	Signature    string
	Parent       string
	Visibility   string
}

// IndexedChunk is a RawChunk joined with its embedding vector and the
// deterministic ID the store will key on.
type IndexedChunk struct {
	ID        string
	Chunk     RawChunk
	Vector    []float32
	ProjectID string
}

// ChunkID computes the canonical, deterministic identity of a chunk from
// its file path, line span and content hash. Two runs that produce the
// same span of the same file with the same content always agree on ID,
// which is what makes the store's delete-then-upsert idempotent.
func ChunkID(filePath string, startLine, endLine int, contentHash string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s:%d:%d:%s", filePath, startLine, endLine, contentHash)
	return hex.EncodeToString(h.Sum(nil))
}

// HashContent returns the content hash ChunkID expects as its last argument.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ProcessingResult accumulates the outcome of a pipeline run. Merge is
// associative over the five fields (counts add, slices concatenate in
// argument order, Aborted is OR-ed), which lets independent
// goroutines (or independent runs being combined for reporting) fold their
// partial results together without coordination beyond the final join.
type ProcessingResult struct {
	Successful    []IndexedChunk
	Errors        []FileError
	FilesProcessed int
	ChunksCreated  int
	Aborted        bool
}

// NewProcessingResult returns a zero-value ProcessingResult ready to accumulate.
func NewProcessingResult() ProcessingResult {
	return ProcessingResult{}
}

// Merge extends every field of r with other's, leaving other unmodified.
func (r ProcessingResult) Merge(other ProcessingResult) ProcessingResult {
	r.Successful = append(r.Successful, other.Successful...)
	r.Errors = append(r.Errors, other.Errors...)
	r.FilesProcessed += other.FilesProcessed
	r.ChunksCreated += other.ChunksCreated
	r.Aborted = r.Aborted || other.Aborted
	return r
}

// IsSuccess reports whether the run completed with no recorded errors.
func (r ProcessingResult) IsSuccess() bool {
	return len(r.Errors) == 0 && !r.Aborted
}

// Summary renders a short, human-readable outcome line.
func (r ProcessingResult) Summary() string {
	status := "completed"
	if r.Aborted {
		status = "aborted"
	}
	return fmt.Sprintf("%s: %d file(s), %d chunk(s), %d error(s)",
		status, r.FilesProcessed, r.ChunksCreated, len(r.Errors))
}
