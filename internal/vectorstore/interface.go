// Package vectorstore provides a pluggable interface for vector database
// backends. The indexer depends only on the Store interface; Qdrant and
// SQLite implementations live in subpackages.
package vectorstore

import (
	"context"
)

// Store defines the contract the parallel indexer needs from a vector
// database: batched upsert, per-file deletion, nearest-neighbour search,
// and the small set of read-only queries status/staleness checks need.
type Store interface {
	// Upsert inserts or updates chunk vectors with metadata.
	Upsert(ctx context.Context, points []Point) error

	// DeleteByFile removes every chunk previously indexed for a single file,
	// evicting stale chunks at file granularity.
	DeleteByFile(ctx context.Context, projectID, filePath string) error

	// Nearest performs similarity search, optionally scoped by Filter.
	Nearest(ctx context.Context, query []float32, k int, filter Filter) ([]ScoredPoint, error)

	// CountChunks returns the number of chunks currently stored, optionally
	// scoped by Filter.
	CountChunks(ctx context.Context, filter Filter) (int, error)

	// ListFiles returns the distinct file paths currently indexed, optionally
	// scoped by Filter.
	ListFiles(ctx context.Context, filter Filter) ([]string, error)

	// MaxMtime returns the largest mtime recorded for a file's chunks. The
	// second return value is false when the file has no indexed chunks.
	MaxMtime(ctx context.Context, projectID, filePath string) (int64, bool, error)

	// EnsureCollection creates the backing collection/schema if absent.
	EnsureCollection(ctx context.Context, dimensions int) error

	// Health checks if the store is reachable and usable.
	Health(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// Point represents a single vector with its chunk metadata, ready to upsert.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Payload carries the chunk metadata the store persists alongside a vector.
type Payload struct {
	ProjectID   string `json:"project_id"`
	FilePath    string `json:"file_path"`
	Symbol      string `json:"symbol,omitempty"`
	SymbolType  string `json:"symbol_type,omitempty"`
	Language    string `json:"language"`
	Module      string `json:"module,omitempty"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	Content     string `json:"content"`
	ContentHash string `json:"content_hash"`
	Mtime       int64  `json:"mtime"`
	IndexedAt   string `json:"indexed_at"`
}

// Filter scopes a query to a project and, optionally, module/language/symbol type.
type Filter struct {
	ProjectID  string
	Module     string
	Language   string
	SymbolType string
}

// ScoredPoint is a single nearest-neighbour search result.
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload Payload
}

// Config holds common configuration for vector store backends.
type Config struct {
	Provider       string
	Endpoint       string
	CollectionName string
	Path           string
	TimeoutSeconds int
}
