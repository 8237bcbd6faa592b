package vectorstore

import (
	"fmt"
	"path/filepath"

	"github.com/coderag/coderag/internal/vectorstore/qdrant"
	"github.com/coderag/coderag/internal/vectorstore/sqlitestore"
)

// NewStore builds the configured Store backend. dbPath is the resolved
// storage location's DBPath() and is used verbatim by the sqlite backend; the
// qdrant backend ignores it and dials cfg.Endpoint instead.
func NewStore(cfg Config, dbPath string) (Store, error) {
	switch cfg.Provider {
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(dbPath, "store.db")
		}
		return sqlitestore.New(path)

	case "qdrant":
		return qdrant.New(cfg)

	default:
		return nil, fmt.Errorf("unknown vector store provider: %s (supported: sqlite, qdrant)", cfg.Provider)
	}
}
