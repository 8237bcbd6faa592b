// Package symbol builds a small in-process reverse index from symbol name
// to chunk IDs, derived from chunk metadata already produced by the
// indexing pipeline. It supplements the core search contract with
// symbol-aware lookups (find a symbol's definition, list references,
// enumerate known symbols) without changing any store or pipeline
// contract.
package symbol

import (
	"sort"
	"sync"

	"github.com/coderag/coderag/internal/pipeline"
)

// Ref points at one occurrence of a symbol.
type Ref struct {
	ChunkID    string
	FilePath   string
	SymbolType string
	StartLine  int
	EndLine    int
}

// Index maps symbol name to every chunk that mentions it as its primary
// symbol. It is rebuilt from a run's results rather than persisted.
type Index struct {
	mu      sync.RWMutex
	byName  map[string][]Ref
	byChunk map[string]string // chunk id -> symbol name, for removal on reindex
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{
		byName:  make(map[string][]Ref),
		byChunk: make(map[string]string),
	}
}

// BuildFromResult replaces the index's content with the symbols found in
// result's successfully indexed chunks. Call it after each full run; for
// incremental runs, prefer Merge.
func BuildFromResult(result pipeline.ProcessingResult) *Index {
	idx := NewIndex()
	idx.Merge(result)
	return idx
}

// Merge adds or updates entries for every chunk in result, replacing any
// prior entry for the same chunk ID (so a chunk whose symbol changed across
// reindexing is not left under its old name).
func (idx *Index) Merge(result pipeline.ProcessingResult) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, ic := range result.Successful {
		name := ic.Chunk.SymbolName
		if name == "" {
			continue
		}
		idx.removeLocked(ic.ID)
		idx.byName[name] = append(idx.byName[name], Ref{
			ChunkID:    ic.ID,
			FilePath:   ic.Chunk.FilePath,
			SymbolType: ic.Chunk.SemanticKind,
			StartLine:  ic.Chunk.StartLine,
			EndLine:    ic.Chunk.EndLine,
		})
		idx.byChunk[ic.ID] = name
	}
}

// RemoveFile drops every entry belonging to filePath, e.g. after a
// remove_paths call.
func (idx *Index) RemoveFile(filePath string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for name, refs := range idx.byName {
		kept := refs[:0]
		for _, r := range refs {
			if r.FilePath == filePath {
				delete(idx.byChunk, r.ChunkID)
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(idx.byName, name)
		} else {
			idx.byName[name] = kept
		}
	}
}

func (idx *Index) removeLocked(chunkID string) {
	name, ok := idx.byChunk[chunkID]
	if !ok {
		return
	}
	refs := idx.byName[name]
	kept := refs[:0]
	for _, r := range refs {
		if r.ChunkID != chunkID {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		delete(idx.byName, name)
	} else {
		idx.byName[name] = kept
	}
	delete(idx.byChunk, chunkID)
}

// FindSymbol returns every reference recorded under name.
func (idx *Index) FindSymbol(name string) []Ref {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	refs := idx.byName[name]
	out := make([]Ref, len(refs))
	copy(out, refs)
	return out
}

// FindReferences is an alias of FindSymbol: in this in-memory index,
// definitions and references are not distinguished beyond SymbolType.
func (idx *Index) FindReferences(name string) []Ref {
	return idx.FindSymbol(name)
}

// ListSymbols returns every known symbol name, sorted.
func (idx *Index) ListSymbols() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	names := make([]string, 0, len(idx.byName))
	for n := range idx.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of distinct symbol names indexed.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byName)
}
