// Package sqlitestore implements vectorstore.Store on top of a local SQLite
// file. It is the reference backend for offline use and for tests: nearest
// neighbour search is a brute-force cosine scan, which is fine at the
// scale a single project's index reaches.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/coderag/coderag/internal/vectorstore"
)

// Store is a SQLite-backed vectorstore.Store.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if necessary) a SQLite-backed store at path.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1) // a single writer avoids SQLITE_BUSY under WAL

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS chunks (
	id           TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL,
	file_path    TEXT NOT NULL,
	symbol       TEXT,
	symbol_type  TEXT,
	language     TEXT,
	module       TEXT,
	start_line   INTEGER,
	end_line     INTEGER,
	content      TEXT,
	content_hash TEXT,
	mtime        INTEGER,
	indexed_at   TEXT,
	vector       BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_project_file ON chunks(project_id, file_path);
CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(project_id);
`)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Upsert inserts or updates chunk vectors with metadata.
func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (id, project_id, file_path, symbol, symbol_type, language, module,
	start_line, end_line, content, content_hash, mtime, indexed_at, vector)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
	project_id=excluded.project_id, file_path=excluded.file_path, symbol=excluded.symbol,
	symbol_type=excluded.symbol_type, language=excluded.language, module=excluded.module,
	start_line=excluded.start_line, end_line=excluded.end_line, content=excluded.content,
	content_hash=excluded.content_hash, mtime=excluded.mtime, indexed_at=excluded.indexed_at,
	vector=excluded.vector
`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		vecBytes, err := json.Marshal(p.Vector)
		if err != nil {
			return fmt.Errorf("failed to marshal vector for %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Payload.ProjectID, p.Payload.FilePath,
			p.Payload.Symbol, p.Payload.SymbolType, p.Payload.Language, p.Payload.Module,
			p.Payload.StartLine, p.Payload.EndLine, p.Payload.Content, p.Payload.ContentHash,
			p.Payload.Mtime, p.Payload.IndexedAt, vecBytes); err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteByFile removes every chunk indexed for a single file.
func (s *Store) DeleteByFile(ctx context.Context, projectID, filePath string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE project_id = ? AND file_path = ?`, projectID, filePath)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", filePath, err)
	}
	return nil
}

// Nearest performs a brute-force cosine-similarity scan over the filtered set.
func (s *Store) Nearest(ctx context.Context, query []float32, k int, f vectorstore.Filter) ([]vectorstore.ScoredPoint, error) {
	where, args := filterClause(f)
	rows, err := s.db.QueryContext(ctx, `
SELECT id, project_id, file_path, symbol, symbol_type, language, module,
	start_line, end_line, content, content_hash, mtime, indexed_at, vector
FROM chunks `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var results []vectorstore.ScoredPoint
	for rows.Next() {
		var id string
		var p vectorstore.Payload
		var vecBytes []byte
		if err := rows.Scan(&id, &p.ProjectID, &p.FilePath, &p.Symbol, &p.SymbolType,
			&p.Language, &p.Module, &p.StartLine, &p.EndLine, &p.Content, &p.ContentHash,
			&p.Mtime, &p.IndexedAt, &vecBytes); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal(vecBytes, &vec); err != nil {
			return nil, fmt.Errorf("failed to decode vector for %s: %w", id, err)
		}
		results = append(results, vectorstore.ScoredPoint{
			ID:      id,
			Score:   cosineSimilarity(query, vec),
			Payload: p,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// CountChunks returns the number of chunks stored, optionally scoped by filter.
func (s *Store) CountChunks(ctx context.Context, f vectorstore.Filter) (int, error) {
	where, args := filterClause(f)
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// ListFiles returns the distinct file paths indexed, optionally scoped by filter.
func (s *Store) ListFiles(ctx context.Context, f vectorstore.Filter) ([]string, error) {
	where, args := filterClause(f)
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT file_path FROM chunks `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		files = append(files, fp)
	}
	return files, rows.Err()
}

// MaxMtime returns the largest mtime recorded among a file's chunks.
func (s *Store) MaxMtime(ctx context.Context, projectID, filePath string) (int64, bool, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(mtime) FROM chunks WHERE project_id = ? AND file_path = ?`,
		projectID, filePath).Scan(&max)
	if err != nil {
		return 0, false, fmt.Errorf("failed to query max mtime: %w", err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return max.Int64, true, nil
}

// EnsureCollection is a no-op: the schema is created once in New.
func (s *Store) EnsureCollection(ctx context.Context, dimensions int) error {
	return nil
}

// Health checks that the underlying database connection is usable.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func filterClause(f vectorstore.Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.ProjectID != "" {
		clauses = append(clauses, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.Module != "" {
		clauses = append(clauses, "module = ?")
		args = append(args, f.Module)
	}
	if f.Language != "" {
		clauses = append(clauses, "language = ?")
		args = append(args, f.Language)
	}
	if f.SymbolType != "" {
		clauses = append(clauses, "symbol_type = ?")
		args = append(args, f.SymbolType)
	}

	if len(clauses) == 0 {
		return "", nil
	}

	where := "WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
