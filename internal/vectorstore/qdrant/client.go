// Package qdrant implements vectorstore.Store against a Qdrant HTTP endpoint.
package qdrant

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coderag/coderag/internal/vectorstore"
)

// Store implements vectorstore.Store against a Qdrant HTTP endpoint.
type Store struct {
	client         *http.Client
	endpoint       string
	collectionName string
}

type createCollectionRequest struct {
	Vectors struct {
		Size     int    `json:"size"`
		Distance string `json:"distance"`
	} `json:"vectors"`
}

type upsertRequest struct {
	Points []point `json:"points"`
}

type point struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}

type searchRequest struct {
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	WithPayload    bool      `json:"with_payload"`
	Filter         *filter   `json:"filter,omitempty"`
	ScoreThreshold float32   `json:"score_threshold,omitempty"`
}

type filter struct {
	Must []condition `json:"must,omitempty"`
}

type condition struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type matchValue struct {
	Value string `json:"value"`
}

type searchResponse struct {
	Result []struct {
		ID      string                 `json:"id"`
		Score   float32                `json:"score"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"result"`
}

type deleteRequest struct {
	Points []string `json:"points,omitempty"`
	Filter *filter  `json:"filter,omitempty"`
}

type scrollRequest struct {
	Filter      *filter `json:"filter,omitempty"`
	Limit       int     `json:"limit"`
	WithPayload bool    `json:"with_payload"`
	Offset      string  `json:"offset,omitempty"`
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			Payload map[string]interface{} `json:"payload"`
		} `json:"points"`
		NextPageOffset *string `json:"next_page_offset"`
	} `json:"result"`
}

type countRequest struct {
	Filter *filter `json:"filter,omitempty"`
	Exact  bool    `json:"exact"`
}

type countResponse struct {
	Result struct {
		Count int `json:"count"`
	} `json:"result"`
}

// New creates a new Qdrant-backed store.
func New(cfg vectorstore.Config) (*Store, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Store{
		client:         &http.Client{Timeout: timeout},
		endpoint:       cfg.Endpoint,
		collectionName: cfg.CollectionName,
	}, nil
}

// Upsert inserts or updates chunk vectors with metadata.
func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}

	qPoints := make([]point, len(points))
	for i, p := range points {
		qPoints[i] = point{
			ID:     stringToUUID(p.ID),
			Vector: p.Vector,
			Payload: map[string]interface{}{
				"original_id":  p.ID,
				"project_id":   p.Payload.ProjectID,
				"file_path":    p.Payload.FilePath,
				"symbol":       p.Payload.Symbol,
				"symbol_type":  p.Payload.SymbolType,
				"language":     p.Payload.Language,
				"module":       p.Payload.Module,
				"start_line":   p.Payload.StartLine,
				"end_line":     p.Payload.EndLine,
				"content":      p.Payload.Content,
				"content_hash": p.Payload.ContentHash,
				"mtime":        p.Payload.Mtime,
				"indexed_at":   p.Payload.IndexedAt,
			},
		}
	}

	return s.doRequest(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/points", s.collectionName),
		upsertRequest{Points: qPoints}, nil)
}

// Nearest performs similarity search, optionally scoped by filter.
func (s *Store) Nearest(ctx context.Context, query []float32, k int, f vectorstore.Filter) ([]vectorstore.ScoredPoint, error) {
	reqBody := searchRequest{
		Vector:      query,
		Limit:       k,
		WithPayload: true,
		Filter:      buildFilter(f),
	}

	var resp searchResponse
	if err := s.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", s.collectionName),
		reqBody, &resp); err != nil {
		return nil, err
	}

	results := make([]vectorstore.ScoredPoint, len(resp.Result))
	for i, r := range resp.Result {
		results[i] = vectorstore.ScoredPoint{
			ID:      r.ID,
			Score:   r.Score,
			Payload: payloadFromMap(r.Payload),
		}
	}
	return results, nil
}

// DeleteByFile removes every chunk indexed for a single file.
func (s *Store) DeleteByFile(ctx context.Context, projectID, filePath string) error {
	f := &filter{Must: []condition{
		{Key: "project_id", Match: matchValue{Value: projectID}},
		{Key: "file_path", Match: matchValue{Value: filePath}},
	}}
	return s.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/delete", s.collectionName),
		deleteRequest{Filter: f}, nil)
}

// CountChunks returns the number of chunks stored, optionally scoped by filter.
func (s *Store) CountChunks(ctx context.Context, f vectorstore.Filter) (int, error) {
	var resp countResponse
	err := s.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/count", s.collectionName),
		countRequest{Filter: buildFilter(f), Exact: true}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// ListFiles returns the distinct file paths indexed, optionally scoped by filter.
func (s *Store) ListFiles(ctx context.Context, f vectorstore.Filter) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	offset := ""
	for {
		req := scrollRequest{Filter: buildFilter(f), Limit: 256, WithPayload: true, Offset: offset}
		var resp scrollResponse
		if err := s.doRequest(ctx, http.MethodPost,
			fmt.Sprintf("/collections/%s/points/scroll", s.collectionName),
			req, &resp); err != nil {
			return nil, err
		}

		for _, pt := range resp.Result.Points {
			fp := getString(pt.Payload, "file_path")
			if _, ok := seen[fp]; !ok && fp != "" {
				seen[fp] = struct{}{}
				files = append(files, fp)
			}
		}

		if resp.Result.NextPageOffset == nil {
			break
		}
		offset = *resp.Result.NextPageOffset
	}

	return files, nil
}

// MaxMtime returns the largest mtime recorded among a file's chunks.
func (s *Store) MaxMtime(ctx context.Context, projectID, filePath string) (int64, bool, error) {
	f := filter{Must: []condition{
		{Key: "project_id", Match: matchValue{Value: projectID}},
		{Key: "file_path", Match: matchValue{Value: filePath}},
	}}
	req := scrollRequest{Filter: &f, Limit: 256, WithPayload: true}

	var max int64
	found := false
	offset := ""
	for {
		req.Offset = offset
		var resp scrollResponse
		if err := s.doRequest(ctx, http.MethodPost,
			fmt.Sprintf("/collections/%s/points/scroll", s.collectionName),
			req, &resp); err != nil {
			return 0, false, err
		}
		for _, pt := range resp.Result.Points {
			mt := getInt64(pt.Payload, "mtime")
			if !found || mt > max {
				max = mt
				found = true
			}
		}
		if resp.Result.NextPageOffset == nil {
			break
		}
		offset = *resp.Result.NextPageOffset
	}

	return max, found, nil
}

// EnsureCollection creates the collection if it doesn't already exist.
func (s *Store) EnsureCollection(ctx context.Context, dimensions int) error {
	resp, err := s.client.Get(fmt.Sprintf("%s/collections/%s", s.endpoint, s.collectionName))
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	reqBody := createCollectionRequest{}
	reqBody.Vectors.Size = dimensions
	reqBody.Vectors.Distance = "Cosine"

	return s.doRequest(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s", s.collectionName),
		reqBody, nil)
}

// Health checks if Qdrant is reachable.
func (s *Store) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/readyz", s.endpoint), nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qdrant returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources (no-op for the HTTP client).
func (s *Store) Close() error {
	return nil
}

func buildFilter(f vectorstore.Filter) *filter {
	if f.ProjectID == "" && f.Module == "" && f.Language == "" && f.SymbolType == "" {
		return nil
	}
	out := &filter{Must: make([]condition, 0, 4)}
	if f.ProjectID != "" {
		out.Must = append(out.Must, condition{Key: "project_id", Match: matchValue{Value: f.ProjectID}})
	}
	if f.Module != "" {
		out.Must = append(out.Must, condition{Key: "module", Match: matchValue{Value: f.Module}})
	}
	if f.Language != "" {
		out.Must = append(out.Must, condition{Key: "language", Match: matchValue{Value: f.Language}})
	}
	if f.SymbolType != "" {
		out.Must = append(out.Must, condition{Key: "symbol_type", Match: matchValue{Value: f.SymbolType}})
	}
	return out
}

func payloadFromMap(m map[string]interface{}) vectorstore.Payload {
	return vectorstore.Payload{
		ProjectID:   getString(m, "project_id"),
		FilePath:    getString(m, "file_path"),
		Symbol:      getString(m, "symbol"),
		SymbolType:  getString(m, "symbol_type"),
		Language:    getString(m, "language"),
		Module:      getString(m, "module"),
		StartLine:   int(getInt64(m, "start_line")),
		EndLine:     int(getInt64(m, "end_line")),
		Content:     getString(m, "content"),
		ContentHash: getString(m, "content_hash"),
		Mtime:       getInt64(m, "mtime"),
		IndexedAt:   getString(m, "indexed_at"),
	}
}

func (s *Store) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt64(m map[string]interface{}, key string) int64 {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return int64(n)
		case int64:
			return n
		case int:
			return int64(n)
		}
	}
	return 0
}

// stringToUUID converts an arbitrary chunk ID into a deterministic
// UUID-shaped string, since Qdrant requires point IDs to be UUIDs or uint64.
func stringToUUID(s string) string {
	hash := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		hash[0:4], hash[4:6], hash[6:8], hash[8:10], hash[10:16])
}
