// Package config provides project-specific configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectConfig is the per-project override file stored at
// <project_root>/.coderag/config.yaml. It is optional: a detected project
// with no config file uses the engine-wide defaults untouched.
type ProjectConfig struct {
	// ProjectID overrides the auto-computed project identifier. Rarely set;
	// exists for projects that moved on disk but must keep their old index.
	ProjectID string `yaml:"project_id,omitempty"`

	// DisplayName is a human-readable name, defaults to the directory name.
	DisplayName string `yaml:"display_name,omitempty"`

	// IncludeExtensions restricts indexing to these file extensions. Empty
	// means "use the chunker factory's built-in language set".
	IncludeExtensions []string `yaml:"include_extensions,omitempty"`

	// ExcludePaths are additional prefix/glob patterns layered on top of
	// .gitignore and the default exclusions (.git/, vendor/, node_modules/).
	ExcludePaths []string `yaml:"exclude_paths,omitempty"`

	// Chunking holds project-specific chunking overrides.
	Chunking ProjectChunkingConfig `yaml:"chunking,omitempty"`

	// Index holds project-specific indexing overrides, layered on top of
	// the engine-wide IndexConfig.
	Index ProjectIndexConfig `yaml:"index,omitempty"`

	// Metadata is optional, free-form labeling for operators.
	Metadata ProjectMetadata `yaml:"metadata,omitempty"`

	// AutoIndex controls when the engine reindexes on access, one of
	// never | on_missing | on_missing_or_stale | always.
	AutoIndex string `yaml:"auto_index,omitempty"`
}

// ProjectChunkingConfig holds project-specific chunking settings.
type ProjectChunkingConfig struct {
	Code     CodeChunkingConfig     `yaml:"code,omitempty"`
	Markdown MarkdownChunkingConfig `yaml:"markdown,omitempty"`

	MinTokens   int `yaml:"min_tokens,omitempty"`
	IdealTokens int `yaml:"ideal_tokens,omitempty"`
	MaxTokens   int `yaml:"max_tokens,omitempty"`
}

// ProjectIndexConfig holds per-project overrides of IndexConfig. Zero values
// mean "inherit the engine default".
type ProjectIndexConfig struct {
	ReadConcurrency  int    `yaml:"read_concurrency,omitempty"`
	ChunkConcurrency int    `yaml:"chunk_concurrency,omitempty"`
	EmbedBatchSize   int    `yaml:"embed_batch_size,omitempty"`
	EmbedConcurrency int    `yaml:"embed_concurrency,omitempty"`
	StoreBatchSize   int    `yaml:"store_batch_size,omitempty"`
	MaxErrors        int    `yaml:"max_errors,omitempty"`
	MaxFileSizeBytes int64  `yaml:"max_file_size_bytes,omitempty"`
	EmbedTimeout     string `yaml:"embed_timeout,omitempty"`
}

// CodeChunkingConfig holds code-specific chunking settings.
type CodeChunkingConfig struct {
	// Strategy: function | file | fixed
	Strategy string `yaml:"strategy"`
}

// MarkdownChunkingConfig holds markdown-specific chunking settings.
type MarkdownChunkingConfig struct {
	// Strategy: heading | paragraph | fixed
	Strategy string `yaml:"strategy"`
}

// ProjectMetadata holds optional project metadata.
type ProjectMetadata struct {
	// Team responsible for the project
	Team string `yaml:"team,omitempty"`

	// Tags for categorization
	Tags []string `yaml:"tags,omitempty"`
}

// ShouldIncludeFile checks if a file should be included based on extension.
// An empty IncludeExtensions list means "no extension restriction".
func (p *ProjectConfig) ShouldIncludeFile(path string) bool {
	if len(p.IncludeExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range p.IncludeExtensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// ShouldExcludePath checks if a path matches any exclusion pattern.
func (p *ProjectConfig) ShouldExcludePath(path string) bool {
	for _, pattern := range p.ExcludePaths {
		// Check direct prefix match
		if strings.HasPrefix(path, pattern) {
			return true
		}

		// Check glob pattern match
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}

		// Check if pattern is a directory prefix
		if strings.HasSuffix(pattern, "/") {
			if strings.Contains(path, pattern) {
				return true
			}
		}
	}
	return false
}

// GetChunkingStrategy returns the appropriate chunking strategy for a file.
func (p *ProjectConfig) GetChunkingStrategy(path string) string {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".go":
		if p.Chunking.Code.Strategy != "" {
			return p.Chunking.Code.Strategy
		}
		return "function"
	case ".md", ".markdown":
		if p.Chunking.Markdown.Strategy != "" {
			return p.Chunking.Markdown.Strategy
		}
		return "heading"
	default:
		return "fixed"
	}
}

// GetEffectiveChunking returns chunking config with global defaults applied.
func (p *ProjectConfig) GetEffectiveChunking(global ChunkingConfig) ChunkingConfig {
	result := global

	if p.Chunking.MinTokens > 0 {
		result.MinTokens = p.Chunking.MinTokens
	}
	if p.Chunking.IdealTokens > 0 {
		result.IdealTokens = p.Chunking.IdealTokens
	}
	if p.Chunking.MaxTokens > 0 {
		result.MaxTokens = p.Chunking.MaxTokens
	}

	return result
}

// GetEffectiveIndex returns IndexConfig with engine-wide defaults applied,
// overridden field-by-field by any non-zero project setting.
func (p *ProjectConfig) GetEffectiveIndex(global IndexConfig) IndexConfig {
	result := global

	if p.Index.ReadConcurrency > 0 {
		result.ReadConcurrency = p.Index.ReadConcurrency
	}
	if p.Index.ChunkConcurrency > 0 {
		result.ChunkConcurrency = p.Index.ChunkConcurrency
	}
	if p.Index.EmbedBatchSize > 0 {
		result.EmbedBatchSize = p.Index.EmbedBatchSize
	}
	if p.Index.EmbedConcurrency > 0 {
		result.EmbedConcurrency = p.Index.EmbedConcurrency
	}
	if p.Index.StoreBatchSize > 0 {
		result.StoreBatchSize = p.Index.StoreBatchSize
	}
	if p.Index.MaxErrors > 0 {
		result.MaxErrors = p.Index.MaxErrors
	}
	if p.Index.MaxFileSizeBytes > 0 {
		result.MaxFileSizeBytes = p.Index.MaxFileSizeBytes
	}
	if p.Index.EmbedTimeout != "" {
		result.EmbedTimeout = p.Index.EmbedTimeout
	}

	return result
}

// Validate checks the project configuration for errors.
func (p *ProjectConfig) Validate() error {
	if p.ProjectID != "" {
		for _, c := range p.ProjectID {
			if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-') {
				return fmt.Errorf("project_id must contain only lowercase letters, numbers, and hyphens")
			}
		}
	}

	// Validate code chunking strategy
	validCodeStrategies := map[string]bool{
		"function": true,
		"file":     true,
		"fixed":    true,
		"":         true, // Empty uses default
	}
	if !validCodeStrategies[p.Chunking.Code.Strategy] {
		return fmt.Errorf("invalid code chunking strategy: %s", p.Chunking.Code.Strategy)
	}

	// Validate markdown chunking strategy
	validMarkdownStrategies := map[string]bool{
		"heading":   true,
		"paragraph": true,
		"fixed":     true,
		"":          true, // Empty uses default
	}
	if !validMarkdownStrategies[p.Chunking.Markdown.Strategy] {
		return fmt.Errorf("invalid markdown chunking strategy: %s", p.Chunking.Markdown.Strategy)
	}

	validAutoIndex := map[string]bool{
		"never": true, "on_missing": true, "on_missing_or_stale": true, "always": true, "": true,
	}
	if !validAutoIndex[p.AutoIndex] {
		return fmt.Errorf("invalid auto_index policy: %s", p.AutoIndex)
	}

	return nil
}

// LoadProjectConfig loads a single project's override file from path.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("project config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadProjectConfigForRoot loads <root>/.coderag/config.yaml, returning an
// empty-but-valid ProjectConfig if the file does not exist.
func LoadProjectConfigForRoot(root string) (*ProjectConfig, error) {
	path := filepath.Join(root, ".coderag", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &ProjectConfig{}, nil
		}
		return nil, fmt.Errorf("failed to stat project config: %w", err)
	}
	return LoadProjectConfig(path)
}

// Save writes the project configuration to <root>/.coderag/config.yaml,
// creating the .coderag directory if necessary.
func (p *ProjectConfig) Save(root string) error {
	dir := filepath.Join(root, ".coderag")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create .coderag directory: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal project config: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write project config: %w", err)
	}
	return nil
}

// DefaultProjectConfig returns the override file written by `coderag init`.
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		ExcludePaths: []string{".git/", "vendor/", "node_modules/"},
		AutoIndex:    "on_missing_or_stale",
	}
}
