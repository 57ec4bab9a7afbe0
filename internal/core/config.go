package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/devman-ai/devman/internal/knowledge"
)

// Storage backend names accepted in configuration.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// EnvStorageRoot overrides the storage root when no flag is given.
const EnvStorageRoot = "DEVMAN_STORAGE_ROOT"

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	Root    string `mapstructure:"root"`
	Backend string `mapstructure:"backend"`
}

// Config is the full engine configuration, constructed at process start
// and passed explicitly into component constructors.
type Config struct {
	Storage   StorageConfig             `mapstructure:"storage"`
	Embedding knowledge.EmbeddingConfig `mapstructure:"embedding"`
	Reranker  knowledge.RerankerConfig  `mapstructure:"reranker"`
	Caller    string                    `mapstructure:"caller"`
}

// DefaultConfig returns the configuration used when no file is present.
// The storage root has no default; it must come from a flag or the
// environment.
func DefaultConfig() Config {
	return Config{
		Storage:   StorageConfig{Backend: BackendFile},
		Embedding: knowledge.DefaultEmbeddingConfig(),
		Reranker:  knowledge.DefaultRerankerConfig(),
		Caller:    "devman",
	}
}

// LoadConfig reads .devman.yaml from basePath, falling back to defaults
// when the file is absent. flagRoot, when non-empty, wins over both the
// file and the environment.
func LoadConfig(basePath, flagRoot string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(".devman")
	v.SetConfigType("yaml")
	v.AddConfigPath(basePath)

	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("embedding.enabled", cfg.Embedding.Enabled)
	v.SetDefault("embedding.url", cfg.Embedding.URL)
	v.SetDefault("embedding.model", cfg.Embedding.Model)
	v.SetDefault("embedding.dimension", cfg.Embedding.Dimension)
	v.SetDefault("embedding.threshold", cfg.Embedding.Threshold)
	v.SetDefault("reranker.enabled", cfg.Reranker.Enabled)
	v.SetDefault("reranker.url", cfg.Reranker.URL)
	v.SetDefault("reranker.model", cfg.Reranker.Model)
	v.SetDefault("reranker.max_candidates", cfg.Reranker.MaxCandidates)
	v.SetDefault("reranker.final_top_k", cfg.Reranker.FinalTopK)
	v.SetDefault("caller", cfg.Caller)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading .devman.yaml: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing .devman.yaml: %w", err)
	}

	root, err := resolveStorageRoot(flagRoot, cfg.Storage.Root)
	if err != nil {
		return nil, err
	}
	cfg.Storage.Root = root

	if cfg.Storage.Backend != BackendFile && cfg.Storage.Backend != BackendSQLite {
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	return &cfg, nil
}

// resolveStorageRoot picks the storage root: flag, then environment,
// then config file. Absence is an error, not a default.
func resolveStorageRoot(flagRoot, fileRoot string) (string, error) {
	root := flagRoot
	if root == "" {
		root = os.Getenv(EnvStorageRoot)
	}
	if root == "" {
		root = fileRoot
	}
	if root == "" {
		return "", fmt.Errorf("storage root not configured: pass --storage-root or set %s", EnvStorageRoot)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving storage root %q: %w", root, err)
	}
	return abs, nil
}
