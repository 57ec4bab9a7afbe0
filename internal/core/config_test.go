package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".devman.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Errorf("expected file backend default, got %q", cfg.Storage.Backend)
	}
	if cfg.Embedding.Dimension != 1024 {
		t.Errorf("expected default dimension 1024, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Embedding.Threshold != 0.75 {
		t.Errorf("expected default threshold 0.75, got %v", cfg.Embedding.Threshold)
	}
	if cfg.Reranker.MaxCandidates != 50 || cfg.Reranker.FinalTopK != 10 {
		t.Errorf("unexpected reranker defaults: %+v", cfg.Reranker)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
storage:
  root: `+dir+`
  backend: sqlite
embedding:
  enabled: true
  model: custom-embed
reranker:
  final_top_k: 5
caller: agent-7
`)

	cfg, err := LoadConfig(dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("expected sqlite backend, got %q", cfg.Storage.Backend)
	}
	if !cfg.Embedding.Enabled || cfg.Embedding.Model != "custom-embed" {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Embedding.Dimension != 1024 {
		t.Errorf("unset keys keep defaults, got dimension %d", cfg.Embedding.Dimension)
	}
	if cfg.Reranker.FinalTopK != 5 {
		t.Errorf("expected final_top_k 5, got %d", cfg.Reranker.FinalTopK)
	}
	if cfg.Caller != "agent-7" {
		t.Errorf("expected caller agent-7, got %q", cfg.Caller)
	}
}

func TestStorageRootPrecedence(t *testing.T) {
	dir := t.TempDir()
	fileRoot := filepath.Join(dir, "from-file")
	envRoot := filepath.Join(dir, "from-env")
	flagRoot := filepath.Join(dir, "from-flag")
	writeConfig(t, dir, "storage:\n  root: "+fileRoot+"\n")

	t.Setenv(EnvStorageRoot, envRoot)

	cfg, err := LoadConfig(dir, flagRoot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Root != flagRoot {
		t.Errorf("flag should win, got %q", cfg.Storage.Root)
	}

	cfg, err = LoadConfig(dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Root != envRoot {
		t.Errorf("env should win over file, got %q", cfg.Storage.Root)
	}

	t.Setenv(EnvStorageRoot, "")
	cfg, err = LoadConfig(dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Root != fileRoot {
		t.Errorf("file root should be the fallback, got %q", cfg.Storage.Root)
	}
}

func TestMissingStorageRootIsError(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvStorageRoot, "")

	_, err := LoadConfig(dir, "")
	if err == nil {
		t.Fatal("expected error for missing storage root")
	}
	if !strings.Contains(err.Error(), "storage root not configured") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUnknownBackendRejected(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "storage:\n  root: "+dir+"\n  backend: redis\n")

	if _, err := LoadConfig(dir, ""); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
