package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider %q, got %q", ProviderOpenAI, cfg.Provider)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 100 {
		t.Errorf("expected chunking 1000/100, got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopK != 4 {
		t.Errorf("expected default top_k 4, got %d", cfg.TopK)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("expected default port 5000, got %d", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regqa.yml")

	original := DefaultConfig()
	original.Provider = ProviderAnthropic
	original.Model = "claude-3-5-sonnet-latest"
	original.Include = []string{"**/*.pdf", "extra/*.PDF"}
	original.ChunkSize = 800
	original.ChunkOverlap = 50
	original.Retry.BaseDelay = 250 * time.Millisecond

	// Save.
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load back.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify round-trip.
	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.ChunkSize != 800 || loaded.ChunkOverlap != 50 {
		t.Errorf("chunking: got %d/%d, want 800/50", loaded.ChunkSize, loaded.ChunkOverlap)
	}
	if loaded.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("retry.base_delay: got %v", loaded.Retry.BaseDelay)
	}
	if len(loaded.Include) != len(original.Include) {
		t.Fatalf("include length: got %d, want %d", len(loaded.Include), len(original.Include))
	}
	for i, v := range loaded.Include {
		if v != original.Include[i] {
			t.Errorf("include[%d]: got %q, want %q", i, v, original.Include[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not error on missing file: %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
	if cfg.DataDir != "vector_db" {
		t.Errorf("expected default data_dir, got %q", cfg.DataDir)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regqa.yml")
	if err := os.WriteFile(path, []byte("provider: ollama\nmodel: \"\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderOllama {
		t.Errorf("provider: got %q", cfg.Provider)
	}
	if cfg.Model != "llama3" {
		t.Errorf("empty model should fall back to provider default, got %q", cfg.Model)
	}
	if cfg.ChunkSize != 1000 {
		t.Errorf("chunk_size should keep default, got %d", cfg.ChunkSize)
	}
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "20")
	t.Setenv("TOP_K", "7")
	t.Setenv("VECTOR_DB_DIR", "/tmp/vectors")
	t.Setenv("MODEL_NAME", "gpt-4o-mini")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 20 {
		t.Errorf("chunking: got %d/%d, want 500/20", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopK != 7 {
		t.Errorf("top_k: got %d, want 7", cfg.TopK)
	}
	if cfg.DataDir != "/tmp/vectors" {
		t.Errorf("data_dir: got %q", cfg.DataDir)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("model: got %q", cfg.Model)
	}
}

func TestLoadPrefixedEnvOverridesLegacy(t *testing.T) {
	t.Setenv("TOP_K", "7")
	t.Setenv("REGQA_TOP_K", "9")
	t.Setenv("REGQA_RETRY__MAX_ATTEMPTS", "2")
	t.Setenv("REGQA_SERVER__PORT", "8080")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopK != 9 {
		t.Errorf("top_k: got %d, want 9", cfg.TopK)
	}
	if cfg.Retry.MaxAttempts != 2 {
		t.Errorf("retry.max_attempts: got %d, want 2", cfg.Retry.MaxAttempts)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port: got %d, want 8080", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, false},
		{"overlap larger than size", func(c *Config) { c.ChunkSize, c.ChunkOverlap = 100, 200 }, false},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, false},
		{"zero size", func(c *Config) { c.ChunkSize, c.ChunkOverlap = 0, 0 }, false},
		{"zero overlap", func(c *Config) { c.ChunkOverlap = 0 }, true},
		{"zero top_k", func(c *Config) { c.TopK = 0 }, false},
		{"unknown provider", func(c *Config) { c.Provider = "google" }, false},
		{"anthropic embeddings", func(c *Config) { c.EmbeddingProvider = ProviderAnthropic }, false},
		{"empty model", func(c *Config) { c.Model = "" }, false},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, false},
		{"no attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestRetryPolicy(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.RetryPolicy()
	if p.MaxAttempts != cfg.Retry.MaxAttempts || p.BaseDelay != cfg.Retry.BaseDelay {
		t.Errorf("policy does not mirror config: %+v", p)
	}
}

func TestDefaultModels(t *testing.T) {
	model, emb := DefaultModels(ProviderAnthropic)
	if model == "" {
		t.Error("expected a completion model for anthropic")
	}
	if emb != "text-embedding-ada-002" {
		t.Errorf("anthropic should embed with openai, got %q", emb)
	}
	_, emb = DefaultModels(ProviderOllama)
	if emb != "nomic-embed-text" {
		t.Errorf("ollama embedding model: got %q", emb)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" a.pdf, ,b/*.pdf ,")
	if len(got) != 2 || got[0] != "a.pdf" || got[1] != "b/*.pdf" {
		t.Errorf("splitAndTrim: got %q", got)
	}
}
