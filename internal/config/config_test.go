package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, name := range []string{"HOST", "PORT", "NOMIC_API_KEY", "NOMIC_API_ENDPOINT", "EMBEDDING_MODEL", "EMBEDDING_DIMENSION", "QDRANT_URL", "QDRANT_API_KEY", "QDRANT_TIMEOUT"} {
		t.Setenv(name, "")
	}

	cfg := FromEnv()
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 10000 {
		t.Errorf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Embedding.Model != "nomic-embed-text-v1.5" {
		t.Errorf("unexpected default model %q", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimension != 768 {
		t.Errorf("unexpected default dimension %d", cfg.Embedding.Dimension)
	}
	if cfg.Qdrant.TimeoutSeconds != 10 {
		t.Errorf("unexpected default timeout %d", cfg.Qdrant.TimeoutSeconds)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("NOMIC_API_KEY", "nk-abc")
	t.Setenv("QDRANT_URL", "https://qdrant.example:6334")
	t.Setenv("QDRANT_TIMEOUT", "3")

	cfg := FromEnv()
	if cfg.Server.Port != 8088 {
		t.Errorf("got port %d, want 8088", cfg.Server.Port)
	}
	if cfg.Embedding.APIKey != "nk-abc" {
		t.Errorf("got api key %q", cfg.Embedding.APIKey)
	}
	if cfg.Qdrant.URL != "https://qdrant.example:6334" {
		t.Errorf("got qdrant url %q", cfg.Qdrant.URL)
	}
	if cfg.Qdrant.TimeoutSeconds != 3 {
		t.Errorf("got timeout %d, want 3", cfg.Qdrant.TimeoutSeconds)
	}
}

func TestLoadSubstitutesEnv(t *testing.T) {
	t.Setenv("TEST_QDRANT_URL", "http://localhost:6334")
	t.Setenv("TEST_MISSING_VAR", "")

	path := filepath.Join(t.TempDir(), "raggate.json")
	data := `{
		"server": {"port": ${TEST_MISSING_PORT:9000}},
		"embedding": {"api_key": "${TEST_MISSING_VAR:fallback-key}"},
		"qdrant": {"url": "${TEST_QDRANT_URL}"}
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("got port %d, want default 9000", cfg.Server.Port)
	}
	if cfg.Embedding.APIKey != "fallback-key" {
		t.Errorf("got api key %q, want fallback", cfg.Embedding.APIKey)
	}
	if cfg.Qdrant.URL != "http://localhost:6334" {
		t.Errorf("got qdrant url %q", cfg.Qdrant.URL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
