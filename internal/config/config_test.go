package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileDecodesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
generation:
  batchSize: 25
  requestInterval: 1500ms
  batchRetryDelays: [1s, 2s]
  continuous: true
llm:
  provider: anthropic
  model: claude-3-5-haiku-latest
scheduler:
  timezone: Local
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	if cfg.Generation.BatchSize != 25 || cfg.Generation.RequestInterval != 1500*time.Millisecond {
		t.Fatalf("unexpected generation config: %+v", cfg.Generation)
	}
	if len(cfg.Generation.BatchRetryDelays) != 2 || cfg.Generation.BatchRetryDelays[1] != 2*time.Second {
		t.Fatalf("unexpected retry delays: %v", cfg.Generation.BatchRetryDelays)
	}
	if !cfg.Generation.Continuous {
		t.Fatalf("expected continuous mode")
	}
	if cfg.Generation.FreshnessThreshold != 6*time.Hour {
		t.Fatalf("default freshness threshold lost: %v", cfg.Generation.FreshnessThreshold)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.LLM.MaxTokens != 1000 {
		t.Fatalf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.Scheduler.CronExpression != "0 2 * * *" {
		t.Fatalf("unexpected cron expression: %s", cfg.Scheduler.CronExpression)
	}
	if cfg.Scheduler.Location().String() != "Local" {
		t.Fatalf("unexpected location: %s", cfg.Scheduler.Location())
	}
}

func TestLoadFileReportsParseErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("generation: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Generation.BatchSize != 10 {
		t.Fatalf("expected defaults on error, got %+v", cfg.Generation)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(llmAPIKeyEnv, "")
	t.Setenv(openAIAPIKeyEnv, "sk-fallback")
	t.Setenv(checkpointDirEnv, "")
	t.Setenv(volumeMountEnv, "/data")
	t.Setenv(databaseDSNEnv, "postgres://holler@db/holler")
	t.Setenv(httpAddrEnv, ":8080")

	cfg := Load()

	if cfg.LLM.APIKey != "sk-fallback" {
		t.Fatalf("expected OpenAI key fallback, got %q", cfg.LLM.APIKey)
	}
	if cfg.Checkpoint.Path() != filepath.Join("/data", "generation-progress.json") {
		t.Fatalf("unexpected checkpoint path: %s", cfg.Checkpoint.Path())
	}
	if cfg.Database.DSN != "postgres://holler@db/holler" || cfg.HTTP.Addr != ":8080" {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Database, cfg.HTTP)
	}
}

func TestDefaultsKeepArticlesInMemory(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "")

	cfg := Load()
	if cfg.Database.DSN != "" {
		t.Fatalf("default config must not point at a database, got %q", cfg.Database.DSN)
	}
	if cfg.Generation.SlugAttempts != 5 || cfg.Logging.Format != "text" {
		t.Fatalf("unexpected defaults: %+v %+v", cfg.Generation, cfg.Logging)
	}
}
