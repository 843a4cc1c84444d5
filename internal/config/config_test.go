package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.SurrealDBURL != "ws://localhost:8000/rpc" {
		t.Errorf("SurrealDBURL = %q, want default", cfg.SurrealDBURL)
	}
	if cfg.SurrealDBNamespace != "postcraft" {
		t.Errorf("SurrealDBNamespace = %q, want postcraft", cfg.SurrealDBNamespace)
	}
	if cfg.LLMProvider != ProviderAnthropic {
		t.Errorf("LLMProvider = %q, want %q", cfg.LLMProvider, ProviderAnthropic)
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v, want 1m", cfg.SweepInterval)
	}
	if cfg.ServerPort != "8686" {
		t.Errorf("ServerPort = %q, want 8686", cfg.ServerPort)
	}
	if cfg.ServerURL != "http://localhost:8686" {
		t.Errorf("ServerURL = %q, want http://localhost:8686", cfg.ServerURL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SURREALDB_URL", "ws://db.internal:8000/rpc")
	t.Setenv("POSTCRAFT_LLM_PROVIDER", "ollama")
	t.Setenv("POSTCRAFT_SWEEP_INTERVAL", "30s")
	t.Setenv("POSTCRAFT_SERVER_URL", "http://worker.internal:9000")
	t.Setenv("POSTCRAFT_LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.SurrealDBURL != "ws://db.internal:8000/rpc" {
		t.Errorf("SurrealDBURL = %q", cfg.SurrealDBURL)
	}
	if cfg.LLMProvider != ProviderOllama {
		t.Errorf("LLMProvider = %q, want ollama", cfg.LLMProvider)
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Errorf("SweepInterval = %v, want 30s", cfg.SweepInterval)
	}
	if cfg.ServerURL != "http://worker.internal:9000" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
}

func TestLoad_FileLayeredUnderEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "postcraft.yaml")
	content := `
surrealdb:
  namespace: filens
llm:
  provider: openai
  model: gpt-4o
worker:
  sweep_interval: 5m
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POSTCRAFT_CONFIG", path)
	// Env beats file for provider, file beats default for the rest.
	t.Setenv("POSTCRAFT_LLM_PROVIDER", "anthropic")

	cfg := Load()

	if cfg.SurrealDBNamespace != "filens" {
		t.Errorf("SurrealDBNamespace = %q, want filens", cfg.SurrealDBNamespace)
	}
	if cfg.LLMProvider != ProviderAnthropic {
		t.Errorf("LLMProvider = %q, env should win", cfg.LLMProvider)
	}
	if cfg.LLMModel != "gpt-4o" {
		t.Errorf("LLMModel = %q, want gpt-4o", cfg.LLMModel)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", cfg.SweepInterval)
	}
}

func TestLoad_MalformedFileIgnored(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POSTCRAFT_CONFIG", path)

	cfg := Load()
	if cfg.SurrealDBNamespace != "postcraft" {
		t.Errorf("SurrealDBNamespace = %q, want default after malformed file", cfg.SurrealDBNamespace)
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	if got := parseDuration("nonsense", time.Minute); got != time.Minute {
		t.Errorf("parseDuration(nonsense) = %v, want fallback", got)
	}
	if got := parseDuration("-5s", time.Minute); got != time.Minute {
		t.Errorf("parseDuration(-5s) = %v, want fallback", got)
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("sweep complete", "claimed", 3)

	if !strings.Contains(stderr.String(), "sweep complete") {
		t.Error("stderr missing log line")
	}

	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v", err)
	}
	if entry["msg"] != "sweep complete" {
		t.Errorf("msg = %v", entry["msg"])
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"POSTCRAFT_CONFIG", "SURREALDB_URL", "SURREALDB_NAMESPACE", "SURREALDB_DATABASE",
		"SURREALDB_USER", "SURREALDB_PASS", "SURREALDB_AUTH_LEVEL",
		"POSTCRAFT_LLM_PROVIDER", "POSTCRAFT_LLM_MODEL", "ANTHROPIC_API_KEY",
		"OPENAI_API_KEY", "OLLAMA_HOST", "POSTCRAFT_WORKER_SECRET",
		"POSTCRAFT_SWEEP_INTERVAL", "POSTCRAFT_PORT", "POSTCRAFT_SERVER_URL",
		"POSTCRAFT_LOG_FILE", "POSTCRAFT_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}
