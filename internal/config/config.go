// Package config loads postcraft configuration from the environment with an
// optional YAML file underneath.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM provider identifiers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Generative model
	LLMProvider     string
	LLMModel        string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OllamaHost      string

	// Worker
	WorkerSecret  string // shared secret for the sweep trigger endpoint
	SweepInterval time.Duration
	ServerPort    string
	ServerURL     string // base URL of the worker server, for CLI sweep kicks

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig is the optional YAML file layout. Environment variables win over
// file values.
type fileConfig struct {
	SurrealDB struct {
		URL       string `yaml:"url"`
		Namespace string `yaml:"namespace"`
		Database  string `yaml:"database"`
		User      string `yaml:"user"`
		Pass      string `yaml:"pass"`
		AuthLevel string `yaml:"auth_level"`
	} `yaml:"surrealdb"`
	LLM struct {
		Provider   string `yaml:"provider"`
		Model      string `yaml:"model"`
		OllamaHost string `yaml:"ollama_host"`
	} `yaml:"llm"`
	Worker struct {
		Secret        string `yaml:"secret"`
		SweepInterval string `yaml:"sweep_interval"`
		Port          string `yaml:"port"`
		ServerURL     string `yaml:"server_url"`
	} `yaml:"worker"`
	Log struct {
		File  string `yaml:"file"`
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads configuration from the environment, layered over the optional
// YAML file named by POSTCRAFT_CONFIG (ignored when unset or missing).
func Load() Config {
	var file fileConfig
	if path := os.Getenv("POSTCRAFT_CONFIG"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &file); err != nil {
				fmt.Fprintf(os.Stderr, "warning: ignoring malformed config file %s: %v\n", path, err)
				file = fileConfig{}
			}
		}
	}

	cfg := Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", fallback(file.SurrealDB.URL, "ws://localhost:8000/rpc")),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", fallback(file.SurrealDB.Namespace, "postcraft")),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", fallback(file.SurrealDB.Database, "pipeline")),
		SurrealDBUser:      getEnv("SURREALDB_USER", fallback(file.SurrealDB.User, "root")),
		SurrealDBPass:      getEnv("SURREALDB_PASS", fallback(file.SurrealDB.Pass, "root")),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", fallback(file.SurrealDB.AuthLevel, "root")),

		LLMProvider:     getEnv("POSTCRAFT_LLM_PROVIDER", fallback(file.LLM.Provider, ProviderAnthropic)),
		LLMModel:        getEnv("POSTCRAFT_LLM_MODEL", fallback(file.LLM.Model, "claude-sonnet-4-20250514")),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", fallback(file.LLM.OllamaHost, "http://localhost:11434")),

		WorkerSecret: getEnv("POSTCRAFT_WORKER_SECRET", file.Worker.Secret),
		ServerPort:   getEnv("POSTCRAFT_PORT", fallback(file.Worker.Port, "8686")),

		LogFile:  getEnv("POSTCRAFT_LOG_FILE", fallback(file.Log.File, "/tmp/postcraft.log")),
		LogLevel: parseLogLevel(getEnv("POSTCRAFT_LOG_LEVEL", fallback(file.Log.Level, "INFO"))),
	}

	cfg.ServerURL = getEnv("POSTCRAFT_SERVER_URL", fallback(file.Worker.ServerURL, "http://localhost:"+cfg.ServerPort))

	cfg.SweepInterval = parseDuration(
		getEnv("POSTCRAFT_SWEEP_INTERVAL", fallback(file.Worker.SweepInterval, "1m")),
		time.Minute,
	)

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func fallback(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
