package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Embedding EmbeddingConfig `json:"embedding"`
	Qdrant    QdrantConfig    `json:"qdrant"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type EmbeddingConfig struct {
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	Dimension int    `json:"dimension"`
}

type QdrantConfig struct {
	URL            string `json:"url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// FromEnv builds a Config from environment variables alone.
// This is the default path when CONFIG_PATH is unset.
func FromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host: os.Getenv("HOST"),
			Port: envInt("PORT", 0),
		},
		Embedding: EmbeddingConfig{
			Endpoint:  os.Getenv("NOMIC_API_ENDPOINT"),
			Model:     os.Getenv("EMBEDDING_MODEL"),
			APIKey:    os.Getenv("NOMIC_API_KEY"),
			Dimension: envInt("EMBEDDING_DIMENSION", 0),
		},
		Qdrant: QdrantConfig{
			URL:            os.Getenv("QDRANT_URL"),
			APIKey:         os.Getenv("QDRANT_API_KEY"),
			TimeoutSeconds: envInt("QDRANT_TIMEOUT", 0),
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 10000
	}
	if c.Embedding.Endpoint == "" {
		c.Embedding.Endpoint = "https://api-atlas.nomic.ai/v1/embedding/text"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "nomic-embed-text-v1.5"
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = 768
	}
	if c.Qdrant.TimeoutSeconds == 0 {
		c.Qdrant.TimeoutSeconds = 10
	}
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
