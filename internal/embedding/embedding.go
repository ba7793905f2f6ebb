package embedding

import "context"

// Provider generates vector embeddings from text. The task type hints the
// upstream model at the intended use ("search_query" vs "search_document").
type Provider interface {
	Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	Dimension() int
}

// Task type values understood by the Nomic embedding models.
const (
	TaskSearchQuery    = "search_query"
	TaskSearchDocument = "search_document"
)

// Config holds embedding provider configuration.
type Config struct {
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	Dimension int    `json:"dimension"`
}
