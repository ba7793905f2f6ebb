package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// NomicProvider implements Provider using the Nomic Atlas text embedding API.
type NomicProvider struct {
	endpoint  string
	model     string
	apiKey    string
	dimension int
	client    *http.Client

	once    sync.Once
	dimOnce int
}

// NewNomicProvider creates a new NomicProvider from the given Config.
func NewNomicProvider(cfg Config) *NomicProvider {
	return &NomicProvider{
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type nomicRequest struct {
	Model    string   `json:"model"`
	Texts    []string `json:"texts"`
	TaskType string   `json:"task_type"`
}

type nomicResponse struct {
	Embeddings [][]float32    `json:"embeddings"`
	Usage      map[string]int `json:"usage"`
}

// Embed sends texts to the Nomic Atlas endpoint and returns one embedding per
// input text, in input order.
func (p *NomicProvider) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if taskType == "" {
		taskType = TaskSearchDocument
	}

	body, err := json.Marshal(nomicRequest{
		Model:    p.model,
		Texts:    texts,
		TaskType: taskType,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding: API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result nomicResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if result.Embeddings == nil {
		return nil, fmt.Errorf("embedding: response missing embeddings field")
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	// Cache dimension from first successful result.
	if len(result.Embeddings[0]) > 0 {
		p.once.Do(func() {
			p.dimOnce = len(result.Embeddings[0])
		})
	}

	return result.Embeddings, nil
}

// Dimension returns the embedding vector dimension.
// It returns the cached dimension from the first result, or the configured default.
func (p *NomicProvider) Dimension() int {
	if p.dimOnce > 0 {
		return p.dimOnce
	}
	return p.dimension
}
