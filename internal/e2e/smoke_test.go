//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

var baseURL string

func TestMain(m *testing.M) {
	baseURL = os.Getenv("RAGGATE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:10000"
	}

	// Wait for server readiness (up to 30s)
	ready := false
	for i := 0; i < 30; i++ {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				ready = true
				break
			}
		}
		time.Sleep(1 * time.Second)
	}
	if !ready {
		fmt.Fprintf(os.Stderr, "server at %s not ready after 30s\n", baseURL)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func TestSmokeHealth(t *testing.T) {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("expected healthy, got %q", body.Status)
	}
}

func TestSmokeRoot(t *testing.T) {
	resp, err := http.Get(baseURL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Endpoints []string `json:"endpoints"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Endpoints) == 0 {
		t.Error("expected endpoint list in banner")
	}
}

func TestSmokeDebug(t *testing.T) {
	resp, err := http.Get(baseURL + "/debug")
	if err != nil {
		t.Fatalf("GET /debug: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

// TestSmokeSearch runs a real embed+search round trip. It needs valid
// upstream credentials on the server side, so it is gated behind env vars.
func TestSmokeSearch(t *testing.T) {
	collection := os.Getenv("RAGGATE_TEST_COLLECTION")
	if collection == "" {
		t.Skip("RAGGATE_TEST_COLLECTION not set")
	}

	payload := map[string]any{
		"query":           "What is the recommended treatment for diabetes?",
		"collection_name": collection,
		"limit":           3,
	}
	b, _ := json.Marshal(payload)
	resp, err := http.Post(baseURL+"/search", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST /search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search failed with %d", resp.StatusCode)
	}
	var body struct {
		Results              []json.RawMessage `json:"results"`
		QueryEmbeddingSample []float32         `json:"query_embedding_sample"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.QueryEmbeddingSample) == 0 || len(body.QueryEmbeddingSample) > 5 {
		t.Errorf("unexpected sample length %d", len(body.QueryEmbeddingSample))
	}
}
