package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/nidhogg/raggate/internal/embedding"
	"github.com/nidhogg/raggate/internal/vectorstore"
	"go.uber.org/zap"
)

// VectorStore is the subset of the Qdrant client the handlers need.
type VectorStore interface {
	Search(ctx context.Context, collection string, vector []float32, limit uint64, scoreThreshold float32) ([]vectorstore.Hit, error)
	EnsureCollection(ctx context.Context, name string, dimension uint64) error
	Upsert(ctx context.Context, collection string, points []vectorstore.Point) error
}

// Handler holds dependencies for HTTP handlers. A nil embedder or store means
// the corresponding capability was not configured at startup; requests that
// need it fail with a 500 naming the missing configuration.
type Handler struct {
	embedder  embedding.Provider
	store     VectorStore
	qdrantURL string
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(embedder embedding.Provider, store VectorStore, qdrantURL string, logger *zap.Logger) *Handler {
	return &Handler{
		embedder:  embedder,
		store:     store,
		qdrantURL: qdrantURL,
		logger:    logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", h.root)
	r.Get("/health", h.healthCheck)
	r.Get("/debug", h.debugInfo)
	r.Post("/embed", h.embed)
	r.Post("/search", h.search)
	r.Post("/upsert", h.upsert)

	return r
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "raggate vector search gateway is running",
		"endpoints": []string{"/health", "/debug", "/embed", "/search", "/upsert"},
	})
}

// HealthStatus reports which external capabilities are configured.
// Computing it never performs network I/O.
type HealthStatus struct {
	Status                      string `json:"status"`
	EmbeddingProviderConfigured bool   `json:"embedding_provider_configured"`
	VectorDBConfigured          bool   `json:"vector_db_configured"`
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:                      "healthy",
		EmbeddingProviderConfigured: h.embedder != nil,
		VectorDBConfigured:          h.store != nil,
	})
}

// debugInfo reports configuration presence for operator troubleshooting.
// Secret values are never echoed, only presence or absence.
func (h *Handler) debugInfo(w http.ResponseWriter, r *http.Request) {
	embeddingStatus := "not configured"
	if h.embedder != nil {
		embeddingStatus = "ready"
	}
	vectorDBStatus := "not configured"
	if h.store != nil {
		vectorDBStatus = "ready"
	}
	qdrantURL := h.qdrantURL
	if qdrantURL == "" {
		qdrantURL = "missing"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"env": map[string]string{
			"NOMIC_API_KEY":  presence(h.embedder != nil),
			"QDRANT_URL":     qdrantURL,
			"QDRANT_API_KEY": presence(h.store != nil),
		},
		"embedding_provider": embeddingStatus,
		"vector_db":          vectorDBStatus,
	})
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}

// EmbedRequest asks for embeddings of a batch of texts.
type EmbedRequest struct {
	Texts    []string `json:"texts"`
	TaskType string   `json:"task_type"`
}

// EmbedResponse carries one embedding per input text, in input order.
type EmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (h *Handler) embed(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if len(req.Texts) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "texts must not be empty"})
		return
	}
	if req.TaskType == "" {
		req.TaskType = embedding.TaskSearchDocument
	}
	if h.embedder == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "embedding provider not configured: NOMIC_API_KEY is missing"})
		return
	}

	h.logger.Info("generating embeddings", zap.Int("texts", len(req.Texts)), zap.String("task_type", req.TaskType))
	vectors, err := h.embedder.Embed(r.Context(), req.Texts, req.TaskType)
	if err != nil {
		h.logger.Error("embedding failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("generate embeddings: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, EmbedResponse{Embeddings: vectors})
}

// SearchRequest asks for the nearest documents to a text query.
type SearchRequest struct {
	Query          string  `json:"query"`
	CollectionName string  `json:"collection_name"`
	Limit          int     `json:"limit"`
	ScoreThreshold float32 `json:"score_threshold"`
	TaskType       string  `json:"task_type"`
}

// SearchResult is a single hit. ID is a string for UUID point ids and a
// number for integer ones; Payload is always a map, never null.
type SearchResult struct {
	ID      any            `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// SearchResponse carries ranked hits plus the first components of the query
// vector for diagnostic verification.
type SearchResponse struct {
	Results              []SearchResult `json:"results"`
	QueryEmbeddingSample []float32      `json:"query_embedding_sample"`
}

const sampleLen = 5

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query must not be empty"})
		return
	}
	if req.CollectionName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "collection_name is required"})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}
	if req.TaskType == "" {
		req.TaskType = embedding.TaskSearchQuery
	}
	if h.embedder == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "embedding provider not configured: NOMIC_API_KEY is missing"})
		return
	}
	if h.store == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "vector database not configured: QDRANT_URL is missing"})
		return
	}

	h.logger.Info("embedding query", zap.String("query", req.Query), zap.String("collection", req.CollectionName))
	vectors, err := h.embedder.Embed(r.Context(), []string{req.Query}, req.TaskType)
	if err != nil {
		h.logger.Error("query embedding failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("embed query: %v", err)})
		return
	}
	if len(vectors) == 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "embed query: provider returned no vectors"})
		return
	}
	qvec := vectors[0]

	hits, err := h.store.Search(r.Context(), req.CollectionName, qvec, uint64(req.Limit), req.ScoreThreshold)
	if err != nil {
		h.logger.Error("vector search failed", zap.String("collection", req.CollectionName), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("search collection %s: %v", req.CollectionName, err)})
		return
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		payload := hit.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		results = append(results, SearchResult{ID: hit.ID, Score: hit.Score, Payload: payload})
	}

	sample := qvec
	if len(sample) > sampleLen {
		sample = sample[:sampleLen]
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Results:              results,
		QueryEmbeddingSample: sample,
	})
}

// Document is a text to be indexed with optional id and metadata.
type Document struct {
	ID      string         `json:"id,omitempty"`
	Text    string         `json:"text"`
	Payload map[string]any `json:"payload,omitempty"`
}

// UpsertRequest indexes documents into a collection.
type UpsertRequest struct {
	CollectionName string     `json:"collection_name"`
	Documents      []Document `json:"documents"`
	TaskType       string     `json:"task_type"`
}

// UpsertResponse reports the ids of the stored points.
type UpsertResponse struct {
	Upserted       int      `json:"upserted"`
	CollectionName string   `json:"collection_name"`
	IDs            []string `json:"ids"`
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.CollectionName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "collection_name is required"})
		return
	}
	if len(req.Documents) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "documents must not be empty"})
		return
	}
	texts := make([]string, len(req.Documents))
	for i, d := range req.Documents {
		if d.Text == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("documents[%d].text must not be empty", i)})
			return
		}
		texts[i] = d.Text
	}
	if req.TaskType == "" {
		req.TaskType = embedding.TaskSearchDocument
	}
	if h.embedder == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "embedding provider not configured: NOMIC_API_KEY is missing"})
		return
	}
	if h.store == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "vector database not configured: QDRANT_URL is missing"})
		return
	}

	h.logger.Info("indexing documents", zap.Int("documents", len(texts)), zap.String("collection", req.CollectionName))
	vectors, err := h.embedder.Embed(r.Context(), texts, req.TaskType)
	if err != nil {
		h.logger.Error("document embedding failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("embed documents: %v", err)})
		return
	}
	if len(vectors) != len(texts) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("embed documents: got %d embeddings for %d texts", len(vectors), len(texts))})
		return
	}

	if err := h.store.EnsureCollection(r.Context(), req.CollectionName, uint64(len(vectors[0]))); err != nil {
		h.logger.Error("ensure collection failed", zap.String("collection", req.CollectionName), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("ensure collection %s: %v", req.CollectionName, err)})
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	ids := make([]string, len(req.Documents))
	points := make([]vectorstore.Point, len(req.Documents))
	for i, d := range req.Documents {
		id := d.ID
		if id == "" {
			id = uuid.New().String()
		}
		ids[i] = id
		payload := make(map[string]any, len(d.Payload)+2)
		for k, v := range d.Payload {
			payload[k] = v
		}
		payload["text"] = d.Text
		payload["indexed_at"] = now
		points[i] = vectorstore.Point{ID: id, Vector: vectors[i], Payload: payload}
	}

	if err := h.store.Upsert(r.Context(), req.CollectionName, points); err != nil {
		h.logger.Error("upsert failed", zap.String("collection", req.CollectionName), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("upsert collection %s: %v", req.CollectionName, err)})
		return
	}

	writeJSON(w, http.StatusOK, UpsertResponse{
		Upserted:       len(points),
		CollectionName: req.CollectionName,
		IDs:            ids,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
