package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// Config holds connection settings for a Qdrant instance.
type Config struct {
	URL     string        `json:"url"`
	APIKey  string        `json:"api_key"`
	Timeout time.Duration `json:"timeout"`
}

// Client wraps the Qdrant gRPC client with a fixed per-call timeout.
type Client struct {
	qc      *qdrant.Client
	timeout time.Duration
}

// maxRecvSize bounds responses from collections with large payloads.
const maxRecvSize = 32 * 1024 * 1024

// NewClient dials the Qdrant endpoint given as a URL and returns a ready Client.
// Supported forms: https://host:port, http://host:port, host:port, host.
func NewClient(cfg Config) (*Client, error) {
	host, port, useTLS, err := parseEndpoint(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("qdrant: parse url %q: %w", cfg.URL, err)
	}
	qc, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxRecvSize)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s: %w", cfg.URL, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{qc: qc, timeout: timeout}, nil
}

// parseEndpoint splits a Qdrant URL into host, gRPC port and TLS flag.
func parseEndpoint(raw string) (string, int, bool, error) {
	if raw == "" {
		return "", 0, false, fmt.Errorf("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, err
	}
	if u.Hostname() == "" {
		return "", 0, false, fmt.Errorf("no host in %q", raw)
	}
	port := 6334
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return "", 0, false, fmt.Errorf("bad port %q", u.Port())
		}
	}
	return u.Hostname(), port, u.Scheme == "https", nil
}

// Hit holds a single vector search result. ID is a string for UUID point ids
// and a uint64 for numeric ones. Payload is never nil.
type Hit struct {
	ID      any            `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Point is a vector plus payload to be upserted into a collection.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// HealthCheck probes the Qdrant instance and returns its reported version.
func (c *Client) HealthCheck(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	reply, err := c.qc.HealthCheck(ctx)
	if err != nil {
		return "", fmt.Errorf("qdrant health check: %w", err)
	}
	return reply.GetVersion(), nil
}

// EnsureCollection creates the named collection if it does not already exist.
func (c *Client) EnsureCollection(ctx context.Context, name string, dimension uint64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	exists, err := c.qc.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}
	err = c.qc.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

// Upsert inserts or updates the given points in the collection.
func (c *Client) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectorsDense(p.Vector),
			Payload: qdrant.NewValueMap(p.Payload),
		})
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.qc.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", collection, err)
	}
	return nil
}

// Search performs a nearest-neighbor query and returns hits ranked by
// descending score. A threshold of zero means no score filtering.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit uint64, scoreThreshold float32) ([]Hit, error) {
	query := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if scoreThreshold > 0 {
		query.ScoreThreshold = qdrant.PtrOf(scoreThreshold)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	scored, err := c.qc.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	hits := make([]Hit, 0, len(scored))
	for _, s := range scored {
		hits = append(hits, Hit{
			ID:      pointIDToAny(s.GetId()),
			Score:   s.GetScore(),
			Payload: payloadToMap(s.GetPayload()),
		})
	}
	return hits, nil
}

// Close tears down the underlying gRPC connection.
func (c *Client) Close() error {
	return c.qc.Close()
}

func pointIDToAny(id *qdrant.PointId) any {
	switch v := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return v.Num
	default:
		return nil
	}
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_ListValue:
		items := k.ListValue.GetValues()
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, valueToAny(item))
		}
		return out
	case *qdrant.Value_StructValue:
		fields := k.StructValue.GetFields()
		out := make(map[string]any, len(fields))
		for name, field := range fields {
			out[name] = valueToAny(field)
		}
		return out
	default:
		return nil
	}
}
