package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/raggate/internal/api"
	"github.com/nidhogg/raggate/internal/config"
	"github.com/nidhogg/raggate/internal/embedding"
	"github.com/nidhogg/raggate/internal/vectorstore"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting raggate...")

	// Load configuration: JSON file when CONFIG_PATH is set, environment otherwise.
	var cfg *config.Config
	if cfgPath := os.Getenv("CONFIG_PATH"); cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
		}
		cfg = loaded
		logger.Info("Config loaded", zap.String("path", cfgPath))
	} else {
		cfg = config.FromEnv()
	}

	// Initialize embedding provider. Constructed once; a missing key leaves
	// the capability disabled until restart.
	var embedder embedding.Provider
	if cfg.Embedding.APIKey != "" {
		embedder = embedding.NewNomicProvider(embedding.Config{
			Endpoint:  cfg.Embedding.Endpoint,
			Model:     cfg.Embedding.Model,
			APIKey:    cfg.Embedding.APIKey,
			Dimension: cfg.Embedding.Dimension,
		})
		logger.Info("Embedding provider configured", zap.String("model", cfg.Embedding.Model))
	} else {
		logger.Warn("NOMIC_API_KEY not set, /embed, /search and /upsert are disabled")
	}

	// Initialize Qdrant client. Construction failure is logged and leaves
	// search disabled; it is never retried per request.
	var store api.VectorStore
	var qdrantClient *vectorstore.Client
	if cfg.Qdrant.URL != "" {
		qc, err := vectorstore.NewClient(vectorstore.Config{
			URL:     cfg.Qdrant.URL,
			APIKey:  cfg.Qdrant.APIKey,
			Timeout: time.Duration(cfg.Qdrant.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			logger.Error("failed to connect to Qdrant, search disabled", zap.String("url", cfg.Qdrant.URL), zap.Error(err))
		} else {
			qdrantClient = qc
			store = qc
			logger.Info("Connected to Qdrant", zap.String("url", cfg.Qdrant.URL))
			probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if version, herr := qc.HealthCheck(probeCtx); herr != nil {
				logger.Warn("Qdrant health probe failed", zap.Error(herr))
			} else {
				logger.Info("Qdrant reachable", zap.String("version", version))
			}
			cancel()
		}
	} else {
		logger.Warn("QDRANT_URL not set, /search and /upsert are disabled")
	}

	handler := api.NewHandler(embedder, store, cfg.Qdrant.URL, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("raggate listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down raggate...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	if qdrantClient != nil {
		qdrantClient.Close()
	}
}
