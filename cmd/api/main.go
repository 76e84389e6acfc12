package main

import (
	"context"
	"net/http"

	"github.com/medisage/leaflet-rag/internal/config"
	"github.com/medisage/leaflet-rag/internal/db"
	apphttp "github.com/medisage/leaflet-rag/internal/http"
	"github.com/medisage/leaflet-rag/internal/llm"
	"github.com/medisage/leaflet-rag/internal/rag"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	repo := rag.NewPgRepository(pool, cfg.EmbedDim)

	embedder, generator, err := buildClients(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init model clients", zap.Error(err))
	}

	if err := repo.VerifyDimensions(ctx, embedder.Dimensions()); err != nil {
		logger.Fatal("embedding dimension mismatch", zap.Error(err))
	}

	svc := rag.NewService(repo, embedder, generator, logger)

	h := apphttp.NewHandler(svc, logger)
	router := apphttp.NewRouter(h)
	handler := corsMiddleware(router)

	addr := ":" + cfg.Port
	logger.Info("API listening", zap.String("addr", addr))
	logger.Fatal("server stopped", zap.Error(http.ListenAndServe(addr, handler)))
}

// buildClients picks Gemini when an API key is configured and falls back to
// a local Ollama instance otherwise.
func buildClients(ctx context.Context, cfg *config.Config, logger *zap.Logger) (rag.Embedder, rag.Generator, error) {
	ollama := llm.NewOllamaClient(llm.OllamaConfig{
		BaseURL:    cfg.OllamaHost,
		Model:      cfg.OllamaModel,
		Dimensions: cfg.EmbedDim,
		Timeout:    cfg.GenerateTimeout,
	})

	if cfg.GeminiAPIKey == "" {
		logger.Info("no Gemini API key, using local Ollama",
			zap.String("host", cfg.OllamaHost), zap.String("model", cfg.OllamaModel))
		return ollama, ollama, nil
	}

	gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.EmbedDim)
	if err != nil {
		return nil, nil, err
	}

	var embedder rag.Embedder = gemini
	if cfg.EmbedProvider == "ollama" {
		embedder = ollama
	}

	return embedder, gemini, nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin == "http://localhost:3000" || origin == "http://127.0.0.1:3000" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
