package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"askdb/internal/config"
	"askdb/internal/engine"
	"askdb/internal/http"
	"askdb/internal/indexer"
	"askdb/internal/llm"
	"askdb/internal/sandbox"
	"askdb/internal/schema"
	"askdb/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx := context.Background()

	// Schema provider and sandbox share the target database connection
	var provider schema.Provider
	var sandboxDriver string
	switch cfg.SchemaDriver {
	case "postgres":
		pool, poolErr := pgxpool.New(ctx, cfg.SchemaDSN)
		if poolErr != nil {
			log.Fatalf("Failed to connect to postgres: %v", poolErr)
		}
		defer pool.Close()
		provider = schema.NewPostgresProvider(pool, pool.Config().ConnConfig.Database)
		sandboxDriver = "pgx"
	default:
		provider = schema.NewSQLiteProvider(cfg.SchemaDSN)
		sandboxDriver = "sqlite3"
	}
	slog.Info("Schema provider initialized", "driver", cfg.SchemaDriver)

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Embedding client; memoization avoids re-embedding unchanged table text
	embedder := llm.NewMemoEmbedder(llm.NewEmbeddingsClient(
		cfg.EmbeddingBaseURL,
		cfg.LLMAPIKey,
		cfg.EmbeddingModelName,
		cfg.VectorSize,
	))

	tableStore := vectorstore.NewTableStore(vectorStore, embedder, vectorstore.TableStoreConfig{
		Collection: cfg.QdrantCollection,
		VectorSize: cfg.VectorSize,
		Expiration: cfg.VectorExpiration,
		AutoCreate: true,
	})
	slog.Info("Table vector store ready", "collection", cfg.QdrantCollection)

	retriever := indexer.NewRetriever(tableStore)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	explainer := sandbox.New(&sandbox.DSNFactory{
		Driver: sandboxDriver,
		DSN:    cfg.SchemaDSN,
	})

	eng := engine.New(engine.Config{
		Provider:     provider,
		Retriever:    retriever,
		Generator:    llmClient,
		Explainer:    explainer,
		ConnectionID: cfg.ConnectionID,
		CacheTTL:     cfg.CacheTTL,
	})
	slog.Info("Query engine initialized", "connection_id", cfg.ConnectionID)

	// Create router with dependencies
	deps := &http.Deps{
		Engine:         eng,
		VectorStore:    vectorStore,
		CollectionName: cfg.QdrantCollection,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
