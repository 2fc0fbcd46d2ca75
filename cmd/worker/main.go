package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/legaldrishti/backend/internal/config"
	"github.com/legaldrishti/backend/internal/database"
	"github.com/legaldrishti/backend/internal/llm"
	"github.com/legaldrishti/backend/internal/pipeline"
	"github.com/legaldrishti/backend/internal/queue"
	"github.com/legaldrishti/backend/internal/queue/workers"
	"github.com/legaldrishti/backend/internal/storage"
	"github.com/legaldrishti/backend/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	blobs, err := newStorage(cfg.Storage)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	store := pipeline.NewPostgresStore(db)
	coordinator := pipeline.NewCoordinator(store, time.Now)
	docSvc := pipeline.NewService(store, coordinator, blobs, time.Now)
	gateway := llm.NewGateway(cfg.LLM)
	vectors := vectorstore.NewPgVectorStore(db, cfg.LLM.EmbeddingDims)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	extractionWorker := workers.NewExtractionWorker(docSvc, blobs)
	embeddingWorker := workers.NewEmbeddingWorker(docSvc, gateway, vectors, cfg.LLM.EmbeddingModel)

	registry.Register(queue.TypeDocumentExtract, asynq.HandlerFunc(extractionWorker.ProcessTask))
	registry.Register(queue.TypeChunksEmbed, asynq.HandlerFunc(embeddingWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

func newStorage(cfg config.StorageConfig) (storage.Storage, error) {
	if cfg.Backend == "supabase" {
		return storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket), nil
	}
	return storage.NewLocalStorage(cfg.LocalDir)
}
