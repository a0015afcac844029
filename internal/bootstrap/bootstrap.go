package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/eskorokhod/construction-doc-chat/internal/config"
	"github.com/eskorokhod/construction-doc-chat/internal/core/ports"
	"github.com/eskorokhod/construction-doc-chat/internal/core/usecase"
	"github.com/eskorokhod/construction-doc-chat/internal/infrastructure/cache/memory"
	rediscache "github.com/eskorokhod/construction-doc-chat/internal/infrastructure/cache/redis"
	"github.com/eskorokhod/construction-doc-chat/internal/infrastructure/embedding"
	"github.com/eskorokhod/construction-doc-chat/internal/infrastructure/extractor/pdf"
	"github.com/eskorokhod/construction-doc-chat/internal/infrastructure/llm/ollama"
	"github.com/eskorokhod/construction-doc-chat/internal/infrastructure/queue/nats"
	"github.com/eskorokhod/construction-doc-chat/internal/infrastructure/repository/postgres"
	"github.com/eskorokhod/construction-doc-chat/internal/infrastructure/resilience"
	"github.com/eskorokhod/construction-doc-chat/internal/infrastructure/storage/localfs"
	"github.com/eskorokhod/construction-doc-chat/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.MessageQueue
	Repo  ports.DocumentRepository
	Gate  *resilience.Gate

	IngestUC *usecase.IngestDocumentUseCase
	IndexUC  ports.DocumentIndexer
	ChatUC   ports.ChatService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	gate := resilience.NewGate(cfg.MaxConcurrentCalls)
	executorCfg := resilience.DefaultConfig()
	executorCfg.RetryMaxAttempts = cfg.RetryMaxAttempts
	executorCfg.AttemptTimeout = cfg.ProviderTimeout
	executor := resilience.NewExecutor(executorCfg)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, gate, executor)
	provider := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	batcher := embedding.NewBatcher(provider, cfg.EmbedBatchSize, logger)

	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	extractor := pdf.New(cfg.HeadingFontScale)

	var responseCache ports.ResponseCache
	var closeCache func()
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		redisCache := rediscache.New(client, "")
		if err := redisCache.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		responseCache = redisCache
		closeCache = func() { _ = client.Close() }
	} else {
		logger.Info("response_cache_in_memory", "reason", "REDIS_ADDR not set")
		responseCache = memory.New()
		closeCache = func() {}
	}

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue, extractor)
	indexUC := usecase.NewIndexDocumentUseCase(repo, batcher, vectorIndex, logger)
	retrieveUC := usecase.NewRetrieveSectionsUseCase(batcher, vectorIndex, usecase.RetrieveConfig{
		TopK:              cfg.RAGTopK,
		SimilarityFloor:   cfg.SimilarityFloor,
		HistoryWindow:     cfg.HistoryWindow,
		HistoryCharBudget: cfg.HistoryCharBudget,
	})
	chatUC := usecase.NewChatUseCase(retrieveUC, generator, responseCache, cfg.CacheTTL, logger)

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,
		Repo:   repo,
		Gate:   gate,

		IngestUC: ingestUC,
		IndexUC:  indexUC,
		ChatUC:   chatUC,

		closeFn: func() {
			queue.Close()
			closeCache()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
