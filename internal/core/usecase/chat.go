package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
	"github.com/eskorokhod/construction-doc-chat/internal/core/ports"
)

// SectionRetriever yields the grounding sections for one message plus its
// conversation history.
type SectionRetriever interface {
	Retrieve(ctx context.Context, message string, history []domain.Turn) ([]domain.RetrievalCandidate, error)
}

type ChatUseCase struct {
	retriever SectionRetriever
	generator ports.AnswerGenerator
	cache     ports.ResponseCache
	cacheTTL  time.Duration
	logger    *slog.Logger
}

func NewChatUseCase(
	retriever SectionRetriever,
	generator ports.AnswerGenerator,
	cache ports.ResponseCache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *ChatUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUseCase{
		retriever: retriever,
		generator: generator,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Ask answers one user message over the indexed corpus. Identical requests
// within the cache TTL return the stored answer without touching the
// generator; cache backend failures degrade to generation, never to a user
// error.
func (uc *ChatUseCase) Ask(ctx context.Context, message string, history []domain.Turn) (*domain.ChatResult, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil, domain.WrapError(domain.ErrEmptyQuery, "ask", fmt.Errorf("blank message"))
	}

	candidates, err := uc.retriever.Retrieve(ctx, trimmed, history)
	if err != nil {
		return nil, err
	}

	key := responseCacheKey(trimmed, sectionIDs(candidates), len(history))
	if entry, ok := uc.cacheGet(ctx, key); ok {
		return &domain.ChatResult{
			Answer:    entry.Answer,
			Citations: entry.Citations,
			CacheHit:  true,
		}, nil
	}

	answer, err := uc.generator.GenerateAnswer(ctx, trimmed, history, candidates)
	if err != nil {
		return nil, err
	}

	citations := buildCitations(candidates)
	uc.cachePut(ctx, key, domain.CacheEntry{
		Answer:    answer,
		Citations: citations,
		CreatedAt: time.Now().UTC(),
	})

	return &domain.ChatResult{
		Answer:    answer,
		Citations: citations,
		CacheHit:  false,
	}, nil
}

func (uc *ChatUseCase) cacheGet(ctx context.Context, key string) (*domain.CacheEntry, bool) {
	if uc.cache == nil {
		return nil, false
	}
	entry, ok, err := uc.cache.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("response_cache_get_failed", "error", err)
		return nil, false
	}
	return entry, ok
}

func (uc *ChatUseCase) cachePut(ctx context.Context, key string, entry domain.CacheEntry) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Put(ctx, key, entry, uc.cacheTTL); err != nil {
		uc.logger.Warn("response_cache_put_failed", "error", err)
	}
}

func sectionIDs(candidates []domain.RetrievalCandidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.SectionID)
	}
	return ids
}

func buildCitations(candidates []domain.RetrievalCandidate) []domain.Citation {
	citations := make([]domain.Citation, 0, len(candidates))
	for _, c := range candidates {
		citations = append(citations, domain.Citation{
			DocumentID: c.DocumentID,
			SectionID:  c.SectionID,
			Heading:    c.Heading,
			PageStart:  c.PageStart,
			PageEnd:    c.PageEnd,
		})
	}
	return citations
}
