package embedding

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

var errMissingQueryVector = errors.New("provider returned no vector for query")

// Provider is the raw embedding backend. One call embeds one batch; the
// provider enforces its own concurrency budget.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Batcher splits inputs into bounded batches, embeds them concurrently and
// reassembles the results in input order. A failed batch marks only its own
// items; other batches still land.
type Batcher struct {
	provider  Provider
	batchSize int
	logger    *slog.Logger
}

func NewBatcher(provider Provider, batchSize int, logger *slog.Logger) *Batcher {
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{provider: provider, batchSize: batchSize, logger: logger}
}

func (b *Batcher) EmbedAll(ctx context.Context, texts []string) (domain.EmbedReport, error) {
	report := domain.EmbedReport{
		Vectors: make([][]float32, len(texts)),
		Errs:    make([]error, len(texts)),
		Model:   b.provider.Model(),
	}
	if len(texts) == 0 {
		return report, nil
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	var wg sync.WaitGroup
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			vectors, err := b.provider.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				b.logger.Warn("embed_batch_failed",
					"batch_start", start,
					"batch_size", end-start,
					"error", err,
				)
				for i := start; i < end; i++ {
					report.Errs[i] = err
				}
				return
			}
			for i, v := range vectors {
				report.Vectors[start+i] = v
			}
		}(start, end)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (b *Batcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := b.provider.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, domain.WrapError(domain.ErrProvider, "embed query", errMissingQueryVector)
	}
	return vectors[0], nil
}
