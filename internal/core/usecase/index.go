package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
	"github.com/eskorokhod/construction-doc-chat/internal/core/ports"
)

type IndexDocumentUseCase struct {
	repo     ports.DocumentRepository
	embedder ports.BatchEmbedder
	index    ports.VectorIndex
	logger   *slog.Logger
}

func NewIndexDocumentUseCase(
	repo ports.DocumentRepository,
	embedder ports.BatchEmbedder,
	index ports.VectorIndex,
	logger *slog.Logger,
) *IndexDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexDocumentUseCase{
		repo:     repo,
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// IndexByID embeds a document's sections and upserts them into the vector
// index. On partial embedding failure the succeeded sections are still
// upserted so they become searchable, and the document is marked failed with
// the first item error for operator follow-up.
func (uc *IndexDocumentUseCase) IndexByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusIndexing, ""); err != nil {
		return fmt.Errorf("set status=indexing: %w", err)
	}

	err := uc.indexPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusIndexed, ""); err != nil {
		return fmt.Errorf("set status=indexed: %w", err)
	}
	return nil
}

func (uc *IndexDocumentUseCase) indexPipeline(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	sections, err := uc.repo.ListSections(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list sections: %w", err)
	}
	if len(sections) == 0 {
		return domain.WrapError(domain.ErrEmptyDocument, "index document", fmt.Errorf("no sections for document %s", documentID))
	}

	texts := make([]string, len(sections))
	for i, s := range sections {
		texts[i] = embeddingText(s)
	}

	report, err := uc.embedder.EmbedAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed sections: %w", err)
	}

	succeeded := make([]domain.Section, 0, len(sections))
	vectors := make([][]float32, 0, len(sections))
	for i := range sections {
		if report.Errs[i] != nil {
			continue
		}
		succeeded = append(succeeded, sections[i])
		vectors = append(vectors, report.Vectors[i])
	}

	if len(succeeded) > 0 {
		if err := uc.index.UpsertSections(ctx, doc, succeeded, vectors, report.Model); err != nil {
			return fmt.Errorf("upsert sections: %w", err)
		}
	}

	if failed := report.FailedCount(); failed > 0 {
		uc.logger.Warn("partial_embedding_failure",
			"document_id", documentID,
			"failed", failed,
			"total", len(sections),
		)
		return fmt.Errorf("embed sections: %d of %d failed: %w", failed, len(sections), report.FirstErr())
	}
	return nil
}

// embeddingText prefixes the heading so a section's title contributes to its
// vector even when the body never repeats it.
func embeddingText(s domain.Section) string {
	if s.Heading == "" {
		return s.Body
	}
	return s.Heading + "\n" + s.Body
}
