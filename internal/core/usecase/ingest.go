package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
	"github.com/eskorokhod/construction-doc-chat/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo      ports.DocumentRepository
	storage   ports.ObjectStorage
	queue     ports.MessageQueue
	extractor ports.SectionExtractor
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	extractor ports.SectionExtractor,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:      repo,
		storage:   storage,
		queue:     queue,
		extractor: extractor,
	}
}

// Upload parses the document synchronously so malformed or empty files are
// rejected before anything is persisted. Embedding and vector indexing run
// later in the worker.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Document, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}

	extraction, err := uc.extractor.Extract(ctx, raw)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:            id,
		Filename:      filename,
		MimeType:      mimeType,
		StoragePath:   storageKey,
		ByteSize:      int64(len(raw)),
		PageCount:     extraction.PageCount,
		SectionCount:  len(extraction.Sections),
		DocumentType:  extraction.Metadata.DocumentType,
		DocumentDate:  extraction.Metadata.DocumentDate,
		ProjectNumber: extraction.Metadata.ProjectNumber,
		Revision:      extraction.Metadata.Revision,
		Status:        domain.StatusExtracted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sections := make([]domain.Section, len(extraction.Sections))
	for i, s := range extraction.Sections {
		s.ID = uuid.NewString()
		s.DocumentID = id
		sections[i] = s
	}

	if err := uc.repo.Create(ctx, doc, sections); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentExtracted(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish extraction event: %w", err)
	}

	return doc, nil
}

// GetByID exposes the read model for status polling.
func (uc *IngestDocumentUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

// OpenFile returns the stored original alongside its metadata so callers can
// stream the raw PDF back with the right content type.
func (uc *IngestDocumentUseCase) OpenFile(ctx context.Context, id string) (*domain.Document, io.ReadCloser, error) {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch document by id: %w", err)
	}
	body, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open stored document: %w", err)
	}
	return doc, body, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
