package ports

import (
	"context"
	"io"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentIndexer is the inbound contract for asynchronous embedding and
// vector indexing of an extracted document.
type DocumentIndexer interface {
	IndexByID(ctx context.Context, documentID string) error
}

// ChatService is the inbound contract for answering a user message over the
// indexed corpus with caller-supplied conversation history.
type ChatService interface {
	Ask(ctx context.Context, message string, history []domain.Turn) (*domain.ChatResult, error)
}

// DocumentReader is the inbound read model for document metadata/state and
// the stored original file.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	OpenFile(ctx context.Context, id string) (*domain.Document, io.ReadCloser, error)
}
