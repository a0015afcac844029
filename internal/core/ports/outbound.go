package ports

import (
	"context"
	"io"
	"time"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

// DocumentRepository persists document and section metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document, sections []domain.Section) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListSections(ctx context.Context, documentID string) ([]domain.Section, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
}

// ObjectStorage stores source document bytes.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes extraction events for the indexing worker.
type MessageQueue interface {
	PublishDocumentExtracted(ctx context.Context, documentID string) error
	SubscribeDocumentExtracted(ctx context.Context, handler func(context.Context, string) error) error
}

// SectionExtractor parses raw PDF bytes into ordered structured sections.
// Pure transform; no side effects.
type SectionExtractor interface {
	Extract(ctx context.Context, pdfBytes []byte) (*domain.Extraction, error)
}

// BatchEmbedder turns texts into vectors in bounded-size batches behind the
// shared provider gate, preserving input order in the report.
type BatchEmbedder interface {
	EmbedAll(ctx context.Context, texts []string) (domain.EmbedReport, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex persists section embeddings and performs similarity search.
type VectorIndex interface {
	UpsertSections(ctx context.Context, doc *domain.Document, sections []domain.Section, vectors [][]float32, model string) error
	Search(ctx context.Context, queryVector []float32, k int) ([]domain.RetrievalCandidate, error)
}

// ResponseCache short-circuits regeneration of identical requests.
// Get treats entries past their TTL as misses.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*domain.CacheEntry, bool, error)
	Put(ctx context.Context, key string, entry domain.CacheEntry, ttl time.Duration) error
}

// AnswerGenerator creates the final user-facing answer grounded on the
// retrieved sections.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, history []domain.Turn, candidates []domain.RetrievalCandidate) (string, error)
}
