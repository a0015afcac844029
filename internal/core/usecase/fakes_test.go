package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

type fakeRepo struct {
	mu       sync.Mutex
	docs     map[string]*domain.Document
	sections map[string][]domain.Section
	statuses []domain.DocumentStatus

	createErr error
	getErr    error
	listErr   error
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:     make(map[string]*domain.Document),
		sections: make(map[string][]domain.Section),
	}
}

func (r *fakeRepo) Create(ctx context.Context, doc *domain.Document, sections []domain.Section) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *doc
	r.docs[doc.ID] = &copied
	r.sections[doc.ID] = append([]domain.Section(nil), sections...)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeRepo) ListSections(ctx context.Context, documentID string) ([]domain.Section, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Section(nil), r.sections[documentID]...), nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	if doc, ok := r.docs[id]; ok {
		doc.Status = status
		doc.Error = errMessage
	}
	return nil
}

type fakeStorage struct {
	saved   map[string][]byte
	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string][]byte)}
}

func (s *fakeStorage) Save(ctx context.Context, key string, data io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.saved[key] = raw
	return nil
}

func (s *fakeStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	raw, ok := s.saved[key]
	if !ok {
		return nil, fmt.Errorf("no object %s", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (q *fakeQueue) PublishDocumentExtracted(ctx context.Context, documentID string) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, documentID)
	return nil
}

func (q *fakeQueue) SubscribeDocumentExtracted(ctx context.Context, handler func(context.Context, string) error) error {
	return nil
}

type fakeExtractor struct {
	extraction *domain.Extraction
	err        error
}

func (e *fakeExtractor) Extract(ctx context.Context, pdfBytes []byte) (*domain.Extraction, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.extraction, nil
}

type fakeEmbedder struct {
	report   domain.EmbedReport
	allErr   error
	queryVec []float32
	queryErr error

	lastTexts []string
	lastQuery string
}

func (e *fakeEmbedder) EmbedAll(ctx context.Context, texts []string) (domain.EmbedReport, error) {
	e.lastTexts = append([]string(nil), texts...)
	if e.allErr != nil {
		return domain.EmbedReport{}, e.allErr
	}
	return e.report, nil
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.lastQuery = text
	if e.queryErr != nil {
		return nil, e.queryErr
	}
	return e.queryVec, nil
}

type fakeIndex struct {
	upserted     []domain.Section
	upsertedDoc  *domain.Document
	upsertedVecs [][]float32
	upsertModel  string
	upsertErr    error

	searchResult []domain.RetrievalCandidate
	searchErr    error
	lastK        int
}

func (f *fakeIndex) UpsertSections(ctx context.Context, doc *domain.Document, sections []domain.Section, vectors [][]float32, model string) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upsertedDoc = doc
	f.upserted = append([]domain.Section(nil), sections...)
	f.upsertedVecs = append([][]float32(nil), vectors...)
	f.upsertModel = model
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, queryVector []float32, k int) ([]domain.RetrievalCandidate, error) {
	f.lastK = k
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]domain.RetrievalCandidate(nil), f.searchResult...), nil
}

type fakeCache struct {
	entries map[string]domain.CacheEntry
	getErr  error
	putErr  error
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]domain.CacheEntry)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (*domain.CacheEntry, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	out := entry
	return &out, true, nil
}

func (c *fakeCache) Put(ctx context.Context, key string, entry domain.CacheEntry, ttl time.Duration) error {
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[key] = entry
	return nil
}

type fakeRetriever struct {
	candidates []domain.RetrievalCandidate
	err        error
	calls      int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, message string, history []domain.Turn) ([]domain.RetrievalCandidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type fakeGenerator struct {
	answer string
	err    error
	calls  int

	lastQuestion   string
	lastCandidates []domain.RetrievalCandidate
}

func (f *fakeGenerator) GenerateAnswer(ctx context.Context, question string, history []domain.Turn, candidates []domain.RetrievalCandidate) (string, error) {
	f.calls++
	f.lastQuestion = question
	f.lastCandidates = candidates
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}
