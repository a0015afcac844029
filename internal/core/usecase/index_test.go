package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

func seedExtractedDoc(repo *fakeRepo) *domain.Document {
	doc := &domain.Document{ID: "doc-1", Filename: "spec.pdf", Status: domain.StatusExtracted}
	repo.docs[doc.ID] = doc
	repo.sections[doc.ID] = []domain.Section{
		{ID: "s1", DocumentID: "doc-1", Ordinal: 0, Heading: "Concrete Specifications", Body: "4000 PSI."},
		{ID: "s2", DocumentID: "doc-1", Ordinal: 1, Heading: "Rebar Requirements", Body: "Grade 60."},
		{ID: "s3", DocumentID: "doc-1", Ordinal: 2, Body: "General notes."},
	}
	return doc
}

func fullReport(n int, model string) domain.EmbedReport {
	report := domain.EmbedReport{
		Vectors: make([][]float32, n),
		Errs:    make([]error, n),
		Model:   model,
	}
	for i := range report.Vectors {
		report.Vectors[i] = []float32{float32(i)}
	}
	return report
}

func TestIndexByIDHappyPath(t *testing.T) {
	repo := newFakeRepo()
	seedExtractedDoc(repo)
	embedder := &fakeEmbedder{report: fullReport(3, "nomic-embed-text")}
	index := &fakeIndex{}
	uc := NewIndexDocumentUseCase(repo, embedder, index, nil)

	if err := uc.IndexByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("IndexByID: %v", err)
	}

	wantStatuses := []domain.DocumentStatus{domain.StatusIndexing, domain.StatusIndexed}
	if len(repo.statuses) != 2 || repo.statuses[0] != wantStatuses[0] || repo.statuses[1] != wantStatuses[1] {
		t.Errorf("status transitions = %v, want %v", repo.statuses, wantStatuses)
	}

	if len(index.upserted) != 3 || index.upsertModel != "nomic-embed-text" {
		t.Fatalf("upserted %d sections, model %q", len(index.upserted), index.upsertModel)
	}

	// Heading-bearing sections embed heading plus body.
	if len(embedder.lastTexts) != 3 {
		t.Fatalf("embedded %d texts", len(embedder.lastTexts))
	}
	if !strings.HasPrefix(embedder.lastTexts[0], "Concrete Specifications\n") {
		t.Errorf("text[0] = %q", embedder.lastTexts[0])
	}
	if embedder.lastTexts[2] != "General notes." {
		t.Errorf("text[2] = %q", embedder.lastTexts[2])
	}
}

func TestIndexByIDPartialFailureUpsertsSurvivors(t *testing.T) {
	repo := newFakeRepo()
	seedExtractedDoc(repo)

	boom := errors.New("provider down")
	report := fullReport(3, "m")
	report.Vectors[1] = nil
	report.Errs[1] = boom

	index := &fakeIndex{}
	uc := NewIndexDocumentUseCase(repo, &fakeEmbedder{report: report}, index, nil)

	err := uc.IndexByID(context.Background(), "doc-1")
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}

	if len(index.upserted) != 2 {
		t.Fatalf("upserted %d sections, want 2 survivors", len(index.upserted))
	}
	if index.upserted[0].ID != "s1" || index.upserted[1].ID != "s3" {
		t.Errorf("survivors = %v", index.upserted)
	}

	doc := repo.docs["doc-1"]
	if doc.Status != domain.StatusFailed {
		t.Errorf("status = %q, want failed", doc.Status)
	}
	if doc.Error == "" {
		t.Error("failure reason not recorded")
	}
}

func TestIndexByIDIndexUnavailableMarksFailed(t *testing.T) {
	repo := newFakeRepo()
	seedExtractedDoc(repo)
	index := &fakeIndex{upsertErr: domain.WrapError(domain.ErrIndexUnavailable, "qdrant upsert", errors.New("connection refused"))}
	uc := NewIndexDocumentUseCase(repo, &fakeEmbedder{report: fullReport(3, "m")}, index, nil)

	err := uc.IndexByID(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("err = %v, want index unavailable kind", err)
	}
	if repo.docs["doc-1"].Status != domain.StatusFailed {
		t.Errorf("status = %q", repo.docs["doc-1"].Status)
	}
}

func TestIndexByIDUnknownDocument(t *testing.T) {
	repo := newFakeRepo()
	uc := NewIndexDocumentUseCase(repo, &fakeEmbedder{}, &fakeIndex{}, nil)

	err := uc.IndexByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want not found kind", err)
	}
}

func TestIndexByIDNoSections(t *testing.T) {
	repo := newFakeRepo()
	repo.docs["doc-1"] = &domain.Document{ID: "doc-1"}
	uc := NewIndexDocumentUseCase(repo, &fakeEmbedder{}, &fakeIndex{}, nil)

	err := uc.IndexByID(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrEmptyDocument) {
		t.Fatalf("err = %v, want empty document kind", err)
	}
}
