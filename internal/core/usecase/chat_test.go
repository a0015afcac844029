package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

func chatCandidates() []domain.RetrievalCandidate {
	return []domain.RetrievalCandidate{
		{SectionID: "s1", DocumentID: "d1", Heading: "Concrete Specifications", Body: "4000 PSI.", PageStart: 1, PageEnd: 2, Score: 0.9},
		{SectionID: "s9", DocumentID: "d2", Body: "Notes.", PageStart: 10, PageEnd: 10, Score: 0.5},
	}
}

func newChatUseCase(retriever *fakeRetriever, generator *fakeGenerator, cache *fakeCache) *ChatUseCase {
	return NewChatUseCase(retriever, generator, cache, 5*time.Minute, nil)
}

func TestAskRejectsBlankMessage(t *testing.T) {
	retriever := &fakeRetriever{}
	uc := newChatUseCase(retriever, &fakeGenerator{}, newFakeCache())

	for _, message := range []string{"", "   ", "\t\n"} {
		_, err := uc.Ask(context.Background(), message, nil)
		if !domain.IsKind(err, domain.ErrEmptyQuery) {
			t.Errorf("Ask(%q) err = %v, want empty query kind", message, err)
		}
	}
	if retriever.calls != 0 {
		t.Errorf("retriever called %d times for blank input", retriever.calls)
	}
}

func TestAskGeneratesWithCitations(t *testing.T) {
	generator := &fakeGenerator{answer: "Use 4000 PSI concrete."}
	uc := newChatUseCase(&fakeRetriever{candidates: chatCandidates()}, generator, newFakeCache())

	result, err := uc.Ask(context.Background(), "What PSI?", nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if result.CacheHit {
		t.Error("first ask reported a cache hit")
	}
	if result.Answer != "Use 4000 PSI concrete." {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(result.Citations) != 2 {
		t.Fatalf("got %d citations", len(result.Citations))
	}
	if result.Citations[0].SectionID != "s1" || result.Citations[0].PageEnd != 2 {
		t.Errorf("citation[0] = %+v", result.Citations[0])
	}
	if len(generator.lastCandidates) != 2 {
		t.Errorf("generator saw %d candidates", len(generator.lastCandidates))
	}
}

func TestAskSecondIdenticalRequestHitsCache(t *testing.T) {
	generator := &fakeGenerator{answer: "Grade 60."}
	cache := newFakeCache()
	uc := newChatUseCase(&fakeRetriever{candidates: chatCandidates()}, generator, cache)

	first, err := uc.Ask(context.Background(), "Rebar grade?", nil)
	if err != nil {
		t.Fatalf("first Ask: %v", err)
	}
	second, err := uc.Ask(context.Background(), "  rebar   GRADE? ", nil)
	if err != nil {
		t.Fatalf("second Ask: %v", err)
	}

	if generator.calls != 1 {
		t.Errorf("generator called %d times, want 1", generator.calls)
	}
	if !second.CacheHit {
		t.Error("second ask missed the cache")
	}
	if second.Answer != first.Answer {
		t.Errorf("answers differ: %q vs %q", second.Answer, first.Answer)
	}
	if len(second.Citations) != len(first.Citations) {
		t.Errorf("cached citations lost: %v", second.Citations)
	}
}

func TestAskHistoryDepthSeparatesCacheSlots(t *testing.T) {
	generator := &fakeGenerator{answer: "a"}
	uc := newChatUseCase(&fakeRetriever{candidates: chatCandidates()}, generator, newFakeCache())

	if _, err := uc.Ask(context.Background(), "q", nil); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	history := []domain.Turn{{Role: "user", Text: "earlier"}}
	if _, err := uc.Ask(context.Background(), "q", history); err != nil {
		t.Fatalf("Ask with history: %v", err)
	}
	if generator.calls != 2 {
		t.Errorf("generator called %d times, want 2 (distinct history depth)", generator.calls)
	}
}

func TestAskCacheFailuresDegradeToGeneration(t *testing.T) {
	generator := &fakeGenerator{answer: "a"}
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	cache.putErr = errors.New("redis down")
	uc := newChatUseCase(&fakeRetriever{candidates: chatCandidates()}, generator, cache)

	result, err := uc.Ask(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if result.Answer != "a" || result.CacheHit {
		t.Errorf("result = %+v", result)
	}
}

func TestAskGenerationErrorSurfacesWithoutCaching(t *testing.T) {
	genErr := domain.WrapError(domain.ErrGeneration, "generate answer", errors.New("model crashed"))
	cache := newFakeCache()
	uc := newChatUseCase(&fakeRetriever{candidates: chatCandidates()}, &fakeGenerator{err: genErr}, cache)

	_, err := uc.Ask(context.Background(), "q", nil)
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("err = %v, want generation kind", err)
	}
	if cache.puts != 0 {
		t.Error("failed generation was cached")
	}
}

func TestAskRetrieverErrorPropagates(t *testing.T) {
	retErr := domain.WrapError(domain.ErrIndexUnavailable, "search", errors.New("refused"))
	uc := newChatUseCase(&fakeRetriever{err: retErr}, &fakeGenerator{}, newFakeCache())

	_, err := uc.Ask(context.Background(), "q", nil)
	if !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("err = %v, want index unavailable kind", err)
	}
}

func TestAskNoCandidatesStillAnswers(t *testing.T) {
	generator := &fakeGenerator{answer: "The indexed documents do not cover that."}
	uc := newChatUseCase(&fakeRetriever{}, generator, newFakeCache())

	result, err := uc.Ask(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(result.Citations) != 0 {
		t.Errorf("citations fabricated: %v", result.Citations)
	}
}
