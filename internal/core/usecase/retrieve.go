package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
	"github.com/eskorokhod/construction-doc-chat/internal/core/ports"
)

type RetrieveConfig struct {
	TopK              int
	SimilarityFloor   float64
	HistoryWindow     int
	HistoryCharBudget int
}

// RetrieveSectionsUseCase turns a user message plus recent history into a
// ranked, merged set of grounding sections.
type RetrieveSectionsUseCase struct {
	embedder ports.BatchEmbedder
	index    ports.VectorIndex
	cfg      RetrieveConfig
}

func NewRetrieveSectionsUseCase(
	embedder ports.BatchEmbedder,
	index ports.VectorIndex,
	cfg RetrieveConfig,
) *RetrieveSectionsUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.HistoryWindow < 0 {
		cfg.HistoryWindow = 0
	}
	return &RetrieveSectionsUseCase{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
	}
}

func (uc *RetrieveSectionsUseCase) Retrieve(
	ctx context.Context,
	message string,
	history []domain.Turn,
) ([]domain.RetrievalCandidate, error) {
	query := uc.augmentQuery(message, history)

	vector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := uc.index.Search(ctx, vector, uc.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	kept := candidates[:0]
	for _, c := range candidates {
		if c.Score >= uc.cfg.SimilarityFloor {
			kept = append(kept, c)
		}
	}

	merged := mergeAdjacent(kept)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if !merged[i].IndexedAt.Equal(merged[j].IndexedAt) {
			return merged[i].IndexedAt.After(merged[j].IndexedAt)
		}
		if merged[i].DocumentID != merged[j].DocumentID {
			return merged[i].DocumentID < merged[j].DocumentID
		}
		return merged[i].Ordinal < merged[j].Ordinal
	})
	for i := range merged {
		merged[i].Rank = i
	}
	return merged, nil
}

// augmentQuery prepends the tail of the conversation so follow-up questions
// ("what about rebar?") retrieve against their full context. The char budget
// drops whole turns, oldest first; a turn that does not fit is omitted
// entirely rather than cut mid-sentence.
func (uc *RetrieveSectionsUseCase) augmentQuery(message string, history []domain.Turn) string {
	if uc.cfg.HistoryWindow == 0 || len(history) == 0 {
		return message
	}

	start := len(history) - uc.cfg.HistoryWindow
	if start < 0 {
		start = 0
	}
	recent := history[start:]

	budget := uc.cfg.HistoryCharBudget
	parts := make([]string, 0, len(recent))
	if budget > 0 {
		used := 0
		for i := len(recent) - 1; i >= 0; i-- {
			t := strings.TrimSpace(recent[i].Text)
			if t == "" {
				continue
			}
			if used+len(t) > budget {
				break
			}
			parts = append([]string{t}, parts...)
			used += len(t)
		}
	} else {
		for _, turn := range recent {
			if t := strings.TrimSpace(turn.Text); t != "" {
				parts = append(parts, t)
			}
		}
	}

	if len(parts) == 0 {
		return message
	}
	return strings.Join(parts, "\n") + "\n" + message
}

// mergeAdjacent coalesces candidates that are consecutive sections of the
// same document into one candidate spanning their combined pages, carrying
// the best score of its members.
func mergeAdjacent(candidates []domain.RetrievalCandidate) []domain.RetrievalCandidate {
	if len(candidates) < 2 {
		return candidates
	}

	sorted := append([]domain.RetrievalCandidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DocumentID != sorted[j].DocumentID {
			return sorted[i].DocumentID < sorted[j].DocumentID
		}
		return sorted[i].Ordinal < sorted[j].Ordinal
	})

	out := make([]domain.RetrievalCandidate, 0, len(sorted))
	current := sorted[0]
	spanEnd := current.Ordinal
	for _, c := range sorted[1:] {
		if c.DocumentID == current.DocumentID && c.Ordinal == spanEnd+1 {
			current.Body = current.Body + "\n\n" + c.Body
			if c.PageEnd > current.PageEnd {
				current.PageEnd = c.PageEnd
			}
			if c.Score > current.Score {
				current.Score = c.Score
			}
			spanEnd = c.Ordinal
			continue
		}
		out = append(out, current)
		current = c
		spanEnd = c.Ordinal
	}
	out = append(out, current)
	return out
}
