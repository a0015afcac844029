package domain

import "time"

// Turn is one prior exchange entry supplied by the caller. The pipeline
// treats history as immutable input; it is never stored.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// RetrievalCandidate is an ephemeral per-query result carrying full section
// provenance for prompting and citation.
type RetrievalCandidate struct {
	SectionID  string    `json:"section_id"`
	DocumentID string    `json:"document_id"`
	Ordinal    int       `json:"ordinal"`
	Heading    string    `json:"heading,omitempty"`
	Body       string    `json:"body"`
	PageStart  int       `json:"page_start"`
	PageEnd    int       `json:"page_end"`
	Score      float64   `json:"score"`
	Rank       int       `json:"rank"`
	IndexedAt  time.Time `json:"indexed_at,omitempty"`
}

type Citation struct {
	DocumentID string `json:"document_id"`
	SectionID  string `json:"section_id"`
	Heading    string `json:"heading,omitempty"`
	PageStart  int    `json:"page_start"`
	PageEnd    int    `json:"page_end"`
}

type ChatResult struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	CacheHit  bool       `json:"cache_hit"`
}

// CacheEntry is the idempotent output of a generation keyed on the question
// plus its grounding context. Written whole or not at all.
type CacheEntry struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at,omitempty"`
}

func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
