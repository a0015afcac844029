package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

// pointNamespace seeds the deterministic point id derived from the section
// id, so re-indexing a document overwrites its old points instead of
// duplicating them.
var pointNamespace = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func pointID(sectionID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(sectionID)).String()
}

func (c *Client) UpsertSections(
	ctx context.Context,
	doc *domain.Document,
	sections []domain.Section,
	vectors [][]float32,
	model string,
) error {
	if len(sections) == 0 {
		return nil
	}
	if len(sections) != len(vectors) {
		return fmt.Errorf("sections/vectors mismatch: %d vs %d", len(sections), len(vectors))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	indexedAt := time.Now().UTC().Format(time.RFC3339)
	points := make([]point, 0, len(sections))
	for i, s := range sections {
		points = append(points, point{
			ID:     pointID(s.ID),
			Vector: vectors[i],
			Payload: map[string]any{
				"section_id": s.ID,
				"doc_id":     doc.ID,
				"filename":   doc.Filename,
				"ordinal":    s.Ordinal,
				"heading":    s.Heading,
				"page_start": s.PageStart,
				"page_end":   s.PageEnd,
				"text":       s.Body,
				"model":      model,
				"indexed_at": indexedAt,
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	if err := c.send(ctx, http.MethodPut, url, map[string]any{"points": points}, nil, "upsert"); err != nil {
		return err
	}
	return nil
}

func (c *Client) Search(ctx context.Context, queryVector []float32, k int) ([]domain.RetrievalCandidate, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        k,
		"with_payload": true,
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.send(ctx, http.MethodPost, url, reqBody, &searchResp, "search"); err != nil {
		// The collection is created on first upsert. Searching before any
		// document was indexed is an empty corpus, not a failure.
		if statusCode(err) == http.StatusNotFound {
			return []domain.RetrievalCandidate{}, nil
		}
		return nil, err
	}

	out := make([]domain.RetrievalCandidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		candidate := domain.RetrievalCandidate{
			SectionID:  stringPayload(r.Payload, "section_id"),
			DocumentID: stringPayload(r.Payload, "doc_id"),
			Ordinal:    intPayload(r.Payload, "ordinal"),
			Heading:    stringPayload(r.Payload, "heading"),
			Body:       stringPayload(r.Payload, "text"),
			PageStart:  intPayload(r.Payload, "page_start"),
			PageEnd:    intPayload(r.Payload, "page_end"),
			Score:      r.Score,
		}
		if ts, err := time.Parse(time.RFC3339, stringPayload(r.Payload, "indexed_at")); err == nil {
			candidate.IndexedAt = ts
		}
		out = append(out, candidate)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].IndexedAt.After(out[j].IndexedAt)
	})
	for i := range out {
		out[i].Rank = i
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	err := c.send(ctx, http.MethodPut, url, reqBody, nil, "ensure collection")
	if err != nil {
		// 409 means the collection already exists (depends on version/config).
		if statusCode(err) == http.StatusConflict {
			c.markCollectionEnsured(vectorSize)
			return nil
		}
		return err
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

type statusError struct {
	operation string
	code      int
	status    string
	body      string
}

func (e *statusError) Error() string {
	if e.body != "" {
		return fmt.Sprintf("qdrant %s status: %s: %s", e.operation, e.status, e.body)
	}
	return fmt.Sprintf("qdrant %s status: %s", e.operation, e.status)
}

func statusCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}

// send performs one JSON request. Transport failures and 5xx responses wrap
// ErrIndexUnavailable so callers can degrade instead of crashing.
func (c *Client) send(ctx context.Context, method, url string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant "+operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		se := &statusError{
			operation: operation,
			code:      resp.StatusCode,
			status:    resp.Status,
			body:      strings.TrimSpace(string(raw)),
		}
		if resp.StatusCode >= 500 {
			return domain.WrapError(domain.ErrIndexUnavailable, "qdrant "+operation, se)
		}
		return se
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
	}
	return nil
}

func stringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func intPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
