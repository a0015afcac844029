package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
	"github.com/eskorokhod/construction-doc-chat/internal/infrastructure/resilience"
)

// Client talks to one Ollama instance for both embedding and generation.
// Every outbound call holds a slot on the shared provider gate, so document
// ingestion and live chat compete for the same MAX_CONCURRENT_CALLS budget.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	gate       *resilience.Gate
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, gate *resilience.Gate, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		gate:       gate,
		executor:   executor,
	}
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if err := c.gate.Acquire(ctx); err != nil {
		return err
	}
	defer c.gate.Release()
	return c.executor.Execute(ctx, operation, fn, classifyProviderError)
}

// Embedder is the raw embedding provider: one call per batch, no batching
// policy of its own. The order-preserving batcher sits on top of it.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Model() string {
	return e.client.embedModel
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.call(ctx, "ollama.embed", func(callCtx context.Context) error {
		return e.client.postJSON(callCtx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrProvider, "embed batch", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(
			domain.ErrProvider,
			"embed batch",
			fmt.Errorf("provider returned %d vectors for %d inputs", len(response.Embeddings), len(texts)),
		)
	}
	return response.Embeddings, nil
}

// Generator creates the final answer from the retrieved sections.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(
	ctx context.Context,
	question string,
	history []domain.Turn,
	candidates []domain.RetrievalCandidate,
) (string, error) {
	prompt := buildAnswerPrompt(question, history, candidates)

	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	err := g.client.call(ctx, "ollama.generate", func(callCtx context.Context) error {
		return g.client.postJSON(callCtx, "/api/generate", reqBody, &response, "generate")
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrGeneration, "generate answer", err)
	}
	return strings.TrimSpace(response.Response), nil
}
