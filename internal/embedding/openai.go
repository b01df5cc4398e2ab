package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultModel is the sentence embedding model served by the endpoint.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// embeddingsAPI is the subset of *openai.Client used here.
type embeddingsAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAI embeds through an OpenAI-compatible /embeddings endpoint (OpenAI
// itself, or a local server hosting a sentence-transformers model).
type OpenAI struct {
	client embeddingsAPI
	model  string
	dim    int
}

// NewOpenAI returns a provider for baseURL. An empty baseURL targets the
// public OpenAI API.
func NewOpenAI(baseURL, apiKey, model string, dim int) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model, dim: dim}
}

// Embed requests one vector. Blank text, API failures, empty responses and
// vectors of the wrong length are reported as ErrUnavailable; context
// cancellation is returned as is.
func (p *OpenAI) Embed(ctx context.Context, text string) (Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: blank input", ErrUnavailable)
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: []string{text},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: create embedding: %w", ErrUnavailable, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding in response", ErrUnavailable)
	}

	v := resp.Data[0].Embedding
	if len(v) != p.dim {
		return nil, fmt.Errorf("%w: model %s returned %d dimensions, want %d", ErrUnavailable, p.model, len(v), p.dim)
	}
	return Vector(v), nil
}
