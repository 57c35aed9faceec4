package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// EmbeddingProvider defines the interface for embedding backends
type EmbeddingProvider interface {
	// CreateEmbedding creates embeddings for the given texts, one vector per text, in order
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider name (e.g., "qwen", "openai")
	Name() string
}

// EmbeddingConfig holds embedding provider configuration
type EmbeddingConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

var embeddingDefaults = map[string]vendorDefaults{
	"openai": {"", "text-embedding-3-small"},
	"qwen":   {"https://dashscope.aliyuncs.com/compatible-mode/v1", "text-embedding-v3"},
}

// NewEmbeddingProvider creates a new embedding provider based on configuration
func NewEmbeddingProvider(cfg EmbeddingConfig) (EmbeddingProvider, error) {
	name := strings.ToLower(cfg.Provider)
	if name == "" {
		name = "openai"
	}
	d, ok := embeddingDefaults[name]
	if !ok {
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for %s embedding", name)
	}

	model := cfg.Model
	if model == "" {
		model = d.model
	}

	config := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		config.BaseURL = cfg.BaseURL
	case d.baseURL != "":
		config.BaseURL = d.baseURL
	}

	return &OpenAIEmbeddingProvider{
		client: openai.NewClientWithConfig(config),
		model:  model,
		name:   name,
	}, nil
}

// OpenAIEmbeddingProvider implements EmbeddingProvider for the OpenAI
// embeddings endpoint and compatible vendors.
type OpenAIEmbeddingProvider struct {
	client *openai.Client
	model  string
	name   string
}

// Name returns the provider name
func (p *OpenAIEmbeddingProvider) Name() string {
	return p.name
}

// CreateEmbedding embeds all texts in one API call.
func (p *OpenAIEmbeddingProvider) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s embedding API error: %w", p.name, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%s embedding API returned %d vectors for %d texts", p.name, len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("%s embedding API returned out-of-range index %d", p.name, data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}

	return embeddings, nil
}
