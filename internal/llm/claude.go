package llm

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

const (
	claudeDefaultModel     = "claude-3-5-haiku-latest"
	claudeDefaultMaxTokens = 4096
)

// ClaudeProvider implements Provider on the Anthropic Messages API.
type ClaudeProvider struct {
	client      *anthropic.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewClaudeProvider creates a Claude provider from cfg.
func NewClaudeProvider(cfg Config) (*ClaudeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for claude")
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = claudeDefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = claudeDefaultMaxTokens
	}

	return &ClaudeProvider{
		client:      anthropic.NewClient(cfg.APIKey, opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (p *ClaudeProvider) Name() string  { return "claude" }
func (p *ClaudeProvider) Model() string { return p.model }

// Chat sends messages and returns a response
func (p *ClaudeProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	messages := make([]anthropic.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantTextMessage(msg.Content))
			continue
		}
		messages = append(messages, anthropic.NewUserTextMessage(msg.Content))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	temperature := p.temperature

	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(p.model),
		Messages:    messages,
		System:      req.SystemPrompt,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return ChatResponse{}, fmt.Errorf("claude API error: %w", err)
	}

	return ChatResponse{
		Content:      resp.GetFirstContentText(),
		Model:        string(resp.Model),
		FinishReason: string(resp.StopReason),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}
