package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Message is one turn of a chat request.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatRequest is a single text-generation request. Model and temperature
// are fixed when the provider is built.
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
}

// Usage reports token counts when the backend returns them.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ChatResponse carries the raw generated text.
type ChatResponse struct {
	Content      string
	Model        string
	FinishReason string
	Usage        Usage
}

// Provider is a text-generation backend.
type Provider interface {
	Name() string
	Model() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Invoke sends prompt as a single user message and returns the raw text.
// Errors from the provider are returned as is.
func Invoke(ctx context.Context, p Provider, prompt string) (string, error) {
	resp, err := p.Chat(ctx, ChatRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

type stageKey struct{}

// WithStage labels the requests made under ctx, e.g. "request" or "repair".
// Decorating providers read it back with StageFrom.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFrom returns the label set by WithStage, or "".
func StageFrom(ctx context.Context) string {
	s, _ := ctx.Value(stageKey{}).(string)
	return s
}

// Config describes how to build a Provider.
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewProvider builds a provider from cfg. Claude goes through the Anthropic
// SDK; everything else speaks the OpenAI chat completions protocol.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "claude", "anthropic":
		return NewClaudeProvider(cfg)
	default:
		return newOpenAICompatFromConfig(cfg)
	}
}

type vendorDefaults struct {
	baseURL string
	model   string
}

var openAICompatDefaults = map[string]vendorDefaults{
	"openai":   {"https://api.openai.com/v1", "gpt-4.1-mini"},
	"deepseek": {"https://api.deepseek.com/v1", "deepseek-chat"},
	"qwen":     {"https://dashscope.aliyuncs.com/compatible-mode/v1", "qwen-plus"},
	"kimi":     {"https://api.moonshot.cn/v1", "moonshot-v1-8k"},
	"zhipu":    {"https://open.bigmodel.cn/api/paas/v4", "glm-4-flash"},
	"gemini":   {"https://generativelanguage.googleapis.com/v1beta/openai", "gemini-2.0-flash"},
	"grok":     {"https://api.x.ai/v1", "grok-2-latest"},
	"ollama":   {"http://localhost:11434/v1", "llama3.1"},
}

var openAICompatAliases = map[string]string{
	"":         "openai",
	"gpt":      "openai",
	"chatgpt":  "openai",
	"qianwen":  "qwen",
	"tongyi":   "qwen",
	"moonshot": "kimi",
	"glm":      "zhipu",
	"google":   "gemini",
	"xai":      "grok",
}

// Vendor is a known chat backend with the defaults used when the config
// leaves base URL or model empty.
type Vendor struct {
	Name    string
	BaseURL string
	Model   string
}

// Vendors lists every backend NewProvider understands, sorted by name.
func Vendors() []Vendor {
	out := []Vendor{{Name: "claude", BaseURL: "https://api.anthropic.com", Model: claudeDefaultModel}}
	for name, d := range openAICompatDefaults {
		out = append(out, Vendor{Name: name, BaseURL: d.baseURL, Model: d.model})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func newOpenAICompatFromConfig(cfg Config) (Provider, error) {
	name := strings.ToLower(cfg.Provider)
	if canonical, ok := openAICompatAliases[name]; ok {
		name = canonical
	}
	d, ok := openAICompatDefaults[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
	return NewOpenAICompatProvider(OpenAICompatConfig{
		ProviderName: name,
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		Model:        cfg.Model,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		DefaultURL:   d.baseURL,
		DefaultModel: d.model,
		KeyOptional:  name == "ollama",
	})
}
