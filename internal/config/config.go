package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	exeDirCache string
)

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	RAG        RAGConfig        `yaml:"rag"`
	Prompts    PromptsConfig    `yaml:"prompts,omitempty"`
	Transcript TranscriptConfig `yaml:"transcript,omitempty"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LLMConfig selects the text-generation backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Model    string `yaml:"model"`
}

// RAGConfig holds splitting and retrieval parameters.
type RAGConfig struct {
	Splitter     string `yaml:"splitter"` // "fixed" or "recursive"
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	TopK         int    `yaml:"top_k"`
	Store        string `yaml:"store"` // "memory" or "persistent"
	PersistDir   string `yaml:"persist_dir,omitempty"`
}

type PromptsConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

type TranscriptConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format,omitempty"` // "console" or "json"
}

func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4.1-mini",
			Temperature: 0.2,
		},
		Embedding: EmbeddingConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		RAG: RAGConfig{
			Splitter:     "recursive",
			ChunkSize:    800,
			ChunkOverlap: 150,
			TopK:         3,
			Store:        "memory",
			PersistDir:   filepath.Join(ConfigDir(), "vectors"),
		},
		Prompts: PromptsConfig{
			Dir: "prompts",
		},
		Transcript: TranscriptConfig{
			Path: filepath.Join(ConfigDir(), "transcript.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func ConfigDir() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".chainkit")
}

func ConfigPath() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".chainkit.yaml")
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment.
// Variables that are already set keep their values. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() (*Config, error) {
	return LoadFromPath(ConfigPath())
}

// LoadFromPath reads the YAML file at path over the defaults.
// A missing file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	if v := getenv("CHAINKIT_PROVIDER"); v != "" {
		c.SwitchProvider(v)
	}
	if v := getenv("CHAINKIT_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := getenv("CHAINKIT_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("CHAINKIT_TEMPERATURE: %w", err)
		}
		c.LLM.Temperature = float32(t)
	}
	if v := getenv("CHAINKIT_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := getenv("CHAINKIT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("CHAINKIT_TRANSCRIPT"); v != "" {
		c.Transcript.Enabled = v == "true" || v == "1"
	}

	// API keys only fill in what the file left empty.
	c.FillKeys(getenv)
	return nil
}

// SwitchProvider selects another chat backend. Key, base URL and model
// belong to the previous backend and are cleared; the provider's defaults
// apply unless they are set again.
func (c *Config) SwitchProvider(provider string) {
	if strings.EqualFold(provider, c.LLM.Provider) {
		return
	}
	c.LLM.Provider = provider
	c.LLM.APIKey = ""
	c.LLM.BaseURL = ""
	c.LLM.Model = ""
}

// FillKeys copies API keys from the environment into whatever is still empty.
func (c *Config) FillKeys(getenv func(string) string) {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = apiKeyFromEnv(c.LLM.Provider, getenv)
	}
	if c.LLM.BaseURL == "" && isOpenAI(c.LLM.Provider) {
		c.LLM.BaseURL = getenv("OPENAI_BASE_URL")
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = apiKeyFromEnv(c.Embedding.Provider, getenv)
	}
	if c.Embedding.BaseURL == "" && isOpenAI(c.Embedding.Provider) {
		c.Embedding.BaseURL = getenv("OPENAI_BASE_URL")
	}
}

func isOpenAI(provider string) bool {
	p := strings.ToLower(provider)
	return p == "" || p == "openai"
}

func apiKeyFromEnv(provider string, getenv func(string) string) string {
	switch strings.ToLower(provider) {
	case "claude", "anthropic":
		return getenv("ANTHROPIC_API_KEY")
	case "deepseek":
		return getenv("DEEPSEEK_API_KEY")
	case "qwen", "qianwen", "tongyi":
		return getenv("DASHSCOPE_API_KEY")
	case "kimi", "moonshot":
		return getenv("MOONSHOT_API_KEY")
	case "gemini", "google":
		return getenv("GEMINI_API_KEY")
	case "grok", "xai":
		return getenv("XAI_API_KEY")
	case "ollama":
		return ""
	default:
		return getenv("OPENAI_API_KEY")
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %v", c.LLM.Temperature)
	}
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, chunk_size), got %d", c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK < 1 {
		return fmt.Errorf("rag.top_k must be at least 1, got %d", c.RAG.TopK)
	}
	switch c.RAG.Store {
	case "memory", "persistent":
	default:
		return fmt.Errorf("rag.store must be memory or persistent, got %q", c.RAG.Store)
	}
	switch c.RAG.Splitter {
	case "fixed", "recursive":
	default:
		return fmt.Errorf("rag.splitter must be fixed or recursive, got %q", c.RAG.Splitter)
	}
	return nil
}

func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the config as YAML, creating parent directories.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
