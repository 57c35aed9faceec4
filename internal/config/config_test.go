package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromPathReadsLLMSection(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, ".chainkit.yaml")
	content := `llm:
  provider: deepseek
  model: deepseek-chat
  temperature: 0.1
rag:
  chunk_size: 500
  chunk_overlap: 100
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LLM.Provider != "deepseek" || cfg.LLM.Model != "deepseek-chat" {
		t.Fatalf("unexpected llm section: %#v", cfg.LLM)
	}
	if cfg.LLM.Temperature != 0.1 {
		t.Fatalf("expected temperature 0.1, got %v", cfg.LLM.Temperature)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.ChunkOverlap != 100 {
		t.Fatalf("unexpected rag section: %#v", cfg.RAG)
	}
	// untouched keys keep their defaults
	if cfg.RAG.TopK != 3 || cfg.Embedding.Model != "text-embedding-3-small" {
		t.Fatalf("defaults lost: %#v %#v", cfg.RAG, cfg.Embedding)
	}
}

func TestLoadFromPathMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LLM.Model != "gpt-4.1-mini" || cfg.LLM.Temperature != 0.2 {
		t.Fatalf("unexpected defaults: %#v", cfg.LLM)
	}
}

func TestApplyEnvOverridesFileValues(t *testing.T) {
	env := map[string]string{
		"CHAINKIT_MODEL":       "gpt-4.1-nano",
		"CHAINKIT_TEMPERATURE": "0.7",
		"OPENAI_API_KEY":       "sk-env",
		"ANTHROPIC_API_KEY":    "sk-ant",
		"CHAINKIT_TRANSCRIPT":  "1",
	}
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.LLM.Model != "gpt-4.1-nano" || cfg.LLM.Temperature != 0.7 {
		t.Fatalf("env not applied: %#v", cfg.LLM)
	}
	if cfg.LLM.APIKey != "sk-env" || cfg.Embedding.APIKey != "sk-env" {
		t.Fatalf("expected OpenAI key from env, got %q / %q", cfg.LLM.APIKey, cfg.Embedding.APIKey)
	}
	if !cfg.Transcript.Enabled {
		t.Fatalf("expected transcript enabled")
	}

	claude := DefaultConfig()
	claude.LLM.Provider = "claude"
	if err := claude.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if claude.LLM.APIKey != "sk-ant" {
		t.Fatalf("expected anthropic key, got %q", claude.LLM.APIKey)
	}
}

func TestApplyEnvKeepsKeyFromFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-file"
	if err := cfg.ApplyEnv(func(k string) string {
		if k == "OPENAI_API_KEY" {
			return "sk-env"
		}
		return ""
	}); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.LLM.APIKey != "sk-file" {
		t.Fatalf("file key overwritten: %q", cfg.LLM.APIKey)
	}
}

func TestApplyEnvRejectsBadTemperature(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(func(k string) string {
		if k == "CHAINKIT_TEMPERATURE" {
			return "warm"
		}
		return ""
	})
	if err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals size", func(c *Config) { c.RAG.ChunkOverlap = c.RAG.ChunkSize }},
		{"negative overlap", func(c *Config) { c.RAG.ChunkOverlap = -1 }},
		{"zero top k", func(c *Config) { c.RAG.TopK = 0 }},
		{"hot temperature", func(c *Config) { c.LLM.Temperature = 2.5 }},
		{"unknown store", func(c *Config) { c.RAG.Store = "faiss" }},
		{"unknown splitter", func(c *Config) { c.RAG.Splitter = "semantic" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	cfg := DefaultConfig()
	cfg.LLM.Model = "gpt-4o"
	cfg.RAG.Store = "persistent"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.LLM.Model != "gpt-4o" || loaded.RAG.Store != "persistent" {
		t.Fatalf("round trip lost values: %#v", loaded)
	}
}

func TestLoadDotEnvMissingFileIsFine(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadDotEnvDoesNotOverrideSetVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CHAINKIT_DOTENV_A=from-file\nCHAINKIT_DOTENV_B=from-file\n"), 0644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("CHAINKIT_DOTENV_A", "from-shell")
	t.Setenv("CHAINKIT_DOTENV_B", "")
	os.Unsetenv("CHAINKIT_DOTENV_B")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("CHAINKIT_DOTENV_A"); got != "from-shell" {
		t.Fatalf("shell value overridden: %q", got)
	}
	if got := os.Getenv("CHAINKIT_DOTENV_B"); got != "from-file" {
		t.Fatalf("file value not loaded: %q", got)
	}
}

func TestSwitchProviderClearsBackendSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-openai"
	cfg.LLM.BaseURL = "https://proxy.example/v1"

	cfg.SwitchProvider("openai")
	if cfg.LLM.APIKey != "sk-openai" || cfg.LLM.Model != "gpt-4.1-mini" {
		t.Fatalf("same provider must keep settings: %#v", cfg.LLM)
	}

	cfg.SwitchProvider("claude")
	if cfg.LLM.APIKey != "" || cfg.LLM.BaseURL != "" || cfg.LLM.Model != "" {
		t.Fatalf("expected cleared backend settings: %#v", cfg.LLM)
	}
	cfg.FillKeys(func(k string) string {
		if k == "ANTHROPIC_API_KEY" {
			return "sk-ant"
		}
		return ""
	})
	if cfg.LLM.APIKey != "sk-ant" {
		t.Fatalf("expected anthropic key, got %q", cfg.LLM.APIKey)
	}
}

func TestApplyEnvProviderSwitchUsesProviderKey(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{
		"CHAINKIT_PROVIDER": "deepseek",
		"DEEPSEEK_API_KEY":  "sk-ds",
		"OPENAI_API_KEY":    "sk-openai",
	}
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.LLM.Provider != "deepseek" || cfg.LLM.APIKey != "sk-ds" || cfg.LLM.Model != "" {
		t.Fatalf("unexpected llm config: %#v", cfg.LLM)
	}
	if cfg.Embedding.APIKey != "sk-openai" {
		t.Fatalf("embedding key should still come from OPENAI_API_KEY, got %q", cfg.Embedding.APIKey)
	}
}
