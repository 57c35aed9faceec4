package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kayz/chainkit/internal/llm"
	"github.com/kayz/chainkit/internal/logger"
	"github.com/kayz/chainkit/internal/prompt"
	"github.com/kayz/chainkit/internal/rag"
	"github.com/kayz/chainkit/internal/transcript"
	"github.com/spf13/cobra"
)

// Factories are variables so command tests can swap in fakes.
var (
	newProvider = llm.NewProvider
	newEmbedder = llm.NewEmbeddingProvider
)

// commandContext is cancelled on Ctrl-C or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// openProvider builds the chat provider from cfg and, when transcripts are
// enabled, wraps it in a recorder. The returned func releases resources.
func openProvider(cmd *cobra.Command) (llm.Provider, func(), error) {
	p, err := newProvider(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("[Runtime] Using %s/%s", p.Name(), p.Model())

	if !cfg.Transcript.Enabled {
		return p, func() {}, nil
	}
	store, err := transcript.Open(cfg.Transcript.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open transcript: %w", err)
	}
	rec, err := transcript.NewRecorder(p, store, cmd.CommandPath())
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	logger.Info("[Runtime] Recording exchanges to %s (run %s)", cfg.Transcript.Path, rec.Run().ID)
	return rec, func() { store.Close() }, nil
}

func openEmbedder() (llm.EmbeddingProvider, error) {
	return newEmbedder(llm.EmbeddingConfig{
		Provider: cfg.Embedding.Provider,
		APIKey:   cfg.Embedding.APIKey,
		BaseURL:  cfg.Embedding.BaseURL,
		Model:    cfg.Embedding.Model,
	})
}

// resolveTemplate picks an inline template, a template file or a library
// template, in that order.
func resolveTemplate(inline, file, builtin string) (prompt.Template, error) {
	switch {
	case inline != "":
		return prompt.New("inline", inline)
	case file != "":
		return prompt.Loader{Dir: cfg.Prompts.Dir}.Load(file)
	default:
		return prompt.Builtin(builtin)
	}
}

// parseVars turns repeated key=value flags into template values.
func parseVars(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q, want key=value", pair)
		}
		values[k] = v
	}
	return values, nil
}

// loadChunks loads a document and splits it with the given parameters.
func loadChunks(path, splitter string, size, overlap int) ([]rag.Document, error) {
	docs, err := rag.Load(path)
	if err != nil {
		return nil, err
	}
	s, err := rag.NewSplitter(splitter, size, overlap)
	if err != nil {
		return nil, err
	}
	chunks, err := rag.SplitDocuments(s, docs)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s has no text to split", path)
	}
	logger.Debug("[Runtime] %s: %d document(s), %d chunk(s)", path, len(docs), len(chunks))
	return chunks, nil
}
