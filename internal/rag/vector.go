package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/schema"

	"github.com/kayz/chainkit/internal/logger"
)

// Embedder turns texts into vectors, one per text, in order.
// llm.EmbeddingProvider satisfies it.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexOptions selects where vectors live.
type IndexOptions struct {
	Store      string // "memory" (default) or "persistent"
	Dir        string // persistent store directory
	Collection string
	Compress   bool
}

// Index is a nearest-neighbour index over chunk embeddings, backed by chromem.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   Embedder
}

// OpenIndex opens or creates the collection named in opts.
func OpenIndex(opts IndexOptions, embedder Embedder) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	name := opts.Collection
	if name == "" {
		name = "chunks"
	}

	var db *chromem.DB
	switch opts.Store {
	case "", "memory":
		db = chromem.NewDB()
	case "persistent":
		if opts.Dir == "" {
			return nil, fmt.Errorf("persistent store needs a directory")
		}
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create vector directory: %w", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(opts.Dir, opts.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem DB: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown vector store %q", opts.Store)
	}

	collection, err := db.GetOrCreateCollection(name, nil, embeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection: %w", err)
	}
	return &Index{db: db, collection: collection, embedder: embedder}, nil
}

func embeddingFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := e.CreateEmbedding(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 {
			return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
		}
		return vecs[0], nil
	}
}

// Count is the number of indexed chunks.
func (ix *Index) Count() int {
	return ix.collection.Count()
}

// Add embeds all chunks in one call and indexes them.
func (ix *Index) Add(ctx context.Context, chunks []schema.Document) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.PageContent
	}
	vecs, err := ix.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("got %d embeddings for %d chunks", len(vecs), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        uuid.NewString(),
			Content:   c.PageContent,
			Embedding: vecs[i],
			Metadata:  stringMetadata(c.Metadata),
		}
	}
	if err := ix.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}
	logger.Debug("[RAG] Indexed %d chunks (total %d)", len(docs), ix.Count())
	return nil
}

// Search returns up to k chunks most similar to query, best first, with
// Score set to the cosine similarity.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]schema.Document, error) {
	n := min(k, ix.Count())
	if n <= 0 {
		return nil, nil
	}
	vecs, err := ix.embedder.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vecs))
	}

	results, err := ix.collection.QueryEmbedding(ctx, vecs[0], n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	docs := make([]schema.Document, 0, len(results))
	for _, r := range results {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		docs = append(docs, schema.Document{
			PageContent: r.Content,
			Metadata:    meta,
			Score:       r.Similarity,
		})
	}
	return docs, nil
}

func stringMetadata(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// CollectionName derives a stable collection name from the source content
// and split parameters, so a persistent store can reuse earlier embeddings.
func CollectionName(content string, splitter string, size, overlap int, model string) string {
	h := sha256.New()
	for _, part := range []string{content, splitter, strconv.Itoa(size), strconv.Itoa(overlap), model} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "chunks-" + hex.EncodeToString(h.Sum(nil))[:16]
}

// JoinContext joins chunk texts with blank lines, the form the QA prompts expect.
func JoinContext(docs []schema.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.PageContent
	}
	return strings.Join(parts, "\n\n")
}
