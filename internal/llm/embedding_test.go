package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIEmbeddingProviderOrdersByIndex(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","model":"text-embedding-3-small",
			"data":[
				{"object":"embedding","index":1,"embedding":[0,1]},
				{"object":"embedding","index":0,"embedding":[1,0]}
			],
			"usage":{"prompt_tokens":4,"total_tokens":4}}`)
	}))
	defer srv.Close()

	p, err := NewEmbeddingProvider(EmbeddingConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	vecs, err := p.CreateEmbedding(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1}, vecs[1])
	assert.Equal(t, "text-embedding-3-small", got["model"])
}

func TestOpenAIEmbeddingProviderRejectsShortResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1]}]}`)
	}))
	defer srv.Close()

	p, err := NewEmbeddingProvider(EmbeddingConfig{Provider: "qwen", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.CreateEmbedding(context.Background(), []string{"a", "b"})
	require.Error(t, err)
}

func TestNewEmbeddingProviderValidation(t *testing.T) {
	_, err := NewEmbeddingProvider(EmbeddingConfig{Provider: "openai"})
	require.Error(t, err)
	_, err = NewEmbeddingProvider(EmbeddingConfig{Provider: "word2vec", APIKey: "k"})
	require.Error(t, err)
}
