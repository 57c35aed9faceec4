package transcript

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kayz/chainkit/internal/llm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "transcript.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	run, err := s.StartRun("structured", "openai", "gpt-4.1-mini")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	first := &Exchange{
		RunID:     run.ID,
		Stage:     "request",
		Messages:  []Message{{Role: "user", Content: "explain HPA"}},
		Response:  "not json",
		LatencyMS: 12,
	}
	require.NoError(t, s.RecordExchange(first))
	assert.NotZero(t, first.ID)

	require.NoError(t, s.RecordExchange(&Exchange{
		RunID: run.ID,
		Stage: "repair",
		Error: "boom",
	}))

	got, err := s.ListExchanges(run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "request", got[0].Stage)
	assert.Equal(t, []Message{{Role: "user", Content: "explain HPA"}}, got[0].Messages)
	assert.Equal(t, "not json", got[0].Response)
	assert.Equal(t, int64(12), got[0].LatencyMS)
	assert.Equal(t, "repair", got[1].Stage)
	assert.Equal(t, "boom", got[1].Error)
	assert.Empty(t, got[1].Messages)

	runs, err := s.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "structured", runs[0].Command)
	assert.Equal(t, "gpt-4.1-mini", runs[0].Model)
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.db")
	s, err := Open(path)
	require.NoError(t, err)
	run, err := s.StartRun("ask", "claude", "claude-3-5-haiku-latest")
	require.NoError(t, err)
	require.NoError(t, s.RecordExchange(&Exchange{RunID: run.ID, Stage: "request", Response: "ok"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.ListExchanges(run.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Response)
}

type stubProvider struct {
	replies []string
	err     error
	calls   int
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) Model() string { return "stub-1" }

func (p *stubProvider) Chat(_ context.Context, _ llm.ChatRequest) (llm.ChatResponse, error) {
	defer func() { p.calls++ }()
	if p.err != nil {
		return llm.ChatResponse{}, p.err
	}
	return llm.ChatResponse{
		Content: p.replies[p.calls],
		Usage:   llm.Usage{InputTokens: 10, OutputTokens: 3},
	}, nil
}

func TestRecorderRecordsStages(t *testing.T) {
	s := openTestStore(t)
	inner := &stubProvider{replies: []string{"first", "second"}}
	rec, err := NewRecorder(inner, s, "structured")
	require.NoError(t, err)
	assert.Equal(t, "stub", rec.Name())
	assert.Equal(t, "stub-1", rec.Model())

	ctx := context.Background()
	out, err := llm.Invoke(ctx, rec, "prompt one")
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	out, err = llm.Invoke(llm.WithStage(ctx, "repair"), rec, "prompt two")
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	got, err := s.ListExchanges(rec.Run().ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "request", got[0].Stage)
	assert.Equal(t, "prompt one", got[0].Messages[0].Content)
	assert.Equal(t, 10, got[0].InputTok)
	assert.Equal(t, "repair", got[1].Stage)
	assert.Equal(t, "second", got[1].Response)
}

func TestRecorderPassesErrorsThrough(t *testing.T) {
	s := openTestStore(t)
	upstream := errors.New("rate limited")
	rec, err := NewRecorder(&stubProvider{err: upstream}, s, "ask")
	require.NoError(t, err)

	_, err = llm.Invoke(context.Background(), rec, "hi")
	assert.Same(t, upstream, err)

	got, err := s.ListExchanges(rec.Run().ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rate limited", got[0].Error)
}
