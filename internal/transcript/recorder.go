package transcript

import (
	"context"
	"time"

	"github.com/kayz/chainkit/internal/llm"
	"github.com/kayz/chainkit/internal/logger"
)

// Recorder wraps a provider and writes every exchange to a store.
// Recording failures are logged, never returned to the caller.
type Recorder struct {
	inner llm.Provider
	store *Store
	run   *Run
}

var _ llm.Provider = (*Recorder)(nil)

// NewRecorder starts a run for command and returns the wrapping provider.
func NewRecorder(inner llm.Provider, store *Store, command string) (*Recorder, error) {
	run, err := store.StartRun(command, inner.Name(), inner.Model())
	if err != nil {
		return nil, err
	}
	logger.Debug("[Transcript] Recording run %s", run.ID)
	return &Recorder{inner: inner, store: store, run: run}, nil
}

// Run is the run exchanges are recorded under.
func (r *Recorder) Run() *Run { return r.run }

func (r *Recorder) Name() string  { return r.inner.Name() }
func (r *Recorder) Model() string { return r.inner.Model() }

func (r *Recorder) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	start := time.Now()
	resp, err := r.inner.Chat(ctx, req)

	ex := &Exchange{
		RunID:     r.run.ID,
		Stage:     llm.StageFrom(ctx),
		System:    req.SystemPrompt,
		Response:  resp.Content,
		LatencyMS: time.Since(start).Milliseconds(),
		InputTok:  resp.Usage.InputTokens,
		OutputTok: resp.Usage.OutputTokens,
	}
	if ex.Stage == "" {
		ex.Stage = "request"
	}
	for _, m := range req.Messages {
		ex.Messages = append(ex.Messages, Message{Role: m.Role, Content: m.Content})
	}
	if err != nil {
		ex.Error = err.Error()
	}
	if rerr := r.store.RecordExchange(ex); rerr != nil {
		logger.Warn("[Transcript] Failed to record exchange: %v", rerr)
	}
	return resp, err
}
