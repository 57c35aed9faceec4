// Package pipeline runs prompts in sequence, feeding each step's answer to
// the steps after it.
package pipeline

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/kayz/chainkit/internal/llm"
	"github.com/kayz/chainkit/internal/logger"
	"github.com/kayz/chainkit/internal/prompt"
	"github.com/kayz/chainkit/internal/schema"
	"github.com/kayz/chainkit/internal/structured"
)

// Step is one model call. Its template is filled from the pipeline inputs
// and the outputs of earlier steps; its trimmed answer is stored under
// Output for the steps that follow.
type Step struct {
	Name     string
	Title    string
	Template prompt.Template
	Output   string

	// Schema turns the step into a validate-or-repair call. The stored
	// output is then the validated JSON.
	Schema *schema.Schema
}

// StepResult is what a finished step produced.
type StepResult struct {
	Index    int
	Name     string
	Title    string
	Text     string
	Output   *schema.Output // set for Schema steps
	Requests int
	Elapsed  time.Duration
}

// StepError names the step that stopped the pipeline.
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Name, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Pipeline runs Steps against one provider.
type Pipeline struct {
	Provider llm.Provider
	Steps    []Step

	// OnStep is called as soon as each step completes.
	OnStep func(StepResult)
}

// Run executes the steps in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, inputs map[string]any) ([]StepResult, error) {
	state := maps.Clone(inputs)
	if state == nil {
		state = map[string]any{}
	}

	results := make([]StepResult, 0, len(p.Steps))
	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return results, &StepError{Index: i, Name: step.Name, Err: err}
		}

		logger.Info("[Pipeline] Step %d/%d: %s", i+1, len(p.Steps), step.Name)
		start := time.Now()
		res, err := p.runStep(ctx, step, pick(state, step.Template.InputVariables()))
		if err != nil {
			return results, &StepError{Index: i, Name: step.Name, Err: err}
		}
		res.Index = i
		res.Name = step.Name
		res.Title = step.Title
		res.Elapsed = time.Since(start)
		logger.Debug("[Pipeline] Step %s done in %s", step.Name, res.Elapsed)

		if step.Output != "" {
			state[step.Output] = res.Text
		}
		results = append(results, res)
		if p.OnStep != nil {
			p.OnStep(res)
		}
	}
	return results, nil
}

func (p *Pipeline) runStep(ctx context.Context, step Step, values map[string]any) (StepResult, error) {
	if step.Schema == nil {
		text, err := step.Template.Format(values)
		if err != nil {
			return StepResult{}, err
		}
		answer, err := llm.Invoke(llm.WithStage(ctx, step.Name), p.Provider, text)
		if err != nil {
			return StepResult{}, err
		}
		return StepResult{Text: strings.TrimSpace(answer), Requests: 1}, nil
	}

	text, err := structured.Render(step.Schema, step.Template, values)
	if err != nil {
		return StepResult{}, err
	}
	gen := &structured.Generator{Provider: p.Provider, Schema: step.Schema}
	res, err := gen.Generate(ctx, text)
	if err != nil {
		return StepResult{}, err
	}
	data, err := res.Output.JSON()
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Text: string(data), Output: res.Output, Requests: res.Requests}, nil
}

// pick copies the entries of state named in keys.
func pick(state map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := state[k]; ok {
			out[k] = v
		}
	}
	return out
}
