// Package structured asks a model for a JSON object that matches a schema
// and repairs a malformed reply at most once.
package structured

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kayz/chainkit/internal/llm"
	"github.com/kayz/chainkit/internal/logger"
	"github.com/kayz/chainkit/internal/prompt"
	"github.com/kayz/chainkit/internal/schema"
)

// ErrRepairExhausted is returned when the repaired reply is still invalid.
var ErrRepairExhausted = errors.New("repair exhausted")

// RepairExhaustedError carries both rejected replies.
type RepairExhaustedError struct {
	First  *schema.ViolationError
	Second *schema.ViolationError
}

func (e *RepairExhaustedError) Error() string {
	return fmt.Sprintf("%s: first reply: %s; repaired reply: %s",
		ErrRepairExhausted, strings.Join(e.First.Issues, "; "), strings.Join(e.Second.Issues, "; "))
}

func (e *RepairExhaustedError) Is(target error) bool { return target == ErrRepairExhausted }

func (e *RepairExhaustedError) Unwrap() []error { return []error{e.First, e.Second} }

// Compose appends the schema's format instructions to task as the trailing
// section of the prompt.
func Compose(s *schema.Schema, task string) string {
	return prompt.Sections(
		prompt.Section{Content: task},
		prompt.Section{Title: "Output Format", Content: s.FormatInstructions()},
	)
}

// Render formats tmpl with values. A {format_instructions} placeholder is
// bound to the schema instructions; without one the instructions are
// appended with Compose.
func Render(s *schema.Schema, tmpl prompt.Template, values map[string]any) (string, error) {
	if tmpl.Has(prompt.FormatInstructionsVar) {
		return tmpl.WithPartial(prompt.FormatInstructionsVar, s.FormatInstructions()).Format(values)
	}
	task, err := tmpl.Format(values)
	if err != nil {
		return "", err
	}
	return Compose(s, task), nil
}

// Generator runs the validate-or-repair loop against one provider.
type Generator struct {
	Provider llm.Provider
	Schema   *schema.Schema

	// DisableRepair stops after the first reply.
	DisableRepair bool
	// RepairTemplate overrides the built-in "repair" template. It receives
	// format_instructions, issues and raw.
	RepairTemplate *prompt.Template
}

// Result is a validated output plus how it was obtained.
type Result struct {
	Output   *schema.Output
	Requests int
	Repaired bool
}

// Generate sends promptText, validates the reply and, on a schema
// violation, sends one repair request. At most two requests are made.
// Provider errors are returned unchanged.
func (g *Generator) Generate(ctx context.Context, promptText string) (*Result, error) {
	raw, err := llm.Invoke(llm.WithStage(ctx, "request"), g.Provider, promptText)
	if err != nil {
		return nil, err
	}

	out, err := g.Schema.Parse(raw)
	if err == nil {
		logger.Debug("[Structured] %s: valid on first reply", g.Schema.Name())
		return &Result{Output: out, Requests: 1}, nil
	}
	var first *schema.ViolationError
	if !errors.As(err, &first) {
		return nil, err
	}
	if g.DisableRepair {
		return nil, first
	}

	logger.Warn("[Structured] %s: invalid reply (%s), requesting repair", g.Schema.Name(), strings.Join(first.Issues, "; "))

	repairPrompt, err := g.repairPrompt(first)
	if err != nil {
		return nil, err
	}
	healed, err := llm.Invoke(llm.WithStage(ctx, "repair"), g.Provider, repairPrompt)
	if err != nil {
		return nil, err
	}

	out, err = g.Schema.Parse(healed)
	if err == nil {
		logger.Info("[Structured] %s: repaired reply accepted", g.Schema.Name())
		return &Result{Output: out, Requests: 2, Repaired: true}, nil
	}
	var second *schema.ViolationError
	if !errors.As(err, &second) {
		return nil, err
	}
	return nil, &RepairExhaustedError{First: first, Second: second}
}

// repairPrompt builds the second request for a rejected reply.
func (g *Generator) repairPrompt(v *schema.ViolationError) (string, error) {
	tmpl := prompt.MustBuiltin("repair")
	if g.RepairTemplate != nil {
		tmpl = *g.RepairTemplate
	}
	return tmpl.Format(map[string]any{
		prompt.FormatInstructionsVar: g.Schema.FormatInstructions(),
		"issues":                     "- " + strings.Join(v.Issues, "\n- "),
		"raw":                        v.Raw,
	})
}
