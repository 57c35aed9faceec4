package pipeline

import (
	"github.com/kayz/chainkit/internal/llm"
	"github.com/kayz/chainkit/internal/prompt"
	"github.com/kayz/chainkit/internal/schema"
)

// IssueInput is the input key the DevOps pipeline reads the issue from.
const IssueInput = "issue"

// DevOps builds the incident pipeline: classify the issue, explain the
// root cause, plan actions and format everything as a
// final_devops_report.
func DevOps(provider llm.Provider) (*Pipeline, error) {
	report, err := schema.Builtin("final_devops_report")
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Provider: provider,
		Steps: []Step{
			{Name: "classify", Title: "Classification", Template: prompt.MustBuiltin("classify"), Output: "classification"},
			{Name: "root_cause", Title: "Root Cause Analysis", Template: prompt.MustBuiltin("root_cause"), Output: "root_cause"},
			{Name: "action_plan", Title: "Action Plan", Template: prompt.MustBuiltin("action_plan"), Output: "actions"},
			{Name: "format_report", Title: "Final JSON", Template: prompt.MustBuiltin("format_report"), Output: "report", Schema: report},
		},
	}, nil
}
