package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// FormatInstructionsVar is the placeholder filled with a schema's format instructions.
const FormatInstructionsVar = "format_instructions"

var library = map[string]Template{
	"summary": Must("summary", `Explain what {subject} is in 3 sentences, in simple language.`),

	"explain": Must("explain", `Explain the following topic in 3 bullet points: {topic}`),

	"analyst": Must("analyst", `You are a senior DevOps engineer.
Analyze the following issue and answer in JSON that follows the schema.

{format_instructions}

Issue: {input}`),

	"strict_json": Must("strict_json", `THE JSON FORMAT MUST BE VALID.
{format_instructions}

Issue: {input}`),

	"explain_json": Must("explain_json", `You are a technical AI assistant.
Explain the following topic in JSON that follows the schema.

{format_instructions}

Topic: {input}`),

	"repair": Must("repair", `Fix the following JSON so it is VALID according to the schema.

{format_instructions}

Problems found:
{issues}

Broken JSON:
{raw}

Return only the corrected JSON object.`),

	"context_qa": Must("context_qa", `Use the following context to answer the question.
Answer ONLY from the context. If the context does not contain the answer, say so.

Context:
{context}

Question:
{query}

Answer briefly and accurately.`),

	"context_qa_json": Must("context_qa_json", `Use the following context to answer the question.
Answer ONLY from the context.

Context:
{context}

Question:
{query}

Analyze the issue and answer in valid JSON that follows the schema.

{format_instructions}`),

	"classify": Must("classify", `Classify the following issue briefly.

Issue:
{issue}

Answer in exactly this format:
issue_type: ...
severity: low|medium|high|critical`),

	"root_cause": Must("root_cause", `Issue:
{issue}

Classification:
{classification}

Explain the technical root cause clearly in 3-5 sentences.`),

	"action_plan": Must("action_plan", `Root cause:
{root_cause}

Write an action plan to fix the problem.
Output 3-5 recommendations as a bullet list without numbering.`),

	"format_report": Must("format_report", `Turn all of the data below into valid JSON.
{format_instructions}

Classification:
{classification}

Root cause:
{root_cause}

Actions:
{actions}`),

	"toon_transform": Must("toon_transform", `You are an AI assistant that ONLY works with TOON data.

INPUT (TOON):
` + "```" + `toon
{input_toon}
` + "```" + `

TASK:
{task_description}

REQUIREMENTS:
- You MUST respond ONLY with a single TOON code block.
- The TOON MUST be syntactically valid and decodable.
- Do NOT output any natural language explanation outside the TOON block.

OUTPUT (TOON):`),
}

// Builtin returns a library template by name.
func Builtin(name string) (Template, error) {
	t, ok := library[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown template %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return t, nil
}

// MustBuiltin is Builtin for names compiled into the binary.
func MustBuiltin(name string) Template {
	t, err := Builtin(name)
	if err != nil {
		panic(err)
	}
	return t
}

// BuiltinNames lists library templates, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(library))
	for n := range library {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
