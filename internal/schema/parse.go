package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrSchemaViolation marks any reply that does not decode into the schema.
var ErrSchemaViolation = errors.New("schema violation")

// ViolationError describes why a reply was rejected.
type ViolationError struct {
	Schema string
	Issues []string
	Raw    string // the reply as received
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrSchemaViolation, e.Schema, strings.Join(e.Issues, "; "))
}

func (e *ViolationError) Is(target error) bool {
	return target == ErrSchemaViolation
}

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*\\})\\s*```")

// ExtractPayload pulls the JSON object out of a model reply: a fenced
// ```json block if present, otherwise the first '{' that starts a complete
// JSON object. When no '{' does, the span from the first '{' to the last
// '}' is returned so the decode error describes it.
func ExtractPayload(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", errors.New("empty response")
	}
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		return m[1], nil
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object found in response")
	}
	for i := start; i >= 0 && i < end; {
		var obj json.RawMessage
		if err := json.NewDecoder(strings.NewReader(trimmed[i:])).Decode(&obj); err == nil {
			return string(obj), nil
		}
		next := strings.Index(trimmed[i+1:], "{")
		if next < 0 {
			break
		}
		i += next + 1
	}
	return trimmed[start : end+1], nil
}

// Output is a reply that passed validation.
type Output struct {
	schema *Schema
	Fields map[string]any
	Raw    string
}

// Parse extracts, decodes and validates a model reply. Validation is
// all-or-nothing: any failure returns a *ViolationError.
func (s *Schema) Parse(text string) (*Output, error) {
	violation := func(issues ...string) error {
		return &ViolationError{Schema: s.name, Issues: issues, Raw: text}
	}

	payload, err := ExtractPayload(text)
	if err != nil {
		return nil, violation(err.Error())
	}

	var decoded any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, violation("invalid JSON: " + err.Error())
	}
	fields, ok := decoded.(map[string]any)
	if !ok {
		return nil, violation("top-level value is not a JSON object")
	}

	if err := s.resolved.Validate(fields); err != nil {
		return nil, violation(splitIssues(err)...)
	}
	if issues := integerRange(s.fields, fields, ""); len(issues) > 0 {
		return nil, violation(issues...)
	}
	return &Output{schema: s, Fields: fields, Raw: text}, nil
}

// MaxInteger bounds integer fields so they survive float64 decoding and
// convert to int64 exactly.
const MaxInteger = 1<<53 - 1

// integerRange reports integer fields outside ±MaxInteger. values has
// already passed validation.
func integerRange(fields []Field, values map[string]any, prefix string) []string {
	var issues []string
	for _, f := range fields {
		switch f.Kind {
		case KindInteger:
			if n, ok := values[f.Name].(float64); ok && math.Abs(n) > MaxInteger {
				issues = append(issues, fmt.Sprintf("%s%s: integer %s is out of range, want at most %d in magnitude",
					prefix, f.Name, strconv.FormatFloat(n, 'g', -1, 64), MaxInteger))
			}
		case KindObject:
			if nested, ok := values[f.Name].(map[string]any); ok {
				issues = append(issues, integerRange(f.Fields, nested, prefix+f.Name+".")...)
			}
		}
	}
	return issues
}

var nullIssuePattern = regexp.MustCompile(`type: <invalid reflect\.Value> has type "null", want "([^"]*)"`)

func splitIssues(err error) []string {
	var issues []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			issues = append(issues, nullIssuePattern.ReplaceAllString(line, "field is null, want $1"))
		}
	}
	if len(issues) == 0 {
		issues = []string{"validation failed"}
	}
	return issues
}

// Schema returns the schema the output was validated against.
func (o *Output) Schema() *Schema { return o.schema }

// String returns a top-level string or enum field, or "".
func (o *Output) String(name string) string {
	s, _ := o.Fields[name].(string)
	return s
}

// Decode copies the validated fields into v, typically a struct with json tags.
func (o *Output) Decode(v any) error {
	raw, err := json.Marshal(o.Fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// JSON renders the fields indented, in declared order.
func (o *Output) JSON() ([]byte, error) {
	return o.schema.Render(o.Fields)
}
