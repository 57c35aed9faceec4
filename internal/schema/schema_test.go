package schema

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const validTroubleshoot = `{
  "issue": "Pod CrashLoopBackOff",
  "root_cause": "Image tag does not exist",
  "possible_fixes": ["fix the tag", "redeploy"],
  "risk_level": "high",
  "estimated_fix_time_minutes": 15
}`

func mustBuiltin(t *testing.T, name string) *Schema {
	t.Helper()
	s, err := Builtin(name)
	require.NoError(t, err)
	return s
}

func TestBuiltinSchemasLoad(t *testing.T) {
	names := BuiltinNames()
	assert.Equal(t, []string{
		"devops_report",
		"devops_troubleshoot",
		"explanation",
		"final_devops_report",
		"hpa_diagnosis",
	}, names)
	for _, name := range names {
		s, err := Builtin(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name())
		assert.NotEmpty(t, s.Fields())
	}

	_, err := Builtin("nope")
	require.Error(t, err)
}

func TestParseValidReply(t *testing.T) {
	s := mustBuiltin(t, "devops_troubleshoot")

	out, err := s.Parse(validTroubleshoot)
	require.NoError(t, err)
	assert.Equal(t, "high", out.String("risk_level"))
	assert.Equal(t, float64(15), out.Fields["estimated_fix_time_minutes"])
	assert.Equal(t, validTroubleshoot, out.Raw)

	var decoded struct {
		Issue   string   `json:"issue"`
		Fixes   []string `json:"possible_fixes"`
		Minutes int      `json:"estimated_fix_time_minutes"`
	}
	require.NoError(t, out.Decode(&decoded))
	assert.Equal(t, "Pod CrashLoopBackOff", decoded.Issue)
	assert.Equal(t, []string{"fix the tag", "redeploy"}, decoded.Fixes)
	assert.Equal(t, 15, decoded.Minutes)
}

func TestParseExtractsFromProseAndFences(t *testing.T) {
	s := mustBuiltin(t, "devops_troubleshoot")

	replies := []string{
		"Here is the analysis:\n```json\n" + validTroubleshoot + "\n```\nHope it helps.",
		"Sure! " + validTroubleshoot + " Let me know.",
		"```\n" + validTroubleshoot + "\n```",
	}
	for _, reply := range replies {
		out, err := s.Parse(reply)
		require.NoError(t, err, reply)
		assert.Equal(t, "Image tag does not exist", out.String("root_cause"))
	}
}

func TestParseViolations(t *testing.T) {
	s := mustBuiltin(t, "devops_troubleshoot")

	cases := map[string]string{
		"empty":            "",
		"whitespace":       "  \n\t ",
		"no object":        "I cannot help with that.",
		"broken json":      `{"issue": "x", "root_cause": }`,
		"top level array":  `[{"issue": "x"}]`,
		"enum outside set": strings.Replace(validTroubleshoot, `"high"`, `"critical"`, 1),
		"missing field":    strings.Replace(validTroubleshoot, `"issue": "Pod CrashLoopBackOff",`, "", 1),
		"extra field":      strings.Replace(validTroubleshoot, `"issue":`, `"owner": "sre", "issue":`, 1),
		"integer as text":  strings.Replace(validTroubleshoot, `15`, `"15"`, 1),
		"fractional int":   strings.Replace(validTroubleshoot, `15`, `15.5`, 1),
		"list of numbers":  strings.Replace(validTroubleshoot, `["fix the tag", "redeploy"]`, `[1, 2]`, 1),
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := s.Parse(reply)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, ErrSchemaViolation))

			var v *ViolationError
			require.True(t, errors.As(err, &v))
			assert.Equal(t, reply, v.Raw)
			assert.NotEmpty(t, v.Issues)
		})
	}
}

func TestParseSkipsBracesInProse(t *testing.T) {
	s := mustBuiltin(t, "devops_troubleshoot")

	for _, reply := range []string{
		"Sure {note}: " + validTroubleshoot,
		"Using {placeholders} and {more}: " + validTroubleshoot + " (see {docs})",
	} {
		out, err := s.Parse(reply)
		require.NoError(t, err, reply)
		assert.Equal(t, "high", out.String("risk_level"))
		assert.Equal(t, reply, out.Raw)
	}

	payload, err := ExtractPayload(`a {b} c {"x": {"y": 1}} d }`)
	require.NoError(t, err)
	assert.Equal(t, `{"x": {"y": 1}}`, payload)
}

func TestParseNullFieldIssue(t *testing.T) {
	s := mustBuiltin(t, "devops_troubleshoot")

	_, err := s.Parse(strings.Replace(validTroubleshoot, `"high"`, `null`, 1))
	var v *ViolationError
	require.True(t, errors.As(err, &v))
	require.Len(t, v.Issues, 1)
	assert.Contains(t, v.Issues[0], "field is null, want string")
	assert.NotContains(t, v.Issues[0], "invalid reflect")
}

func TestParseIntegerRange(t *testing.T) {
	s := mustBuiltin(t, "devops_troubleshoot")

	for _, n := range []string{"1e20", "-1e20", "9007199254740993"} {
		_, err := s.Parse(strings.Replace(validTroubleshoot, `15`, n, 1))
		var v *ViolationError
		require.True(t, errors.As(err, &v), n)
		require.Len(t, v.Issues, 1)
		assert.Contains(t, v.Issues[0], "estimated_fix_time_minutes: integer")
		assert.Contains(t, v.Issues[0], "out of range")
	}

	out, err := s.Parse(strings.Replace(validTroubleshoot, `15`, `9007199254740991`, 1))
	require.NoError(t, err)
	assert.Equal(t, float64(MaxInteger), out.Fields["estimated_fix_time_minutes"])

	nested := MustNew("wrap", "", Field{Name: "inner", Kind: KindObject, Fields: []Field{{Name: "n", Kind: KindInteger}}})
	_, err = nested.Parse(`{"inner": {"n": 1e300}}`)
	var v *ViolationError
	require.True(t, errors.As(err, &v))
	assert.Contains(t, v.Issues[0], "inner.n: integer 1e+300 is out of range")
}

func TestParseNestedObject(t *testing.T) {
	s := mustBuiltin(t, "devops_report")
	reply := `{
		"issue": "pod killed",
		"root_cause": "memory leak",
		"impact": "restarts",
		"risk_level": "medium",
		"analysis": {"cpu": "normal", "memory": "growing", "suspicion_level": "high"},
		"suggestions": ["profile heap"],
		"estimated_fix_time_minutes": 60
	}`
	out, err := s.Parse(reply)
	require.NoError(t, err)

	analysis, ok := out.Fields["analysis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "growing", analysis["memory"])

	bad := strings.Replace(reply, `"suspicion_level": "high"`, `"suspicion_level": "extreme"`, 1)
	_, err = s.Parse(bad)
	assert.ErrorIs(t, err, ErrSchemaViolation)

	extra := strings.Replace(reply, `"cpu": "normal",`, `"cpu": "normal", "disk": "ok",`, 1)
	_, err = s.Parse(extra)
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestParseBoolean(t *testing.T) {
	s := mustBuiltin(t, "hpa_diagnosis")
	reply := `{"primary_cause":"metrics-server missing","contributing_factors":[],"hpa_misconfig":false,"suggested_metrics":["cpu"]}`
	out, err := s.Parse(reply)
	require.NoError(t, err)
	assert.Equal(t, false, out.Fields["hpa_misconfig"])

	_, err = s.Parse(strings.Replace(reply, "false", `"no"`, 1))
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestOutputJSONKeepsDeclaredOrder(t *testing.T) {
	s := mustBuiltin(t, "final_devops_report")
	reply := `{"estimated_fix_time_minutes": 30, "recommended_actions": ["a <b> & c"], "root_cause": "rc", "severity": "critical", "issue_type": "scaling"}`
	out, err := s.Parse(reply)
	require.NoError(t, err)

	raw, err := out.JSON()
	require.NoError(t, err)
	text := string(raw)
	order := []string{`"issue_type"`, `"severity"`, `"root_cause"`, `"recommended_actions"`, `"estimated_fix_time_minutes"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(text, key)
		require.Greater(t, idx, last, "key %s out of order in %s", key, text)
		last = idx
	}
	assert.Contains(t, text, "a <b> & c")
}

func TestFormatInstructions(t *testing.T) {
	s := mustBuiltin(t, "devops_troubleshoot")
	text := s.FormatInstructions()

	assert.Contains(t, text, "Return ONLY one JSON object")
	assert.Contains(t, text, `"low"`)
	assert.Contains(t, text, `"additionalProperties": false`)
	assert.Contains(t, text, `"risk_level": "low | medium | high"`)

	assert.Contains(t, text, `"title": "devops_troubleshoot"`)
	assert.NotContains(t, text, `"not"`)

	// properties are rendered in declared order
	order := []string{`"root_cause": {`, `"possible_fixes": {`, `"risk_level": {`, `"estimated_fix_time_minutes": {`}
	last := -1
	for _, key := range order {
		idx := strings.Index(text, key)
		require.Greater(t, idx, last, key)
		last = idx
	}
}

func TestNewRejectsBadDefinitions(t *testing.T) {
	cases := map[string][]Field{
		"no fields":       nil,
		"empty enum":      {{Name: "level", Kind: KindEnum}},
		"duplicate field": {{Name: "a", Kind: KindString}, {Name: "a", Kind: KindInteger}},
		"unknown kind":    {{Name: "a", Kind: "decimal"}},
		"bad name":        {{Name: "has space", Kind: KindString}},
		"empty object":    {{Name: "nested", Kind: KindObject}},
		"values on text":  {{Name: "a", Kind: KindString, Values: []string{"x"}}},
		"duplicate value": {{Name: "a", Kind: KindEnum, Values: []string{"x", "x"}}},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New("test", "", fields...)
			require.Error(t, err)
		})
	}

	_, err := New("", "", Field{Name: "a", Kind: KindString})
	require.Error(t, err)
}

func TestParseYAMLDefinition(t *testing.T) {
	s, err := Parse([]byte(`
name: ticket
fields:
  - name: title
    type: string
  - name: priority
    type: enum
    values: [p1, p2]
`))
	require.NoError(t, err)
	_, err = s.Parse(`{"title": "t", "priority": "p1"}`)
	require.NoError(t, err)
	_, err = s.Parse(`{"title": "t", "priority": "p3"}`)
	require.ErrorIs(t, err, ErrSchemaViolation)
}

func TestParseRecoversObjectFromProse(t *testing.T) {
	s := MustNew("note", "", Field{Name: "text", Kind: KindString}, Field{Name: "count", Kind: KindInteger})

	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 .,:;!?-]{0,40}`).Draw(rt, "text")
		count := rapid.IntRange(-1000, 1000).Draw(rt, "count")
		before := rapid.StringMatching(`[a-zA-Z .,\n]{0,30}`).Draw(rt, "before")
		after := rapid.StringMatching(`[a-zA-Z .,\n]{0,30}`).Draw(rt, "after")

		payload := `{"text": "` + text + `", "count": ` + strconv.Itoa(count) + `}`
		out, err := s.Parse(before + payload + after)
		if err != nil {
			rt.Fatalf("parse failed: %v", err)
		}
		if out.String("text") != text {
			rt.Fatalf("text = %q, want %q", out.String("text"), text)
		}
		if out.Fields["count"] != float64(count) {
			rt.Fatalf("count = %v, want %d", out.Fields["count"], count)
		}
	})
}
