package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FormatInstructions is the text appended to a prompt so the model emits
// one JSON object matching s, fields in declared order.
func (s *Schema) FormatInstructions() string {
	var b strings.Builder
	b.WriteString("Return ONLY one JSON object that conforms to the JSON schema below. ")
	b.WriteString("Do not add prose or explanations around it.\n")
	b.WriteString("Every field is required and must appear in the order shown. Do not add other fields.\n")
	b.WriteString("Enum fields take exactly one of the listed values. Integers are bare numbers without quotes or units.\n\n")
	b.WriteString("Schema:\n```json\n")
	b.WriteString(s.rendered)
	b.WriteString("\n```\n\nShape of a valid answer:\n```json\n")
	b.WriteString(indent(skeleton(s.fields)))
	b.WriteString("\n```")
	return b.String()
}

// Render marshals values as indented JSON with keys in declared order.
// Keys that are not part of the schema are dropped.
func (s *Schema) Render(values map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValues(&buf, s.fields, values); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeValues(buf *bytes.Buffer, fields []Field, values map[string]any) error {
	buf.WriteByte('{')
	first := true
	for _, f := range fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeString(buf, f.Name)
		buf.WriteByte(':')
		if nested, isMap := v.(map[string]any); isMap && f.Kind == KindObject {
			if err := writeValues(buf, f.Fields, nested); err != nil {
				return err
			}
			continue
		}
		raw, err := marshal(v)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return nil
}

// skeleton renders placeholder values, e.g. {"risk_level":"low | medium | high"}.
func skeleton(fields []Field) string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(&buf, f.Name)
		buf.WriteByte(':')
		switch f.Kind {
		case KindEnum:
			writeString(&buf, strings.Join(f.Values, " | "))
		case KindInteger:
			buf.WriteByte('0')
		case KindBoolean:
			buf.WriteString("false")
		case KindStringList:
			buf.WriteString(`["..."]`)
		case KindObject:
			buf.WriteString(skeleton(f.Fields))
		default:
			writeString(&buf, "...")
		}
	}
	buf.WriteByte('}')
	return buf.String()
}

func writeString(buf *bytes.Buffer, s string) {
	raw, _ := marshal(s)
	buf.Write(raw)
}

// marshal is json.Marshal without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func indent(compact string) string {
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(compact), "", "  "); err != nil {
		return compact
	}
	return out.String()
}
