// Package prompt holds immutable prompt templates with named placeholders.
package prompt

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// Template is an f-string style template: {name} is a placeholder, {{ and }}
// are literal braces. Values are immutable once constructed; WithPartial
// returns a new Template.
type Template struct {
	name string
	pt   prompts.PromptTemplate
}

// New parses text and collects its placeholders as input variables.
func New(name, text string) (Template, error) {
	vars, err := Placeholders(text)
	if err != nil {
		return Template{}, fmt.Errorf("template %s: %w", name, err)
	}
	return Template{
		name: name,
		pt: prompts.PromptTemplate{
			Template:         text,
			InputVariables:   vars,
			TemplateFormat:   prompts.TemplateFormatFString,
			PartialVariables: map[string]any{},
		},
	}, nil
}

// Must is New for templates known at compile time.
func Must(name, text string) Template {
	t, err := New(name, text)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Template) Name() string { return t.name }
func (t Template) Text() string { return t.pt.Template }

// InputVariables lists the placeholders still to be supplied, sorted.
func (t Template) InputVariables() []string {
	return slices.Clone(t.pt.InputVariables)
}

// Has reports whether the template still expects name.
func (t Template) Has(name string) bool {
	return slices.Contains(t.pt.InputVariables, name)
}

// WithPartial binds name to a precomputed value, e.g. format instructions.
func (t Template) WithPartial(name string, value any) Template {
	partials := maps.Clone(t.pt.PartialVariables)
	if partials == nil {
		partials = map[string]any{}
	}
	partials[name] = value

	next := t
	next.pt.PartialVariables = partials
	next.pt.InputVariables = slices.DeleteFunc(slices.Clone(t.pt.InputVariables), func(v string) bool {
		return v == name
	})
	return next
}

// Format substitutes values. Every remaining input variable must be present.
func (t Template) Format(values map[string]any) (string, error) {
	var missing []string
	for _, v := range t.pt.InputVariables {
		if _, ok := values[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("template %s: missing values for %s", t.name, strings.Join(missing, ", "))
	}

	out, err := t.pt.Format(values)
	if err != nil {
		return "", fmt.Errorf("template %s: %w", t.name, err)
	}
	return out, nil
}

// Placeholders returns the sorted, de-duplicated placeholder names in text.
func Placeholders(text string) ([]string, error) {
	seen := map[string]bool{}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				i++
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed '{' at offset %d", i)
			}
			name := text[i+1 : i+1+end]
			if !validName(name) {
				return nil, fmt.Errorf("invalid placeholder %q at offset %d", name, i)
			}
			seen[name] = true
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				i++
				continue
			}
			return nil, fmt.Errorf("single '}' at offset %d", i)
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
