package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileSpec is the YAML form of a user template:
//
//	name: triage
//	input_variables: [input]
//	template: |
//	  ...
//
// input_variables is optional; when present it must match the placeholders.
type FileSpec struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description,omitempty"`
	InputVariables []string `yaml:"input_variables,omitempty"`
	Template       string   `yaml:"template"`
}

// Loader reads template files relative to a prompts directory.
type Loader struct {
	Dir string
}

// Load resolves ref against the loader directory (absolute paths and paths
// that exist as given are used directly) and parses it.
func (l Loader) Load(ref string) (Template, error) {
	fullPath := l.resolvePath(ref)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return Template{}, fmt.Errorf("read template file %s: %w", fullPath, err)
	}

	var spec FileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Template{}, fmt.Errorf("parse template file %s: %w", fullPath, err)
	}
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(filepath.Base(fullPath), filepath.Ext(fullPath))
	}
	t, err := spec.Compile()
	if err != nil {
		return Template{}, fmt.Errorf("invalid template file %s: %w", fullPath, err)
	}
	return t, nil
}

// Compile validates the spec and builds the Template.
func (s FileSpec) Compile() (Template, error) {
	if strings.TrimSpace(s.Template) == "" {
		return Template{}, fmt.Errorf("template is required")
	}
	t, err := New(s.Name, s.Template)
	if err != nil {
		return Template{}, err
	}
	if len(s.InputVariables) == 0 {
		return t, nil
	}

	declared := slices.Clone(s.InputVariables)
	slices.Sort(declared)
	declared = slices.Compact(declared)
	found := t.InputVariables()
	for _, v := range declared {
		if !slices.Contains(found, v) {
			return Template{}, fmt.Errorf("input variable %s is declared but not used", v)
		}
	}
	for _, v := range found {
		if !slices.Contains(declared, v) {
			return Template{}, fmt.Errorf("placeholder {%s} is not declared in input_variables", v)
		}
	}
	return t, nil
}

func (l Loader) resolvePath(p string) string {
	if filepath.IsAbs(p) || l.Dir == "" {
		return p
	}
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return filepath.Join(l.Dir, p)
}
