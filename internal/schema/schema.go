// Package schema describes the JSON object a model is asked to produce,
// renders that description into prompt instructions and validates replies.
package schema

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

// Kind is the type of a single field.
type Kind string

const (
	KindString     Kind = "string"
	KindEnum       Kind = "enum"
	KindInteger    Kind = "integer"
	KindBoolean    Kind = "boolean"
	KindStringList Kind = "string_list"
	KindObject     Kind = "object"
)

// Field is one required member of the output object.
type Field struct {
	Name        string   `yaml:"name"`
	Kind        Kind     `yaml:"type"`
	Description string   `yaml:"description,omitempty"`
	Values      []string `yaml:"values,omitempty"` // enum only
	Fields      []Field  `yaml:"fields,omitempty"` // object only
}

// Schema is an ordered set of required fields. It is immutable after New.
type Schema struct {
	name        string
	description string
	fields      []Field
	resolved    *jsonschema.Resolved
	rendered    string
}

// definition is the YAML form of a Schema.
type definition struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Fields      []Field `yaml:"fields"`
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// New checks the field definitions and compiles the validator.
func New(name, description string, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("schema name is required")
	}
	if err := checkFields(fields, name); err != nil {
		return nil, err
	}

	s := &Schema{
		name:        name,
		description: description,
		fields:      cloneFields(fields),
	}
	rs, err := s.JSONSchema().Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	s.resolved = rs

	raw, err := json.MarshalIndent(s.JSONSchema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render schema %s: %w", name, err)
	}
	s.rendered = string(raw)
	return s, nil
}

// MustNew is New for package-level definitions; it panics on error.
func MustNew(name, description string, fields ...Field) *Schema {
	s, err := New(name, description, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Parse reads a schema definition from YAML.
func Parse(data []byte) (*Schema, error) {
	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse schema yaml: %w", err)
	}
	return New(def.Name, def.Description, def.Fields...)
}

func checkFields(fields []Field, path string) error {
	if len(fields) == 0 {
		return fmt.Errorf("%s: at least one field is required", path)
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		where := path + "." + f.Name
		if !fieldNamePattern.MatchString(f.Name) {
			return fmt.Errorf("%s: invalid field name %q", path, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%s: duplicate field", where)
		}
		seen[f.Name] = true

		switch f.Kind {
		case KindString, KindInteger, KindBoolean, KindStringList:
			if len(f.Values) > 0 || len(f.Fields) > 0 {
				return fmt.Errorf("%s: %s fields take no values or nested fields", where, f.Kind)
			}
		case KindEnum:
			if len(f.Values) == 0 {
				return fmt.Errorf("%s: enum needs at least one value", where)
			}
			dup := make(map[string]bool, len(f.Values))
			for _, v := range f.Values {
				if dup[v] {
					return fmt.Errorf("%s: duplicate enum value %q", where, v)
				}
				dup[v] = true
			}
		case KindObject:
			if err := checkFields(f.Fields, where); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: unknown type %q", where, f.Kind)
		}
	}
	return nil
}

func cloneFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f
		out[i].Values = append([]string(nil), f.Values...)
		if f.Fields != nil {
			out[i].Fields = cloneFields(f.Fields)
		}
	}
	return out
}

func (s *Schema) Name() string        { return s.name }
func (s *Schema) Description() string { return s.description }

// Fields returns a copy of the top-level fields in declared order.
func (s *Schema) Fields() []Field { return cloneFields(s.fields) }

// JSONSchema returns the JSON Schema equivalent: every field required,
// no additional properties.
func (s *Schema) JSONSchema() *jsonschema.Schema {
	root := objectSchema(s.fields)
	root.Title = s.name
	root.Description = s.description
	return root
}

func objectSchema(fields []Field) *jsonschema.Schema {
	js := &jsonschema.Schema{
		Type:                 "object",
		Properties:           make(map[string]*jsonschema.Schema, len(fields)),
		Required:             make([]string, 0, len(fields)),
		AdditionalProperties: falseSchema(),
	}
	for _, f := range fields {
		js.Properties[f.Name] = fieldSchema(f)
		js.Required = append(js.Required, f.Name)
	}
	// Required doubles as the property order when marshalled.
	js.PropertyOrder = js.Required
	return js
}

func fieldSchema(f Field) *jsonschema.Schema {
	var js *jsonschema.Schema
	switch f.Kind {
	case KindEnum:
		enum := make([]any, len(f.Values))
		for i, v := range f.Values {
			enum[i] = v
		}
		js = &jsonschema.Schema{Type: "string", Enum: enum}
	case KindInteger:
		js = &jsonschema.Schema{Type: "integer"}
	case KindBoolean:
		js = &jsonschema.Schema{Type: "boolean"}
	case KindStringList:
		js = &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
	case KindObject:
		js = objectSchema(f.Fields)
	default:
		js = &jsonschema.Schema{Type: "string"}
	}
	js.Description = f.Description
	return js
}

// falseSchema matches nothing.
func falseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}
