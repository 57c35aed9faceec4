// Package toon prepares data for the TOON exchange with the model: JSON input
// is read into ordered toon-go objects and fenced model answers are unwrapped.
// Encoding and decoding themselves are done by toon-go.
package toon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	toongo "github.com/toon-format/toon-go"
)

// FromJSON decodes JSON into toon-go Objects, []any and primitives. Object
// keys keep their written order and numbers stay json.Number, so the encoded
// table columns follow the input.
func FromJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := readJSON(dec)
	if err != nil {
		return nil, fmt.Errorf("toon: decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("toon: decode json: trailing data after value")
	}
	return v, nil
}

func readJSON(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := toongo.NewObject()
		seen := make(map[string]bool)
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key := kt.(string)
			if seen[key] {
				return nil, fmt.Errorf("duplicate key %q", key)
			}
			seen[key] = true
			val, err := readJSON(dec)
			if err != nil {
				return nil, err
			}
			obj.Fields = append(obj.Fields, toongo.Field{Key: key, Value: val})
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := readJSON(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected %v", delim)
}
