// Package validation checks JSON request bodies and the ingestion sources
// file against embedded JSON Schemas and reports per-field failures.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names.
const (
	Search  = "search"
	Answer  = "answer"
	Related = "related"
	Sources = "sources"
)

const schemaBase = "https://eidrag.local/schemas/"

// messages are the caller-facing texts per top-level field.
var messages = map[string]string{
	"query":           "Query must be between 3 and 500 characters",
	"topic":           "Topic must be between 2 and 200 characters",
	"urls":            "Provide between 1 and 10 URLs, each between 8 and 2048 characters",
	"seed_urls":       "seed_urls must be a list of non-empty strings",
	"allowed_domains": "allowed_domains must be a list of non-empty strings",
}

// FieldError is a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned when a document does not satisfy its schema.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator holds the compiled schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles every embedded schema.
func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	names := []string{Search, Answer, Related, Sources}
	for _, name := range names {
		data, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", name, err)
		}
		if err := compiler.AddResource(schemaBase+name+".json", doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		sch, err := compiler.Compile(schemaBase + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = sch
	}
	return v, nil
}

// Validate checks data against the named schema. String values are trimmed
// before checking. Malformed JSON is reported as a failure of field "$".
func (v *Validator) Validate(name string, data []byte) error {
	sch, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &Error{Fields: []FieldError{{Field: "$", Message: "body must be valid JSON"}}}
	}
	if err := sch.Validate(trim(doc)); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &Error{Fields: collect(verr)}
		}
		return &Error{Fields: []FieldError{{Field: "$", Message: err.Error()}}}
	}
	return nil
}

// Decode validates data and then unmarshals it into out. Callers trim the
// decoded strings themselves.
func (v *Validator) Decode(name string, data []byte, out any) error {
	if err := v.Validate(name, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Fields: []FieldError{{Field: "$", Message: "body must be valid JSON"}}}
	}
	return nil
}

func trim(v any) any {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for k, val := range t {
			t[k] = trim(val)
		}
	case []any:
		for i, val := range t {
			t[i] = trim(val)
		}
	}
	return v
}

// collect flattens the leaves of a validation error tree into field errors,
// one per top-level field.
func collect(verr *jsonschema.ValidationError) []FieldError {
	var out []FieldError
	seen := map[string]bool{}
	add := func(field string) {
		if seen[field] {
			return
		}
		seen[field] = true
		msg, ok := messages[field]
		if !ok {
			msg = "invalid value"
		}
		out = append(out, FieldError{Field: field, Message: msg})
	}
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		if req, ok := e.ErrorKind.(*kind.Required); ok {
			for _, m := range req.Missing {
				add(m)
			}
			return
		}
		if len(e.InstanceLocation) == 0 {
			add("$")
			return
		}
		add(e.InstanceLocation[0])
	}
	walk(verr)
	return out
}
