// Package validation checks JSON documents (job variables, request bodies)
// against the JSON schemas published in the activity registry.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema is a decoded JSON schema document.
type JSONSchema map[string]interface{}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary joins all errors into one line, e.g. "replies.0.question_id: Invalid type".
func (r *ValidationResult) Summary() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

// ValidateJSON validates a raw JSON document.
func ValidateJSON(schema JSONSchema, document []byte) (*ValidationResult, error) {
	return validate(schema, gojsonschema.NewBytesLoader(document))
}

// ValidateDocument validates an already decoded Go value.
func ValidateDocument(schema JSONSchema, document interface{}) (*ValidationResult, error) {
	return validate(schema, gojsonschema.NewGoLoader(document))
}

func validate(schema JSONSchema, document gojsonschema.JSONLoader) (*ValidationResult, error) {
	if len(schema) == 0 {
		return &ValidationResult{Valid: true}, nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(map[string]interface{}(schema)), document)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}
