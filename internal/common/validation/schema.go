// internal/common/validation/schema.go

// Package validation checks external API payloads against JSON schemas
// before they reach the pipeline.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks a decoded document against a JSON schema given as a Go map.
func Validate(document, schema map[string]interface{}) (*ValidationResult, error) {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return out, nil
}

// ErrorSummary flattens the validation errors into one message.
func (r *ValidationResult) ErrorSummary() string {
	if r.Valid {
		return ""
	}
	summary := ""
	for i, e := range r.Errors {
		if i > 0 {
			summary += "; "
		}
		summary += fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return summary
}
