package schemas

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/gracebase/content-pipeline/internal/types"
)

// FieldError represents a single validation error at a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError represents a schema validation failure with field paths.
type ValidationError struct {
	ContentType types.ContentType
	Errors      []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("%s payload failed schema validation: %s", e.ContentType, strings.Join(msgs, "; "))
}

// ValidateContent checks a generated payload against the JSON Schema for its
// content type. A nil return means the payload is structurally sound.
func ValidateContent(contentType types.ContentType, fields types.ContentFields) error {
	schema, ok := contentSchemas[contentType]
	if !ok {
		return &types.ErrInvalidContentType{Value: string(contentType)}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(fields),
	)
	if err != nil {
		return fmt.Errorf("failed to run schema validation for %s: %w", contentType, err)
	}

	if result.Valid() {
		return nil
	}

	ve := &ValidationError{ContentType: contentType}
	for _, desc := range result.Errors() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return ve
}
