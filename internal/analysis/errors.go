package analysis

import (
	"errors"
	"sort"
	"strings"
)

// Failure kinds surfaced by the invoker. Callers match them with errors.Is.
var (
	ErrBackendUnavailable = errors.New("analysis backend unavailable")
	ErrSchemaViolation    = errors.New("analysis response does not match the output schema")
	ErrUpstream           = errors.New("analysis backend reported an error")
	ErrUnknownKind        = errors.New("unknown analysis kind")
)

// FieldError is a single field-level violation shown inline next to the field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors holds one message per violated input field.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the violations keyed by field name, the shape the forms render.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		out[fe.Field] = fe.Message
	}
	return out
}

// Names lists the violated fields in sorted order.
func (v ValidationErrors) Names() []string {
	names := make([]string, 0, len(v))
	for _, fe := range v {
		names = append(names, fe.Field)
	}
	sort.Strings(names)
	return names
}
