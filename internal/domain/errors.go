package domain

import "errors"

// Sentinel errors for the platform's error taxonomy. Services wrap these with
// fmt.Errorf("%w: ...") so handlers can branch with errors.Is while keeping
// the contextual message.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrCaptchaMismatch is returned when a captcha answer does not match the
	// fingerprint issued alongside the captcha image.
	ErrCaptchaMismatch = errors.New("captcha mismatch")

	// ErrPendingValidation is returned when an anonymous support request
	// arrives while a validation email for the same address is still live.
	ErrPendingValidation = errors.New("validation already pending")

	// ErrDocumentClosed is returned for writes against a document whose
	// closing date has passed.
	ErrDocumentClosed = errors.New("document closed")
)

// FieldError describes a single schema violation inside a content payload.
type FieldError struct {
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

// SchemaError is a validation error that carries field-level detail from the
// custom-form validator. It matches ErrValidation under errors.Is.
type SchemaError struct {
	Fields []FieldError
}

func (e *SchemaError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid content"
	}
	return "invalid content: " + e.Fields[0].Field + " " + e.Fields[0].Detail
}

// Is allows errors.Is(err, domain.ErrValidation) to match schema errors.
func (e *SchemaError) Is(target error) bool {
	return target == ErrValidation
}
