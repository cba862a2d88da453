// Package apperror defines the application's error taxonomy.
//
// Services return *AppError values wrapping one of the sentinel errors below.
// The HTTP layer matches them with errors.Is and picks a status code or
// re-renders a form; nothing below the handlers knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Messages shared by every form in the application.
const (
	MsgRequired      = "This field is required."
	MsgInvalidChoice = "Select a valid choice. That choice is not one of the available choices."
)

type AppError struct {
	Err     error       // sentinel
	Message string      // human-readable error message
	Field   string      // optional: single field causing the error
	Fields  FieldErrors // optional: every invalid field of a form submission
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// FieldErrors collects per-field validation messages, keyed by form field name.
// A nil FieldErrors is valid and empty.
type FieldErrors map[string][]string

// Add appends a message for field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// For returns the messages recorded for field. Safe to call from templates.
func (f FieldErrors) For(field string) []string {
	return f[field]
}

// Has reports whether field has at least one message.
func (f FieldErrors) Has(field string) bool {
	return len(f[field]) > 0
}

// Empty reports whether no field has a message.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Err returns nil when no errors were recorded, otherwise an *AppError
// wrapping ErrValidation.
func (f FieldErrors) Err() error {
	if f.Empty() {
		return nil
	}
	return Invalid(f)
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  FieldErrors{field: {message}},
	}
}

// Invalid wraps a whole set of field errors. The message lists the invalid
// fields in a stable order so log lines are comparable.
func Invalid(fields FieldErrors) *AppError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	return &AppError{
		Err:     ErrValidation,
		Message: "invalid fields: " + strings.Join(names, ", "),
		Fields:  fields,
	}
}

// Conflict reports a uniqueness violation. field names the column that
// clashed (for example "username"), value is the offending value.
func Conflict(resource, field, value string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned for failed credential checks. The message is
// deliberately generic and identical for unknown users and wrong passwords.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// FieldsOf extracts the field errors carried by err, if any.
func FieldsOf(err error) FieldErrors {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
