// Package apperr holds the error taxonomy shared by services and handlers.
// Handlers classify with errors.As / errors.Is and choose the status code.
package apperr

import (
	"errors"
	"fmt"
)

// ErrInvalidSignIn is answered with 400, not 401, so the client cannot tell
// which credential failed.
var ErrInvalidSignIn = errors.New("invalid email or password")

// Fields maps a request field to its validation message.
type Fields map[string]string

// Add records msg for field unless the field already has a message.
func (f Fields) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// ItemError describes one rejected child of a batch (an option item).
type ItemError struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Errors Fields `json:"errors"`
}

type ValidationError struct {
	Message string
	Fields  Fields
	Items   []ItemError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 && len(e.Items) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (%d field errors, %d item errors)", e.Message, len(e.Fields), len(e.Items))
}

// Details is the validationErrors object of the error body.
func (e *ValidationError) Details() map[string]interface{} {
	if len(e.Fields) == 0 && len(e.Items) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(e.Fields)+1)
	for k, v := range e.Fields {
		out[k] = v
	}
	if len(e.Items) > 0 {
		out["items"] = e.Items
	}
	return out
}

func Validation(msg string, fields Fields) *ValidationError {
	return &ValidationError{Message: msg, Fields: fields}
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
