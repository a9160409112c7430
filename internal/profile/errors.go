package profile

import (
	"errors"
	"fmt"
)

// ValidationError rejects an upload before anything is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RejectionError is a well-formed backend reply that reported failure.
type RejectionError struct {
	Op      string
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("profile: %s rejected", e.Op)
	}
	return fmt.Sprintf("profile: %s rejected: %s", e.Op, e.Message)
}

// StatusError is a non-success HTTP status from the backend.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("profile: backend error (%d): %s", e.Status, e.Body)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRejection reports whether err is a *RejectionError.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
