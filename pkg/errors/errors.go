package errors

import (
	"errors"
	"fmt"
)

// Error categories surfaced by the admissions workflow. Every failure the
// workflow can observe unwraps to exactly one of these.

var (
	// ErrValidation indicates a local, field-scoped problem fixed by editing the form
	ErrValidation = errors.New("validation failed")

	// ErrRemoteRejection indicates the admissions API refused the request
	ErrRemoteRejection = errors.New("rejected by admissions service")

	// ErrTransient indicates the admissions API could not be reached or failed internally
	ErrTransient = errors.New("admissions service unavailable")

	// ErrUpload indicates a missing or unacceptable receipt file
	ErrUpload = errors.New("upload failed")

	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("not found")
)

// Kind names a concrete remote failure.
type Kind string

const (
	KindDuplicateEmail     Kind = "DuplicateEmail"
	KindValidationRejected Kind = "ValidationRejected"
	KindServiceUnavailable Kind = "ServiceUnavailable"
	KindUploadRejected     Kind = "UploadRejected"
	KindIncorrectCode      Kind = "IncorrectCode"
	KindExpired            Kind = "Expired"
	KindRateLimited        Kind = "RateLimited"
	KindNotFound           Kind = "NotFound"
)

// RemoteError is a typed failure returned by the admissions API client
type RemoteError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap exposes both the category sentinel and the underlying cause
func (e *RemoteError) Unwrap() []error {
	errs := []error{e.category()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *RemoteError) category() error {
	switch e.Kind {
	case KindServiceUnavailable, KindRateLimited:
		return ErrTransient
	case KindUploadRejected:
		return ErrUpload
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrRemoteRejection
	}
}

// NewRemoteError creates a remote error of the given kind
func NewRemoteError(kind Kind, status int, message string) *RemoteError {
	return &RemoteError{Kind: kind, Status: status, Message: message}
}

// Unavailable wraps a transport failure as ServiceUnavailable
func Unavailable(err error) *RemoteError {
	return &RemoteError{Kind: KindServiceUnavailable, Err: err}
}

// KindOf returns the remote kind of err, or "" when err is not a RemoteError
func KindOf(err error) Kind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// MessageOf returns the server supplied message of a RemoteError, if any
func MessageOf(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Message
	}
	return ""
}

// IsTransient reports whether err may succeed when retried unchanged
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// UploadError creates an upload error with context
func UploadError(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrUpload)
}

// ValidationError creates a validation error for a single field
func ValidationError(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrValidation)
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As re-exported so callers need a single errors import
func As(err error, target any) bool {
	return errors.As(err, target)
}
