package lending

import (
	"errors"
	"fmt"

	"github.com/lescriminels/guild/attachment"
)

type Code string

const (
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeValidation Code = "VALIDATION"
	CodeForbidden  Code = "FORBIDDEN"
	CodeStorage    Code = "STORAGE"
)

// Error is the result of an operation that could not be carried out.
// NOT_FOUND, CONFLICT, VALIDATION and FORBIDDEN are expected outcomes;
// STORAGE means the store or attachment backend failed.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func notFoundf(format string, args ...any) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func forbiddenf(format string, args ...any) error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

func storageErr(msg string, err error) error {
	return &Error{Code: CodeStorage, Message: msg, Err: err}
}

// CodeOf classifies err. Errors that are not an *Error count as STORAGE.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStorage
}

func IsCode(err error, code Code) bool { return err != nil && CodeOf(err) == code }

// classify passes domain errors through and wraps everything else as a
// storage failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return storageErr("record store unavailable", err)
}

// attachmentErr maps a rejected upload to VALIDATION and a failed write to
// STORAGE.
func attachmentErr(err error) error {
	for _, target := range []error{
		attachment.ErrEmpty,
		attachment.ErrTooLarge,
		attachment.ErrUnsupportedMedia,
		attachment.ErrInvalidRef,
	} {
		if errors.Is(err, target) {
			return &Error{Code: CodeValidation, Message: err.Error(), Err: err}
		}
	}
	return storageErr("attachment storage unavailable", err)
}
