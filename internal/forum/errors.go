package forum

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Every error returned by this package wraps exactly one of them.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrValidation        = errors.New("validation failed")
	ErrInactiveUser      = errors.New("inactive user")
	ErrConflict          = errors.New("conflict")
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidIdentifier Kind = "invalid_identifier"
	KindForbidden         Kind = "forbidden"
	KindUnauthenticated   Kind = "unauthenticated"
	KindValidation        Kind = "validation_failed"
	KindInactiveUser      Kind = "inactive_user"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNotFound, KindNotFound},
	{ErrInvalidIdentifier, KindInvalidIdentifier},
	{ErrForbidden, KindForbidden},
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrValidation, KindValidation},
	{ErrInactiveUser, KindInactiveUser},
	{ErrConflict, KindConflict},
}

// KindOf reports the kind of err; storage and other unexpected failures are KindInternal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Error pairs a sentinel kind with a caller-facing message.
type Error struct {
	Err     error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func newError(kind error, format string, args ...any) error {
	return &Error{Err: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func InvalidIdentifierf(format string, args ...any) error {
	return newError(ErrInvalidIdentifier, format, args...)
}

func Forbiddenf(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

func Unauthenticatedf(format string, args ...any) error {
	return newError(ErrUnauthenticated, format, args...)
}

func Validationf(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

func Conflictf(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

func InactiveUser() error {
	return newError(ErrInactiveUser, "Inactive user")
}
