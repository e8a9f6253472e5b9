// Package apperrors defines the failure taxonomy shared by the chat and
// prediction services: validation problems surfaced verbatim to callers,
// storage failures surfaced generically, and the two prediction-collaborator
// failure modes (unreachable vs. reachable-but-broken).
package apperrors

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation marks bad or missing input; the message is user-correctable
	// and safe to return verbatim.
	KindValidation
	// KindStorage marks a persistence-layer failure. Detail goes to logs, the
	// caller gets a generic message.
	KindStorage
	// KindUnavailable marks the prediction collaborator being unreachable.
	KindUnavailable
	// KindPrediction marks the collaborator responding with an error or a
	// malformed payload.
	KindPrediction
	KindUnauthenticated
	KindAuthorization
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStorage:
		return "storage"
	case KindUnavailable:
		return "unavailable"
	case KindPrediction:
		return "prediction"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error carries a kind, a caller-facing message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func Storage(message string, err error) *Error {
	return Wrap(KindStorage, message, err)
}

func Unavailable(message string, err error) *Error {
	return Wrap(KindUnavailable, message, err)
}

func Prediction(message string, err error) *Error {
	return Wrap(KindPrediction, message, err)
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// PublicMessage returns what a caller may see. Storage and unknown failures
// collapse to a generic message so internal detail stays in the logs.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "error interno del servidor"
	}
	switch e.Kind {
	case KindStorage, KindUnknown:
		return "error interno del servidor"
	default:
		return e.Message
	}
}
