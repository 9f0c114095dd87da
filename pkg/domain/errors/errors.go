// Package errors is the error taxonomy of the control plane.
//
// Each member maps to one caller-visible outcome; the HTTP layer
// translates them without inspecting messages.
package errors

import (
	"errors"
	"fmt"

	"github.com/1800agents/saki/pkg/xerrors"
)

type wrappingError struct {
	message  string
	causedBy error
}

func as[E error](err error) bool {
	if err == nil {
		return false
	}
	p := new(E)
	return errors.As(err, p)
}

func format(e wrappingError) string {
	if e.causedBy == nil {
		return e.message
	}
	if e.message == "" {
		return fmt.Sprintf("caused by: %+v", e.causedBy)
	}
	return fmt.Sprintf("%s / caused by: %+v", e.message, e.causedBy)
}

// The app (or one of its backing objects) does not exist, or exists but
// is owned by someone else. Callers can not tell these apart.
type ErrMissing wrappingError

var AsMissing = as[*ErrMissing]

func NewMissing(message string) error {
	return xerrors.WrapAsOuter(&ErrMissing{message: message}, 1)
}

func NewMissingCausedBy(message string, err error) error {
	return xerrors.WrapAsOuter(&ErrMissing{message: message, causedBy: err}, 1)
}

func (e *ErrMissing) Error() string {
	return format(wrappingError(*e))
}

func (e *ErrMissing) Unwrap() error {
	return e.causedBy
}

// A write lost an optimistic-concurrency race: the version token held
// by the writer no longer matches the object. Retry is up to the caller.
type ErrConflict wrappingError

var AsConflict = as[*ErrConflict]

func NewConflict(message string) error {
	return xerrors.WrapAsOuter(&ErrConflict{message: message}, 1)
}

func NewConflictCausedBy(message string, err error) error {
	return xerrors.WrapAsOuter(&ErrConflict{message: message, causedBy: err}, 1)
}

func (e *ErrConflict) Error() string {
	return format(wrappingError(*e))
}

func (e *ErrConflict) Unwrap() error {
	return e.causedBy
}

// More than one cluster object matched an identity lookup. The cluster
// must never hold two objects for one (owner, name); when it does, this
// is a consistency violation and is never resolved by picking one.
type ErrConsistency wrappingError

var AsConsistency = as[*ErrConsistency]

func NewConsistency(message string) error {
	return xerrors.WrapAsOuter(&ErrConsistency{message: message}, 1)
}

func (e *ErrConsistency) Error() string {
	return format(wrappingError(*e))
}

func (e *ErrConsistency) Unwrap() error {
	return e.causedBy
}

// The submitted image reference is outside the caller's registry
// namespace. Rejected before any cluster call.
type ErrNamespaceViolation wrappingError

var AsNamespaceViolation = as[*ErrNamespaceViolation]

func NewNamespaceViolation(message string) error {
	return xerrors.WrapAsOuter(&ErrNamespaceViolation{message: message}, 1)
}

func NewNamespaceViolationCausedBy(message string, err error) error {
	return xerrors.WrapAsOuter(&ErrNamespaceViolation{message: message, causedBy: err}, 1)
}

func (e *ErrNamespaceViolation) Error() string {
	return format(wrappingError(*e))
}

func (e *ErrNamespaceViolation) Unwrap() error {
	return e.causedBy
}

// A cluster object is missing annotations required to decode it into an
// AppRecord. Such objects are skipped in listings, not surfaced.
type ErrIncompleteRecord wrappingError

var AsIncompleteRecord = as[*ErrIncompleteRecord]

func NewIncompleteRecord(message string) error {
	return xerrors.WrapAsOuter(&ErrIncompleteRecord{message: message}, 1)
}

func (e *ErrIncompleteRecord) Error() string {
	return format(wrappingError(*e))
}

func (e *ErrIncompleteRecord) Unwrap() error {
	return e.causedBy
}

// The caller lacks the scope an operation requires (admin-only listing).
type ErrForbidden wrappingError

var AsForbidden = as[*ErrForbidden]

func NewForbidden(message string) error {
	return xerrors.WrapAsOuter(&ErrForbidden{message: message}, 1)
}

func (e *ErrForbidden) Error() string {
	return format(wrappingError(*e))
}

func (e *ErrForbidden) Unwrap() error {
	return e.causedBy
}

// Input failed domain validation (bad name, bad description, bad commit).
type ErrInvalidInput wrappingError

var AsInvalidInput = as[*ErrInvalidInput]

func NewInvalidInput(message string) error {
	return xerrors.WrapAsOuter(&ErrInvalidInput{message: message}, 1)
}

func NewInvalidInputCausedBy(message string, err error) error {
	return xerrors.WrapAsOuter(&ErrInvalidInput{message: message, causedBy: err}, 1)
}

func (e *ErrInvalidInput) Error() string {
	return format(wrappingError(*e))
}

func (e *ErrInvalidInput) Unwrap() error {
	return e.causedBy
}
