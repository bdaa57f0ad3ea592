package goals

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// Error kinds reported by ErrorKind.
const (
	KindOK             = "ok"
	KindValidation     = "validation"
	KindNotFound       = "not_found"
	KindPersistence    = "persistence"
	KindPartialCascade = "partial_cascade"
)

// ValidationError reports an invalid argument. It is raised before any I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing goal, assignment or instance.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistenceError wraps a store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CascadeProgress counts the records a cascade removed before it stopped.
type CascadeProgress struct {
	Instances   int `json:"instances"`
	Assignments int `json:"assignments"`
}

// PartialCascadeError means a cascading delete stopped midway. Completed steps
// are not rolled back unless the cascade ran in transactional mode, so the
// caller must treat the store state as unknown.
type PartialCascadeError struct {
	GoalID  string
	Stage   string
	Deleted CascadeProgress
	Err     error
}

func (e *PartialCascadeError) Error() string {
	return fmt.Sprintf("delete goal %q failed at %s after %d instance(s) and %d assignment(s): %v",
		e.GoalID, e.Stage, e.Deleted.Instances, e.Deleted.Assignments, e.Err)
}

func (e *PartialCascadeError) Unwrap() error { return e.Err }

// ErrorKind maps err to a stable label.
func ErrorKind(err error) string {
	if err == nil {
		return KindOK
	}

	var validation *ValidationError
	var partial *PartialCascadeError
	switch {
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &partial):
		return KindPartialCascade
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindPersistence
	}
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
