package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrValidation = stderrors.New("validation failed")
	ErrIntegrity  = stderrors.New("integrity violation")
	ErrStorage    = stderrors.New("storage failure")
	ErrNotFound   = stderrors.New("not found")
)

// ValidationError is raised before a record reaches the version engine:
// missing business key, missing required column, or an undeclared column in
// strict mode. It aborts only the offending record.
type ValidationError struct {
	Entity  string
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Entity, e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Entity, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Details surfaces the failing fields for API responses.
func (e *ValidationError) Details() map[string]interface{} {
	d := map[string]interface{}{"entity": e.Entity}
	if len(e.Fields) > 0 {
		d["fields"] = e.Fields
	}
	return d
}

// IntegrityError reports a violated store invariant: two current versions for
// one key, a version gap, a duplicate natural key, or closed history without
// a current record. Fatal marks states that must stop the whole run.
type IntegrityError struct {
	Entity  string
	Key     string
	Message string
	Fatal   bool
	Err     error
}

func (e *IntegrityError) Error() string {
	msg := fmt.Sprintf("integrity violation on %s %q: %s", e.Entity, e.Key, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }
func (e *IntegrityError) Unwrap() error        { return e.Err }

// StorageError wraps an underlying write/commit failure. It is the only
// retryable class.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
func (e *StorageError) Unwrap() error        { return e.Err }

// NotFoundError reports a business key without a current record.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q has no current record", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Storage wraps err as a StorageError unless it already belongs to the
// taxonomy, in which case it is returned unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, ErrIntegrity) || stderrors.Is(err, ErrNotFound) ||
		stderrors.Is(err, ErrValidation) || stderrors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsRetryable reports whether err may succeed on a later attempt.
func IsRetryable(err error) bool {
	return stderrors.Is(err, ErrStorage)
}

// IsFatal reports whether err signals a state the run must not continue past.
func IsFatal(err error) bool {
	var ie *IntegrityError
	return stderrors.As(err, &ie) && ie.Fatal
}
