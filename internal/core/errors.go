package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound means the record vanished remotely between read and write.
	ErrNotFound = errors.New("transaction not found")
)

// FieldError names one violated input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every violated field of one input, not just the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "invalid transaction: " + strings.Join(msgs, "; ")
}

// Has reports whether field was among the violations.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// WriteError is a failed create/update/delete against the remote collection.
// Retrying is left to the caller.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s transaction: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// SubscriptionError means the live stream for OwnerID failed; the list it
// fed is stale until the next successful snapshot.
type SubscriptionError struct {
	OwnerID string
	Err     error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("transaction stream for %s unavailable: %v", e.OwnerID, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }
