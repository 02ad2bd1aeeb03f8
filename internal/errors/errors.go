package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/goaltrack/internal/logger"
)

// NotFoundError is returned when a referenced goal or plan id does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ValidationError reports input the caller can correct and resubmit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SchemaEvolutionError is fatal: the store cannot be brought to the
// version this binary understands, and it must not be used.
type SchemaEvolutionError struct {
	From   int
	To     int
	Reason string
	Err    error
}

func (e *SchemaEvolutionError) Error() string {
	msg := fmt.Sprintf("schema evolution from version %d to %d failed: %s", e.From, e.To, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaEvolutionError) Unwrap() error { return e.Err }

// TransactionError means a compound write failed and was rolled back.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s rolled back: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// NotFound builds a NotFoundError.
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return stderrors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

func IsSchemaEvolution(err error) bool {
	var target *SchemaEvolutionError
	return stderrors.As(err, &target)
}

func IsTransaction(err error) bool {
	var target *TransactionError
	return stderrors.As(err, &target)
}

// IsRecoverable reports whether the caller can fix the input and try again.
func IsRecoverable(err error) bool {
	return IsNotFound(err) || IsValidation(err)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
