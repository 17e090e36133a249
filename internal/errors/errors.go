// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInvalidOptionType   = errors.New("invalid option type")
	ErrInvalidStrike       = errors.New("strike must be positive")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidExpiry       = errors.New("expiry must not precede entry time")
	ErrInsufficientCapital = errors.New("insufficient capital")
	ErrPositionNotFound    = errors.New("position not found")
	ErrEmptyDataset        = errors.New("dataset is empty")
	ErrMalformedRow        = errors.New("malformed dataset row")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrRunNotFound         = errors.New("backtest run not found")
	ErrDatabaseError       = errors.New("database error")
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DatasetError represents an error found while loading or validating a
// historical dataset. Row is 1-based and zero when the error is not
// tied to a specific row.
type DatasetError struct {
	Path    string
	Row     int
	Message string
	Err     error
}

func (e *DatasetError) Error() string {
	if e.Row > 0 {
		if e.Err != nil {
			return fmt.Sprintf("dataset error %s row %d: %s: %v", e.Path, e.Row, e.Message, e.Err)
		}
		return fmt.Sprintf("dataset error %s row %d: %s", e.Path, e.Row, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("dataset error %s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("dataset error %s: %s", e.Path, e.Message)
}

func (e *DatasetError) Unwrap() error {
	return e.Err
}

// NewDatasetError creates a new DatasetError.
func NewDatasetError(path string, row int, message string, err error) *DatasetError {
	return &DatasetError{
		Path:    path,
		Row:     row,
		Message: message,
		Err:     err,
	}
}

// StoreError represents a persistence-layer error.
type StoreError struct {
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store error [%s]: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("store error [%s]: %s", e.Operation, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(operation, message string, err error) *StoreError {
	return &StoreError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
