package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Errors that abort a run before any simulation happens
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryValidation    ErrorCategory = "VALIDATION"

	// Errors raised while preparing inputs or producing outputs
	ErrorCategoryData     ErrorCategory = "DATA"
	ErrorCategoryStrategy ErrorCategory = "STRATEGY"
	ErrorCategoryIO       ErrorCategory = "IO"
)

var (
	// ErrNoDefaultStrategy means no signal source matched the regime and no "default" entry exists
	ErrNoDefaultStrategy = stderrors.New("no strategy for regime and no default strategy configured")
	// ErrSignalLength means a generator returned a series that does not align with the dataset
	ErrSignalLength = stderrors.New("signal series length does not match dataset length")
	// ErrEmptyDataset is shared with pkg/types so errors.Is works across layers
	ErrEmptyDataset = types.ErrEmptyDataset
	// ErrMissingColumn means a required indicator column is absent from the dataset
	ErrMissingColumn = stderrors.New("required column missing from dataset")
)

// BacktestError represents a categorized error with context
type BacktestError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *BacktestError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BacktestError) Unwrap() error {
	return e.Underlying
}

// IsFatal returns whether this error must abort the run
func (e *BacktestError) IsFatal() bool {
	return e.Category == ErrorCategoryConfiguration ||
		e.Category == ErrorCategoryValidation
}

// NewBacktestError creates a new categorized error
func NewBacktestError(category ErrorCategory, component, operation, message string) *BacktestError {
	return &BacktestError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with backtest error context
func WrapError(err error, category ErrorCategory, component, operation string) *BacktestError {
	if err == nil {
		return nil
	}

	return &BacktestError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *BacktestError) WithContext(key string, value interface{}) *BacktestError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithMessage replaces the human-readable message
func (e *BacktestError) WithMessage(message string) *BacktestError {
	e.Message = message
	return e
}

// CategorizeError attempts to categorize a generic error
func CategorizeError(err error, component, operation string) *BacktestError {
	if err == nil {
		return nil
	}

	var btErr *BacktestError
	if stderrors.As(err, &btErr) {
		return btErr
	}

	switch {
	case stderrors.Is(err, ErrNoDefaultStrategy):
		return WrapError(err, ErrorCategoryConfiguration, component, operation)
	case stderrors.Is(err, ErrSignalLength):
		return WrapError(err, ErrorCategoryStrategy, component, operation)
	case stderrors.Is(err, ErrEmptyDataset), stderrors.Is(err, ErrMissingColumn):
		return WrapError(err, ErrorCategoryData, component, operation)
	case stderrors.Is(err, os.ErrNotExist), stderrors.Is(err, os.ErrPermission):
		return WrapError(err, ErrorCategoryIO, component, operation)
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "must be") {
		return WrapError(err, ErrorCategoryValidation, component, operation)
	}

	if strings.Contains(errMsg, "parse") || strings.Contains(errMsg, "column") ||
		strings.Contains(errMsg, "timestamp") {
		return WrapError(err, ErrorCategoryData, component, operation)
	}

	return WrapError(err, ErrorCategoryIO, component, operation)
}

// Common error constructors
func NewValidationError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryValidation, component, operation, message)
}

func NewConfigurationError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryConfiguration, component, operation, message)
}

func NewDataError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryData, component, operation)
}

func NewStrategyError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryStrategy, component, operation)
}

func NewIOError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryIO, component, operation)
}

// ErrorStats tracks error statistics across many runs
type ErrorStats struct {
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*BacktestError
	MaxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*BacktestError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *BacktestError) {
	if err == nil {
		return
	}
	es.TotalErrors++
	es.ErrorsByCategory[err.Category]++

	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// GetErrorRate returns the share of recorded errors in a category
func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	if es.TotalErrors == 0 {
		return 0.0
	}
	return float64(es.ErrorsByCategory[category]) / float64(es.TotalErrors)
}
