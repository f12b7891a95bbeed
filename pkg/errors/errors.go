// Package errors provides structured error handling for colmap
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeMappingNotFound represents a type or record name with no registered metadata
	ErrorTypeMappingNotFound ErrorType = "mapping_not_found"
	// ErrorTypeInstantiation represents a failure to construct a target instance
	ErrorTypeInstantiation ErrorType = "instantiation"
	// ErrorTypeTypeCoercion represents a stored value that cannot become the declared type
	ErrorTypeTypeCoercion ErrorType = "type_coercion"
	// ErrorTypeNullArgument represents a missing required argument
	ErrorTypeNullArgument ErrorType = "null_argument"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeCodec represents wire encoding errors
	ErrorTypeCodec ErrorType = "codec"
	// ErrorTypeStorage represents errors raised by a storage adapter
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeNotFound represents resource not found errors
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail previously attached with WithDetail.
func (e *Error) Detail(key string) (interface{}, bool) {
	v, ok := e.Details[key]
	return v, ok
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the type of the outermost *Error in err's chain, or
// ErrorTypeInternal when err is not one of ours.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// IsMappingNotFound reports whether err carries ErrorTypeMappingNotFound.
func IsMappingNotFound(err error) bool { return IsType(err, ErrorTypeMappingNotFound) }

// IsInstantiation reports whether err carries ErrorTypeInstantiation.
func IsInstantiation(err error) bool { return IsType(err, ErrorTypeInstantiation) }

// IsTypeCoercion reports whether err carries ErrorTypeTypeCoercion.
func IsTypeCoercion(err error) bool { return IsType(err, ErrorTypeTypeCoercion) }

// IsNullArgument reports whether err carries ErrorTypeNullArgument.
func IsNullArgument(err error) bool { return IsType(err, ErrorTypeNullArgument) }

// NullArgument builds the error returned when a required argument is missing.
func NullArgument(argument string) *Error {
	return &Error{
		Type:    ErrorTypeNullArgument,
		Message: argument + " is required",
		Stack:   captureStack(2),
		Details: map[string]interface{}{"argument": argument},
	}
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
