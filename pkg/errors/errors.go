// Package errors provides structured error handling for the planner engine.
// Every application service returns *AppError so callers can map failures
// to specific user-facing messages without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	// Validation errors
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeInvalidRange    ErrorCode = "INVALID_RANGE"

	// Data-integrity errors
	CodeDataIntegrity      ErrorCode = "DATA_INTEGRITY"
	CodeInvalidRecipeState ErrorCode = "INVALID_RECIPE_STATE"
	CodeTokenCollision     ErrorCode = "TOKEN_COLLISION"

	// Lookup outcomes
	CodeNotFound ErrorCode = "NOT_FOUND"
	CodeExpired  ErrorCode = "EXPIRED"

	// Authorization errors
	CodeNotOwner         ErrorCode = "NOT_OWNER"
	CodeIncompleteRecipe ErrorCode = "INCOMPLETE_RECIPE"

	// Partial failure entries
	CodeUnresolvedRecipe ErrorCode = "UNRESOLVED_RECIPE"

	// Storage errors
	CodeConflict       ErrorCode = "CONFLICT"
	CodeStorage        ErrorCode = "STORAGE_ERROR"
	CodeStorageTimeout ErrorCode = "STORAGE_TIMEOUT"
	CodeCanceled       ErrorCode = "CANCELED"

	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Kind groups error codes into the taxonomy callers branch on.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindDataIntegrity  Kind = "data_integrity"
	KindLookup         Kind = "lookup"
	KindAuthorization  Kind = "authorization"
	KindPartialFailure Kind = "partial_failure"
	KindStorage        Kind = "storage"
	KindInternal       Kind = "internal"
)

// AppError represents an application error with structured information
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Kind returns the taxonomy group of the error code
func (e *AppError) Kind() Kind {
	switch e.Code {
	case CodeInvalidArgument, CodeInvalidRange:
		return KindValidation
	case CodeDataIntegrity, CodeInvalidRecipeState, CodeTokenCollision:
		return KindDataIntegrity
	case CodeNotFound, CodeExpired:
		return KindLookup
	case CodeNotOwner, CodeIncompleteRecipe:
		return KindAuthorization
	case CodeUnresolvedRecipe:
		return KindPartialFailure
	case CodeConflict, CodeStorage, CodeStorageTimeout, CodeCanceled:
		return KindStorage
	default:
		return KindInternal
	}
}

// Retryable reports whether repeating the same call may succeed.
// The engine itself never retries.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodeStorageTimeout, CodeConflict, CodeTokenCollision:
		return true
	default:
		return false
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: getStackTrace(),
	}
}

// NewInvalidArgumentError creates a validation error for a bad input field
func NewInvalidArgumentError(field, details string) *AppError {
	return NewAppError(CodeInvalidArgument, "Invalid argument", details).
		WithMetadata("field", field)
}

// NewInvalidRangeError creates an error for an inverted date range
func NewInvalidRangeError(start, end string) *AppError {
	return NewAppError(
		CodeInvalidRange,
		"Invalid date range",
		fmt.Sprintf("start %s is after end %s", start, end),
	).WithMetadata("start", start).WithMetadata("end", end)
}

// NewDataIntegrityError creates an error for stored data violating an invariant
func NewDataIntegrityError(details string, cause error) *AppError {
	return NewAppError(CodeDataIntegrity, "Stored data violates an invariant", details).
		WithCause(cause)
}

// NewInvalidRecipeStateError creates an error for an impossible recipe state
func NewInvalidRecipeStateError(recipeID string, cause error) *AppError {
	return NewAppError(
		CodeInvalidRecipeState,
		"Recipe is in an invalid state",
		fmt.Sprintf("Recipe %s cannot be scaled", recipeID),
	).WithMetadata("recipe_id", recipeID).WithCause(cause)
}

// NewTokenCollisionError creates an error for a duplicate share token
func NewTokenCollisionError(cause error) *AppError {
	return NewAppError(
		CodeTokenCollision,
		"Share token collision",
		"Generated share token already exists; issue a new link",
	).WithCause(cause)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource, id string) *AppError {
	return NewAppError(
		CodeNotFound,
		fmt.Sprintf("%s not found", resource),
		fmt.Sprintf("%s %s does not exist", resource, id),
	).WithMetadata("resource", resource).WithMetadata("id", id)
}

// NewExpiredError creates an error for an expired share link
func NewExpiredError(shareID string) *AppError {
	return NewAppError(
		CodeExpired,
		"Share link has expired",
		"",
	).WithMetadata("share_id", shareID)
}

// NewNotOwnerError creates an ownership error
func NewNotOwnerError(action string) *AppError {
	return NewAppError(
		CodeNotOwner,
		"Not the owner",
		fmt.Sprintf("Only the owner can %s", action),
	).WithMetadata("action", action)
}

// NewIncompleteRecipeError creates an error for a recipe without components
func NewIncompleteRecipeError(recipeID, action string) *AppError {
	return NewAppError(
		CodeIncompleteRecipe,
		"Recipe is incomplete",
		fmt.Sprintf("Recipe %s has no components and cannot be used to %s", recipeID, action),
	).WithMetadata("recipe_id", recipeID)
}

// NewUnresolvedRecipeError creates a per-item entry for an orphaned meal-plan item
func NewUnresolvedRecipeError(itemID, recipeID string) *AppError {
	return NewAppError(
		CodeUnresolvedRecipe,
		"Recipe could not be resolved",
		fmt.Sprintf("Meal plan item %s references missing recipe %s", itemID, recipeID),
	).WithMetadata("item_id", itemID).WithMetadata("recipe_id", recipeID)
}

// NewConflictError creates a conflict error
func NewConflictError(details string, cause error) *AppError {
	return NewAppError(CodeConflict, "Conflicting write", details).WithCause(cause)
}

// NewStorageError creates a storage error
func NewStorageError(operation string, cause error) *AppError {
	return NewAppError(
		CodeStorage,
		"Storage operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewStorageTimeoutError creates a storage timeout error
func NewStorageTimeoutError(operation string, cause error) *AppError {
	return NewAppError(
		CodeStorageTimeout,
		"Storage operation timed out",
		fmt.Sprintf("Timed out while trying to %s", operation),
	).WithCause(cause)
}

// NewCanceledError creates an error for a canceled operation
func NewCanceledError(operation string, cause error) *AppError {
	return NewAppError(
		CodeCanceled,
		"Operation canceled",
		fmt.Sprintf("Canceled while trying to %s", operation),
	).WithCause(cause)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// Utility functions

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// getStackTrace captures the current stack trace
func getStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/errors") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return builder.String()
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	if len(v) == 1 {
		return v[0].Message
	}

	var messages []string
	for _, err := range v {
		messages = append(messages, err.Message)
	}

	return strings.Join(messages, "; ")
}

// NewValidationErrors creates an invalid-argument error from field errors
func NewValidationErrors(errs []ValidationError) *AppError {
	validationErrs := ValidationErrors(errs)

	field := ""
	if len(errs) > 0 {
		field = errs[0].Field
	}

	return NewAppError(
		CodeInvalidArgument,
		"Invalid argument",
		validationErrs.Error(),
	).WithMetadata("field", field).WithMetadata("validation_errors", validationErrs)
}
