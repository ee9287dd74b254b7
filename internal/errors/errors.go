// Package errors provides categorized error types for the inbox snapshot service.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/inbox-snapshot/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryQuota represents quota errors (deterministic business outcomes)
	CategoryQuota ErrorCategory = "quota"
	// CategoryNotFound represents not found errors
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryValidation represents validation errors
	CategoryValidation ErrorCategory = "validation"
	// CategoryProvider represents upstream collaborator errors
	CategoryProvider ErrorCategory = "provider"
	// CategoryDatabase represents database errors
	CategoryDatabase ErrorCategory = "database"
	// CategorySystem represents system errors (5xx)
	CategorySystem ErrorCategory = "system"
	// CategoryConflict represents conflicting concurrent operations
	CategoryConflict ErrorCategory = "conflict"
)

// Quota error codes, in the priority order user-facing messaging follows.
const (
	CodeTrialExpired        = "TRIAL_EXPIRED"
	CodeSubscriptionExpired = "SUBSCRIPTION_EXPIRED"
	CodeNoActiveAccess      = "NO_ACTIVE_ACCESS"
	CodeDailyLimitReached   = "DAILY_LIMIT_REACHED"
	CodeTrialCapReached     = "TRIAL_CAP_REACHED"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// Quota errors

// NewTrialExpiredError creates a trial expired quota error
func NewTrialExpiredError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryQuota,
		StatusCode: http.StatusForbidden,
		Code:       CodeTrialExpired,
		Message:    "Your free trial has expired. Upgrade to keep creating snapshots.",
	}
}

// NewSubscriptionExpiredError creates a subscription expired quota error
func NewSubscriptionExpiredError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryQuota,
		StatusCode: http.StatusForbidden,
		Code:       CodeSubscriptionExpired,
		Message:    "Your subscription has expired. Renew to keep creating snapshots.",
	}
}

// NewNoActiveAccessError creates a no active access quota error
func NewNoActiveAccessError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryQuota,
		StatusCode: http.StatusForbidden,
		Code:       CodeNoActiveAccess,
		Message:    "No active subscription or trial. Start a trial or upgrade to create snapshots.",
	}
}

// NewDailyLimitError creates a daily snapshot cap quota error
func NewDailyLimitError(limit int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryQuota,
		StatusCode: http.StatusForbidden,
		Code:       CodeDailyLimitReached,
		Message:    fmt.Sprintf("Daily limit reached (%d snapshots per day). Try again tomorrow.", limit),
		Details: map[string]interface{}{
			"dailyLimit": limit,
		},
	}
}

// NewTrialCapError creates a trial lifetime cap quota error
func NewTrialCapError(cap int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryQuota,
		StatusCode: http.StatusForbidden,
		Code:       CodeTrialCapReached,
		Message:    fmt.Sprintf("Trial snapshot limit reached (%d total). Upgrade to keep creating snapshots.", cap),
		Details: map[string]interface{}{
			"trialCap": cap,
		},
	}
}

// Not found / validation

// NewNotFoundError creates a not found error. Ownership mismatches use the
// same error as a genuine miss so existence is never leaked across users.
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// Upstream / system

// NewProviderError creates an upstream collaborator error
func NewProviderError(provider string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusBadGateway,
		Code:       "PROVIDER_ERROR",
		Message:    fmt.Sprintf("upstream provider error: %s", provider),
		Cause:      cause,
		Details: map[string]interface{}{
			"provider": provider,
		},
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       "DATABASE_ERROR",
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// NewSnapshotInProgressError signals that another snapshot run holds the per-user lock
func NewSnapshotInProgressError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       "SNAPSHOT_IN_PROGRESS",
		Message:    "A snapshot is already being created for this account. Try again shortly.",
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if errors.As(err, &svcErr) {
		return &CategorizedError{
			Category:   CategorySystem,
			StatusCode: http.StatusInternalServerError,
			Code:       svcErr.Code,
			Message:    svcErr.Message,
			Details:    svcErr.Details,
		}
	}

	return NewInternalError("unexpected error", err)
}

// IsQuotaError reports whether the error is a quota error
func IsQuotaError(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == CategoryQuota
}

// IsNotFound reports whether the error is a not found error
func IsNotFound(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == CategoryNotFound
}

// IsRetryable determines if an error is retryable
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	// Quota and not-found are deterministic outcomes; retrying cannot help.
	switch catErr.Category {
	case CategoryProvider, CategoryDatabase:
		return true
	default:
		return false
	}
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}
