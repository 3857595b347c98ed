package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory defines the kind of failure for proper handling at the
// serving boundary. The first four categories form the error taxonomy
// of the prediction core; validation and internal cover the HTTP layer.
type ErrorCategory string

const (
	CategoryModelUnavailable ErrorCategory = "model_unavailable"
	CategoryFeatureMismatch  ErrorCategory = "feature_mismatch"
	CategoryAttribution      ErrorCategory = "attribution"
	CategoryInvalidK         ErrorCategory = "invalid_k"
	CategoryValidation       ErrorCategory = "validation"
	CategoryInternal         ErrorCategory = "internal"
)

// AppError wraps an errbuilder error with the category and HTTP status
// the serving layer needs to classify the failure.
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory `json:"category"`
	HTTPStatus int           `json:"http_status"`
	Timestamp  time.Time     `json:"timestamp"`
	StackTrace string        `json:"stack_trace,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	codeStr := "UNKNOWN_ERROR"
	switch e.Category {
	case CategoryModelUnavailable:
		codeStr = "MODEL_UNAVAILABLE"
	case CategoryFeatureMismatch:
		codeStr = "FEATURE_MISMATCH"
	case CategoryAttribution:
		codeStr = "ATTRIBUTION_ERROR"
	case CategoryInvalidK:
		codeStr = "INVALID_K"
	case CategoryValidation:
		codeStr = "VALIDATION_ERROR"
	case CategoryInternal:
		codeStr = "INTERNAL_ERROR"
	}
	return fmt.Sprintf("[%s] %s", codeStr, e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// NewAppError creates an AppError from an errbuilder with category and
// HTTP status context.
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// NewModelUnavailableError signals that the frozen ensemble or the
// fitted preprocessing pipeline failed to load or is absent. Serving
// calls must fail fast with this rather than attempt partial work.
func NewModelUnavailableError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryModelUnavailable, http.StatusServiceUnavailable)
}

// NewFeatureMismatchError signals that a transformed row's feature
// count or order disagrees with the ensemble's trained layout.
func NewFeatureMismatchError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryFeatureMismatch, http.StatusBadRequest)
}

// NewAttributionError signals that per-feature attribution could not be
// computed for a row.
func NewAttributionError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryAttribution, http.StatusInternalServerError)
}

// NewInvalidKError rejects a non-positive top-K factor count.
func NewInvalidKError(k int) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("top-K count must be positive, got %d", k))

	return NewAppError(builder, CategoryInvalidK, http.StatusBadRequest)
}

// NewValidationError creates a request validation error.
func NewValidationError(message string, details ...interface{}) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	if len(details) > 0 {
		errorMap := errbuilder.ErrorMap{}
		errorMap.Set("validation_details", errors.New(fmt.Sprintf("%v", details[0])))
		builder = builder.WithDetails(errbuilder.NewErrDetails(errorMap))
	}

	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewInternalError creates an internal server error.
func NewInternalError(message string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("internal_details", errors.New(message))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)

	if gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode {
		appErr.StackTrace = captureStackTrace()
	}

	return appErr
}

// IsModelUnavailable reports whether err is a ModelUnavailable failure.
func IsModelUnavailable(err error) bool { return hasCategory(err, CategoryModelUnavailable) }

// IsFeatureMismatch reports whether err is a FeatureMismatch failure.
func IsFeatureMismatch(err error) bool { return hasCategory(err, CategoryFeatureMismatch) }

// IsAttribution reports whether err is an Attribution failure.
func IsAttribution(err error) bool { return hasCategory(err, CategoryAttribution) }

// IsInvalidK reports whether err is an InvalidK failure.
func IsInvalidK(err error) bool { return hasCategory(err, CategoryInvalidK) }

func hasCategory(err error, category ErrorCategory) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category == category
	}
	return false
}

// captureStackTrace captures a stack trace for debugging.
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ErrorHandler is a Gin middleware that provides centralized error handling.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			appErr := ToAppError(err)
			LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
	}
}

// RecoveryHandler provides panic recovery with structured error responses.
func RecoveryHandler() gin.HandlerFunc {
	return gin.RecoveryWithWriter(nil, func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", err),
			fmt.Errorf("%v", err),
		)
		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
	})
}

// ToAppError converts any error to an AppError. Errors from the
// prediction core arrive already classified; everything else is an
// internal failure.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// LogError logs an error with appropriate level and request context.
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	errorMsg := err.ErrBuilder.Msg

	switch err.Category {
	case CategoryValidation, CategoryInvalidK, CategoryFeatureMismatch:
		logEntry.Warn(errorMsg)
	case CategoryModelUnavailable:
		logEntry.Error(errorMsg)
	default:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Error(errorMsg, "cause", cause)
		} else {
			logEntry.Error(errorMsg)
		}
	}

	if err.StackTrace != "" && (gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode) {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}
