package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "GDRP1001"
	ErrCodeConnectionTimeout    ErrorCode = "GDRP1002"
	ErrCodeAuthenticationFailed ErrorCode = "GDRP1003"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "GDRP2001"
	ErrCodeConfigInvalid  ErrorCode = "GDRP2002"
	ErrCodeConfigMissing  ErrorCode = "GDRP2003"

	// Provisioning errors (3xxx)
	ErrCodeGrantFailed  ErrorCode = "GDRP3001"
	ErrCodeRoleNotFound ErrorCode = "GDRP3002"

	// SQL execution errors (4xxx)
	ErrCodeSQLSyntax         ErrorCode = "GDRP4001"
	ErrCodeSQLPermission     ErrorCode = "GDRP4002"
	ErrCodeSQLTimeout        ErrorCode = "GDRP4003"
	ErrCodeSQLObjectNotFound ErrorCode = "GDRP4005"
	ErrCodeSQLExecution      ErrorCode = "GDRP4006"
	ErrCodeNoResults         ErrorCode = "GDRP4008"

	// Pipeline errors (5xxx)
	ErrCodeMaterializeFailed  ErrorCode = "GDRP5001"
	ErrCodeVerificationFailed ErrorCode = "GDRP5002"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "GDRP6001"
	ErrCodeInvalidInput     ErrorCode = "GDRP6002"
	ErrCodeRequiredField    ErrorCode = "GDRP6003"

	// Graph engine errors (7xxx)
	ErrCodeEngineInvocation ErrorCode = "GDRP7001"
	ErrCodeEngineConfig     ErrorCode = "GDRP7002"
	ErrCodeUnknownAlgorithm ErrorCode = "GDRP7003"

	// Security errors (8xxx)
	ErrCodeEncryptionFailed  ErrorCode = "GDRP8001"
	ErrCodeCredentialStorage ErrorCode = "GDRP8002"

	// System errors (9xxx)
	ErrCodeInternal           ErrorCode = "GDRP9001"
	ErrCodeTimeout            ErrorCode = "GDRP9002"
	ErrCodeMaxRetriesExceeded ErrorCode = "GDRP9007"
	ErrCodeUnknown            ErrorCode = "GDRP9999"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // System failure, requires immediate attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but system continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit some properties
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityError).
		WithSuggestions(
			"Check your network connection",
			"Verify Snowflake endpoint is accessible",
			"Check firewall settings",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'graphdrop setup' to reconfigure",
		)
}

// SQLError creates an SQL execution error
func SQLError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))

	causeStr := ""
	if cause != nil {
		causeStr = strings.ToLower(cause.Error())
	}
	if strings.Contains(causeStr, "insufficient privileges") || strings.Contains(causeStr, "access denied") {
		err.Code = ErrCodeSQLPermission
		_ = err.WithSuggestions(
			"Check user permissions in Snowflake",
			"Verify the role has required privileges",
			"Run 'graphdrop provision' with an administrative role",
		)
	} else if strings.Contains(causeStr, "does not exist") || strings.Contains(causeStr, "not found") {
		err.Code = ErrCodeSQLObjectNotFound
		_ = err.WithSuggestions(
			"Verify the object exists in the target database/schema",
			"Check for typos in table or view names",
		)
	} else if strings.Contains(causeStr, "timeout") {
		err.Code = ErrCodeSQLTimeout
		_ = err.WithSuggestions(
			"Increase the query timeout setting",
			"Check Snowflake warehouse size",
		)
	}

	return err
}

// EngineError wraps a failure raised by the external graph engine. The
// underlying engine error is carried verbatim as the cause and never
// rewritten; callers decide whether re-running is safe.
func EngineError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeEngineInvocation, message).
		WithSuggestions(
			"Check the job configuration for mismatched node/edge table references",
			"Verify the application has access to the projected tables",
		)
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
