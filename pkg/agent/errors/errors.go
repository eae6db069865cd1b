package errors

import "fmt"

// AppError represents an application-level error with a code and optional cause
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Code extracts the error code from err, or "" if err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	for err != nil {
		if ae, ok := err.(*AppError); ok {
			appErr = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if appErr == nil {
		return ""
	}
	return appErr.Code
}

// Error codes
const (
	ErrCodeSessionCreate   = "SESSION_CREATE_FAILED"
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND"
	ErrCodeSessionDelete   = "SESSION_DELETE_FAILED"
	ErrCodeAgentConfig     = "AGENT_CONFIG_INVALID"
	ErrCodeToolExecution   = "TOOL_EXECUTION_FAILED"
	ErrCodeModelInvocation = "MODEL_INVOCATION_FAILED"
	ErrCodeIterationLimit  = "ITERATION_LIMIT_EXCEEDED"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeStorage         = "STORAGE_FAILED"
)
