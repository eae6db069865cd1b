package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeSessionNotFound, "session not found: abc", nil)
	assert.Equal(t, "SESSION_NOT_FOUND: session not found: abc", err.Error())

	cause := errors.New("disk full")
	wrapped := New(ErrCodeStorage, "failed to persist", cause)
	assert.Contains(t, wrapped.Error(), "STORAGE_FAILED")
	assert.Contains(t, wrapped.Error(), "disk full")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(ErrCodeToolExecution, "tool failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestCode(t *testing.T) {
	err := New(ErrCodeIterationLimit, "too many rounds", nil)
	assert.Equal(t, ErrCodeIterationLimit, Code(err))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, ErrCodeIterationLimit, Code(wrapped))

	assert.Equal(t, "", Code(errors.New("plain")))
	assert.Equal(t, "", Code(nil))
}
