package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	notFound := NewNotFoundError("request")
	assert.Equal(t, ErrCodeNotFound, notFound.Code)
	assert.Equal(t, "request not found", notFound.Message)
	assert.False(t, notFound.Retryable)

	bad := NewBadInputError("missing replies")
	assert.Equal(t, ErrCodeBadInput, bad.Code)
	assert.Equal(t, "missing replies", bad.Message)

	cause := stderrors.New("connection reset")
	store := NewStoreFailureError("failed to add replies", cause)
	assert.Equal(t, ErrCodeStoreFailure, store.Code)
	assert.True(t, store.Retryable)
	assert.Equal(t, "connection reset", store.Details)
	assert.True(t, stderrors.Is(store, cause))

	empty := NewStoreFailureError("failed to add replies", nil)
	assert.Equal(t, "store returned no result", empty.Details)
	assert.Nil(t, empty.Unwrap())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"not found", NewNotFoundError("request"), http.StatusNotFound},
		{"bad input", NewBadInputError("missing content"), http.StatusBadRequest},
		{"schema violation", NewSchemaViolationError("replies: invalid type"), http.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("missing bearer token"), http.StatusUnauthorized},
		{"store failure", NewStoreFailureError("failed to load replies", nil), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("validate: %w", NewNotFoundError("request")), http.StatusNotFound},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestNormalize(t *testing.T) {
	original := NewBadInputError("missing question_id")
	assert.Same(t, original, Normalize(fmt.Errorf("wrapped: %w", original)))

	normalized := Normalize(stderrors.New("kaboom"))
	assert.Equal(t, ErrCodeInternal, normalized.Code)
	assert.Equal(t, "kaboom", normalized.Details)
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewNotFoundError("request"), ErrCodeNotFound))
	assert.False(t, HasCode(NewNotFoundError("request"), ErrCodeBadInput))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeNotFound))
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("business errors are thrown without retries", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewBadInputError("missing content"))
		assert.Equal(t, "REPLIES_REJECTED", bpmn.Code)
		assert.Equal(t, 0, bpmn.Retries)
		assert.Equal(t, "BAD_INPUT", bpmn.ErrorVariables["originalErrorCode"])
	})

	t.Run("store failures keep retries", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewStoreFailureError("failed to add replies", stderrors.New("timeout")))
		assert.Equal(t, "STORE_FAILURE", bpmn.Code)
		assert.Equal(t, 3, bpmn.Retries)
		assert.True(t, bpmn.Retryable)
	})

	t.Run("unmapped code falls back to itself", func(t *testing.T) {
		bpmn := ConvertToBPMNError(Normalize(stderrors.New("x")))
		assert.Equal(t, "INTERNAL_ERROR", bpmn.Code)
	})

	t.Run("error variables", func(t *testing.T) {
		vars := ConvertToBPMNError(NewNotFoundError("request")).ToErrorVariables()
		require.Contains(t, vars, "errorCode")
		assert.Equal(t, "REQUEST_NOT_FOUND", vars["errorCode"])
		assert.Equal(t, "request not found", vars["errorMessage"])
		assert.Contains(t, vars, "timestamp")
	})
}

func TestRemainingRetries(t *testing.T) {
	assert.Equal(t, int32(2), RemainingRetries(3, 3))
	assert.Equal(t, int32(3), RemainingRetries(10, 3))
	assert.Equal(t, int32(0), RemainingRetries(1, 3))
	assert.Equal(t, int32(0), RemainingRetries(0, 3))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeStoreFailure))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearchQueryFailed))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeUnauthorized))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeBadInput))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeNotFound))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
	assert.True(t, IsRetryableErrorCode(ErrCodeStoreFailure))
	assert.False(t, IsRetryableErrorCode(ErrCodeBadInput))
}
