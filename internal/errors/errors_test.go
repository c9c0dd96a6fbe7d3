package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *ServeError
		status int
	}{
		{"file not found", NewFileNotFound("/app.ts"), http.StatusNotFound},
		{"io error", NewIOError("read failed", errors.New("disk")), http.StatusInternalServerError},
		{"unsupported scheme", NewUnsupportedScheme("fs", "node:fs"), http.StatusInternalServerError},
		{"resolution failure", NewResolutionFailure("./missing", errors.New("not found")), http.StatusInternalServerError},
		{"analysis failure", NewAnalysisFailure(errors.New("parse error")), http.StatusInternalServerError},
		{"invariant violation", NewInvariantViolation("transpiler returned nothing"), http.StatusInternalServerError},
		{"method not supported", NewMethodNotSupported("HEAD"), http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
			assert.Equal(t, tt.status, StatusFor(tt.err))
		})
	}
}

func TestServeError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewIOError("transpile failed", cause)

	assert.ErrorIs(t, err, cause, "cause should be reachable through Unwrap")
}

func TestServeError_WrappedPredicate(t *testing.T) {
	inner := NewFileNotFound("/missing.ts")
	wrapped := fmt.Errorf("while reading script: %w", inner)

	assert.True(t, IsFileNotFound(wrapped))
	assert.False(t, IsUnsupportedScheme(wrapped))
}

func TestServeError_Is(t *testing.T) {
	a := NewUnsupportedScheme("fs", "node:fs")
	b := NewUnsupportedScheme("path", "node:path")

	assert.ErrorIs(t, a, b, "errors of same kind and code should match")
	assert.NotErrorIs(t, a, NewFileNotFound("/x"))
}

func TestServeError_MessageIncludesCodeAndPath(t *testing.T) {
	err := NewFileNotFound("/scripts/app.ts")

	assert.Contains(t, err.Error(), CodeFileNotFound)
	assert.Contains(t, err.Error(), "/scripts/app.ts")
}

func TestStatusFor_NonTaxonomyError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("plain")))
}
