// Package errors defines the error taxonomy for script serving.
//
// Every failure that can cross a component boundary is represented as a
// *ServeError carrying a Kind, a stable code, and the original cause. The
// dispatcher picks HTTP status codes from the Kind alone, so components
// never need to know how their failures are rendered.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind categorizes a failure for status mapping and logging.
type Kind string

const (
	// KindFileNotFound means the requested script does not exist.
	KindFileNotFound Kind = "file_not_found"
	// KindIO covers read failures other than a missing file. Transpile
	// failures collapse into this kind at the read boundary: the caller
	// only needs to know that content could not be produced.
	KindIO Kind = "io"
	// KindUnsupportedScheme means an import resolved to a built-in,
	// virtual, or remote target that must not be served as a file.
	KindUnsupportedScheme Kind = "unsupported_scheme"
	// KindResolution means the module resolution algorithm itself failed.
	KindResolution Kind = "resolution"
	// KindAnalysis means the external analyzer rejected the code.
	KindAnalysis Kind = "analysis"
	// KindInvariant means an external collaborator broke its contract.
	// Fatal for the request, never user-caused.
	KindInvariant Kind = "invariant"
	// KindMethodNotSupported means the HTTP method is not handled for
	// script paths.
	KindMethodNotSupported Kind = "method_not_supported"
)

// Error codes, one per taxonomy entry.
const (
	CodeFileNotFound       = "ERR_FILE_NOT_FOUND"
	CodeIO                 = "ERR_IO"
	CodeUnsupportedScheme  = "ERR_UNSUPPORTED_SCHEME"
	CodeResolution         = "ERR_RESOLUTION"
	CodeAnalysis           = "ERR_ANALYSIS"
	CodeInvariant          = "ERR_INVARIANT"
	CodeMethodNotSupported = "ERR_METHOD_NOT_SUPPORTED"
)

// ServeError is the structured error type used across the serving layer.
type ServeError struct {
	Kind    Kind
	Code    string
	Message string
	Path    string
	Cause   error
}

// Error implements the error interface.
func (e *ServeError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ServeError) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same kind and code.
func (e *ServeError) Is(target error) bool {
	var t *ServeError
	if errors.As(target, &t) {
		return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
	}

	return false
}

// WithPath attaches the file path the error relates to.
func (e *ServeError) WithPath(path string) *ServeError {
	e.Path = path

	return e
}

// HTTPStatus maps the error kind to the status the dispatcher answers with.
func (e *ServeError) HTTPStatus() int {
	switch e.Kind {
	case KindFileNotFound:
		return http.StatusNotFound
	case KindMethodNotSupported:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error creation functions

// NewFileNotFound creates a missing-file error for the given path.
func NewFileNotFound(path string) *ServeError {
	return &ServeError{
		Kind:    KindFileNotFound,
		Code:    CodeFileNotFound,
		Message: "file not found",
		Path:    path,
	}
}

// NewIOError creates an I/O error with its cause retained.
func NewIOError(message string, cause error) *ServeError {
	return &ServeError{
		Kind:    KindIO,
		Code:    CodeIO,
		Message: message,
		Cause:   cause,
	}
}

// NewUnsupportedScheme creates a policy error for a non-file resolution.
func NewUnsupportedScheme(specifier, target string) *ServeError {
	return &ServeError{
		Kind:    KindUnsupportedScheme,
		Code:    CodeUnsupportedScheme,
		Message: fmt.Sprintf("import %q resolves to non-file target %q", specifier, target),
	}
}

// NewResolutionFailure wraps a failure of the resolution algorithm itself.
func NewResolutionFailure(specifier string, cause error) *ServeError {
	return &ServeError{
		Kind:    KindResolution,
		Code:    CodeResolution,
		Message: fmt.Sprintf("cannot resolve import %q", specifier),
		Cause:   cause,
	}
}

// NewAnalysisFailure wraps an analyzer failure.
func NewAnalysisFailure(cause error) *ServeError {
	return &ServeError{
		Kind:    KindAnalysis,
		Code:    CodeAnalysis,
		Message: "code analysis failed",
		Cause:   cause,
	}
}

// NewInvariantViolation reports a broken collaborator contract.
func NewInvariantViolation(message string) *ServeError {
	return &ServeError{
		Kind:    KindInvariant,
		Code:    CodeInvariant,
		Message: message,
	}
}

// NewMethodNotSupported creates an unsupported-method error.
func NewMethodNotSupported(method string) *ServeError {
	return &ServeError{
		Kind:    KindMethodNotSupported,
		Code:    CodeMethodNotSupported,
		Message: fmt.Sprintf("method %s is not supported for script paths", method),
	}
}

// Predicate helpers

// IsFileNotFound checks whether err is a missing-file error.
func IsFileNotFound(err error) bool {
	return isKind(err, KindFileNotFound)
}

// IsUnsupportedScheme checks whether err is a scheme policy violation.
func IsUnsupportedScheme(err error) bool {
	return isKind(err, KindUnsupportedScheme)
}

// IsInvariantViolation checks whether err reports a broken contract.
func IsInvariantViolation(err error) bool {
	return isKind(err, KindInvariant)
}

// IsMethodNotSupported checks whether err is an unsupported-method error.
func IsMethodNotSupported(err error) bool {
	return isKind(err, KindMethodNotSupported)
}

func isKind(err error, kind Kind) bool {
	var se *ServeError
	if errors.As(err, &se) {
		return se.Kind == kind
	}

	return false
}

// StatusFor returns the HTTP status for any error, defaulting to 500 for
// errors outside the taxonomy.
func StatusFor(err error) int {
	var se *ServeError
	if errors.As(err, &se) {
		return se.HTTPStatus()
	}

	return http.StatusInternalServerError
}
