// Package debug defines the contract between the script handler and a
// pluggable debug core. The handler hands each script request to a Core
// together with a Host for reading and analyzing sources and a Responder
// for producing exactly one HTTP outcome.
package debug

import (
	"context"

	"github.com/srcserve/srcserve/internal/analyze"
)

// Host exposes server-side capabilities to a debug core. All paths are
// URL paths relative to the script mount, never filesystem paths.
type Host interface {
	// ReadScript loads the script at urlPath and runs it through the
	// transpile pipeline. Returns a file-not-found error when no such
	// script exists.
	ReadScript(ctx context.Context, urlPath string) (string, error)

	// ScriptExists reports whether a script file exists at urlPath
	// without reading or transpiling it.
	ScriptExists(urlPath string) bool

	// Analyze runs the configured analyzer over transpiled code,
	// memoized by content.
	Analyze(code string) (analyze.Result, error)

	// ResolveImport resolves an import specifier found in the script at
	// importerPath to an absolute local file location.
	ResolveImport(ctx context.Context, importerPath, specifier string) (string, error)
}

// Responder receives the single outcome of a script request. A core must
// call exactly one method exactly once per ServeScript invocation.
type Responder interface {
	// Redirect points the client at a sibling script located at urlPath.
	Redirect(urlPath string)

	// Content delivers the script body with the given content type.
	Content(contentType string, body []byte)

	// FileNotFound reports that no script exists for the request.
	FileNotFound()

	// InternalError reports a server-side failure.
	InternalError(err error)
}

// Core serves a single script request. Implementations decide the outcome
// by calling exactly one Responder method; they must not panic, and they
// must not retain host or responder past the call.
type Core interface {
	ServeScript(ctx context.Context, host Host, res Responder, urlPath string)
}

// CoreFunc adapts a function to the Core interface.
type CoreFunc func(ctx context.Context, host Host, res Responder, urlPath string)

// ServeScript calls f.
func (f CoreFunc) ServeScript(ctx context.Context, host Host, res Responder, urlPath string) {
	f(ctx, host, res, urlPath)
}
