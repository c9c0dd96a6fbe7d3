// Package resolve maps ES-module import specifiers to filesystem paths
// under a file-scheme-only policy.
//
// Resolution itself follows the host module system's rules: relative
// specifiers resolve against the importer's directory with extension and
// index inference, bare specifiers resolve through node_modules package
// metadata. After resolution a policy gate rejects anything that is not
// a plain filesystem location, so the server can never be tricked into
// proxying built-in, virtual, or remote modules.
package resolve

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/srcserve/srcserve/internal/errors"
	"github.com/srcserve/srcserve/internal/logging"
)

// resolutionMemoEntries bounds the memo of successful resolutions.
const resolutionMemoEntries = 1024

// Func is the pluggable resolution algorithm. It returns a location
// string that may carry a scheme (for example "node:fs" or a URL); the
// policy gate decides afterwards whether the location is servable.
type Func func(ctx context.Context, importer, specifier string) (string, error)

// Resolver resolves import specifiers to absolute filesystem paths.
type Resolver struct {
	resolveFn Func
	memo      *lru.Cache[string, string]
	logger    logging.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithResolutionFunc replaces the default node-style resolution
// algorithm, keeping the policy gate in place.
func WithResolutionFunc(fn Func) Option {
	return func(r *Resolver) {
		r.resolveFn = fn
	}
}

// NewResolver creates a resolver with the default node-style algorithm.
func NewResolver(logger logging.Logger, opts ...Option) (*Resolver, error) {
	memo, err := lru.New[string, string](resolutionMemoEntries)
	if err != nil {
		return nil, err
	}

	r := &Resolver{
		resolveFn: NodeResolution(),
		memo:      memo,
		logger:    logger.WithComponent("resolve"),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// ResolveImportPath resolves specifier relative to the importing file
// and returns an absolute filesystem path.
//
// Failures of the resolution algorithm surface as ResolutionFailure with
// the original error retained; locations outside the file scheme fail
// with UnsupportedScheme. Only successful file resolutions are memoized.
func (r *Resolver) ResolveImportPath(ctx context.Context, importer, specifier string) (string, error) {
	key := filepath.Dir(importer) + "\x00" + specifier
	if cached, ok := r.memo.Get(key); ok {
		return cached, nil
	}

	location, err := r.resolveFn(ctx, importer, specifier)
	if err != nil {
		return "", errors.NewResolutionFailure(specifier, err)
	}

	filePath, err := fileLocation(specifier, location)
	if err != nil {
		r.logger.Debug(ctx, "rejected non-file resolution",
			"importer", importer, "specifier", specifier, "target", location)
		return "", err
	}

	r.memo.Add(key, filePath)

	return filePath, nil
}

// fileLocation applies the file-scheme-only policy to a resolved
// location and converts it to an absolute path.
func fileLocation(specifier, location string) (string, error) {
	if scheme := locationScheme(location); scheme != "" {
		if scheme != "file" {
			return "", errors.NewUnsupportedScheme(specifier, location)
		}
		parsed, err := url.Parse(location)
		if err != nil {
			return "", errors.NewUnsupportedScheme(specifier, location)
		}
		location = parsed.Path
	}

	abs, err := filepath.Abs(location)
	if err != nil {
		return "", errors.NewResolutionFailure(specifier, err)
	}

	return abs, nil
}

// locationScheme extracts a URI scheme from a location string, or ""
// when the location is a plain path. Single-letter schemes are ignored
// so Windows drive paths are not mistaken for URIs.
func locationScheme(location string) string {
	idx := strings.Index(location, ":")
	if idx <= 1 {
		return ""
	}
	scheme := location[:idx]
	for _, c := range scheme {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return ""
		}
	}

	return strings.ToLower(scheme)
}
