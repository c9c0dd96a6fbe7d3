// Package transpile coordinates on-demand transpilation of non-native
// script files with content-addressed caching.
//
// The external transpiler is an opaque collaborator behind the Transpiler
// interface. The pipeline's job is deciding pass-through versus transpile,
// deduplicating work by content digest, and normalizing failures into the
// serving error taxonomy.
package transpile

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/srcserve/srcserve/internal/cache"
	"github.com/srcserve/srcserve/internal/digest"
	"github.com/srcserve/srcserve/internal/errors"
	"github.com/srcserve/srcserve/internal/logging"
)

// NativeExtensions are the extensions served as-is, without hashing,
// cache lookups, or transpiler calls.
var NativeExtensions = []string{".js", ".mjs"}

// Result is the transpiler's output. A successful call must return a
// non-nil Result; success without one is a broken contract.
type Result struct {
	Code string
}

// Transpiler converts source code into natively executable JavaScript.
// Implementations must be deterministic functions of the input code.
type Transpiler interface {
	Transpile(ctx context.Context, code string) (*Result, error)
}

// TranspilerFunc adapts a function to the Transpiler interface.
type TranspilerFunc func(ctx context.Context, code string) (*Result, error)

// Transpile implements Transpiler.
func (f TranspilerFunc) Transpile(ctx context.Context, code string) (*Result, error) {
	return f(ctx, code)
}

// Identity returns the input code unchanged. It stands in for a real
// transpiler in tests and for hosts whose scripts need no transformation.
func Identity() Transpiler {
	return TranspilerFunc(func(_ context.Context, code string) (*Result, error) {
		return &Result{Code: code}, nil
	})
}

// Pipeline decides pass-through versus transpile and deduplicates
// transpiler work across requests via a digest-keyed byte-budgeted cache.
//
// The cache key is a hash of content, not of file path: identical source
// reachable through different paths shares one entry, and renames with
// unchanged content keep their cache slot.
type Pipeline struct {
	transpiler Transpiler
	cache      *cache.Cache[string]
	native     map[string]struct{}
	logger     logging.Logger
}

// NewPipeline creates a pipeline with the given transpiler and transpile
// cache budget in bytes.
func NewPipeline(transpiler Transpiler, maxCacheBytes int64, logger logging.Logger) *Pipeline {
	native := make(map[string]struct{}, len(NativeExtensions))
	for _, ext := range NativeExtensions {
		native[ext] = struct{}{}
	}

	return &Pipeline{
		transpiler: transpiler,
		cache:      cache.New(maxCacheBytes, cache.StringSizer),
		native:     native,
		logger:     logger.WithComponent("transpile"),
	}
}

// MaybeTranspile returns code ready for the client to execute.
//
// Native files pass through untouched. For everything else, repeated
// calls with byte-identical content return the same output and invoke
// the transpiler at most once while the cache retains the entry.
// Failures are returned to the caller and never cached, so a later
// retry with the same content re-attempts transpilation.
func (p *Pipeline) MaybeTranspile(ctx context.Context, filePath, code string) (string, error) {
	if p.isNative(filePath) {
		return code, nil
	}

	key := digest.FromString(code)
	if cached, found := p.cache.Get(key); found {
		p.logger.Debug(ctx, "transpile cache hit", "path", filePath, "digest", key)
		return cached, nil
	}

	result, err := p.transpiler.Transpile(ctx, code)
	if err != nil {
		return "", errors.NewIOError("transpile failed", err).WithPath(filePath)
	}
	if result == nil {
		// The transpiler contract guarantees a result or an error.
		err := errors.NewInvariantViolation("transpiler returned success without a result").WithPath(filePath)
		p.logger.Error(ctx, err, "transpiler contract violated", "path", filePath, "digest", key)
		return "", err
	}

	p.cache.Set(key, result.Code)
	p.logger.Debug(ctx, "transpiled and cached", "path", filePath, "digest", key, "bytes", len(result.Code))

	return result.Code, nil
}

// CacheStats exposes transpile cache counters for the stats endpoint.
func (p *Pipeline) CacheStats() cache.Stats {
	return p.cache.Stats()
}

func (p *Pipeline) isNative(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	_, ok := p.native[ext]
	return ok
}
