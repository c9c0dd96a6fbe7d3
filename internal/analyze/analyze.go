// Package analyze deduplicates repeated code analysis of identical
// content with a digest-keyed, byte-budgeted cache.
//
// The analyzer itself is an external pure function of the code alone; on
// a cache hit the stored result is returned exactly as it was stored.
package analyze

import (
	"context"

	"github.com/srcserve/srcserve/internal/cache"
	"github.com/srcserve/srcserve/internal/digest"
	"github.com/srcserve/srcserve/internal/errors"
	"github.com/srcserve/srcserve/internal/logging"
)

// Result is the analyzer's serialized output. The caching layer treats
// it as an opaque immutable value; size accounting uses its length.
type Result []byte

// Analyzer produces an analysis result from source code. Implementations
// must be pure and synchronous.
type Analyzer interface {
	Analyze(code string) (Result, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(code string) (Result, error)

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(code string) (Result, error) {
	return f(code)
}

// Memo wraps an analyzer with content-addressed caching. It holds its
// own cache instance with its own byte budget, separate from the
// transpile cache.
type Memo struct {
	analyzer Analyzer
	cache    *cache.Cache[Result]
	logger   logging.Logger
}

// NewMemo creates a caching wrapper around analyzer with the given cache
// budget in bytes.
func NewMemo(analyzer Analyzer, maxCacheBytes int64, logger logging.Logger) *Memo {
	return &Memo{
		analyzer: analyzer,
		cache: cache.New(maxCacheBytes, func(key string, value Result) int64 {
			return int64(len(key) + len(value))
		}),
		logger: logger.WithComponent("analyze"),
	}
}

// Analyze returns the analysis for code, invoking the analyzer at most
// once per distinct content while the cache retains the entry. Analyzer
// failures are surfaced and never cached: a transient or input-dependent
// failure must not permanently poison a digest.
func (m *Memo) Analyze(code string) (Result, error) {
	key := digest.FromString(code)
	if cached, found := m.cache.Get(key); found {
		return cached, nil
	}

	result, err := m.analyzer.Analyze(code)
	if err != nil {
		return nil, errors.NewAnalysisFailure(err)
	}

	m.cache.Set(key, result)
	m.logger.Debug(context.Background(), "analysis cached", "digest", key, "bytes", len(result))

	return result, nil
}

// CacheStats exposes analysis cache counters for the stats endpoint.
func (m *Memo) CacheStats() cache.Stats {
	return m.cache.Stats()
}
