// Package server wires the script pipeline, debug core, and live reload
// hub into a single HTTP server.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/srcserve/srcserve/internal/analyze"
	"github.com/srcserve/srcserve/internal/cache"
	"github.com/srcserve/srcserve/internal/config"
	"github.com/srcserve/srcserve/internal/debug"
	"github.com/srcserve/srcserve/internal/logging"
	"github.com/srcserve/srcserve/internal/resolve"
	"github.com/srcserve/srcserve/internal/transpile"
	"github.com/srcserve/srcserve/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

// Server serves scripts and static assets from the configured base
// folder, with optional live reload in development.
type Server struct {
	config *config.Config
	logger logging.Logger

	transpiler transpile.Transpiler
	analyzer   analyze.Analyzer
	core       debug.Core
	resolveFn  resolve.Func

	pipeline *transpile.Pipeline
	memo     *analyze.Memo
	handler  *ScriptHandler
	hub      *ReloadHub

	httpServer  *http.Server
	fileWatcher *watcher.Watcher
}

// Option customizes Server construction.
type Option func(*Server)

// WithTranspiler replaces the default pass-through transpiler.
func WithTranspiler(transpiler transpile.Transpiler) Option {
	return func(s *Server) { s.transpiler = transpiler }
}

// WithAnalyzer replaces the default source analyzer.
func WithAnalyzer(analyzer analyze.Analyzer) Option {
	return func(s *Server) { s.analyzer = analyzer }
}

// WithCore replaces the default debug core.
func WithCore(core debug.Core) Option {
	return func(s *Server) { s.core = core }
}

// WithResolutionFunc replaces the default node-style import resolution
// algorithm. The file-scheme policy gate stays in place.
func WithResolutionFunc(fn resolve.Func) Option {
	return func(s *Server) { s.resolveFn = fn }
}

// New builds a Server from cfg.
func New(cfg *config.Config, logger logging.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		config: cfg,
		logger: logger.WithComponent("server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.transpiler == nil {
		s.transpiler = transpile.Identity()
	}
	if s.analyzer == nil {
		s.analyzer = analyze.Basic()
	}
	if s.core == nil {
		s.core = debug.NewBasicCore(logger)
	}

	s.pipeline = transpile.NewPipeline(s.transpiler, cfg.Scripts.MaxTranspileCacheSize, logger)
	s.memo = analyze.NewMemo(s.analyzer, cfg.Scripts.MaxAnalyzeCacheSize, logger)

	var resolverOpts []resolve.Option
	if s.resolveFn != nil {
		resolverOpts = append(resolverOpts, resolve.WithResolutionFunc(s.resolveFn))
	}
	resolver, err := resolve.NewResolver(logger, resolverOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating resolver: %w", err)
	}

	host := newScriptHost(cfg.Scripts.BaseFolder, s.pipeline, s.memo, resolver)
	s.handler = NewScriptHandler(s.core, host, cfg.Scripts.FileEndings, cfg.Scripts.BaseFolder, logger)
	s.hub = NewReloadHub(s.allowedOrigins(), logger)

	return s, nil
}

// Handler returns the full route tree including health, cache stats,
// and the reload websocket endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/cache", s.handleCacheStats)
	mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	mux.Handle("/", s.handler)

	return Chain(mux,
		RequestLogging(s.logger),
		CORS(s.config.Server.AllowedOrigins),
	)
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	if s.config.Development.LiveReload {
		if err := s.startWatcher(ctx); err != nil {
			listener.Close()
			return err
		}
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()

	s.logger.Info(ctx, "listening", "addr", listener.Addr().String(),
		"base_folder", s.config.Scripts.BaseFolder,
		"live_reload", s.config.Development.LiveReload)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// startWatcher begins watching the base folder and broadcasting reload
// notifications. Caches need no invalidation on change since every entry
// is keyed by content.
func (s *Server) startWatcher(ctx context.Context) error {
	delay := time.Duration(s.config.Development.DebounceMillis) * time.Millisecond
	fw, err := watcher.New(delay, s.logger)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	fw.AddFilter(watcher.SkipHidden)
	fw.AddFilter(watcher.ExtensionFilter(s.config.Scripts.FileEndings))
	fw.AddHandler(func(events []watcher.ChangeEvent) {
		s.logger.Info(ctx, "scripts changed", "files", len(events))
		s.hub.Broadcast()
	})

	if err := fw.WatchRecursive(s.config.Scripts.BaseFolder); err != nil {
		fw.Stop()
		return fmt.Errorf("watching %s: %w", s.config.Scripts.BaseFolder, err)
	}

	fw.Start(ctx)
	s.fileWatcher = fw

	go func() {
		<-ctx.Done()
		fw.Stop()
	}()

	return nil
}

// CacheStatsSnapshot reports the state of both content caches.
type CacheStatsSnapshot struct {
	Transpile cache.Stats `json:"transpile"`
	Analyze   cache.Stats `json:"analyze"`
}

// CacheStats returns current cache counters.
func (s *Server) CacheStats() CacheStatsSnapshot {
	return CacheStatsSnapshot{
		Transpile: s.pipeline.CacheStats(),
		Analyze:   s.memo.CacheStats(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.CacheStats())
}

// allowedOrigins builds the websocket origin allow list from the
// configured origins plus the server's own address.
func (s *Server) allowedOrigins() []string {
	origins := []string{
		fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		fmt.Sprintf("localhost:%d", s.config.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", s.config.Server.Port),
	}
	return append(origins, s.config.Server.AllowedOrigins...)
}
