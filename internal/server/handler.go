package server

import (
	"net/http"
	"path"
	"strings"

	"github.com/srcserve/srcserve/internal/debug"
	"github.com/srcserve/srcserve/internal/errors"
	"github.com/srcserve/srcserve/internal/logging"
)

// ScriptHandler routes requests below the script mount. Paths with a
// configured script extension go to the debug core; everything else
// falls through to static file serving from the base folder.
type ScriptHandler struct {
	core    debug.Core
	host    debug.Host
	endings map[string]struct{}
	static  http.Handler
	logger  logging.Logger
}

// NewScriptHandler builds a handler serving scripts through core and
// static assets from baseFolder.
func NewScriptHandler(core debug.Core, host debug.Host, fileEndings []string, baseFolder string, logger logging.Logger) *ScriptHandler {
	endings := make(map[string]struct{}, len(fileEndings))
	for _, ending := range fileEndings {
		endings[strings.ToLower(ending)] = struct{}{}
	}

	return &ScriptHandler{
		core:    core,
		host:    host,
		endings: endings,
		static:  http.FileServer(http.Dir(baseFolder)),
		logger:  logger.WithComponent("scripts"),
	}
}

// IsScriptPath reports whether urlPath is handled by the debug core.
func (h *ScriptHandler) IsScriptPath(urlPath string) bool {
	_, ok := h.endings[strings.ToLower(path.Ext(urlPath))]
	return ok
}

func (h *ScriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// A misbehaving core must surface as a 500, not kill the server.
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error(r.Context(), nil, "panic serving script", "path", r.URL.Path, "panic", rec)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}()

	if !h.IsScriptPath(r.URL.Path) {
		h.static.ServeHTTP(w, r)
		return
	}

	if r.Method != http.MethodGet {
		err := errors.NewMethodNotSupported(r.Method).WithPath(r.URL.Path)
		h.logger.Debug(r.Context(), "method not supported", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, err.Message, errors.StatusFor(err))
		return
	}

	res := newHTTPResponder(w, r, h.logger)
	h.core.ServeScript(r.Context(), h.host, res, r.URL.Path)

	if !res.responded() {
		h.logger.Error(r.Context(), nil, "core produced no outcome", "path", r.URL.Path)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// httpResponder translates debug.Responder outcomes into HTTP responses.
// It accepts only the first outcome; later calls are logged and dropped.
type httpResponder struct {
	w      http.ResponseWriter
	r      *http.Request
	logger logging.Logger
	done   bool
}

var _ debug.Responder = (*httpResponder)(nil)

func newHTTPResponder(w http.ResponseWriter, r *http.Request, logger logging.Logger) *httpResponder {
	return &httpResponder{w: w, r: r, logger: logger}
}

func (res *httpResponder) responded() bool { return res.done }

// claim marks the response as produced and reports whether this call won.
func (res *httpResponder) claim(outcome string) bool {
	if res.done {
		res.logger.Error(res.r.Context(), nil, "duplicate response outcome dropped",
			"path", res.r.URL.Path, "outcome", outcome)
		return false
	}
	res.done = true
	return true
}

func (res *httpResponder) Redirect(urlPath string) {
	if !res.claim("redirect") {
		return
	}
	http.Redirect(res.w, res.r, urlPath, http.StatusTemporaryRedirect)
}

func (res *httpResponder) Content(contentType string, body []byte) {
	if !res.claim("content") {
		return
	}
	res.w.Header().Set("Content-Type", contentType)
	res.w.Header().Set("Cache-Control", "no-cache")
	res.w.WriteHeader(http.StatusOK)
	if _, err := res.w.Write(body); err != nil {
		res.logger.Debug(res.r.Context(), "writing response body", "error", err)
	}
}

func (res *httpResponder) FileNotFound() {
	if !res.claim("not-found") {
		return
	}
	http.Error(res.w, "file not found", http.StatusNotFound)
}

func (res *httpResponder) InternalError(err error) {
	if !res.claim("error") {
		return
	}
	res.logger.Error(res.r.Context(), err, "script request failed", "path", res.r.URL.Path)
	http.Error(res.w, "internal server error", http.StatusInternalServerError)
}
