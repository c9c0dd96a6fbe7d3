package server

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/srcserve/srcserve/internal/analyze"
	"github.com/srcserve/srcserve/internal/debug"
	"github.com/srcserve/srcserve/internal/errors"
	"github.com/srcserve/srcserve/internal/resolve"
	"github.com/srcserve/srcserve/internal/transpile"
)

// scriptHost implements debug.Host against the local base folder. URL
// paths are mapped into the base folder; traversal outside it is not
// possible because the path is rooted before joining.
type scriptHost struct {
	baseFolder string
	pipeline   *transpile.Pipeline
	memo       *analyze.Memo
	resolver   *resolve.Resolver
}

var _ debug.Host = (*scriptHost)(nil)

func newScriptHost(baseFolder string, pipeline *transpile.Pipeline, memo *analyze.Memo, resolver *resolve.Resolver) *scriptHost {
	return &scriptHost{
		baseFolder: baseFolder,
		pipeline:   pipeline,
		memo:       memo,
		resolver:   resolver,
	}
}

// fsPath maps a request path to a file below the base folder.
func (h *scriptHost) fsPath(urlPath string) string {
	return filepath.Join(h.baseFolder, filepath.FromSlash(path.Clean("/"+urlPath)))
}

func (h *scriptHost) ReadScript(ctx context.Context, urlPath string) (string, error) {
	fsPath := h.fsPath(urlPath)

	raw, err := os.ReadFile(fsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewFileNotFound(urlPath)
		}
		return "", errors.NewIOError("reading script", err).WithPath(urlPath)
	}

	return h.pipeline.MaybeTranspile(ctx, fsPath, string(raw))
}

func (h *scriptHost) ScriptExists(urlPath string) bool {
	info, err := os.Stat(h.fsPath(urlPath))
	return err == nil && info.Mode().IsRegular()
}

func (h *scriptHost) Analyze(code string) (analyze.Result, error) {
	return h.memo.Analyze(code)
}

func (h *scriptHost) ResolveImport(ctx context.Context, importerPath, specifier string) (string, error) {
	return h.resolver.ResolveImportPath(ctx, h.fsPath(importerPath), specifier)
}
