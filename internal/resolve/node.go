package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// builtinModules are the host runtime's built-in modules. They resolve
// to the node: scheme so the policy gate rejects them uniformly.
var builtinModules = map[string]struct{}{
	"assert": {}, "buffer": {}, "child_process": {}, "cluster": {},
	"crypto": {}, "dns": {}, "events": {}, "fs": {}, "http": {},
	"https": {}, "net": {}, "os": {}, "path": {}, "process": {},
	"querystring": {}, "readline": {}, "stream": {}, "timers": {},
	"tls": {}, "tty": {}, "url": {}, "util": {}, "v8": {},
	"worker_threads": {}, "zlib": {},
}

// inferredExtensions is the extension inference order for specifiers
// written without one.
var inferredExtensions = []string{".js", ".mjs", ".ts"}

// NodeResolution returns the default resolution algorithm: relative
// specifiers resolve against the importer's directory, bare specifiers
// through node_modules, built-ins to the node: scheme.
func NodeResolution() Func {
	return func(ctx context.Context, importer, specifier string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if specifier == "" {
			return "", fmt.Errorf("empty import specifier")
		}

		switch {
		case strings.HasPrefix(specifier, "node:"):
			return specifier, nil
		case strings.HasPrefix(specifier, "./"), strings.HasPrefix(specifier, "../"):
			return resolveAsFileOrDir(filepath.Join(filepath.Dir(importer), specifier))
		case strings.HasPrefix(specifier, "/"):
			return resolveAsFileOrDir(specifier)
		default:
			if _, builtin := builtinModules[specifier]; builtin {
				return "node:" + specifier, nil
			}
			if locationScheme(specifier) != "" {
				// URL specifiers pass through for the policy gate.
				return specifier, nil
			}
			return resolveBare(filepath.Dir(importer), specifier)
		}
	}
}

// resolveAsFileOrDir applies extension and index inference to a path.
func resolveAsFileOrDir(path string) (string, error) {
	if isFile(path) {
		return path, nil
	}
	for _, ext := range inferredExtensions {
		if candidate := path + ext; isFile(candidate) {
			return candidate, nil
		}
	}
	if isDir(path) {
		for _, ext := range inferredExtensions {
			if candidate := filepath.Join(path, "index"+ext); isFile(candidate) {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("cannot find module file for %q", path)
}

// resolveBare walks node_modules directories upward from the importer.
func resolveBare(fromDir, specifier string) (string, error) {
	pkg, subpath := splitPackageSpecifier(specifier)

	dir := fromDir
	for {
		pkgDir := filepath.Join(dir, "node_modules", pkg)
		if isDir(pkgDir) {
			if subpath != "" {
				return resolveAsFileOrDir(filepath.Join(pkgDir, subpath))
			}
			return resolvePackageEntry(pkgDir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("cannot find module %q from %q", specifier, fromDir)
		}
		dir = parent
	}
}

// packageMetadata is the subset of package.json consulted for the
// package entry point.
type packageMetadata struct {
	Module string `json:"module"`
	Main   string `json:"main"`
}

// resolvePackageEntry picks a package's entry point from its metadata,
// preferring the ES-module entry, falling back to index inference.
func resolvePackageEntry(pkgDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err == nil {
		var meta packageMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return "", fmt.Errorf("invalid package metadata in %q: %w", pkgDir, err)
		}
		entry := meta.Module
		if entry == "" {
			entry = meta.Main
		}
		if entry != "" {
			return resolveAsFileOrDir(filepath.Join(pkgDir, entry))
		}
	}

	return resolveAsFileOrDir(pkgDir)
}

// splitPackageSpecifier separates the package name (including a scope
// segment) from an optional subpath.
func splitPackageSpecifier(specifier string) (pkg, subpath string) {
	parts := strings.SplitN(specifier, "/", 3)
	if strings.HasPrefix(specifier, "@") && len(parts) >= 2 {
		pkg = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			subpath = parts[2]
		}
		return pkg, subpath
	}

	pkg = parts[0]
	subpath = strings.TrimPrefix(specifier, pkg)
	subpath = strings.TrimPrefix(subpath, "/")

	return pkg, subpath
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
