package debug

import (
	"context"
	"path"
	"strings"

	"github.com/srcserve/srcserve/internal/errors"
	"github.com/srcserve/srcserve/internal/logging"
)

// nativeTwins lists extensions tried when a requested script is missing
// but a directly servable sibling may exist under another name.
var nativeTwins = []string{".js", ".mjs"}

// BasicCore is the default debug core. It reads and transpiles the
// requested script, resolves every static import it contains, records an
// analysis of the transpiled code, and serves the result as JavaScript.
type BasicCore struct {
	logger logging.Logger
}

// NewBasicCore returns a BasicCore logging through logger.
func NewBasicCore(logger logging.Logger) *BasicCore {
	return &BasicCore{logger: logger.WithComponent("debug-core")}
}

// ServeScript implements Core.
func (c *BasicCore) ServeScript(ctx context.Context, host Host, res Responder, urlPath string) {
	code, err := host.ReadScript(ctx, urlPath)
	if err != nil {
		if errors.IsFileNotFound(err) {
			if twin, ok := c.findTwin(host, urlPath); ok {
				c.logger.Debug(ctx, "redirecting to sibling script",
					"requested", urlPath, "twin", twin)
				res.Redirect(twin)
				return
			}
			res.FileNotFound()
			return
		}
		res.InternalError(err)
		return
	}

	for _, specifier := range ScanImports(code) {
		if _, err := host.ResolveImport(ctx, urlPath, specifier); err != nil {
			c.logger.Error(ctx, err, "import resolution failed",
				"script", urlPath, "specifier", specifier)
			res.InternalError(err)
			return
		}
	}

	if _, err := host.Analyze(code); err != nil {
		c.logger.Error(ctx, err, "analysis failed", "script", urlPath)
		res.InternalError(err)
		return
	}

	res.Content("application/javascript", []byte(code))
}

// findTwin looks for a sibling script with the same stem and a natively
// servable extension.
func (c *BasicCore) findTwin(host Host, urlPath string) (string, bool) {
	ext := path.Ext(urlPath)
	stem := strings.TrimSuffix(urlPath, ext)

	for _, twinExt := range nativeTwins {
		if twinExt == ext {
			continue
		}
		twin := stem + twinExt
		if host.ScriptExists(twin) {
			return twin, true
		}
	}
	return "", false
}

// ScanImports extracts static import specifiers from JavaScript or
// TypeScript source. It recognizes ES module imports and CommonJS
// require calls on a per-line basis; dynamic or multi-line forms are
// out of scope for the basic core.
func ScanImports(code string) []string {
	specifiers := make([]string, 0)

	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "import ") && strings.Contains(line, "from ") {
			start := strings.Index(line, "from ") + 5
			if start < len(line) {
				if spec := strings.Trim(line[start:], " '\";"); spec != "" {
					specifiers = append(specifiers, spec)
				}
			}
		}

		if strings.Contains(line, "require(") {
			start := strings.Index(line, "require(") + 8
			end := strings.Index(line[start:], ")")
			if end > 0 {
				if spec := strings.Trim(line[start:start+end], " '\""); spec != "" {
					specifiers = append(specifiers, spec)
				}
			}
		}
	}

	return specifiers
}
