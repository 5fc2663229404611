// Package router compiles parsed route selectors into a dispatch table and
// matches incoming request paths against them.
package router

import (
	"strings"

	"github.com/nonibytes/cssapi/internal/lang"
)

// compiledPath is a lang.PathPattern reduced to the data the matcher needs
// at request time.
type compiledPath struct {
	segments []lang.Segment
	catchAll bool
}

func compile(p lang.PathPattern) compiledPath {
	return compiledPath{segments: p.Segments, catchAll: p.CatchAll}
}

// match reports whether the request path, already split on '/' into parts,
// satisfies the pattern, returning any bound path parameters.
func (c compiledPath) match(parts []string) (map[string]string, bool) {
	if c.catchAll {
		return map[string]string{}, true
	}
	if len(parts) != len(c.segments) {
		return nil, false
	}
	params := make(map[string]string, len(c.segments))
	for i, seg := range c.segments {
		switch seg.Kind {
		case lang.SegLiteral:
			if parts[i] != seg.Text {
				return nil, false
			}
		case lang.SegParam:
			params[seg.Text] = parts[i]
		}
	}
	return params, true
}

// splitPath splits a request URL path into non-empty segments, matching the
// same convention ParsePathPattern uses for route selectors.
func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
