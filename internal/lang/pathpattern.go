package lang

import "strings"

// ParsePathPattern splits a route selector's raw path string into segments.
// A segment is a literal, a ":name" parameter, or the catch-all "*", which
// is only legal as the pattern's sole segment (spec.md §3).
func ParsePathPattern(raw string) (PathPattern, error) {
	pat := PathPattern{Raw: raw}
	if raw == "*" {
		pat.Segments = []Segment{{Kind: SegCatchAll, Text: "*"}}
		pat.CatchAll = true
		return pat, nil
	}
	if raw == "" || raw[0] != '/' {
		return pat, compileErrf(0, 0, "path pattern %q must start with '/'", raw)
	}

	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		// raw was "/" (or a run of slashes): the root path has zero segments.
		return pat, nil
	}

	parts := strings.Split(trimmed, "/")
	for _, part := range parts {
		switch {
		case part == "":
			return pat, compileErrf(0, 0, "path pattern %q has an empty segment", raw)
		case part == "*":
			return pat, compileErrf(0, 0, "'*' is only legal as the entire path pattern (\"*\")")
		case strings.Contains(part, "*"):
			return pat, compileErrf(0, 0, "'*' cannot be combined with other text in segment %q", part)
		case strings.HasPrefix(part, ":"):
			name := part[1:]
			if name == "" {
				return pat, compileErrf(0, 0, "path parameter in %q is missing a name", raw)
			}
			pat.Segments = append(pat.Segments, Segment{Kind: SegParam, Text: name})
		default:
			pat.Segments = append(pat.Segments, Segment{Kind: SegLiteral, Text: part})
		}
	}
	return pat, nil
}
