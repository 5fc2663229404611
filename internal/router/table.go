package router

import "github.com/nonibytes/cssapi/internal/lang"

// Match is a successfully matched route plus its bound path parameters.
type Match struct {
	Route  *lang.Route
	Params map[string]string
}

// entry is one compiled route, kept in source order so first-match-wins
// scanning reproduces declaration order (spec.md §5).
type entry struct {
	route    *lang.Route
	compiled compiledPath
}

// Table is a compiled, read-only route dispatcher built once at load time
// and shared across request-handling goroutines. Catch-all routes are kept
// in a separate bucket per method so they are only ever tried after every
// non-catch-all route of that method has missed (spec.md §4.2/§8) —
// declared order still governs within each bucket.
type Table struct {
	specific map[lang.Method][]entry
	catchAll map[lang.Method][]entry
}

// Build compiles a program's routes into a dispatch table.
func Build(routes []*lang.Route) *Table {
	t := &Table{specific: map[lang.Method][]entry{}, catchAll: map[lang.Method][]entry{}}
	for _, r := range routes {
		e := entry{route: r, compiled: compile(r.Path)}
		if e.compiled.catchAll {
			t.catchAll[r.Method] = append(t.catchAll[r.Method], e)
		} else {
			t.specific[r.Method] = append(t.specific[r.Method], e)
		}
	}
	return t
}

// Lookup finds the first route (in declaration order) whose method and path
// pattern matches the request. HEAD requests fall back to GET routes when no
// HEAD route matches, since the HTTP adapter suppresses the response body
// for HEAD regardless of which route served it (spec.md §4.5).
func (t *Table) Lookup(method lang.Method, path string) (Match, bool) {
	parts := splitPath(path)

	if m, ok := t.lookupMethod(method, parts); ok {
		return m, true
	}
	if method == lang.MethodHead {
		if m, ok := t.lookupMethod(lang.MethodGet, parts); ok {
			return m, true
		}
	}
	return Match{}, false
}

func (t *Table) lookupMethod(method lang.Method, parts []string) (Match, bool) {
	if m, ok := scan(t.specific[method], parts); ok {
		return m, true
	}
	return scan(t.catchAll[method], parts)
}

func scan(entries []entry, parts []string) (Match, bool) {
	for _, e := range entries {
		if params, ok := e.compiled.match(parts); ok {
			return Match{Route: e.route, Params: params}, true
		}
	}
	return Match{}, false
}
