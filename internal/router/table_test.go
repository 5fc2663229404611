package router

import (
	"testing"

	"github.com/nonibytes/cssapi/internal/lang"
)

func mustPattern(t *testing.T, raw string) lang.PathPattern {
	p, err := lang.ParsePathPattern(raw)
	if err != nil {
		t.Fatalf("ParsePathPattern(%q): %v", raw, err)
	}
	return p
}

func TestLookupLiteralAndParam(t *testing.T) {
	users := &lang.Route{Method: lang.MethodGet, Path: mustPattern(t, "/users/:id")}
	root := &lang.Route{Method: lang.MethodGet, Path: mustPattern(t, "/")}

	table := Build([]*lang.Route{root, users})

	m, ok := table.Lookup(lang.MethodGet, "/users/42")
	if !ok {
		t.Fatalf("expected a match")
	}
	if m.Route != users {
		t.Fatalf("expected the /users/:id route")
	}
	if m.Params["id"] != "42" {
		t.Fatalf("expected id=42, got %+v", m.Params)
	}
}

func TestLookupFirstMatchWins(t *testing.T) {
	specific := &lang.Route{Method: lang.MethodGet, Path: mustPattern(t, "/users/me")}
	generic := &lang.Route{Method: lang.MethodGet, Path: mustPattern(t, "/users/:id")}

	table := Build([]*lang.Route{specific, generic})

	m, ok := table.Lookup(lang.MethodGet, "/users/me")
	if !ok || m.Route != specific {
		t.Fatalf("expected the earlier-declared specific route to win")
	}
}

func TestLookupCatchAll(t *testing.T) {
	catchAll := &lang.Route{Method: lang.MethodGet, Path: mustPattern(t, "*")}
	table := Build([]*lang.Route{catchAll})

	m, ok := table.Lookup(lang.MethodGet, "/anything/deep/here")
	if !ok || m.Route != catchAll {
		t.Fatalf("expected catch-all route to match")
	}
}

func TestLookupHeadFallsBackToGet(t *testing.T) {
	get := &lang.Route{Method: lang.MethodGet, Path: mustPattern(t, "/ping")}
	table := Build([]*lang.Route{get})

	m, ok := table.Lookup(lang.MethodHead, "/ping")
	if !ok || m.Route != get {
		t.Fatalf("expected HEAD to fall back to the GET route")
	}
}

func TestLookupNoMatch(t *testing.T) {
	table := Build([]*lang.Route{{Method: lang.MethodGet, Path: mustPattern(t, "/ping")}})
	if _, ok := table.Lookup(lang.MethodGet, "/missing"); ok {
		t.Fatalf("expected no match")
	}
}
