package lang

import "testing"

func TestParseMinimalRoute(t *testing.T) {
	src := `
[path="/hello"]:GET {
	@return json({ message: "hi" });
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(prog.Routes))
	}
	route := prog.Routes[0]
	if route.Method != MethodGet {
		t.Errorf("expected GET, got %s", route.Method)
	}
	if route.Return.Kind != ReturnJSON {
		t.Errorf("expected json return kind")
	}
	if len(route.Path.Segments) != 1 || route.Path.Segments[0].Text != "hello" {
		t.Errorf("unexpected path segments: %+v", route.Path.Segments)
	}
}

func TestParseServerBlock(t *testing.T) {
	src := `
@server {
	port: 8080;
	host: "0.0.0.0";
	database: "app.db";
}
[path="/"]:GET {
	@return json(null);
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prog.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", prog.Server.Port)
	}
	if prog.Server.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %q", prog.Server.Host)
	}
	if !prog.Server.HasDB || prog.Server.Database != "app.db" {
		t.Errorf("expected database app.db, got %+v", prog.Server)
	}
}

func TestParseDatabaseBlockPreservesWhitespace(t *testing.T) {
	src := `
@database {
	CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name TEXT
	);
}
[path="/"]:GET {
	@return json(null);
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prog.Schema == nil {
		t.Fatalf("expected schema bootstrap")
	}
	if !containsAll(prog.Schema.SQL, "CREATE TABLE users", "id INTEGER PRIMARY KEY") {
		t.Errorf("unexpected schema SQL: %q", prog.Schema.SQL)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !contains(s, sub) {
			return false
		}
	}
	return true
}

func contains(s, sub string) bool {
	return len(sub) == 0 || indexOf(s, sub) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestParseRouteWithBindingsAndIf(t *testing.T) {
	src := `
[path="/users/:id"]:GET {
	--found: sql("SELECT * FROM users WHERE id = ?", param(:id));
	status: if (--found: 200; else: 404);
	@return json(if (--found: --found; else: { error: "not found" }));
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	route := prog.Routes[0]
	if len(route.Bindings) != 1 || route.Bindings[0].Name != "found" {
		t.Fatalf("unexpected bindings: %+v", route.Bindings)
	}
	if route.Status == nil || route.Status.Kind != ExprIf {
		t.Fatalf("expected status to be an if expression")
	}
}

func TestParseRejectsUndeclaredVariable(t *testing.T) {
	src := `
[path="/"]:GET {
	@return json(--missing);
}
`
	_, err := Parse(src)
	if err == nil {
		t.Fatalf("expected error for undeclared variable")
	}
	if _, ok := err.(*CompileError); !ok {
		t.Fatalf("expected *CompileError, got %T", err)
	}
}

func TestParseRejectsDuplicateReturn(t *testing.T) {
	src := `
[path="/"]:GET {
	@return json(1);
	@return json(2);
}
`
	_, err := Parse(src)
	if err == nil {
		t.Fatalf("expected error for duplicate @return")
	}
}

func TestParseRejectsCatchAllCombinedWithText(t *testing.T) {
	src := `
[path="/foo/*"]:GET {
	@return json(1);
}
`
	_, err := Parse(src)
	if err == nil {
		t.Fatalf("expected error for invalid catch-all usage")
	}
}

func TestParsePathPatternCatchAll(t *testing.T) {
	p, err := ParsePathPattern("*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.CatchAll {
		t.Errorf("expected CatchAll pattern")
	}
}

func TestParseBareIdentifierComparisonOperand(t *testing.T) {
	src := `
[path="/a"]:GET {
	--r: header(x-role);
	status: if(--r = admin: 200; else: 403);
	@return json(if(--r = admin: {"ok":true}; else: {"err":"nope"}));
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	route := prog.Routes[0]
	cond := route.Status.IfClauses[0].Cond
	if cond.Kind != CondEquals {
		t.Fatalf("expected an equals condition, got %+v", cond)
	}
	if cond.Right.Kind != ExprLiteral || cond.Right.LitKind != LitString || cond.Right.Str != "admin" {
		t.Fatalf("expected bare identifier 'admin' to parse as a string literal, got %+v", cond.Right)
	}
}

func TestParsePathPatternParams(t *testing.T) {
	p, err := ParsePathPattern("/users/:id/posts/:postID")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(p.Segments))
	}
	if p.Segments[1].Kind != SegParam || p.Segments[1].Text != "id" {
		t.Errorf("unexpected segment 1: %+v", p.Segments[1])
	}
}
