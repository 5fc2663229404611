package runtime

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nonibytes/cssapi/internal/lang"
)

func TestLoadWithoutDatabaseLeavesExecutorNil(t *testing.T) {
	prog, err := lang.Parse(`
[path="/"]:GET {
	@return json(null);
}
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rt, err := Load(context.Background(), prog)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer rt.Close()

	if rt.DB != nil || rt.Executor != nil {
		t.Fatalf("expected no database wiring, got DB=%v Executor=%v", rt.DB, rt.Executor)
	}
	if rt.Table == nil {
		t.Fatalf("expected a route table regardless of database configuration")
	}
}

func TestLoadRunsDatabaseBootstrap(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "app.db")
	src := `
@server {
	database: "` + dbPath + `";
}
@database {
	CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT);
}
[path="/"]:GET {
	@return json(null);
}
`
	prog, err := lang.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rt, err := Load(context.Background(), prog)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer rt.Close()

	if rt.DB == nil {
		t.Fatalf("expected a database connection")
	}
	var count int
	row := rt.DB.QueryRow("SELECT COUNT(*) FROM widgets")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query bootstrap table: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty table, got %d rows", count)
	}
}

func TestSplitStatementsIgnoresSemicolonsInsideStrings(t *testing.T) {
	stmts := splitStatements(`INSERT INTO t (v) VALUES ('a;b'); INSERT INTO t (v) VALUES ('c');`)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %v", len(stmts), stmts)
	}
}
