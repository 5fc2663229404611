package sqlrt

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/nonibytes/cssapi/internal/eval"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sql.Open("sqlite", filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.ExecContext(context.Background(), `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestExecInsertShapesIDAndChanges(t *testing.T) {
	db := newTestDB(t)
	exec := NewExecutor(NewCache(db))

	v, err := exec.Exec("INSERT INTO users (name) VALUES (?)", []eval.Value{eval.String("ada")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != eval.KindObject {
		t.Fatalf("expected object result, got %+v", v)
	}
	if v.Object["id"].Num != 1 {
		t.Errorf("expected id=1, got %+v", v.Object["id"])
	}
	if v.Object["changes"].Num != 1 {
		t.Errorf("expected changes=1, got %+v", v.Object["changes"])
	}
}

func TestExecSelectWithArgsReturnsFirstRowOrNull(t *testing.T) {
	db := newTestDB(t)
	exec := NewExecutor(NewCache(db))

	if _, err := exec.Exec("INSERT INTO users (name) VALUES (?)", []eval.Value{eval.String("grace")}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	found, err := exec.Exec("SELECT * FROM users WHERE name = ?", []eval.Value{eval.String("grace")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.Kind != eval.KindObject || found.Object["name"].Str != "grace" {
		t.Fatalf("unexpected result: %+v", found)
	}

	missing, err := exec.Exec("SELECT * FROM users WHERE name = ?", []eval.Value{eval.String("nobody")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing.Kind != eval.KindNull {
		t.Fatalf("expected null for no rows, got %+v", missing)
	}
}

func TestExecSelectWithoutArgsReturnsArray(t *testing.T) {
	db := newTestDB(t)
	exec := NewExecutor(NewCache(db))

	for _, name := range []string{"a", "b", "c"} {
		if _, err := exec.Exec("INSERT INTO users (name) VALUES (?)", []eval.Value{eval.String(name)}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	all, err := exec.Exec("SELECT * FROM users", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if all.Kind != eval.KindArray || len(all.Array) != 3 {
		t.Fatalf("expected array of 3 rows, got %+v", all)
	}
}

func TestExecInvalidSQLReturnsInBandError(t *testing.T) {
	db := newTestDB(t)
	exec := NewExecutor(NewCache(db))

	v, err := exec.Exec("SELEKT * FROM nowhere", nil)
	if err != nil {
		t.Fatalf("expected no Go error, got %v", err)
	}
	if v.Kind != eval.KindObject || v.Object["error"].Kind != eval.KindString {
		t.Fatalf("expected in-band error object, got %+v", v)
	}
}

func TestCacheCollapsesConcurrentPrepare(t *testing.T) {
	db := newTestDB(t)
	cache := NewCache(db)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	stmts := make(chan *sql.Stmt, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stmt, err := cache.get("SELECT * FROM users")
			if err != nil {
				errs <- err
				return
			}
			stmts <- stmt
		}()
	}
	wg.Wait()
	close(errs)
	close(stmts)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	var first *sql.Stmt
	for stmt := range stmts {
		if first == nil {
			first = stmt
		} else if stmt != first {
			t.Errorf("expected every caller to share one prepared statement")
		}
	}
	if n := len(cache.stmts); n != 1 {
		t.Errorf("expected exactly one cached statement, got %d", n)
	}
}
