// Package runtime loads a parsed program into a live server: it opens the
// database, runs the schema bootstrap, and builds the route table that the
// HTTP adapter dispatches against.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/nonibytes/cssapi/internal/lang"
	"github.com/nonibytes/cssapi/internal/router"
	"github.com/nonibytes/cssapi/internal/sqlrt"
)

// Runtime aggregates everything a request needs: the compiled route table,
// the shared database handle, and the statement cache built on top of it.
// It is constructed once at startup and shared read-only across every
// request-handling goroutine (spec.md §4.4).
type Runtime struct {
	Program  *lang.Program
	Table    *router.Table
	DB       *sql.DB
	Cache    *sqlrt.Cache
	Executor *sqlrt.Executor
}

// Load opens the database named by the program's @server block (if any),
// runs the @database bootstrap, and builds the route table. Programs with
// no database configured run with DB, Cache and Executor left nil; a
// sql(...) call in that case evaluates to an in-band {"error": ...} value.
func Load(ctx context.Context, prog *lang.Program) (*Runtime, error) {
	rt := &Runtime{Program: prog, Table: router.Build(prog.Routes)}

	if !prog.Server.HasDB {
		if prog.Schema != nil {
			log.Printf("warning: @database bootstrap present but no database configured in @server; schema will not run")
		}
		return rt, nil
	}

	db, err := connect(ctx, prog.Server.Database)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", prog.Server.Database, err)
	}
	rt.DB = db
	rt.Cache = sqlrt.NewCache(db)
	rt.Executor = sqlrt.NewExecutor(rt.Cache)

	if prog.Schema != nil {
		if err := bootstrap(ctx, db, prog.Schema.SQL); err != nil {
			db.Close()
			return nil, fmt.Errorf("run @database bootstrap: %w", err)
		}
	}

	return rt, nil
}

// connect opens the sqlite database with the DSN pragmas and post-open
// PRAGMAs the teacher uses for its own SQLite adapter (busy timeout and
// foreign keys in the DSN, WAL mode and normal sync after connecting).
func connect(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_foreign_keys=on"
	} else {
		dsn += "&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys=ON;")
	return db, nil
}

// bootstrap runs the verbatim @database SQL text as a single script. Each
// semicolon-terminated statement is executed in turn since database/sql's
// Exec does not support multi-statement scripts the way the sqlite CLI
// does.
func bootstrap(ctx context.Context, db *sql.DB, script string) error {
	for _, stmt := range splitStatements(script) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %q: %w", strings.TrimSpace(stmt), err)
		}
	}
	return nil
}

// splitStatements splits on ';' outside of quoted strings. Bootstrap SQL is
// schema DDL (CREATE TABLE, CREATE INDEX), not user data, so this simple
// split is sufficient without a full SQL tokenizer.
func splitStatements(script string) []string {
	var stmts []string
	var cur strings.Builder
	inString := false
	var quote rune

	for _, r := range script {
		switch {
		case inString:
			cur.WriteRune(r)
			if r == quote {
				inString = false
			}
		case r == '\'' || r == '"':
			inString = true
			quote = r
			cur.WriteRune(r)
		case r == ';':
			stmts = append(stmts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		stmts = append(stmts, cur.String())
	}
	return stmts
}

// Close releases the statement cache and database handle. Safe to call on a
// Runtime with no database configured.
func (rt *Runtime) Close() error {
	if rt.Cache != nil {
		_ = rt.Cache.Close()
	}
	if rt.DB != nil {
		return rt.DB.Close()
	}
	return nil
}
