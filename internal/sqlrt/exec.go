package sqlrt

import (
	"context"
	"database/sql"
	"strings"

	"github.com/nonibytes/cssapi/internal/eval"
)

// Executor adapts a Cache to eval.SQLExecutor, implementing the result
// shaping rules of spec.md §4.4.
type Executor struct {
	cache *Cache
}

func NewExecutor(cache *Cache) *Executor {
	return &Executor{cache: cache}
}

// Exec runs template with the given arguments and shapes the result.
// Driver and scan errors never propagate as Go errors here: they are
// converted to an in-band {"error": ...} value so a failing query degrades
// the response body rather than the transport, per spec.md §4.4.
func (e *Executor) Exec(template string, args []eval.Value) (eval.Value, error) {
	stmt, err := e.cache.get(template)
	if err != nil {
		return eval.ErrorObject(err.Error()), nil
	}

	bound := make([]any, len(args))
	for i, a := range args {
		if a.Kind == eval.KindArray || a.Kind == eval.KindObject {
			return eval.ErrorObject("BadSqlArg: sql arguments must be null, bool, number, or string"), nil
		}
		bound[i] = a.Interface()
	}

	switch leadingKeyword(template) {
	case "select":
		return e.execSelect(stmt, bound, len(args) > 0)
	case "insert":
		return e.execInsert(stmt, bound)
	default:
		return e.execChange(stmt, bound)
	}
}

func (e *Executor) execSelect(stmt *sql.Stmt, args []any, firstRowOnly bool) (eval.Value, error) {
	rows, err := stmt.QueryContext(context.Background(), args...)
	if err != nil {
		return eval.ErrorObject(err.Error()), nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return eval.ErrorObject(err.Error()), nil
	}

	var results []eval.Value
	for rows.Next() {
		row, err := scanRow(rows, cols)
		if err != nil {
			return eval.ErrorObject(err.Error()), nil
		}
		results = append(results, row)
		if firstRowOnly {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return eval.ErrorObject(err.Error()), nil
	}

	if firstRowOnly {
		if len(results) == 0 {
			return eval.Null(), nil
		}
		return results[0], nil
	}
	return eval.Array(results), nil
}

func scanRow(rows *sql.Rows, cols []string) (eval.Value, error) {
	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return eval.Null(), err
	}
	vals := make([]eval.Value, len(cols))
	for i, v := range dest {
		vals[i] = valueFromSQL(v)
	}
	return eval.Object(cols, vals), nil
}

func valueFromSQL(v any) eval.Value {
	switch t := v.(type) {
	case nil:
		return eval.Null()
	case bool:
		return eval.Bool(t)
	case int64:
		return eval.Number(float64(t))
	case float64:
		return eval.Number(t)
	case string:
		return eval.String(t)
	case []byte:
		return eval.String(string(t))
	default:
		return eval.Null()
	}
}

func (e *Executor) execInsert(stmt *sql.Stmt, args []any) (eval.Value, error) {
	res, err := stmt.ExecContext(context.Background(), args...)
	if err != nil {
		return eval.ErrorObject(err.Error()), nil
	}
	id, idErr := res.LastInsertId()
	changes, chErr := res.RowsAffected()
	if idErr != nil {
		id = 0
	}
	if chErr != nil {
		changes = 0
	}
	return eval.Object([]string{"id", "changes"}, []eval.Value{eval.Number(float64(id)), eval.Number(float64(changes))}), nil
}

func (e *Executor) execChange(stmt *sql.Stmt, args []any) (eval.Value, error) {
	res, err := stmt.ExecContext(context.Background(), args...)
	if err != nil {
		return eval.ErrorObject(err.Error()), nil
	}
	changes, err := res.RowsAffected()
	if err != nil {
		changes = 0
	}
	return eval.Object([]string{"changes"}, []eval.Value{eval.Number(float64(changes))}), nil
}

func leadingKeyword(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	end := strings.IndexFunc(trimmed, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == '('
	})
	if end < 0 {
		end = len(trimmed)
	}
	return strings.ToLower(trimmed[:end])
}
