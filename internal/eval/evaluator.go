package eval

import (
	"os"

	"github.com/nonibytes/cssapi/internal/lang"
)

// SQLExecutor runs a sql(...) call's template and bound arguments against
// the shared runtime and shapes the result per spec.md §4.4. Evaluate
// depends on this interface rather than *sql.DB directly so package eval
// never imports database/sql; package sqlrt provides the implementation.
type SQLExecutor interface {
	Exec(template string, args []Value) (Value, error)
}

// Evaluate interprets an expression against a request context.
func Evaluate(expr lang.Expression, ctx *RequestContext, exec SQLExecutor) (Value, error) {
	switch expr.Kind {
	case lang.ExprLiteral:
		switch expr.LitKind {
		case lang.LitNull:
			return Null(), nil
		case lang.LitBool:
			return Bool(expr.Bool), nil
		case lang.LitNumber:
			return Number(expr.Num), nil
		case lang.LitString:
			return String(expr.Str), nil
		}
		return Null(), errf(expr.Line, expr.Col, "unreachable literal kind")

	case lang.ExprParam:
		if v, ok := ctx.Params[expr.Name]; ok {
			return String(v), nil
		}
		return Null(), nil

	case lang.ExprQuery:
		if v, ok := ctx.Query[expr.Name]; ok {
			return String(v), nil
		}
		return Null(), nil

	case lang.ExprHeader:
		if v, ok := ctx.Headers[expr.Name]; ok {
			return String(v), nil
		}
		return Null(), nil

	case lang.ExprBody:
		if expr.Name == "" {
			return ctx.Body, nil
		}
		if ctx.Body.Kind != KindObject {
			return Null(), nil
		}
		if v, ok := ctx.Body.Object[expr.Name]; ok {
			return v, nil
		}
		return Null(), nil

	case lang.ExprVarRef:
		v, ok := ctx.Var(expr.Name)
		if !ok {
			return Null(), errf(expr.Line, expr.Col, "undeclared variable '--%s'", expr.Name)
		}
		return v, nil

	case lang.ExprEnv:
		// Only legal inside @server, resolved once at load time; a program
		// that reached here passed validation incorrectly.
		if v, ok := os.LookupEnv(expr.Name); ok {
			return String(v), nil
		}
		return Evaluate(*expr.EnvDefault, ctx, exec)

	case lang.ExprSQL:
		if exec == nil {
			// No database configured in @server. spec.md §7 groups this with
			// SQL driver failures as a recoverable, in-band request-time
			// condition rather than a hard error, so a route's own if(...)
			// can react to it instead of the request aborting to a 500.
			return ErrorObject("no database configured"), nil
		}
		args := make([]Value, len(expr.SQLArgs))
		for i, a := range expr.SQLArgs {
			v, err := Evaluate(a, ctx, exec)
			if err != nil {
				return Null(), err
			}
			args[i] = v
		}
		return exec.Exec(expr.SQLTemplate, args)

	case lang.ExprIf:
		for _, clause := range expr.IfClauses {
			ok, err := EvaluateCondition(clause.Cond, ctx, exec)
			if err != nil {
				return Null(), err
			}
			if ok {
				return Evaluate(clause.Body, ctx, exec)
			}
		}
		if expr.IfElse != nil {
			return Evaluate(*expr.IfElse, ctx, exec)
		}
		return Null(), nil

	case lang.ExprObject:
		vals := make([]Value, len(expr.ObjectVals))
		for i, v := range expr.ObjectVals {
			ev, err := Evaluate(v, ctx, exec)
			if err != nil {
				return Null(), err
			}
			vals[i] = ev
		}
		return Object(expr.ObjectKeys, vals), nil

	case lang.ExprArray:
		vals := make([]Value, len(expr.ArrayVals))
		for i, v := range expr.ArrayVals {
			ev, err := Evaluate(v, ctx, exec)
			if err != nil {
				return Null(), err
			}
			vals[i] = ev
		}
		return Array(vals), nil
	}

	return Null(), errf(expr.Line, expr.Col, "unevaluable expression kind")
}

// EvaluateCondition interprets a boolean condition with short-circuit
// and/or, following spec.md §4.2.
func EvaluateCondition(cond lang.Condition, ctx *RequestContext, exec SQLExecutor) (bool, error) {
	switch cond.Kind {
	case lang.CondTruthy:
		v, err := Evaluate(*cond.Ref, ctx, exec)
		if err != nil {
			return false, err
		}
		return v.Truthy(), nil

	case lang.CondNot:
		v, err := EvaluateCondition(*cond.Operand, ctx, exec)
		if err != nil {
			return false, err
		}
		return !v, nil

	case lang.CondAnd:
		l, err := EvaluateCondition(*cond.LHS, ctx, exec)
		if err != nil || !l {
			return false, err
		}
		return EvaluateCondition(*cond.RHS, ctx, exec)

	case lang.CondOr:
		l, err := EvaluateCondition(*cond.LHS, ctx, exec)
		if err != nil || l {
			return l, err
		}
		return EvaluateCondition(*cond.RHS, ctx, exec)

	default:
		left, err := Evaluate(*cond.Left, ctx, exec)
		if err != nil {
			return false, err
		}
		right, err := Evaluate(*cond.Right, ctx, exec)
		if err != nil {
			return false, err
		}
		return compare(cond.Kind, left, right)
	}
}

func compare(kind lang.CondKind, left, right Value) (bool, error) {
	if kind == lang.CondEquals {
		return Equal(left, right), nil
	}
	if kind == lang.CondNotEquals {
		return !Equal(left, right), nil
	}

	ln, lok := left.AsNumber()
	rn, rok := right.AsNumber()
	if !lok || !rok {
		return false, nil
	}
	switch kind {
	case lang.CondGt:
		return ln > rn, nil
	case lang.CondLt:
		return ln < rn, nil
	case lang.CondGe:
		return ln >= rn, nil
	case lang.CondLe:
		return ln <= rn, nil
	}
	return false, nil
}
