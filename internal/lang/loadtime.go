package lang

import "os"

// resolveLoadTimeExpr evaluates the restricted subset of the expression
// grammar legal inside @server property values: literals and env(name,
// default) calls, resolved once against the process environment at parse
// time (spec.md §6: "env() resolves once, at load time, never per-request").
func resolveLoadTimeExpr(expr Expression) (any, error) {
	switch expr.Kind {
	case ExprLiteral:
		switch expr.LitKind {
		case LitNull:
			return nil, nil
		case LitBool:
			return expr.Bool, nil
		case LitNumber:
			return expr.Num, nil
		case LitString:
			return expr.Str, nil
		}
		return nil, compileErrf(expr.Line, expr.Col, "unreachable literal kind")

	case ExprEnv:
		if v, ok := os.LookupEnv(expr.Name); ok {
			return v, nil
		}
		return resolveLoadTimeExpr(*expr.EnvDefault)

	default:
		return nil, compileErrf(expr.Line, expr.Col, "only literals and env(...) are allowed in @server property values")
	}
}
