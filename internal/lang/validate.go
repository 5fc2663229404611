package lang

// validateProgram enforces the load-time invariants from spec.md §3 that
// are not already checked during parsing: variable references must resolve
// to a binding declared earlier in the same route, and env() is restricted
// to @server property values.
func validateProgram(prog *Program) error {
	for _, route := range prog.Routes {
		declared := map[VarName]bool{}
		for _, b := range route.Bindings {
			if err := checkExpr(b.Expr, declared, false); err != nil {
				return err
			}
			declared[b.Name] = true
		}
		if route.Status != nil {
			if err := checkExpr(*route.Status, declared, false); err != nil {
				return err
			}
		}
		if err := checkExpr(route.Return.Value, declared, false); err != nil {
			return err
		}
	}
	return nil
}

func checkExpr(expr Expression, declared map[VarName]bool, inServerBlock bool) error {
	switch expr.Kind {
	case ExprVarRef:
		if !declared[VarName(expr.Name)] {
			return compileErrf(expr.Line, expr.Col, "undeclared variable '--%s'", expr.Name)
		}
	case ExprEnv:
		if !inServerBlock {
			return compileErrf(expr.Line, expr.Col, "env(...) is only valid inside the @server block")
		}
		if expr.EnvDefault != nil {
			return checkExpr(*expr.EnvDefault, declared, inServerBlock)
		}
	case ExprSQL:
		for _, a := range expr.SQLArgs {
			if err := checkExpr(a, declared, inServerBlock); err != nil {
				return err
			}
		}
	case ExprIf:
		for _, c := range expr.IfClauses {
			if err := checkCondition(c.Cond, declared, inServerBlock); err != nil {
				return err
			}
			if err := checkExpr(c.Body, declared, inServerBlock); err != nil {
				return err
			}
		}
		if expr.IfElse != nil {
			if err := checkExpr(*expr.IfElse, declared, inServerBlock); err != nil {
				return err
			}
		}
	case ExprObject:
		for _, v := range expr.ObjectVals {
			if err := checkExpr(v, declared, inServerBlock); err != nil {
				return err
			}
		}
	case ExprArray:
		for _, v := range expr.ArrayVals {
			if err := checkExpr(v, declared, inServerBlock); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkCondition(cond Condition, declared map[VarName]bool, inServerBlock bool) error {
	switch cond.Kind {
	case CondTruthy:
		return checkExpr(*cond.Ref, declared, inServerBlock)
	case CondAnd, CondOr:
		if err := checkCondition(*cond.LHS, declared, inServerBlock); err != nil {
			return err
		}
		return checkCondition(*cond.RHS, declared, inServerBlock)
	case CondNot:
		return checkCondition(*cond.Operand, declared, inServerBlock)
	default:
		if err := checkExpr(*cond.Left, declared, inServerBlock); err != nil {
			return err
		}
		return checkExpr(*cond.Right, declared, inServerBlock)
	}
}
