package lang

import (
	"strconv"
	"strings"
)

// Parse tokenizes and parses a complete source file into a Program.
// Because the @database at-rule's body is raw, whitespace-preserved SQL
// text rather than tokens (spec.md §4.1), the parser lexes on demand from a
// single Lexer instead of pre-tokenizing the whole file.
func Parse(source string) (*Program, error) {
	p := &parser{lex: NewLexer(source)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	prog, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	if err := validateProgram(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

type parser struct {
	lex *Lexer
	cur Token
}

func (p *parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) is(k TokenKind) bool { return p.cur.Kind == k }

func (p *parser) isIdent(val string) bool {
	return p.cur.Kind == TokIdent && strings.EqualFold(p.cur.Value, val)
}

func (p *parser) expect(k TokenKind, what string) error {
	if !p.is(k) {
		return parseErrf(p.cur.Line, p.cur.Col, "expected %s, got %s", what, p.cur.Kind)
	}
	return p.advance()
}

func (p *parser) parseProgram() (*Program, error) {
	prog := &Program{Server: ServerConfig{Port: 3000, Host: "localhost"}}
	sawServer, sawDatabase := false, false

	for !p.is(TokEOF) {
		switch {
		case p.is(TokAt):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if !p.is(TokIdent) {
				return nil, parseErrf(p.cur.Line, p.cur.Col, "expected at-rule name after '@'")
			}
			name := strings.ToLower(p.cur.Value)
			switch name {
			case "server":
				if sawServer {
					return nil, parseErrf(p.cur.Line, p.cur.Col, "duplicate @server block")
				}
				sawServer = true
				if err := p.advance(); err != nil {
					return nil, err
				}
				cfg, err := p.parseServerBlock()
				if err != nil {
					return nil, err
				}
				prog.Server = cfg
			case "database":
				if sawDatabase {
					return nil, parseErrf(p.cur.Line, p.cur.Col, "duplicate @database block; at most one is allowed")
				}
				sawDatabase = true
				if err := p.advance(); err != nil {
					return nil, err
				}
				boot, err := p.parseDatabaseBlock()
				if err != nil {
					return nil, err
				}
				prog.Schema = boot
			default:
				return nil, parseErrf(p.cur.Line, p.cur.Col, "unknown at-rule '@%s'", name)
			}
		case p.is(TokLBracket):
			route, err := p.parseRoute()
			if err != nil {
				return nil, err
			}
			prog.Routes = append(prog.Routes, route)
		default:
			return nil, parseErrf(p.cur.Line, p.cur.Col, "expected '@server', '@database', or a route selector")
		}
	}

	return prog, nil
}

// parseServerBlock parses `{ property: expression; ... }` and resolves
// env(NAME, default) expressions immediately, since ServerConfig fields are
// concrete by the time parsing finishes (spec.md §3).
func (p *parser) parseServerBlock() (ServerConfig, error) {
	cfg := ServerConfig{Port: 3000, Host: "localhost"}
	if err := p.expect(TokLBrace, "'{'"); err != nil {
		return cfg, err
	}

	for !p.is(TokRBrace) {
		if !p.is(TokIdent) {
			return cfg, parseErrf(p.cur.Line, p.cur.Col, "expected property name in @server block")
		}
		key := strings.ToLower(p.cur.Value)
		line, col := p.cur.Line, p.cur.Col
		if err := p.advance(); err != nil {
			return cfg, err
		}
		if err := p.expect(TokColon, "':' after property name"); err != nil {
			return cfg, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return cfg, err
		}
		if err := p.expect(TokSemicolon, "';' after property value"); err != nil {
			return cfg, err
		}

		resolved, err := resolveLoadTimeExpr(val)
		if err != nil {
			return cfg, err
		}

		switch key {
		case "port":
			n, ok := resolved.(float64)
			if !ok {
				if s, isStr := resolved.(string); isStr {
					pv, perr := strconv.Atoi(strings.TrimSpace(s))
					if perr != nil {
						return cfg, compileErrf(line, col, "port must be a number")
					}
					n = float64(pv)
				} else {
					return cfg, compileErrf(line, col, "port must be a number")
				}
			}
			cfg.Port = int(n)
		case "host":
			s, ok := resolved.(string)
			if !ok {
				return cfg, compileErrf(line, col, "host must be a string")
			}
			cfg.Host = s
		case "database":
			s, ok := resolved.(string)
			if !ok {
				return cfg, compileErrf(line, col, "database must be a string")
			}
			cfg.Database = s
			cfg.HasDB = true
		default:
			return cfg, compileErrf(line, col, "unknown @server property %q", key)
		}
	}
	return cfg, p.advance()
}

// parseDatabaseBlock reads the @database body verbatim, brace-balanced, as
// the raw SQL text between '{' and its matching '}' (spec.md §4.1).
func (p *parser) parseDatabaseBlock() (*SchemaBootstrap, error) {
	if !p.is(TokLBrace) {
		return nil, parseErrf(p.cur.Line, p.cur.Col, "expected '{' after @database")
	}
	line, col := p.cur.Line, p.cur.Col
	// The single-token lookahead has already consumed the '{'; step the
	// lexer back onto it so ReadRawBraceBody reads the raw body.
	p.lex.pos--
	p.lex.line, p.lex.col = line, col
	sql, err := p.lex.ReadRawBraceBody()
	if err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &SchemaBootstrap{SQL: sql, Line: line, Column: col}, nil
}

// parseRoute parses `[path="<pattern>"]:<method> { ... }`.
func (p *parser) parseRoute() (*Route, error) {
	line, col := p.cur.Line, p.cur.Col
	if err := p.expect(TokLBracket, "'['"); err != nil {
		return nil, err
	}
	if !p.isIdent("path") {
		return nil, parseErrf(p.cur.Line, p.cur.Col, `expected "path" in route selector`)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(TokEq, "'=' after \"path\""); err != nil {
		return nil, err
	}
	if !p.is(TokString) {
		return nil, parseErrf(p.cur.Line, p.cur.Col, "expected quoted path pattern")
	}
	rawPattern := p.cur.Value
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(TokRBracket, "']'"); err != nil {
		return nil, err
	}
	if err := p.expect(TokColon, "':' after ']'"); err != nil {
		return nil, err
	}
	if !p.is(TokIdent) {
		return nil, parseErrf(p.cur.Line, p.cur.Col, "expected HTTP method after ':'")
	}
	method := Method(strings.ToUpper(p.cur.Value))
	if !validMethods[method] {
		return nil, parseErrf(p.cur.Line, p.cur.Col, "unsupported HTTP method %q", p.cur.Value)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	pattern, err := ParsePathPattern(rawPattern)
	if err != nil {
		return nil, parseErrf(line, col, "%s", err.Error())
	}

	route := &Route{Method: method, Path: pattern, Line: line, Col: col}

	if err := p.expect(TokLBrace, "'{'"); err != nil {
		return nil, err
	}

	seenReturn := false
	seenStatus := false
	seenNames := map[VarName]bool{}

	for !p.is(TokRBrace) {
		switch {
		case p.is(TokVar):
			name := VarName(p.cur.Value)
			bl, bc := p.cur.Line, p.cur.Col
			if seenNames[name] {
				return nil, compileErrf(bl, bc, "duplicate variable binding '--%s' in route", name)
			}
			seenNames[name] = true
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expect(TokColon, "':' after variable name"); err != nil {
				return nil, err
			}
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokSemicolon, "';' after binding"); err != nil {
				return nil, err
			}
			route.Bindings = append(route.Bindings, Binding{Name: name, Expr: expr, Line: bl, Col: bc})

		case p.isIdent("status"):
			if seenStatus {
				return nil, compileErrf(p.cur.Line, p.cur.Col, "duplicate 'status' declaration in route")
			}
			seenStatus = true
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expect(TokColon, "':' after 'status'"); err != nil {
				return nil, err
			}
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokSemicolon, "';' after status expression"); err != nil {
				return nil, err
			}
			route.Status = &expr

		case p.is(TokAt):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if !p.isIdent("return") {
				return nil, parseErrf(p.cur.Line, p.cur.Col, "expected 'return' after '@'")
			}
			if seenReturn {
				return nil, compileErrf(p.cur.Line, p.cur.Col, "duplicate @return in route")
			}
			seenReturn = true
			if err := p.advance(); err != nil {
				return nil, err
			}
			ret, err := p.parseReturnExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokSemicolon, "';' after @return"); err != nil {
				return nil, err
			}
			route.Return = ret

		default:
			return nil, parseErrf(p.cur.Line, p.cur.Col, "expected a variable binding, 'status:', or '@return' in route body")
		}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if !seenReturn {
		return nil, compileErrf(line, col, "route is missing a @return expression")
	}

	return route, nil
}

func (p *parser) parseReturnExpr() (ReturnExpr, error) {
	if !p.is(TokIdent) {
		return ReturnExpr{}, parseErrf(p.cur.Line, p.cur.Col, "expected 'json(' or 'html(' after @return")
	}
	var kind ReturnKind
	switch strings.ToLower(p.cur.Value) {
	case "json":
		kind = ReturnJSON
	case "html":
		kind = ReturnHTML
	default:
		return ReturnExpr{}, parseErrf(p.cur.Line, p.cur.Col, "expected 'json(' or 'html(' after @return, got %q", p.cur.Value)
	}
	if err := p.advance(); err != nil {
		return ReturnExpr{}, err
	}
	if err := p.expect(TokLParen, "'(' after return kind"); err != nil {
		return ReturnExpr{}, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return ReturnExpr{}, err
	}
	if err := p.expect(TokRParen, "')'"); err != nil {
		return ReturnExpr{}, err
	}
	return ReturnExpr{Kind: kind, Value: val}, nil
}

// parseExpr parses one node of the value-expression sublanguage (spec.md
// §4.1): literals, JSON object/array literals, variable/context lookups,
// and known function calls. Comparison/boolean operators are not part of
// this grammar; they only appear inside if(...) condition clauses, parsed
// by parseCondOr below.
func (p *parser) parseExpr() (Expression, error) {
	line, col := p.cur.Line, p.cur.Col

	switch p.cur.Kind {
	case TokNumber:
		n := p.cur.Num
		if err := p.advance(); err != nil {
			return Expression{}, err
		}
		return Expression{Kind: ExprLiteral, LitKind: LitNumber, Num: n, Line: line, Col: col}, nil

	case TokString:
		s := p.cur.Value
		if err := p.advance(); err != nil {
			return Expression{}, err
		}
		return Expression{Kind: ExprLiteral, LitKind: LitString, Str: s, Line: line, Col: col}, nil

	case TokVar:
		name := p.cur.Value
		if err := p.advance(); err != nil {
			return Expression{}, err
		}
		return Expression{Kind: ExprVarRef, Name: name, Line: line, Col: col}, nil

	case TokLBrace:
		return p.parseObjectLiteral()

	case TokLBracket:
		return p.parseArrayLiteral()

	case TokIdent:
		return p.parseIdentLedExpr()
	}

	return Expression{}, parseErrf(line, col, "unexpected token %s in expression", p.cur.Kind)
}

func (p *parser) parseIdentLedExpr() (Expression, error) {
	line, col := p.cur.Line, p.cur.Col
	raw := p.cur.Value
	name := strings.ToLower(raw)

	switch name {
	case "true", "false":
		if err := p.advance(); err != nil {
			return Expression{}, err
		}
		return Expression{Kind: ExprLiteral, LitKind: LitBool, Bool: name == "true", Line: line, Col: col}, nil
	case "null":
		if err := p.advance(); err != nil {
			return Expression{}, err
		}
		return Expression{Kind: ExprLiteral, LitKind: LitNull, Line: line, Col: col}, nil
	}

	if err := p.advance(); err != nil {
		return Expression{}, err
	}
	if !p.is(TokLParen) {
		// Not a call and not a recognized keyword: treat the bare word as an
		// implicit string literal, mirroring CSS's unquoted keyword values
		// (spec.md §8 Scenario 4, e.g. `--r = admin`).
		return Expression{Kind: ExprLiteral, LitKind: LitString, Str: raw, Line: line, Col: col}, nil
	}
	if err := p.advance(); err != nil {
		return Expression{}, err
	}

	switch name {
	case "param":
		if !p.is(TokParamTok) {
			return Expression{}, parseErrf(p.cur.Line, p.cur.Col, "param(...) expects a single :name argument")
		}
		pname := p.cur.Value
		if err := p.advance(); err != nil {
			return Expression{}, err
		}
		if err := p.expect(TokRParen, "')'"); err != nil {
			return Expression{}, err
		}
		return Expression{Kind: ExprParam, Name: pname, Line: line, Col: col}, nil

	case "query", "body", "header":
		argName, err := p.parseBareOrStringName()
		if err != nil {
			return Expression{}, err
		}
		if err := p.expect(TokRParen, "')'"); err != nil {
			return Expression{}, err
		}
		kind := ExprQuery
		if name == "body" {
			kind = ExprBody
		} else if name == "header" {
			kind = ExprHeader
		}
		return Expression{Kind: kind, Name: argName, Line: line, Col: col}, nil

	case "var":
		if !p.is(TokVar) {
			return Expression{}, parseErrf(p.cur.Line, p.cur.Col, "var(...) expects a single --name argument")
		}
		vname := p.cur.Value
		if err := p.advance(); err != nil {
			return Expression{}, err
		}
		if err := p.expect(TokRParen, "')'"); err != nil {
			return Expression{}, err
		}
		return Expression{Kind: ExprVarRef, Name: vname, Line: line, Col: col}, nil

	case "env":
		ename, err := p.parseBareOrStringName()
		if err != nil {
			return Expression{}, err
		}
		if err := p.expect(TokComma, "',' after env name"); err != nil {
			return Expression{}, err
		}
		def, err := p.parseExpr()
		if err != nil {
			return Expression{}, err
		}
		if err := p.expect(TokRParen, "')'"); err != nil {
			return Expression{}, err
		}
		return Expression{Kind: ExprEnv, Name: ename, EnvDefault: &def, Line: line, Col: col}, nil

	case "sql":
		if !p.is(TokString) {
			return Expression{}, parseErrf(p.cur.Line, p.cur.Col, "sql(...) expects a string template as its first argument")
		}
		tmpl := p.cur.Value
		if err := p.advance(); err != nil {
			return Expression{}, err
		}
		var args []Expression
		for p.is(TokComma) {
			if err := p.advance(); err != nil {
				return Expression{}, err
			}
			arg, err := p.parseExpr()
			if err != nil {
				return Expression{}, err
			}
			args = append(args, arg)
		}
		if err := p.expect(TokRParen, "')'"); err != nil {
			return Expression{}, err
		}
		return Expression{Kind: ExprSQL, SQLTemplate: tmpl, SQLArgs: args, Line: line, Col: col}, nil

	case "if":
		clauses, elseExpr, err := p.parseIfClauses()
		if err != nil {
			return Expression{}, err
		}
		return Expression{Kind: ExprIf, IfClauses: clauses, IfElse: elseExpr, Line: line, Col: col}, nil

	case "json", "html":
		return Expression{}, parseErrf(line, col, "%s(...) is only valid as the top-level @return expression", name)

	default:
		return Expression{}, parseErrf(line, col, "unknown function %q", name)
	}
}

func (p *parser) parseBareOrStringName() (string, error) {
	switch p.cur.Kind {
	case TokIdent:
		v := p.cur.Value
		return v, p.advance()
	case TokString:
		v := p.cur.Value
		return v, p.advance()
	default:
		return "", parseErrf(p.cur.Line, p.cur.Col, "expected a name")
	}
}

func (p *parser) parseObjectLiteral() (Expression, error) {
	line, col := p.cur.Line, p.cur.Col
	if err := p.advance(); err != nil {
		return Expression{}, err
	}
	obj := Expression{Kind: ExprObject, Line: line, Col: col}
	for !p.is(TokRBrace) {
		var key string
		switch p.cur.Kind {
		case TokIdent:
			key = p.cur.Value
		case TokString:
			key = p.cur.Value
		default:
			return Expression{}, parseErrf(p.cur.Line, p.cur.Col, "expected object key")
		}
		if err := p.advance(); err != nil {
			return Expression{}, err
		}
		if err := p.expect(TokColon, "':' after object key"); err != nil {
			return Expression{}, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return Expression{}, err
		}
		obj.ObjectKeys = append(obj.ObjectKeys, key)
		obj.ObjectVals = append(obj.ObjectVals, val)
		if p.is(TokComma) {
			if err := p.advance(); err != nil {
				return Expression{}, err
			}
			continue
		}
		break
	}
	if err := p.expect(TokRBrace, "'}'"); err != nil {
		return Expression{}, err
	}
	return obj, nil
}

func (p *parser) parseArrayLiteral() (Expression, error) {
	line, col := p.cur.Line, p.cur.Col
	if err := p.advance(); err != nil {
		return Expression{}, err
	}
	arr := Expression{Kind: ExprArray, Line: line, Col: col}
	for !p.is(TokRBracket) {
		val, err := p.parseExpr()
		if err != nil {
			return Expression{}, err
		}
		arr.ArrayVals = append(arr.ArrayVals, val)
		if p.is(TokComma) {
			if err := p.advance(); err != nil {
				return Expression{}, err
			}
			continue
		}
		break
	}
	if err := p.expect(TokRBracket, "']'"); err != nil {
		return Expression{}, err
	}
	return arr, nil
}

// parseIfClauses parses the inside of `if(cond1: expr1; cond2: expr2; ...;
// else: exprN)`, stopping just after the closing ')'.
func (p *parser) parseIfClauses() ([]IfClause, *Expression, error) {
	var clauses []IfClause
	var elseExpr *Expression

	for {
		if p.isIdent("else") {
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
			if err := p.expect(TokColon, "':' after 'else'"); err != nil {
				return nil, nil, err
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			elseExpr = &e
			if p.is(TokSemicolon) {
				if err := p.advance(); err != nil {
					return nil, nil, err
				}
			}
			break
		}

		cond, err := p.parseCondOr()
		if err != nil {
			return nil, nil, err
		}
		if err := p.expect(TokColon, "':' after if condition"); err != nil {
			return nil, nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		clauses = append(clauses, IfClause{Cond: cond, Body: body})

		if p.is(TokSemicolon) {
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
			continue
		}
		break
	}

	if err := p.expect(TokRParen, "')'"); err != nil {
		return nil, nil, err
	}
	return clauses, elseExpr, nil
}

// Condition grammar: not > comparisons > and > or (spec.md §4.1).

func (p *parser) parseCondOr() (Condition, error) {
	left, err := p.parseCondAnd()
	if err != nil {
		return Condition{}, err
	}
	for p.isIdent("or") {
		line, col := p.cur.Line, p.cur.Col
		if err := p.advance(); err != nil {
			return Condition{}, err
		}
		right, err := p.parseCondAnd()
		if err != nil {
			return Condition{}, err
		}
		l, r := left, right
		left = Condition{Kind: CondOr, LHS: &l, RHS: &r, Line: line, Col: col}
	}
	return left, nil
}

func (p *parser) parseCondAnd() (Condition, error) {
	left, err := p.parseCondNot()
	if err != nil {
		return Condition{}, err
	}
	for p.isIdent("and") {
		line, col := p.cur.Line, p.cur.Col
		if err := p.advance(); err != nil {
			return Condition{}, err
		}
		right, err := p.parseCondNot()
		if err != nil {
			return Condition{}, err
		}
		l, r := left, right
		left = Condition{Kind: CondAnd, LHS: &l, RHS: &r, Line: line, Col: col}
	}
	return left, nil
}

func (p *parser) parseCondNot() (Condition, error) {
	if p.isIdent("not") {
		line, col := p.cur.Line, p.cur.Col
		if err := p.advance(); err != nil {
			return Condition{}, err
		}
		if p.is(TokLParen) {
			if err := p.advance(); err != nil {
				return Condition{}, err
			}
			inner, err := p.parseCondOr()
			if err != nil {
				return Condition{}, err
			}
			if err := p.expect(TokRParen, "')'"); err != nil {
				return Condition{}, err
			}
			return Condition{Kind: CondNot, Operand: &inner, Line: line, Col: col}, nil
		}
		inner, err := p.parseCondNot()
		if err != nil {
			return Condition{}, err
		}
		return Condition{Kind: CondNot, Operand: &inner, Line: line, Col: col}, nil
	}
	return p.parseCondPrimary()
}

func (p *parser) parseCondPrimary() (Condition, error) {
	line, col := p.cur.Line, p.cur.Col
	left, err := p.parseExpr()
	if err != nil {
		return Condition{}, err
	}

	var kind CondKind
	switch p.cur.Kind {
	case TokEq:
		kind = CondEquals
	case TokNotEq:
		kind = CondNotEquals
	case TokGt:
		kind = CondGt
	case TokLt:
		kind = CondLt
	case TokGte:
		kind = CondGe
	case TokLte:
		kind = CondLe
	default:
		if left.Kind != ExprVarRef {
			return Condition{}, parseErrf(line, col, "expected a comparison operator after condition operand")
		}
		l := left
		return Condition{Kind: CondTruthy, Ref: &l, Line: line, Col: col}, nil
	}
	if err := p.advance(); err != nil {
		return Condition{}, err
	}
	right, err := p.parseExpr()
	if err != nil {
		return Condition{}, err
	}
	l, r := left, right
	return Condition{Kind: kind, Left: &l, Right: &r, Line: line, Col: col}, nil
}
