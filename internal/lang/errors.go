package lang

import "fmt"

// ParseError is a load-time syntax error. It carries the one-based line and
// column of the offending token, grounded on the teacher's Kind+Message
// error shape (ministore/errors.go) but specialized for source positions
// instead of a Kind enum, since every parse failure already names its own
// construct in Msg.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Msg)
}

// CompileError is a load-time semantic error: a syntactically valid program
// that violates an invariant from spec.md §3 (undeclared variable reference,
// duplicate binding, duplicate @return, and so on).
type CompileError struct {
	Line   int
	Column int
	Msg    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error at %d:%d: %s", e.Line, e.Column, e.Msg)
}

func parseErrf(line, col int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func compileErrf(line, col int, format string, args ...any) *CompileError {
	return &CompileError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}
