package lang

import "testing"

func TestLexerTokensBasic(t *testing.T) {
	l := NewLexer(`[path="/a"]:GET`)
	wantKinds := []TokenKind{TokLBracket, TokIdent, TokEq, TokString, TokRBracket, TokColon, TokIdent, TokEOF}
	for i, want := range wantKinds {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("token %d: unexpected error: %v", i, err)
		}
		if tok.Kind != want {
			t.Fatalf("token %d: want %s, got %s", i, want, tok.Kind)
		}
	}
}

func TestLexerVarAndParamTokens(t *testing.T) {
	l := NewLexer(`--count :id`)
	tok1, err := l.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok1.Kind != TokVar || tok1.Value != "count" {
		t.Fatalf("unexpected token: %+v", tok1)
	}
	tok2, err := l.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok2.Kind != TokParamTok || tok2.Value != "id" {
		t.Fatalf("unexpected token: %+v", tok2)
	}
}

func TestLexerNumberAndComparisonOperators(t *testing.T) {
	l := NewLexer(`3.14 >= -2 != 5`)
	var kinds []TokenKind
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok.Kind == TokEOF {
			break
		}
		kinds = append(kinds, tok.Kind)
	}
	want := []TokenKind{TokNumber, TokGte, TokNumber, TokNotEq, TokNumber}
	if len(kinds) != len(want) {
		t.Fatalf("want %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("token %d: want %s, got %s", i, want[i], kinds[i])
		}
	}
}

func TestLexerRejectsUnterminatedString(t *testing.T) {
	l := NewLexer(`"unterminated`)
	_, err := l.Next()
	if err == nil {
		t.Fatalf("expected error for unterminated string")
	}
}

func TestReadRawBraceBodyHandlesNestedBracesAndStrings(t *testing.T) {
	l := NewLexer(`{ CREATE TABLE t (v TEXT DEFAULT '{}'); }`)
	tok, err := l.Next()
	if err != nil || tok.Kind != TokLBrace {
		t.Fatalf("expected leading '{', got %+v err=%v", tok, err)
	}
	// rewind: ReadRawBraceBody expects the lexer positioned at '{'
	l2 := NewLexer(`{ CREATE TABLE t (v TEXT DEFAULT '{}'); }`)
	body, err := l2.ReadRawBraceBody()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(body, "CREATE TABLE t") {
		t.Errorf("unexpected body: %q", body)
	}
}
