package dsl

import (
	"testing"
)

func TestTokenizeKeywordsAndOperators(t *testing.T) {
	tokens, errs := Tokenize(`bot "shop" { state start initial { when greet -> done if x >= 2 } }`)
	if len(errs) != 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}

	want := []TokenKind{
		TokenBot, TokenString, TokenLBrace,
		TokenState, TokenIdent, TokenInitial, TokenLBrace,
		TokenWhen, TokenIdent, TokenArrow, TokenIdent,
		TokenIf, TokenIdent, TokenGe, TokenNumber,
		TokenRBrace, TokenRBrace, TokenEOF,
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, kind := range want {
		if tokens[i].Kind != kind {
			t.Errorf("token[%d] = %v, want %v", i, tokens[i].Kind, kind)
		}
	}
}

func TestTokenizeReservesBreakAndContinue(t *testing.T) {
	tokens, errs := Tokenize("break continue")
	if len(errs) != 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	if tokens[0].Kind != TokenBreak {
		t.Errorf("break lexed as %v", tokens[0].Kind)
	}
	if tokens[1].Kind != TokenContinue {
		t.Errorf("continue lexed as %v", tokens[1].Kind)
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	tokens, errs := Tokenize(`"a\nb" 'c\td' "quote: \"x\""`)
	if len(errs) != 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	if tokens[0].Text != "a\nb" {
		t.Errorf("tokens[0].Text = %q", tokens[0].Text)
	}
	if tokens[1].Text != "c\td" {
		t.Errorf("tokens[1].Text = %q", tokens[1].Text)
	}
	if tokens[2].Text != `quote: "x"` {
		t.Errorf("tokens[2].Text = %q", tokens[2].Text)
	}
}

func TestTokenizeNumbers(t *testing.T) {
	tokens, errs := Tokenize("42 3.14 7.")
	if len(errs) != 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	if tokens[0].Kind != TokenNumber || tokens[0].Num != 42 {
		t.Errorf("tokens[0] = %v", tokens[0])
	}
	if tokens[1].Kind != TokenNumber || tokens[1].Num != 3.14 {
		t.Errorf("tokens[1] = %v", tokens[1])
	}
	// A trailing dot is a separate token, not part of the number.
	if tokens[2].Kind != TokenNumber || tokens[2].Num != 7 {
		t.Errorf("tokens[2] = %v", tokens[2])
	}
	if tokens[3].Kind != TokenDot {
		t.Errorf("tokens[3] = %v, want dot", tokens[3])
	}
}

func TestTokenizeCJKIdentifiers(t *testing.T) {
	tokens, errs := Tokenize("set 订单号 = 5")
	if len(errs) != 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	if tokens[1].Kind != TokenIdent || tokens[1].Text != "订单号" {
		t.Errorf("tokens[1] = %v", tokens[1])
	}
}

func TestTokenizeComments(t *testing.T) {
	tokens, errs := Tokenize("say 1 # the rest is ignored\nsay 2")
	if len(errs) != 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	if len(tokens) != 5 {
		t.Fatalf("got %d tokens: %v", len(tokens), tokens)
	}
	if tokens[2].Line != 2 {
		t.Errorf("second say on line %d, want 2", tokens[2].Line)
	}
}

func TestTokenizeRecoversFromIllegalCharacters(t *testing.T) {
	tokens, errs := Tokenize("say @ $ 1")
	if len(errs) != 2 {
		t.Fatalf("got %d lex errors, want 2: %v", len(errs), errs)
	}
	if errs[0].Column != 5 {
		t.Errorf("first error at column %d, want 5", errs[0].Column)
	}
	// Tokenizing continues past the bad characters.
	if tokens[0].Kind != TokenSay || tokens[1].Kind != TokenNumber {
		t.Errorf("tokens = %v", tokens)
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, errs := Tokenize(`say "never closed`)
	if len(errs) != 1 {
		t.Fatalf("got %d lex errors, want 1: %v", len(errs), errs)
	}
}

func TestTokenPositions(t *testing.T) {
	tokens, _ := Tokenize("bot\n  say")
	if tokens[0].Line != 1 || tokens[0].Column != 1 {
		t.Errorf("bot at %d:%d, want 1:1", tokens[0].Line, tokens[0].Column)
	}
	if tokens[1].Line != 2 || tokens[1].Column != 3 {
		t.Errorf("say at %d:%d, want 2:3", tokens[1].Line, tokens[1].Column)
	}
}
