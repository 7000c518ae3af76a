package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// LexError is a lexical diagnostic. The lexer never aborts: it records the
// diagnostic, skips one character and keeps scanning, so a single pass can
// collect several of these.
type LexError struct {
	Line    int
	Column  int
	Message string
}

func (e LexError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Lexer turns BotScript source text into a token stream.
type Lexer struct {
	src    []rune
	pos    int
	line   int
	col    int
	errors []LexError
}

// NewLexer creates a lexer over the given UTF-8 source.
func NewLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1}
}

// Tokenize scans the whole input and returns the token sequence, always
// terminated by an EOF token. Lexical diagnostics are available via Errors.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.next()
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens
		}
	}
}

// Errors returns the diagnostics collected during Tokenize.
func (l *Lexer) Errors() []LexError {
	return l.errors
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *Lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.src)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *Lexer) next() Token {
	l.skipSpaceAndComments()
	if l.atEnd() {
		return Token{Kind: TokenEOF, Line: l.line, Column: l.col}
	}

	line, col := l.line, l.col
	r := l.peek()

	switch {
	case isIdentStart(r):
		return l.scanIdent(line, col)
	case unicode.IsDigit(r):
		return l.scanNumber(line, col)
	case r == '"' || r == '\'':
		return l.scanString(line, col)
	}

	// Two-character operators first.
	if op, ok := l.twoCharOp(); ok {
		l.advance()
		l.advance()
		return Token{Kind: op, Text: tokenNames[op], Line: line, Column: col}
	}

	if op, ok := singleOps[r]; ok {
		l.advance()
		return Token{Kind: op, Text: string(r), Line: line, Column: col}
	}

	// Unrecognized character: record and skip exactly one rune.
	l.errors = append(l.errors, LexError{
		Line:    line,
		Column:  col,
		Message: fmt.Sprintf("illegal character %q", string(r)),
	})
	l.advance()
	return l.next()
}

var singleOps = map[rune]TokenKind{
	'+': TokenPlus,
	'*': TokenStar,
	'/': TokenSlash,
	'%': TokenPercent,
	'(': TokenLParen,
	')': TokenRParen,
	'{': TokenLBrace,
	'}': TokenRBrace,
	'[': TokenLBracket,
	']': TokenRBracket,
	',': TokenComma,
	':': TokenColon,
	';': TokenSemicolon,
	'.': TokenDot,
	'-': TokenMinus,
	'=': TokenAssign,
	'<': TokenLt,
	'>': TokenGt,
}

func (l *Lexer) twoCharOp() (TokenKind, bool) {
	a, b := l.peek(), l.peekAt(1)
	switch {
	case a == '=' && b == '=':
		return TokenEq, true
	case a == '!' && b == '=':
		return TokenNe, true
	case a == '<' && b == '=':
		return TokenLe, true
	case a == '>' && b == '=':
		return TokenGe, true
	case a == '-' && b == '>':
		return TokenArrow, true
	}
	return 0, false
}

func (l *Lexer) skipSpaceAndComments() {
	for !l.atEnd() {
		r := l.peek()
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			l.advance()
		case r == '#':
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) scanIdent(line, col int) Token {
	var sb strings.Builder
	for !l.atEnd() && isIdentPart(l.peek()) {
		sb.WriteRune(l.advance())
	}
	text := sb.String()
	if kind, ok := keywords[text]; ok {
		return Token{Kind: kind, Text: text, Line: line, Column: col}
	}
	return Token{Kind: TokenIdent, Text: text, Line: line, Column: col}
}

func (l *Lexer) scanNumber(line, col int) Token {
	var sb strings.Builder
	for !l.atEnd() && unicode.IsDigit(l.peek()) {
		sb.WriteRune(l.advance())
	}
	if l.peek() == '.' && unicode.IsDigit(l.peekAt(1)) {
		sb.WriteRune(l.advance())
		for !l.atEnd() && unicode.IsDigit(l.peek()) {
			sb.WriteRune(l.advance())
		}
	}
	text := sb.String()
	num, _ := strconv.ParseFloat(text, 64)
	return Token{Kind: TokenNumber, Text: text, Num: num, Line: line, Column: col}
}

// scanString scans a quoted literal. Both quote styles are accepted; the
// escapes \n \t \" \' \\ are translated, any other backslash pair is kept
// verbatim. A newline or EOF before the closing quote is a diagnostic.
func (l *Lexer) scanString(line, col int) Token {
	quote := l.advance()
	var sb strings.Builder
	for {
		if l.atEnd() || l.peek() == '\n' {
			l.errors = append(l.errors, LexError{
				Line:    line,
				Column:  col,
				Message: "unterminated string literal",
			})
			break
		}
		r := l.advance()
		if r == quote {
			break
		}
		if r == '\\' && !l.atEnd() {
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '"':
				sb.WriteRune('"')
			case '\'':
				sb.WriteRune('\'')
			case '\\':
				sb.WriteRune('\\')
			default:
				sb.WriteRune('\\')
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(r)
	}
	return Token{Kind: TokenString, Text: sb.String(), Line: line, Column: col}
}

// Tokenize is a convenience wrapper that scans src and returns the tokens
// along with any lexical diagnostics.
func Tokenize(src string) ([]Token, []LexError) {
	l := NewLexer(src)
	tokens := l.Tokenize()
	return tokens, l.Errors()
}
