// Package dsl implements the BotScript language: lexer, parser, AST,
// and the tree-walking interpreter that drives a bot's dialogue state
// machine from recognized user intent.
package dsl

import "fmt"

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	// Special tokens
	TokenEOF TokenKind = iota

	// Literals and identifiers
	TokenIdent
	TokenString
	TokenNumber

	// Operators
	TokenPlus   // +
	TokenMinus  // -
	TokenStar   // *
	TokenSlash  // /
	TokenPercent // %

	TokenEq // ==
	TokenNe // !=
	TokenLt // <
	TokenGt // >
	TokenLe // <=
	TokenGe // >=

	TokenAssign // =
	TokenArrow  // ->

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenComma     // ,
	TokenColon     // :
	TokenSemicolon // ;
	TokenDot       // .

	// Keywords
	TokenBot
	TokenIntent
	TokenState
	TokenVar
	TokenFunc
	TokenInitial
	TokenFinal
	TokenOnEnter
	TokenOnExit
	TokenOnMessage
	TokenWhen
	TokenFallback
	TokenSay
	TokenAsk
	TokenSet
	TokenGoto
	TokenCall
	TokenReturn
	TokenIf
	TokenElif
	TokenElse
	TokenWhile
	TokenFor
	TokenIn
	TokenBreak
	TokenContinue
	TokenTrue
	TokenFalse
	TokenNull
	TokenAnd
	TokenOr
	TokenNot
	TokenPatterns
	TokenDescription
	TokenExamples
)

// keywords maps reserved identifier text to its token kind. An identifier
// is resolved against this table after scanning; nothing else distinguishes
// keywords lexically. break and continue are reserved but currently have no
// grammar productions.
var keywords = map[string]TokenKind{
	"bot":         TokenBot,
	"intent":      TokenIntent,
	"state":       TokenState,
	"var":         TokenVar,
	"func":        TokenFunc,
	"initial":     TokenInitial,
	"final":       TokenFinal,
	"on_enter":    TokenOnEnter,
	"on_exit":     TokenOnExit,
	"on_message":  TokenOnMessage,
	"when":        TokenWhen,
	"fallback":    TokenFallback,
	"say":         TokenSay,
	"ask":         TokenAsk,
	"set":         TokenSet,
	"goto":        TokenGoto,
	"call":        TokenCall,
	"return":      TokenReturn,
	"if":          TokenIf,
	"elif":        TokenElif,
	"else":        TokenElse,
	"while":       TokenWhile,
	"for":         TokenFor,
	"in":          TokenIn,
	"break":       TokenBreak,
	"continue":    TokenContinue,
	"true":        TokenTrue,
	"false":       TokenFalse,
	"null":        TokenNull,
	"and":         TokenAnd,
	"or":          TokenOr,
	"not":         TokenNot,
	"patterns":    TokenPatterns,
	"description": TokenDescription,
	"examples":    TokenExamples,
}

var tokenNames = map[TokenKind]string{
	TokenEOF:       "EOF",
	TokenIdent:     "Ident",
	TokenString:    "String",
	TokenNumber:    "Number",
	TokenPlus:      "+",
	TokenMinus:     "-",
	TokenStar:      "*",
	TokenSlash:     "/",
	TokenPercent:   "%",
	TokenEq:        "==",
	TokenNe:        "!=",
	TokenLt:        "<",
	TokenGt:        ">",
	TokenLe:        "<=",
	TokenGe:        ">=",
	TokenAssign:    "=",
	TokenArrow:     "->",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenLBrace:    "{",
	TokenRBrace:    "}",
	TokenLBracket:  "[",
	TokenRBracket:  "]",
	TokenComma:     ",",
	TokenColon:     ":",
	TokenSemicolon: ";",
	TokenDot:       ".",
}

func init() {
	for text, kind := range keywords {
		tokenNames[kind] = text
	}
}

// String returns a human-readable name for the token kind.
func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a single lexical token with its 1-based source position.
type Token struct {
	Kind TokenKind
	Text string // raw text; for strings, the unescaped value

	// Num holds the parsed value for Number tokens.
	Num float64

	Line   int
	Column int
}

func (t Token) String() string {
	switch t.Kind {
	case TokenString:
		return fmt.Sprintf("%d:%d String %q", t.Line, t.Column, t.Text)
	case TokenNumber:
		return fmt.Sprintf("%d:%d Number %s", t.Line, t.Column, t.Text)
	case TokenIdent:
		return fmt.Sprintf("%d:%d Ident %s", t.Line, t.Column, t.Text)
	default:
		return fmt.Sprintf("%d:%d %s", t.Line, t.Column, t.Kind)
	}
}

// IsKeyword reports whether the token kind is a reserved word.
func (k TokenKind) IsKeyword() bool {
	_, ok := tokenNames[k]
	if !ok {
		return false
	}
	_, ok = keywords[tokenNames[k]]
	return ok
}
