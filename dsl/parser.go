package dsl

import "fmt"

// SyntaxError is the single error produced by a failed parse. Parsing is
// fail-fast: the first unexpected token (or premature end of input) stops
// the parse and no AST is returned.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Parser consumes a token stream and produces a Program.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a parser. Instances are independent; no shared state.
func NewParser() *Parser {
	return &Parser{}
}

// Parse tokenizes and parses source text. Lexical diagnostics are returned
// alongside; if the lexer recorded any, the parse still proceeds over the
// tokens it produced. A syntax error yields a nil Program.
func (p *Parser) Parse(src string) (*Program, []LexError, error) {
	tokens, lexErrs := Tokenize(src)
	p.tokens = tokens
	p.pos = 0

	prog, err := p.parseProgram()
	if err != nil {
		return nil, lexErrs, err
	}
	return prog, lexErrs, nil
}

// Parse is a convenience wrapper over a fresh Parser.
func Parse(src string) (*Program, []LexError, error) {
	return NewParser().Parse(src)
}

func (p *Parser) cur() Token {
	return p.tokens[p.pos]
}

func (p *Parser) check(kind TokenKind) bool {
	return p.cur().Kind == kind
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) accept(kind TokenKind) (Token, bool) {
	if p.check(kind) {
		return p.advance(), true
	}
	return Token{}, false
}

func (p *Parser) expect(kind TokenKind, what string) (Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	return Token{}, p.unexpected(what)
}

func (p *Parser) unexpected(what string) error {
	tok := p.cur()
	if tok.Kind == TokenEOF {
		return &SyntaxError{Line: tok.Line, Message: fmt.Sprintf("unexpected end of input, expected %s", what)}
	}
	text := tok.Text
	if text == "" {
		text = tok.Kind.String()
	}
	return &SyntaxError{Line: tok.Line, Message: fmt.Sprintf("unexpected %q, expected %s", text, what)}
}

func (p *Parser) posOf(tok Token) Pos {
	return Pos{Line: tok.Line, Column: tok.Column}
}

// ---- Top level ----

func (p *Parser) parseProgram() (*Program, error) {
	prog := &Program{}
	for {
		bot, err := p.parseBot()
		if err != nil {
			return nil, err
		}
		prog.Bots = append(prog.Bots, bot)
		if p.check(TokenEOF) {
			return prog, nil
		}
	}
}

func (p *Parser) parseBot() (*BotDef, error) {
	kw, err := p.expect(TokenBot, "'bot'")
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokenString, "bot name string")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLBrace, "'{'"); err != nil {
		return nil, err
	}

	bot := &BotDef{Name: name.Text, NodePos: p.posOf(kw)}
	for !p.check(TokenRBrace) {
		switch p.cur().Kind {
		case TokenIntent:
			def, err := p.parseIntent()
			if err != nil {
				return nil, err
			}
			bot.Intents = append(bot.Intents, def)
		case TokenState:
			def, err := p.parseState()
			if err != nil {
				return nil, err
			}
			bot.States = append(bot.States, def)
			if def.Initial && bot.InitialState == "" {
				bot.InitialState = def.Name
			}
		case TokenVar:
			def, err := p.parseVar()
			if err != nil {
				return nil, err
			}
			bot.Vars = append(bot.Vars, def)
		case TokenFunc:
			def, err := p.parseFunc()
			if err != nil {
				return nil, err
			}
			bot.Funcs = append(bot.Funcs, def)
		default:
			return nil, p.unexpected("intent, state, var or func")
		}
	}
	p.advance() // }
	return bot, nil
}

func (p *Parser) parseIntent() (*IntentDef, error) {
	kw := p.advance()
	name, err := p.expect(TokenIdent, "intent name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLBrace, "'{'"); err != nil {
		return nil, err
	}

	def := &IntentDef{Name: name.Text, NodePos: p.posOf(kw)}
	for !p.check(TokenRBrace) {
		switch p.cur().Kind {
		case TokenPatterns:
			p.advance()
			if _, err := p.expect(TokenColon, "':'"); err != nil {
				return nil, err
			}
			list, err := p.parseStringList()
			if err != nil {
				return nil, err
			}
			def.Patterns = list
		case TokenDescription:
			p.advance()
			if _, err := p.expect(TokenColon, "':'"); err != nil {
				return nil, err
			}
			s, err := p.expect(TokenString, "description string")
			if err != nil {
				return nil, err
			}
			def.Description = s.Text
		case TokenExamples:
			p.advance()
			if _, err := p.expect(TokenColon, "':'"); err != nil {
				return nil, err
			}
			list, err := p.parseStringList()
			if err != nil {
				return nil, err
			}
			def.Examples = list
		default:
			return nil, p.unexpected("patterns, description or examples")
		}
	}
	p.advance() // }
	return def, nil
}

func (p *Parser) parseStringList() ([]string, error) {
	if _, err := p.expect(TokenLBracket, "'['"); err != nil {
		return nil, err
	}
	var items []string
	if p.check(TokenRBracket) {
		p.advance()
		return items, nil
	}
	for {
		s, err := p.expect(TokenString, "string")
		if err != nil {
			return nil, err
		}
		items = append(items, s.Text)
		if _, ok := p.accept(TokenComma); !ok {
			break
		}
	}
	if _, err := p.expect(TokenRBracket, "']'"); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Parser) parseState() (*StateDef, error) {
	kw := p.advance()
	name, err := p.expect(TokenIdent, "state name")
	if err != nil {
		return nil, err
	}

	def := &StateDef{Name: name.Text, NodePos: p.posOf(kw)}
	for {
		if _, ok := p.accept(TokenInitial); ok {
			def.Initial = true
			continue
		}
		if _, ok := p.accept(TokenFinal); ok {
			def.Final = true
			continue
		}
		break
	}

	if _, err := p.expect(TokenLBrace, "'{'"); err != nil {
		return nil, err
	}

	for !p.check(TokenRBrace) {
		switch p.cur().Kind {
		case TokenOnEnter, TokenOnExit, TokenOnMessage:
			handler, err := p.parseEventHandler()
			if err != nil {
				return nil, err
			}
			def.Handlers = append(def.Handlers, handler)
		case TokenWhen:
			rule, err := p.parseTransition()
			if err != nil {
				return nil, err
			}
			def.Transitions = append(def.Transitions, rule)
		case TokenFallback:
			fb := p.advance()
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			if def.Fallback != nil {
				return nil, &SyntaxError{Line: fb.Line, Message: "state already has a fallback block"}
			}
			def.Fallback = body
		default:
			return nil, p.unexpected("event handler, transition or fallback")
		}
	}
	p.advance() // }
	return def, nil
}

func (p *Parser) parseEventHandler() (EventHandler, error) {
	kw := p.advance()
	var event EventKind
	switch kw.Kind {
	case TokenOnEnter:
		event = EventEnter
	case TokenOnExit:
		event = EventExit
	default:
		event = EventMessage
	}
	body, err := p.parseBlock()
	if err != nil {
		return EventHandler{}, err
	}
	return EventHandler{Event: event, Body: body, NodePos: p.posOf(kw)}, nil
}

func (p *Parser) parseTransition() (TransitionRule, error) {
	kw := p.advance() // when
	intent, err := p.expect(TokenIdent, "intent name")
	if err != nil {
		return TransitionRule{}, err
	}
	if _, err := p.expect(TokenArrow, "'->'"); err != nil {
		return TransitionRule{}, err
	}
	target, err := p.expect(TokenIdent, "target state name")
	if err != nil {
		return TransitionRule{}, err
	}
	rule := TransitionRule{Intent: intent.Text, Target: target.Text, NodePos: p.posOf(kw)}
	if _, ok := p.accept(TokenIf); ok {
		guard, err := p.parseExpr()
		if err != nil {
			return TransitionRule{}, err
		}
		rule.Guard = guard
	}
	return rule, nil
}

func (p *Parser) parseVar() (*VarDef, error) {
	kw := p.advance()
	name, err := p.expect(TokenIdent, "variable name")
	if err != nil {
		return nil, err
	}
	def := &VarDef{Name: name.Text, NodePos: p.posOf(kw)}
	if _, ok := p.accept(TokenAssign); ok {
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		def.Init = init
	}
	return def, nil
}

func (p *Parser) parseFunc() (*FuncDef, error) {
	kw := p.advance()
	name, err := p.expect(TokenIdent, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen, "'('"); err != nil {
		return nil, err
	}

	def := &FuncDef{Name: name.Text, NodePos: p.posOf(kw)}
	if !p.check(TokenRParen) {
		for {
			pname, err := p.expect(TokenIdent, "parameter name")
			if err != nil {
				return nil, err
			}
			param := Param{Name: pname.Text}
			if _, ok := p.accept(TokenAssign); ok {
				dflt, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				param.Default = dflt
			}
			def.Params = append(def.Params, param)
			if _, ok := p.accept(TokenComma); !ok {
				break
			}
		}
	}
	if _, err := p.expect(TokenRParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	def.Body = body
	return def, nil
}

// ---- Statements ----

func (p *Parser) parseBlock() ([]Stmt, error) {
	if _, err := p.expect(TokenLBrace, "'{'"); err != nil {
		return nil, err
	}
	stmts := []Stmt{}
	for !p.check(TokenRBrace) {
		if p.check(TokenEOF) {
			return nil, p.unexpected("'}'")
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	p.advance() // }
	return stmts, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	tok := p.cur()
	switch tok.Kind {
	case TokenSay:
		p.advance()
		msg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &SayStmt{Message: msg, NodePos: p.posOf(tok)}, nil

	case TokenAsk:
		p.advance()
		prompt, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenArrow, "'->'"); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent, "variable name")
		if err != nil {
			return nil, err
		}
		return &AskStmt{Prompt: prompt, Variable: name.Text, NodePos: p.posOf(tok)}, nil

	case TokenSet:
		p.advance()
		name, err := p.expect(TokenIdent, "variable name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenAssign, "'='"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &SetStmt{Variable: name.Text, Value: val, NodePos: p.posOf(tok)}, nil

	case TokenGoto:
		p.advance()
		name, err := p.expect(TokenIdent, "state name")
		if err != nil {
			return nil, err
		}
		return &GotoStmt{State: name.Text, NodePos: p.posOf(tok)}, nil

	case TokenCall:
		p.advance()
		name, err := p.expect(TokenIdent, "function name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenLParen, "'('"); err != nil {
			return nil, err
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		call := &CallExpr{Name: name.Text, Args: args, NodePos: p.posOf(name)}
		return &CallStmt{Call: call, NodePos: p.posOf(tok)}, nil

	case TokenReturn:
		p.advance()
		stmt := &ReturnStmt{NodePos: p.posOf(tok)}
		if p.startsExpr() {
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			stmt.Value = val
		}
		return stmt, nil

	case TokenIf:
		return p.parseIf()

	case TokenWhile:
		p.advance()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Cond: cond, Body: body, NodePos: p.posOf(tok)}, nil

	case TokenFor:
		p.advance()
		name, err := p.expect(TokenIdent, "loop variable")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenIn, "'in'"); err != nil {
			return nil, err
		}
		iter, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ForStmt{Variable: name.Text, Iterable: iter, Body: body, NodePos: p.posOf(tok)}, nil

	default:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ExprStmt{X: x, NodePos: p.posOf(tok)}, nil
	}
}

// startsExpr reports whether the current token can begin an expression.
// Used to decide whether a return statement carries a value.
func (p *Parser) startsExpr() bool {
	switch p.cur().Kind {
	case TokenString, TokenNumber, TokenTrue, TokenFalse, TokenNull,
		TokenIdent, TokenLParen, TokenLBracket, TokenMinus, TokenNot:
		return true
	}
	return false
}

func (p *Parser) parseIf() (Stmt, error) {
	tok := p.advance() // if
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{Cond: cond, Then: then, NodePos: p.posOf(tok)}

	for p.check(TokenElif) {
		p.advance()
		econd, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ebody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Elifs = append(stmt.Elifs, ElifClause{Cond: econd, Body: ebody})
	}

	if _, ok := p.accept(TokenElse); ok {
		ebody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = ebody
	}
	return stmt, nil
}

// ---- Expressions (precedence climbing) ----

func (p *Parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.check(TokenOr) {
		op := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "or", Left: left, Right: right, NodePos: p.posOf(op)}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.check(TokenAnd) {
		op := p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "and", Left: left, Right: right, NodePos: p.posOf(op)}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.check(TokenNot) {
		op := p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "not", Operand: operand, NodePos: p.posOf(op)}, nil
	}
	return p.parseEquality()
}

var equalityOps = map[TokenKind]string{TokenEq: "==", TokenNe: "!="}
var relationalOps = map[TokenKind]string{TokenLt: "<", TokenGt: ">", TokenLe: "<=", TokenGe: ">="}
var additiveOps = map[TokenKind]string{TokenPlus: "+", TokenMinus: "-"}
var multiplicativeOps = map[TokenKind]string{TokenStar: "*", TokenSlash: "/", TokenPercent: "%"}

func (p *Parser) parseBinary(ops map[TokenKind]string, next func() (Expr, error)) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		opName, ok := ops[p.cur().Kind]
		if !ok {
			return left, nil
		}
		op := p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: opName, Left: left, Right: right, NodePos: p.posOf(op)}
	}
}

func (p *Parser) parseEquality() (Expr, error) {
	return p.parseBinary(equalityOps, p.parseRelational)
}

func (p *Parser) parseRelational() (Expr, error) {
	return p.parseBinary(relationalOps, p.parseAdditive)
}

func (p *Parser) parseAdditive() (Expr, error) {
	return p.parseBinary(additiveOps, p.parseMultiplicative)
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinary(multiplicativeOps, p.parseUnary)
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.check(TokenMinus) {
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "-", Operand: operand, NodePos: p.posOf(op)}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case TokenDot:
			op := p.advance()
			member, err := p.expect(TokenIdent, "member name")
			if err != nil {
				return nil, err
			}
			expr = &MemberExpr{Object: expr, Member: member.Text, NodePos: p.posOf(op)}

		case TokenLBracket:
			op := p.advance()
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRBracket, "']'"); err != nil {
				return nil, err
			}
			expr = &IndexExpr{Object: expr, Index: index, NodePos: p.posOf(op)}

		case TokenLParen:
			op := p.advance()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			// Calls are by name; only identifiers are callable.
			ident, ok := expr.(*Ident)
			if !ok {
				return nil, &SyntaxError{Line: op.Line, Message: "only named functions can be called"}
			}
			expr = &CallExpr{Name: ident.Name, Args: args, NodePos: p.posOf(op)}

		default:
			return expr, nil
		}
	}
}

// parseArgs parses a comma-separated argument list, consuming the closing
// parenthesis. The opening parenthesis has already been consumed.
func (p *Parser) parseArgs() ([]Expr, error) {
	var args []Expr
	if p.check(TokenRParen) {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if _, ok := p.accept(TokenComma); !ok {
			break
		}
	}
	if _, err := p.expect(TokenRParen, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case TokenString:
		p.advance()
		return &StringLit{Value: tok.Text, NodePos: p.posOf(tok)}, nil
	case TokenNumber:
		p.advance()
		return &NumberLit{Value: tok.Num, NodePos: p.posOf(tok)}, nil
	case TokenTrue:
		p.advance()
		return &BoolLit{Value: true, NodePos: p.posOf(tok)}, nil
	case TokenFalse:
		p.advance()
		return &BoolLit{Value: false, NodePos: p.posOf(tok)}, nil
	case TokenNull:
		p.advance()
		return &NullLit{NodePos: p.posOf(tok)}, nil
	case TokenIdent:
		p.advance()
		return &Ident{Name: tok.Text, NodePos: p.posOf(tok)}, nil
	case TokenLParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case TokenLBracket:
		p.advance()
		lit := &ListLit{NodePos: p.posOf(tok)}
		if p.check(TokenRBracket) {
			p.advance()
			return lit, nil
		}
		for {
			elem, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			lit.Elems = append(lit.Elems, elem)
			if _, ok := p.accept(TokenComma); !ok {
				break
			}
		}
		if _, err := p.expect(TokenRBracket, "']'"); err != nil {
			return nil, err
		}
		return lit, nil
	}
	return nil, p.unexpected("expression")
}
