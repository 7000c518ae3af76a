package dsl

import (
	"strings"
	"testing"
)

const shopScript = `
bot "shop" {
	intent greet {
		patterns: ["hello", "hi"]
		description: "the user greets the bot"
		examples: ["hello there", "hi bot"]
	}

	intent order {
		patterns: ["order", "buy"]
		description: "the user wants to order"
	}

	var visits = 0
	var name

	func discount(total, rate = 0.1) {
		return total * rate
	}

	state welcome initial {
		on_enter {
			say "Welcome!"
		}
		when order -> checkout if visits > 0
		when order -> browse
		fallback {
			say "How can I help?"
		}
	}

	state browse {
		when order -> checkout
	}

	state checkout final {
		on_enter {
			say "Bye"
		}
	}
}
`

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	program, lexErrs, err := Parse(src)
	if len(lexErrs) != 0 {
		t.Fatalf("lex errors: %v", lexErrs)
	}
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return program
}

func TestParseBotStructure(t *testing.T) {
	program := mustParse(t, shopScript)
	if len(program.Bots) != 1 {
		t.Fatalf("got %d bots, want 1", len(program.Bots))
	}
	bot := program.Bots[0]

	if bot.Name != "shop" {
		t.Errorf("bot name = %q", bot.Name)
	}
	if len(bot.Intents) != 2 || len(bot.States) != 3 || len(bot.Vars) != 2 || len(bot.Funcs) != 1 {
		t.Errorf("counts: %d intents, %d states, %d vars, %d funcs",
			len(bot.Intents), len(bot.States), len(bot.Vars), len(bot.Funcs))
	}

	greet := bot.Intents[0]
	if greet.Name != "greet" || len(greet.Patterns) != 2 || greet.Description == "" || len(greet.Examples) != 2 {
		t.Errorf("greet intent = %+v", greet)
	}

	if bot.InitialState != "welcome" {
		t.Errorf("initial state = %q, want welcome", bot.InitialState)
	}
}

func TestParseTransitionsAndGuards(t *testing.T) {
	bot := mustParse(t, shopScript).Bots[0]
	welcome := bot.States[0]

	if len(welcome.Transitions) != 2 {
		t.Fatalf("got %d transitions, want 2", len(welcome.Transitions))
	}
	guarded := welcome.Transitions[0]
	if guarded.Intent != "order" || guarded.Target != "checkout" || guarded.Guard == nil {
		t.Errorf("guarded rule = %+v", guarded)
	}
	plain := welcome.Transitions[1]
	if plain.Guard != nil {
		t.Errorf("second rule unexpectedly has a guard")
	}
	if welcome.Fallback == nil {
		t.Errorf("welcome fallback missing")
	}
}

func TestParseFunctionDefaults(t *testing.T) {
	bot := mustParse(t, shopScript).Bots[0]
	fn := bot.Funcs[0]
	if len(fn.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(fn.Params))
	}
	if fn.Params[0].Default != nil {
		t.Errorf("first param has unexpected default")
	}
	if fn.Params[1].Default == nil {
		t.Errorf("second param missing default")
	}
}

func TestParseFirstInitialStateWins(t *testing.T) {
	src := `
bot "b" {
	state a initial {}
	state b initial {}
}
`
	bot := mustParse(t, src).Bots[0]
	if bot.InitialState != "a" {
		t.Errorf("initial state = %q, want a", bot.InitialState)
	}
}

func TestParsePrecedence(t *testing.T) {
	src := `
bot "b" {
	state s initial {
		on_enter {
			set x = 1 + 2 * 3
			set y = not a and b
		}
	}
}
`
	bot := mustParse(t, src).Bots[0]
	body := bot.States[0].Handler(EventEnter)

	setX := body[0].(*SetStmt)
	add := setX.Value.(*BinaryExpr)
	if add.Op != "+" {
		t.Fatalf("top op = %q, want +", add.Op)
	}
	if mul, ok := add.Right.(*BinaryExpr); !ok || mul.Op != "*" {
		t.Errorf("right of + is %s", ExprString(add.Right))
	}

	setY := body[1].(*SetStmt)
	and := setY.Value.(*BinaryExpr)
	if and.Op != "and" {
		t.Fatalf("top op = %q, want and", and.Op)
	}
	if _, ok := and.Left.(*UnaryExpr); !ok {
		t.Errorf("left of and is %s, want not-expression", ExprString(and.Left))
	}
}

func TestParsePostfixChain(t *testing.T) {
	src := `
bot "b" {
	state s initial {
		on_enter {
			set x = _entities.order[0]
		}
	}
}
`
	bot := mustParse(t, src).Bots[0]
	set := bot.States[0].Handler(EventEnter)[0].(*SetStmt)
	idx, ok := set.Value.(*IndexExpr)
	if !ok {
		t.Fatalf("value = %s, want index expression", ExprString(set.Value))
	}
	if _, ok := idx.Object.(*MemberExpr); !ok {
		t.Errorf("index object = %s, want member access", ExprString(idx.Object))
	}
}

func TestParseFailFast(t *testing.T) {
	program, _, err := Parse(`bot "b" { state s initial { say } }`)
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if program != nil {
		t.Errorf("failed parse returned a program")
	}
	var se *SyntaxError
	if !asSyntaxError(err, &se) {
		t.Fatalf("error type = %T", err)
	}
	if se.Line == 0 {
		t.Errorf("syntax error has no line number: %v", se)
	}
}

func TestParseRejectsDuplicateFallback(t *testing.T) {
	src := `
bot "b" {
	state s initial {
		fallback { say "a" }
		fallback { say "b" }
	}
}
`
	_, _, err := Parse(src)
	if err == nil {
		t.Fatal("expected syntax error for duplicate fallback")
	}
}

func TestParseRejectsNonIdentCallTarget(t *testing.T) {
	_, _, err := Parse(`bot "b" { state s initial { on_enter { set x = (1)(2) } } }`)
	if err == nil {
		t.Fatal("expected syntax error for calling a non-identifier")
	}
}

func TestParseReportsUnexpectedEOF(t *testing.T) {
	_, _, err := Parse(`bot "b" {`)
	if err == nil {
		t.Fatal("expected syntax error at EOF")
	}
	if !strings.Contains(err.Error(), "end of input") {
		t.Errorf("error = %v, want mention of end of input", err)
	}
}

func asSyntaxError(err error, target **SyntaxError) bool {
	se, ok := err.(*SyntaxError)
	if ok {
		*target = se
	}
	return ok
}
