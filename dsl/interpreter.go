package dsl

import (
	"context"
	"fmt"
	"strings"

	"github.com/botscript-lang/botscript/llm"
)

// Fixed responses for turns that cannot be routed through a state.
const (
	defaultFallbackMessage = "Sorry, I didn't understand that. Could you rephrase?"
	finishedMessage        = "The conversation has ended."
)

// InterpreterOption configures the interpreter.
type InterpreterOption func(*Interpreter)

// WithOutput sets the sink for say output produced outside of a turn
// (for example by the initial state's on_enter during Start).
func WithOutput(fn func(string)) InterpreterOption {
	return func(i *Interpreter) {
		i.output = fn
	}
}

// WithInput sets the boundary that answers ask statements.
func WithInput(fn func(prompt string) (string, error)) InterpreterOption {
	return func(i *Interpreter) {
		i.input = fn
	}
}

// WithRecognizer sets the intent recognizer. The default is the
// deterministic local matcher.
func WithRecognizer(r llm.Recognizer) InterpreterOption {
	return func(i *Interpreter) {
		i.recognizer = r
	}
}

// Interpreter drives one bot's dialogue: it owns the environment, the
// current state, and the finished flag across turns. It is not safe
// for concurrent use.
type Interpreter struct {
	bot     *BotDef
	env     *Env
	states  map[string]*StateDef
	intents map[string]*IntentDef
	current *StateDef

	finished bool

	recognizer llm.Recognizer
	lastResult *llm.Result
	output     func(string)
	input      func(prompt string) (string, error)

	// capture collects say output during a turn; nil outside of turns.
	capture *[]string
}

// NewInterpreter creates an interpreter with no bot loaded.
func NewInterpreter(opts ...InterpreterOption) *Interpreter {
	in := &Interpreter{
		recognizer: llm.Local{},
		output:     func(string) {},
		input: func(string) (string, error) {
			return "", fmt.Errorf("no input boundary configured")
		},
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Load selects the program's first bot: registers its intents, states
// and functions, evaluates variable initializers into a fresh root
// environment, and resolves the initial state. The explicit
// initial-state name set by the parser takes precedence, then the
// first state flagged initial, then the first state in order.
func (in *Interpreter) Load(program *Program) error {
	if program == nil || len(program.Bots) == 0 {
		return fmt.Errorf("program defines no bots")
	}
	return in.LoadBot(program.Bots[0])
}

// LoadBot loads one bot definition, resetting all dialogue state.
func (in *Interpreter) LoadBot(bot *BotDef) error {
	in.bot = bot
	in.env = NewEnv()
	in.current = nil
	in.finished = false

	in.intents = make(map[string]*IntentDef, len(bot.Intents))
	for _, intent := range bot.Intents {
		in.intents[intent.Name] = intent
	}

	in.states = make(map[string]*StateDef, len(bot.States))
	for _, state := range bot.States {
		in.states[state.Name] = state
	}

	for _, fn := range bot.Funcs {
		in.env.DefineFunc(fn)
	}

	for _, v := range bot.Vars {
		var value Value = Null{}
		if v.Init != nil {
			var err error
			value, err = in.eval(v.Init)
			if err != nil {
				return fmt.Errorf("initialize variable %s: %w", v.Name, err)
			}
		}
		in.env.Define(v.Name, value)
	}

	switch {
	case bot.InitialState != "" && in.states[bot.InitialState] != nil:
		in.current = in.states[bot.InitialState]
	default:
		for _, state := range bot.States {
			if state.Initial {
				in.current = state
				break
			}
		}
		if in.current == nil && len(bot.States) > 0 {
			in.current = bot.States[0]
		}
	}
	return nil
}

// BotName reports the loaded bot's name, or "".
func (in *Interpreter) BotName() string {
	if in.bot == nil {
		return ""
	}
	return in.bot.Name
}

// CurrentState reports the current state's name, or "".
func (in *Interpreter) CurrentState() string {
	if in.current == nil {
		return ""
	}
	return in.current.Name
}

// Finished reports whether a final state has been entered.
func (in *Interpreter) Finished() bool {
	return in.finished
}

// Variables returns a copy of the root environment's bindings,
// excluding reserved underscore-prefixed names.
func (in *Interpreter) Variables() map[string]Value {
	if in.env == nil {
		return nil
	}
	return in.env.Snapshot("_")
}

// Start begins the dialogue by running the initial state's on_enter
// handler, if any.
func (in *Interpreter) Start() error {
	if in.current == nil {
		return fmt.Errorf("no initial state")
	}
	return in.runEnter()
}

// runEnter executes the current state's on_enter handler. A goto in
// the handler transitions immediately.
func (in *Interpreter) runEnter() error {
	ctrl, err := in.runHandler(EventEnter)
	if err != nil {
		return err
	}
	if ctrl.kind == ctrlJump {
		return in.gotoState(ctrl.target)
	}
	return nil
}

func (in *Interpreter) runHandler(event EventKind) (control, error) {
	if in.current == nil {
		return ctrlNone, nil
	}
	body := in.current.Handler(event)
	if body == nil {
		return ctrlNone, nil
	}
	return in.execBlock(body)
}

// gotoState performs the exit/switch/enter sequence for a transition.
// Entering a final state marks the dialogue finished; its on_enter
// still runs.
func (in *Interpreter) gotoState(name string) error {
	target, ok := in.states[name]
	if !ok {
		return fmt.Errorf("undefined state: %s", name)
	}

	ctrl, err := in.runHandler(EventExit)
	if err != nil {
		return err
	}
	if ctrl.kind == ctrlJump {
		// A goto in on_exit abandons this transition entirely.
		return in.gotoState(ctrl.target)
	}

	in.current = target
	if target.Final {
		in.finished = true
	}
	return in.runEnter()
}

// ProcessInput handles one user utterance and returns the bot's
// response (the newline-joined say output of the turn) plus whether
// the dialogue should continue.
func (in *Interpreter) ProcessInput(ctx context.Context, utterance string) (string, bool, error) {
	if in.finished {
		return finishedMessage, false, nil
	}
	if in.current == nil {
		return "", false, fmt.Errorf("no bot loaded")
	}

	in.env.Set("_user_input", Str{V: utterance})

	result, err := in.recognize(ctx, utterance)
	if err != nil {
		return "", false, fmt.Errorf("recognize intent: %w", err)
	}

	in.env.Set("_intent", Str{V: result.Intent})
	in.env.Set("_confidence", Number{V: result.Confidence})
	entities := NewMap()
	for k, v := range result.Entities {
		entities.Entries[k] = Str{V: v}
	}
	in.env.Set("_entities", entities)

	var outputs []string
	in.capture = &outputs
	defer func() { in.capture = nil }()

	if err := in.dispatch(result.Intent, &outputs); err != nil {
		return "", false, err
	}

	response := strings.Join(outputs, "\n")
	return response, !in.finished, nil
}

// LastResult returns the most recent recognition outcome, for callers
// that want to inspect it (debug display in the CLI).
func (in *Interpreter) LastResult() *llm.Result {
	return in.lastResult
}

func (in *Interpreter) recognize(ctx context.Context, utterance string) (*llm.Result, error) {
	descriptors := make([]llm.Intent, 0, len(in.bot.Intents))
	for _, intent := range in.bot.Intents {
		descriptors = append(descriptors, llm.Intent{
			Name:        intent.Name,
			Patterns:    intent.Patterns,
			Description: intent.Description,
			Examples:    intent.Examples,
		})
	}

	variables := map[string]any{}
	for name, value := range in.env.Snapshot("_") {
		variables[name] = goValue(value)
	}

	result, err := in.recognizer.Recognize(ctx, utterance, descriptors, &llm.Context{
		CurrentState: in.CurrentState(),
		Variables:    variables,
	})
	if err != nil {
		return nil, err
	}
	in.lastResult = result
	return result, nil
}

// dispatch scans the current state's transitions for the recognized
// intent, taking the first whose guard is truthy; otherwise the
// fallback block or the fixed default message.
func (in *Interpreter) dispatch(intent string, outputs *[]string) error {
	for _, rule := range in.current.Transitions {
		if rule.Intent != intent {
			continue
		}
		if rule.Guard != nil {
			guard, err := in.eval(rule.Guard)
			if err != nil {
				if target, ok := jumpTarget(err); ok {
					return in.gotoState(target)
				}
				return err
			}
			if !guard.Truthy() {
				continue
			}
		}
		return in.gotoState(rule.Target)
	}

	if in.current.Fallback != nil {
		ctrl, err := in.execBlock(in.current.Fallback)
		if err != nil {
			return err
		}
		if ctrl.kind == ctrlJump {
			return in.gotoState(ctrl.target)
		}
		return nil
	}

	*outputs = append(*outputs, defaultFallbackMessage)
	return nil
}

// emit routes say output either into the active turn's capture buffer
// or to the configured output sink.
func (in *Interpreter) emit(message string) {
	if in.capture != nil {
		*in.capture = append(*in.capture, message)
		return
	}
	in.output(message)
}
