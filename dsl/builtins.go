package dsl

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// builtinFunc is a native function. Builtins are resolved before
// user-defined functions and always by name.
type builtinFunc func(in *Interpreter, args []Value) (Value, error)

func argCount(name string, args []Value, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		if min == max {
			return fmt.Errorf("%s: expected %d argument(s), got %d", name, min, len(args))
		}
		return fmt.Errorf("%s: expected %d to %d arguments, got %d", name, min, max, len(args))
	}
	return nil
}

func wantString(name string, v Value) (string, error) {
	s, ok := v.(Str)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %s", name, v.Kind())
	}
	return s.V, nil
}

func wantNumber(name string, v Value) (float64, error) {
	n, ok := v.(Number)
	if !ok {
		return 0, fmt.Errorf("%s: expected number, got %s", name, v.Kind())
	}
	return n.V, nil
}

func wantList(name string, v Value) (List, error) {
	l, ok := v.(List)
	if !ok {
		return List{}, fmt.Errorf("%s: expected list, got %s", name, v.Kind())
	}
	return l, nil
}

// builtins is the fixed native function table.
var builtins = map[string]builtinFunc{
	// String functions
	"length":     builtinLength,
	"upper":      stringMap("upper", strings.ToUpper),
	"lower":      stringMap("lower", strings.ToLower),
	"trim":       stringMap("trim", strings.TrimSpace),
	"contains":   stringPred("contains", strings.Contains),
	"startswith": stringPred("startswith", strings.HasPrefix),
	"endswith":   stringPred("endswith", strings.HasSuffix),
	"replace":    builtinReplace,
	"split":      builtinSplit,
	"join":       builtinJoin,

	// Type conversions
	"str":   builtinStr,
	"int":   builtinInt,
	"float": builtinFloat,
	"bool":  builtinBool,

	// List functions
	"append": builtinAppend,
	"pop":    builtinPop,
	"first":  builtinFirst,
	"last":   builtinLast,
	"slice":  builtinSlice,

	// Math functions
	"abs":   builtinAbs,
	"min":   builtinMin,
	"max":   builtinMax,
	"round": builtinRound,

	// Utility functions
	"print":  builtinPrint,
	"format": builtinFormat,
	"match":  builtinMatch,

	// Introspection
	"current_state": builtinCurrentState,
}

func builtinLength(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("length", args, 1, 1); err != nil {
		return nil, err
	}
	// Falsy values (including null) have length 0.
	if !args[0].Truthy() {
		return Number{V: 0}, nil
	}
	switch v := args[0].(type) {
	case Str:
		return Number{V: float64(len([]rune(v.V)))}, nil
	case List:
		return Number{V: float64(len(*v.Elems))}, nil
	case Map:
		return Number{V: float64(len(v.Entries))}, nil
	}
	return nil, fmt.Errorf("length: value of type %s has no length", args[0].Kind())
}

// stringMap wraps a string transform; non-string inputs pass through
// unchanged, matching the forgiving behavior of the string builtins.
func stringMap(name string, fn func(string) string) builtinFunc {
	return func(in *Interpreter, args []Value) (Value, error) {
		if err := argCount(name, args, 1, 1); err != nil {
			return nil, err
		}
		if s, ok := args[0].(Str); ok {
			return Str{V: fn(s.V)}, nil
		}
		return args[0], nil
	}
}

// stringPred wraps a two-string predicate; a non-string subject yields false.
func stringPred(name string, fn func(string, string) bool) builtinFunc {
	return func(in *Interpreter, args []Value) (Value, error) {
		if err := argCount(name, args, 2, 2); err != nil {
			return nil, err
		}
		s, ok := args[0].(Str)
		if !ok {
			return Bool{V: false}, nil
		}
		arg, err := wantString(name, args[1])
		if err != nil {
			return nil, err
		}
		return Bool{V: fn(s.V, arg)}, nil
	}
}

func builtinReplace(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("replace", args, 3, 3); err != nil {
		return nil, err
	}
	s, ok := args[0].(Str)
	if !ok {
		return args[0], nil
	}
	old, err := wantString("replace", args[1])
	if err != nil {
		return nil, err
	}
	new_, err := wantString("replace", args[2])
	if err != nil {
		return nil, err
	}
	return Str{V: strings.ReplaceAll(s.V, old, new_)}, nil
}

func builtinSplit(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("split", args, 1, 2); err != nil {
		return nil, err
	}
	s, ok := args[0].(Str)
	if !ok {
		return NewList(), nil
	}
	sep := " "
	if len(args) == 2 {
		var err error
		sep, err = wantString("split", args[1])
		if err != nil {
			return nil, err
		}
	}
	parts := strings.Split(s.V, sep)
	elems := make([]Value, len(parts))
	for i, p := range parts {
		elems[i] = Str{V: p}
	}
	return NewList(elems...), nil
}

func builtinJoin(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("join", args, 1, 2); err != nil {
		return nil, err
	}
	l, ok := args[0].(List)
	if !ok {
		return Str{V: ""}, nil
	}
	sep := ""
	if len(args) == 2 {
		var err error
		sep, err = wantString("join", args[1])
		if err != nil {
			return nil, err
		}
	}
	parts := make([]string, len(*l.Elems))
	for i, e := range *l.Elems {
		parts[i] = e.Text()
	}
	return Str{V: strings.Join(parts, sep)}, nil
}

func builtinStr(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("str", args, 1, 1); err != nil {
		return nil, err
	}
	return Str{V: args[0].Text()}, nil
}

func builtinInt(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("int", args, 1, 1); err != nil {
		return nil, err
	}
	// Falsy values convert to 0.
	if !args[0].Truthy() {
		return Number{V: 0}, nil
	}
	switch v := args[0].(type) {
	case Number:
		return Number{V: math.Trunc(v.V)}, nil
	case Bool:
		return Number{V: 1}, nil
	case Str:
		n, err := strconv.ParseInt(strings.TrimSpace(v.V), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("int: cannot convert %q", v.V)
		}
		return Number{V: float64(n)}, nil
	}
	return nil, fmt.Errorf("int: cannot convert %s", args[0].Kind())
}

func builtinFloat(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("float", args, 1, 1); err != nil {
		return nil, err
	}
	if !args[0].Truthy() {
		return Number{V: 0}, nil
	}
	switch v := args[0].(type) {
	case Number:
		return v, nil
	case Bool:
		return Number{V: 1}, nil
	case Str:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.V), 64)
		if err != nil {
			return nil, fmt.Errorf("float: cannot convert %q", v.V)
		}
		return Number{V: n}, nil
	}
	return nil, fmt.Errorf("float: cannot convert %s", args[0].Kind())
}

func builtinBool(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("bool", args, 1, 1); err != nil {
		return nil, err
	}
	return Bool{V: args[0].Truthy()}, nil
}

func builtinAppend(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("append", args, 2, 2); err != nil {
		return nil, err
	}
	l, ok := args[0].(List)
	if !ok {
		return args[0], nil
	}
	*l.Elems = append(*l.Elems, args[1])
	return l, nil
}

func builtinPop(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("pop", args, 1, 1); err != nil {
		return nil, err
	}
	l, ok := args[0].(List)
	if !ok || len(*l.Elems) == 0 {
		return Null{}, nil
	}
	last := (*l.Elems)[len(*l.Elems)-1]
	*l.Elems = (*l.Elems)[:len(*l.Elems)-1]
	return last, nil
}

func builtinFirst(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("first", args, 1, 1); err != nil {
		return nil, err
	}
	l, ok := args[0].(List)
	if !ok || len(*l.Elems) == 0 {
		return Null{}, nil
	}
	return (*l.Elems)[0], nil
}

func builtinLast(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("last", args, 1, 1); err != nil {
		return nil, err
	}
	l, ok := args[0].(List)
	if !ok || len(*l.Elems) == 0 {
		return Null{}, nil
	}
	return (*l.Elems)[len(*l.Elems)-1], nil
}

// builtinSlice implements slice(seq, start[, end]) with Python-style
// semantics: negative indices count from the end, out-of-range bounds are
// clamped. Works for lists and strings.
func builtinSlice(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("slice", args, 2, 3); err != nil {
		return nil, err
	}
	start, err := wantNumber("slice", args[1])
	if err != nil {
		return nil, err
	}

	switch v := args[0].(type) {
	case List:
		n := len(*v.Elems)
		lo, hi := sliceBounds(int(start), endIndex(args, n), n)
		out := make([]Value, hi-lo)
		copy(out, (*v.Elems)[lo:hi])
		return NewList(out...), nil
	case Str:
		runes := []rune(v.V)
		n := len(runes)
		lo, hi := sliceBounds(int(start), endIndex(args, n), n)
		return Str{V: string(runes[lo:hi])}, nil
	}
	return nil, fmt.Errorf("slice: expected list or string, got %s", args[0].Kind())
}

func endIndex(args []Value, n int) int {
	if len(args) < 3 {
		return n
	}
	if e, ok := args[2].(Number); ok {
		return int(e.V)
	}
	return n
}

func sliceBounds(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo += n
	}
	if hi < 0 {
		hi += n
	}
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo > n {
		lo = n
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func builtinAbs(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("abs", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := wantNumber("abs", args[0])
	if err != nil {
		return nil, err
	}
	return Number{V: math.Abs(n)}, nil
}

func builtinMin(in *Interpreter, args []Value) (Value, error) {
	return extremum("min", args, func(a, b float64) bool { return a < b })
}

func builtinMax(in *Interpreter, args []Value) (Value, error) {
	return extremum("max", args, func(a, b float64) bool { return a > b })
}

// extremum handles both min(a, b, ...) and min(list) call shapes.
func extremum(name string, args []Value, better func(a, b float64) bool) (Value, error) {
	if err := argCount(name, args, 1, -1); err != nil {
		return nil, err
	}
	nums := args
	if len(args) == 1 {
		l, err := wantList(name, args[0])
		if err != nil {
			return nil, err
		}
		nums = *l.Elems
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("%s: empty sequence", name)
	}
	best, err := wantNumber(name, nums[0])
	if err != nil {
		return nil, err
	}
	for _, v := range nums[1:] {
		n, err := wantNumber(name, v)
		if err != nil {
			return nil, err
		}
		if better(n, best) {
			best = n
		}
	}
	return Number{V: best}, nil
}

func builtinRound(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("round", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := wantNumber("round", args[0])
	if err != nil {
		return nil, err
	}
	return Number{V: math.Round(n)}, nil
}

func builtinPrint(in *Interpreter, args []Value) (Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Text()
	}
	in.emit(strings.Join(parts, " "))
	return Null{}, nil
}

// builtinFormat substitutes {} placeholders in order; {0}, {1}, ... select
// an argument by position.
func builtinFormat(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("format", args, 1, -1); err != nil {
		return nil, err
	}
	template, err := wantString("format", args[0])
	if err != nil {
		return nil, err
	}
	rest := args[1:]

	var sb strings.Builder
	next := 0
	for i := 0; i < len(template); i++ {
		if template[i] != '{' {
			sb.WriteByte(template[i])
			continue
		}
		end := strings.IndexByte(template[i:], '}')
		if end < 0 {
			sb.WriteByte(template[i])
			continue
		}
		spec := template[i+1 : i+end]
		idx := next
		if spec != "" {
			parsed, err := strconv.Atoi(spec)
			if err != nil {
				sb.WriteString(template[i : i+end+1])
				i += end
				continue
			}
			idx = parsed
		} else {
			next++
		}
		if idx < 0 || idx >= len(rest) {
			return nil, fmt.Errorf("format: placeholder %d out of range", idx)
		}
		sb.WriteString(rest[idx].Text())
		i += end
	}
	return Str{V: sb.String()}, nil
}

// builtinMatch tests a regular expression against the start of a string.
func builtinMatch(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("match", args, 2, 2); err != nil {
		return nil, err
	}
	pattern, err := wantString("match", args[0])
	if err != nil {
		return nil, err
	}
	s, ok := args[1].(Str)
	if !ok {
		return Bool{V: false}, nil
	}
	re, err := regexp.Compile(`\A(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("match: invalid pattern: %w", err)
	}
	return Bool{V: re.MatchString(s.V)}, nil
}

func builtinCurrentState(in *Interpreter, args []Value) (Value, error) {
	if err := argCount("current_state", args, 0, 0); err != nil {
		return nil, err
	}
	if in.current == nil {
		return Null{}, nil
	}
	return Str{V: in.current.Name}, nil
}
