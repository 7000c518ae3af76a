package dsl

import (
	"errors"
	"fmt"
	"math"
)

// maxLoopIterations caps while loops to guard against runaway scripts.
const maxLoopIterations = 10000

// control is the result of executing a statement. Return and Jump
// propagate up through enclosing blocks until a handler consumes them;
// there is no panic-based transfer.
type ctrlKind int

const (
	ctrlNormal ctrlKind = iota
	ctrlReturn
	ctrlJump
)

type control struct {
	kind   ctrlKind
	value  Value  // ctrlReturn payload
	target string // ctrlJump state name
}

var ctrlNone = control{kind: ctrlNormal}

// jumpSignal carries a goto out of expression context, where a control
// result cannot flow (a goto inside a user function called from an
// expression still transitions the dialogue). execBlock converts it
// back into a Jump control.
type jumpSignal struct {
	target string
}

func (j *jumpSignal) Error() string {
	return "goto " + j.target
}

func jumpTarget(err error) (string, bool) {
	var js *jumpSignal
	if errors.As(err, &js) {
		return js.target, true
	}
	return "", false
}

func (in *Interpreter) execBlock(stmts []Stmt) (control, error) {
	for _, s := range stmts {
		ctrl, err := in.execStmt(s)
		if err != nil {
			if target, ok := jumpTarget(err); ok {
				return control{kind: ctrlJump, target: target}, nil
			}
			return ctrlNone, err
		}
		if ctrl.kind != ctrlNormal {
			return ctrl, nil
		}
	}
	return ctrlNone, nil
}

func (in *Interpreter) execStmt(s Stmt) (control, error) {
	switch st := s.(type) {
	case *SayStmt:
		v, err := in.eval(st.Message)
		if err != nil {
			return ctrlNone, err
		}
		in.emit(v.Text())
		return ctrlNone, nil

	case *AskStmt:
		prompt, err := in.eval(st.Prompt)
		if err != nil {
			return ctrlNone, err
		}
		answer, err := in.input(prompt.Text())
		if err != nil {
			return ctrlNone, fmt.Errorf("ask: %w", err)
		}
		in.env.Set(st.Variable, Str{V: answer})
		return ctrlNone, nil

	case *SetStmt:
		v, err := in.eval(st.Value)
		if err != nil {
			return ctrlNone, err
		}
		in.env.Set(st.Variable, v)
		return ctrlNone, nil

	case *GotoStmt:
		return control{kind: ctrlJump, target: st.State}, nil

	case *CallStmt:
		_, err := in.evalCall(st.Call)
		return ctrlNone, err

	case *ReturnStmt:
		var v Value = Null{}
		if st.Value != nil {
			var err error
			v, err = in.eval(st.Value)
			if err != nil {
				return ctrlNone, err
			}
		}
		return control{kind: ctrlReturn, value: v}, nil

	case *IfStmt:
		return in.execIf(st)

	case *WhileStmt:
		return in.execWhile(st)

	case *ForStmt:
		return in.execFor(st)

	case *ExprStmt:
		_, err := in.eval(st.X)
		return ctrlNone, err
	}
	return ctrlNone, fmt.Errorf("unknown statement type %T", s)
}

func (in *Interpreter) execIf(st *IfStmt) (control, error) {
	cond, err := in.eval(st.Cond)
	if err != nil {
		return ctrlNone, err
	}
	if cond.Truthy() {
		return in.execBlock(st.Then)
	}
	for _, clause := range st.Elifs {
		cond, err := in.eval(clause.Cond)
		if err != nil {
			return ctrlNone, err
		}
		if cond.Truthy() {
			return in.execBlock(clause.Body)
		}
	}
	if st.Else != nil {
		return in.execBlock(st.Else)
	}
	return ctrlNone, nil
}

func (in *Interpreter) execWhile(st *WhileStmt) (control, error) {
	for count := 0; ; count++ {
		if count >= maxLoopIterations {
			return ctrlNone, fmt.Errorf("while: too many iterations (limit %d), possible infinite loop", maxLoopIterations)
		}
		cond, err := in.eval(st.Cond)
		if err != nil {
			return ctrlNone, err
		}
		if !cond.Truthy() {
			return ctrlNone, nil
		}
		ctrl, err := in.execBlock(st.Body)
		if err != nil {
			return ctrlNone, err
		}
		if ctrl.kind != ctrlNormal {
			return ctrl, nil
		}
	}
}

// execFor iterates a list's elements or a string's runes. The loop
// variable is defined in the current scope and keeps its last value
// after the loop ends.
func (in *Interpreter) execFor(st *ForStmt) (control, error) {
	iterable, err := in.eval(st.Iterable)
	if err != nil {
		return ctrlNone, err
	}

	var items []Value
	switch v := iterable.(type) {
	case List:
		items = *v.Elems
	case Str:
		for _, r := range v.V {
			items = append(items, Str{V: string(r)})
		}
	default:
		return ctrlNone, fmt.Errorf("for: value of type %s is not iterable", iterable.Kind())
	}

	for _, item := range items {
		in.env.Define(st.Variable, item)
		ctrl, err := in.execBlock(st.Body)
		if err != nil {
			return ctrlNone, err
		}
		if ctrl.kind != ctrlNormal {
			return ctrl, nil
		}
	}
	return ctrlNone, nil
}

func (in *Interpreter) eval(e Expr) (Value, error) {
	switch ex := e.(type) {
	case *StringLit:
		return Str{V: ex.Value}, nil
	case *NumberLit:
		return Number{V: ex.Value}, nil
	case *BoolLit:
		return Bool{V: ex.Value}, nil
	case *NullLit:
		return Null{}, nil

	case *ListLit:
		elems := make([]Value, len(ex.Elems))
		for i, el := range ex.Elems {
			v, err := in.eval(el)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return NewList(elems...), nil

	case *Ident:
		return in.env.Get(ex.Name)

	case *BinaryExpr:
		return in.evalBinary(ex)

	case *UnaryExpr:
		return in.evalUnary(ex)

	case *CallExpr:
		return in.evalCall(ex)

	case *MemberExpr:
		obj, err := in.eval(ex.Object)
		if err != nil {
			return nil, err
		}
		// Missing keys and non-map targets both yield null.
		if m, ok := obj.(Map); ok {
			if v, ok := m.Entries[ex.Member]; ok {
				return v, nil
			}
		}
		return Null{}, nil

	case *IndexExpr:
		return in.evalIndex(ex)
	}
	return nil, fmt.Errorf("unknown expression type %T", e)
}

func (in *Interpreter) evalBinary(ex *BinaryExpr) (Value, error) {
	left, err := in.eval(ex.Left)
	if err != nil {
		return nil, err
	}

	// and/or short-circuit and yield the deciding operand.
	switch ex.Op {
	case "and":
		if !left.Truthy() {
			return left, nil
		}
		return in.eval(ex.Right)
	case "or":
		if left.Truthy() {
			return left, nil
		}
		return in.eval(ex.Right)
	}

	right, err := in.eval(ex.Right)
	if err != nil {
		return nil, err
	}

	switch ex.Op {
	case "+":
		return evalAdd(left, right)
	case "-", "*", "/", "%":
		return evalArith(ex.Op, left, right)
	case "==":
		return Bool{V: valueEqual(left, right)}, nil
	case "!=":
		return Bool{V: !valueEqual(left, right)}, nil
	case "<", ">", "<=", ">=":
		return evalCompare(ex.Op, left, right)
	}
	return nil, fmt.Errorf("unknown operator %q", ex.Op)
}

func evalAdd(left, right Value) (Value, error) {
	switch l := left.(type) {
	case Number:
		if r, ok := right.(Number); ok {
			return Number{V: l.V + r.V}, nil
		}
	case Str:
		if r, ok := right.(Str); ok {
			return Str{V: l.V + r.V}, nil
		}
	case List:
		if r, ok := right.(List); ok {
			elems := make([]Value, 0, len(*l.Elems)+len(*r.Elems))
			elems = append(elems, *l.Elems...)
			elems = append(elems, *r.Elems...)
			return NewList(elems...), nil
		}
	}
	return nil, fmt.Errorf("cannot add %s and %s", left.Kind(), right.Kind())
}

func evalArith(op string, left, right Value) (Value, error) {
	l, ok := left.(Number)
	if !ok {
		return nil, fmt.Errorf("operator %q: expected number, got %s", op, left.Kind())
	}
	r, ok := right.(Number)
	if !ok {
		return nil, fmt.Errorf("operator %q: expected number, got %s", op, right.Kind())
	}
	switch op {
	case "-":
		return Number{V: l.V - r.V}, nil
	case "*":
		return Number{V: l.V * r.V}, nil
	case "/":
		// Division by zero yields 0, not an error.
		if r.V == 0 {
			return Number{V: 0}, nil
		}
		return Number{V: l.V / r.V}, nil
	case "%":
		if r.V == 0 {
			return Number{V: 0}, nil
		}
		return Number{V: math.Mod(l.V, r.V)}, nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func evalCompare(op string, left, right Value) (Value, error) {
	var cmp float64
	switch l := left.(type) {
	case Number:
		r, ok := right.(Number)
		if !ok {
			return nil, fmt.Errorf("operator %q: cannot compare %s with %s", op, left.Kind(), right.Kind())
		}
		cmp = l.V - r.V
	case Str:
		r, ok := right.(Str)
		if !ok {
			return nil, fmt.Errorf("operator %q: cannot compare %s with %s", op, left.Kind(), right.Kind())
		}
		switch {
		case l.V < r.V:
			cmp = -1
		case l.V > r.V:
			cmp = 1
		}
	default:
		return nil, fmt.Errorf("operator %q: cannot compare %s values", op, left.Kind())
	}

	var result bool
	switch op {
	case "<":
		result = cmp < 0
	case ">":
		result = cmp > 0
	case "<=":
		result = cmp <= 0
	case ">=":
		result = cmp >= 0
	}
	return Bool{V: result}, nil
}

func (in *Interpreter) evalUnary(ex *UnaryExpr) (Value, error) {
	operand, err := in.eval(ex.Operand)
	if err != nil {
		return nil, err
	}
	switch ex.Op {
	case "not":
		return Bool{V: !operand.Truthy()}, nil
	case "-":
		n, ok := operand.(Number)
		if !ok {
			return nil, fmt.Errorf("unary -: expected number, got %s", operand.Kind())
		}
		return Number{V: -n.V}, nil
	}
	return nil, fmt.Errorf("unknown unary operator %q", ex.Op)
}

func (in *Interpreter) evalIndex(ex *IndexExpr) (Value, error) {
	obj, err := in.eval(ex.Object)
	if err != nil {
		return nil, err
	}
	index, err := in.eval(ex.Index)
	if err != nil {
		return nil, err
	}

	switch v := obj.(type) {
	case List:
		i, err := seqIndex(index, len(*v.Elems))
		if err != nil {
			return nil, err
		}
		return (*v.Elems)[i], nil
	case Str:
		runes := []rune(v.V)
		i, err := seqIndex(index, len(runes))
		if err != nil {
			return nil, err
		}
		return Str{V: string(runes[i])}, nil
	case Map:
		key, ok := index.(Str)
		if !ok {
			return nil, fmt.Errorf("index: map key must be a string, got %s", index.Kind())
		}
		val, ok := v.Entries[key.V]
		if !ok {
			return nil, fmt.Errorf("index: key %q not found", key.V)
		}
		return val, nil
	}
	return nil, fmt.Errorf("index: value of type %s is not indexable", obj.Kind())
}

// seqIndex resolves an index value against a sequence length, allowing
// negative indices to count from the end.
func seqIndex(index Value, n int) (int, error) {
	num, ok := index.(Number)
	if !ok {
		return 0, fmt.Errorf("index: expected number, got %s", index.Kind())
	}
	i := int(num.V)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %d out of range (length %d)", int(num.V), n)
	}
	return i, nil
}

func (in *Interpreter) evalCall(ex *CallExpr) (Value, error) {
	if fn, ok := builtins[ex.Name]; ok {
		args := make([]Value, len(ex.Args))
		for i, a := range ex.Args {
			v, err := in.eval(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return fn(in, args)
	}

	fn, ok := in.env.Func(ex.Name)
	if !ok {
		return nil, fmt.Errorf("undefined function: %s", ex.Name)
	}
	return in.callFunction(fn, ex.Args)
}

// callFunction runs a user-defined function in a fresh child scope.
// Arguments are evaluated in the caller's scope before switching;
// defaults for omitted parameters are evaluated in the child scope.
func (in *Interpreter) callFunction(fn *FuncDef, args []Expr) (Value, error) {
	bound := make([]Value, len(fn.Params))
	for i := range fn.Params {
		if i < len(args) {
			v, err := in.eval(args[i])
			if err != nil {
				return nil, err
			}
			bound[i] = v
		}
	}

	caller := in.env
	in.env = caller.NewChild()
	defer func() { in.env = caller }()

	for i, param := range fn.Params {
		v := bound[i]
		if v == nil {
			if param.Default != nil {
				var err error
				v, err = in.eval(param.Default)
				if err != nil {
					return nil, err
				}
			} else {
				v = Null{}
			}
		}
		in.env.Define(param.Name, v)
	}

	ctrl, err := in.execBlock(fn.Body)
	if err != nil {
		return nil, err
	}
	if ctrl.kind == ctrlReturn {
		return ctrl.value, nil
	}
	if ctrl.kind == ctrlJump {
		return Null{}, &jumpSignal{target: ctrl.target}
	}
	return Null{}, nil
}
