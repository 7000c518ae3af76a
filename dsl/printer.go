package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes an indented tree dump of the program to w.
func Fprint(w io.Writer, program *Program) {
	io.WriteString(w, Sdump(program))
}

// Sdump renders an indented tree dump of the program.
func Sdump(program *Program) string {
	var sb strings.Builder
	sb.WriteString("Program:\n")
	for _, bot := range program.Bots {
		dumpBot(&sb, bot)
	}
	return sb.String()
}

func dumpBot(sb *strings.Builder, bot *BotDef) {
	fmt.Fprintf(sb, "  Bot: %s\n", bot.Name)
	if len(bot.Intents) > 0 {
		sb.WriteString("    Intents:\n")
		for _, intent := range bot.Intents {
			fmt.Fprintf(sb, "      Intent: %s\n", intent.Name)
			fmt.Fprintf(sb, "        patterns: [%s]\n", strings.Join(intent.Patterns, ", "))
			if intent.Description != "" {
				fmt.Fprintf(sb, "        description: %s\n", intent.Description)
			}
		}
	}
	if len(bot.States) > 0 {
		sb.WriteString("    States:\n")
		for _, state := range bot.States {
			dumpState(sb, state)
		}
	}
	if len(bot.Vars) > 0 {
		sb.WriteString("    Variables:\n")
		for _, v := range bot.Vars {
			if v.Init != nil {
				fmt.Fprintf(sb, "      var %s = %s\n", v.Name, ExprString(v.Init))
			} else {
				fmt.Fprintf(sb, "      var %s\n", v.Name)
			}
		}
	}
	if len(bot.Funcs) > 0 {
		sb.WriteString("    Functions:\n")
		for _, fn := range bot.Funcs {
			params := make([]string, len(fn.Params))
			for i, p := range fn.Params {
				params[i] = p.Name
			}
			fmt.Fprintf(sb, "      func %s(%s)\n", fn.Name, strings.Join(params, ", "))
		}
	}
}

func dumpState(sb *strings.Builder, state *StateDef) {
	var flags []string
	if state.Initial {
		flags = append(flags, "initial")
	}
	if state.Final {
		flags = append(flags, "final")
	}
	flagStr := ""
	if len(flags) > 0 {
		flagStr = fmt.Sprintf(" [%s]", strings.Join(flags, ", "))
	}
	fmt.Fprintf(sb, "      State: %s%s\n", state.Name, flagStr)

	for _, handler := range state.Handlers {
		fmt.Fprintf(sb, "        %s:\n", handler.Event)
		for _, stmt := range handler.Body {
			dumpStmt(sb, stmt, "          ")
		}
	}
	for i := range state.Transitions {
		rule := &state.Transitions[i]
		guard := ""
		if rule.Guard != nil {
			guard = " if " + ExprString(rule.Guard)
		}
		fmt.Fprintf(sb, "        when %s -> %s%s\n", rule.Intent, rule.Target, guard)
	}
	if state.Fallback != nil {
		sb.WriteString("        fallback:\n")
		for _, stmt := range state.Fallback {
			dumpStmt(sb, stmt, "          ")
		}
	}
}

func dumpStmt(sb *strings.Builder, s Stmt, prefix string) {
	switch st := s.(type) {
	case *SayStmt:
		fmt.Fprintf(sb, "%ssay %s\n", prefix, ExprString(st.Message))
	case *AskStmt:
		fmt.Fprintf(sb, "%sask %s -> %s\n", prefix, ExprString(st.Prompt), st.Variable)
	case *SetStmt:
		fmt.Fprintf(sb, "%sset %s = %s\n", prefix, st.Variable, ExprString(st.Value))
	case *GotoStmt:
		fmt.Fprintf(sb, "%sgoto %s\n", prefix, st.State)
	case *CallStmt:
		fmt.Fprintf(sb, "%scall %s\n", prefix, ExprString(st.Call))
	case *ReturnStmt:
		if st.Value != nil {
			fmt.Fprintf(sb, "%sreturn %s\n", prefix, ExprString(st.Value))
		} else {
			fmt.Fprintf(sb, "%sreturn\n", prefix)
		}
	case *IfStmt:
		fmt.Fprintf(sb, "%sif %s\n", prefix, ExprString(st.Cond))
		for _, inner := range st.Then {
			dumpStmt(sb, inner, prefix+"  ")
		}
		for _, clause := range st.Elifs {
			fmt.Fprintf(sb, "%selif %s\n", prefix, ExprString(clause.Cond))
			for _, inner := range clause.Body {
				dumpStmt(sb, inner, prefix+"  ")
			}
		}
		if st.Else != nil {
			fmt.Fprintf(sb, "%selse\n", prefix)
			for _, inner := range st.Else {
				dumpStmt(sb, inner, prefix+"  ")
			}
		}
	case *WhileStmt:
		fmt.Fprintf(sb, "%swhile %s\n", prefix, ExprString(st.Cond))
		for _, inner := range st.Body {
			dumpStmt(sb, inner, prefix+"  ")
		}
	case *ForStmt:
		fmt.Fprintf(sb, "%sfor %s in %s\n", prefix, st.Variable, ExprString(st.Iterable))
		for _, inner := range st.Body {
			dumpStmt(sb, inner, prefix+"  ")
		}
	case *ExprStmt:
		fmt.Fprintf(sb, "%s%s\n", prefix, ExprString(st.X))
	default:
		fmt.Fprintf(sb, "%s%T\n", prefix, s)
	}
}

// ExprString renders an expression back to source-like text.
func ExprString(e Expr) string {
	switch ex := e.(type) {
	case *StringLit:
		return strconv.Quote(ex.Value)
	case *NumberLit:
		return Number{V: ex.Value}.Text()
	case *BoolLit:
		return strconv.FormatBool(ex.Value)
	case *NullLit:
		return "null"
	case *ListLit:
		parts := make([]string, len(ex.Elems))
		for i, el := range ex.Elems {
			parts[i] = ExprString(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Ident:
		return ex.Name
	case *BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", ExprString(ex.Left), ex.Op, ExprString(ex.Right))
	case *UnaryExpr:
		if ex.Op == "not" {
			return fmt.Sprintf("(not %s)", ExprString(ex.Operand))
		}
		return fmt.Sprintf("(%s%s)", ex.Op, ExprString(ex.Operand))
	case *CallExpr:
		parts := make([]string, len(ex.Args))
		for i, a := range ex.Args {
			parts[i] = ExprString(a)
		}
		return fmt.Sprintf("%s(%s)", ex.Name, strings.Join(parts, ", "))
	case *MemberExpr:
		return fmt.Sprintf("%s.%s", ExprString(ex.Object), ex.Member)
	case *IndexExpr:
		return fmt.Sprintf("%s[%s]", ExprString(ex.Object), ExprString(ex.Index))
	}
	return fmt.Sprintf("%T", e)
}
