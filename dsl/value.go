package dsl

import (
	"sort"
	"strconv"
	"strings"
)

// Value is a runtime value. Concrete types: Null, Bool, Number, Str, List,
// Map. The evaluator dispatches with exhaustive type switches.
type Value interface {
	// Kind returns the value's type name as used in error messages.
	Kind() string
	// Truthy reports the value's boolean interpretation: null, false, 0,
	// the empty string, the empty list and the empty map are falsy.
	Truthy() bool
	// Text returns the value's string form as used by say, print and str().
	Text() string
}

// Null is the absent value.
type Null struct{}

func (Null) Kind() string { return "null" }
func (Null) Truthy() bool { return false }
func (Null) Text() string { return "null" }

// Bool is a boolean value.
type Bool struct {
	V bool
}

func (b Bool) Kind() string { return "bool" }
func (b Bool) Truthy() bool { return b.V }
func (b Bool) Text() string { return strconv.FormatBool(b.V) }

// Number holds both integers and floats as float64.
type Number struct {
	V float64
}

func (n Number) Kind() string { return "number" }
func (n Number) Truthy() bool { return n.V != 0 }

func (n Number) Text() string {
	if n.V == float64(int64(n.V)) {
		return strconv.FormatInt(int64(n.V), 10)
	}
	return strconv.FormatFloat(n.V, 'g', -1, 64)
}

// Str is a string value.
type Str struct {
	V string
}

func (s Str) Kind() string { return "string" }
func (s Str) Truthy() bool { return s.V != "" }
func (s Str) Text() string { return s.V }

// List is an ordered sequence of values. The element slice is shared, so
// builtins like append mutate the list in place.
type List struct {
	Elems *[]Value
}

// NewList builds a List backed by the given elements.
func NewList(elems ...Value) List {
	return List{Elems: &elems}
}

func (l List) Kind() string { return "list" }
func (l List) Truthy() bool { return l.Elems != nil && len(*l.Elems) > 0 }

func (l List) Text() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range *l.Elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quoteIfString(e))
	}
	sb.WriteByte(']')
	return sb.String()
}

// Map is a string-keyed mapping, used for structured data such as the
// extracted-entity bindings.
type Map struct {
	Entries map[string]Value
}

// NewMap builds an empty Map.
func NewMap() Map {
	return Map{Entries: make(map[string]Value)}
}

func (m Map) Kind() string { return "map" }
func (m Map) Truthy() bool { return len(m.Entries) > 0 }

func (m Map) Text() string {
	keys := make([]string, 0, len(m.Entries))
	for k := range m.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(quoteIfString(m.Entries[k]))
	}
	sb.WriteByte('}')
	return sb.String()
}

func quoteIfString(v Value) string {
	if s, ok := v.(Str); ok {
		return strconv.Quote(s.V)
	}
	return v.Text()
}

// valueEqual is deep equality as used by == and !=.
func valueEqual(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.V == bv.V
	case Number:
		bv, ok := b.(Number)
		return ok && av.V == bv.V
	case Str:
		bv, ok := b.(Str)
		return ok && av.V == bv.V
	case List:
		bv, ok := b.(List)
		if !ok || len(*av.Elems) != len(*bv.Elems) {
			return false
		}
		for i := range *av.Elems {
			if !valueEqual((*av.Elems)[i], (*bv.Elems)[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av.Entries) != len(bv.Entries) {
			return false
		}
		for k, v := range av.Entries {
			other, ok := bv.Entries[k]
			if !ok || !valueEqual(v, other) {
				return false
			}
		}
		return true
	}
	return false
}

// goValue converts a Value into plain Go data, for handing context
// snapshots to the intent recognizer.
func goValue(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case Bool:
		return val.V
	case Number:
		return val.V
	case Str:
		return val.V
	case List:
		out := make([]any, len(*val.Elems))
		for i, e := range *val.Elems {
			out[i] = goValue(e)
		}
		return out
	case Map:
		out := make(map[string]any, len(val.Entries))
		for k, e := range val.Entries {
			out[k] = goValue(e)
		}
		return out
	}
	return nil
}
