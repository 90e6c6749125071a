package lisp

import (
	"strconv"
	"strings"
)

// Value is any Lisp datum. String renders it back as Lisp text.
type Value interface {
	String() string
}

type (
	Int    int64
	Float  float64
	Str    string
	Symbol string
	Bool   bool
	List   []Value
)

// Nil is the empty list. It is the only false value besides F.
var Nil = List(nil)

// Builtin is a function implemented in Go.
type Builtin struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

// Lambda is a user-defined function closing over the environment it was
// created in.
type Lambda struct {
	Name   string
	Params []Symbol
	Body   []Value
	Env    *Env
}

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

func (f Float) String() string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnI") {
		s += ".0"
	}
	return s
}

func (s Str) String() string { return strconv.Quote(string(s)) }

func (s Symbol) String() string { return string(s) }

func (b Bool) String() string {
	if b {
		return "T"
	}
	return "F"
}

func (l List) String() string {
	if len(l) == 0 {
		return "NIL"
	}

	var sb strings.Builder
	sb.WriteByte('(')
	for i, v := range l {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func (b *Builtin) String() string { return "<builtin " + b.Name + ">" }

func (l *Lambda) String() string {
	params := make([]string, len(l.Params))
	for i, p := range l.Params {
		params[i] = string(p)
	}
	name := l.Name
	if name == "" {
		name = "lambda"
	}
	return "<" + name + " (" + strings.Join(params, " ") + ")>"
}

// Truthy reports whether v counts as true in a condition.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case Bool:
		return bool(t)
	case List:
		return len(t) > 0
	default:
		return true
	}
}

// TypeName is the name used for v in error messages.
func TypeName(v Value) string {
	switch t := v.(type) {
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "string"
	case Symbol:
		return "symbol"
	case Bool:
		return "bool"
	case List:
		if len(t) == 0 {
			return "nil"
		}
		return "list"
	case *Builtin, *Lambda:
		return "function"
	default:
		return "unknown"
	}
}

// Equal compares two values structurally. Numbers compare across Int and
// Float.
func Equal(a, b Value) bool {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return x == y
		}
		return false
	}

	switch x := a.(type) {
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	default:
		return 0, false
	}
}
