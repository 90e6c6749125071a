package lisp

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

const maxRangeLen = 1 << 16

var errDivisionByZero = errors.New("division by zero")

type envOptions struct {
	output io.Writer
}

type EnvOption func(*envOptions)

// WithOutput sends print output to w instead of stdout.
func WithOutput(w io.Writer) EnvOption {
	return func(o *envOptions) { o.output = w }
}

// DefaultEnv returns a root environment holding the standard bindings.
func DefaultEnv(opts ...EnvOption) *Env {
	o := envOptions{output: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	env := NewEnv(nil)
	define := func(name string, fn func([]Value) (Value, error)) {
		env.Define(Symbol(name), &Builtin{Name: name, Fn: fn})
	}

	define("+", arith(func(a, b int64) (int64, error) { return a + b, nil }, func(a, b float64) float64 { return a + b }, 0))
	define("*", arith(func(a, b int64) (int64, error) { return a * b, nil }, func(a, b float64) float64 { return a * b }, 1))
	define("-", minus)
	define("/", divide)
	define("%", modulo)

	define("=", compareAll(func(a, b Value) (bool, error) { return Equal(a, b), nil }))
	define("!=", notEqual)
	define("<", compareAll(numericCmp(func(c int) bool { return c < 0 })))
	define("<=", compareAll(numericCmp(func(c int) bool { return c <= 0 })))
	define(">", compareAll(numericCmp(func(c int) bool { return c > 0 })))
	define(">=", compareAll(numericCmp(func(c int) bool { return c >= 0 })))
	define("not", not)

	define("list", func(args []Value) (Value, error) { return append(List{}, args...), nil })
	define("car", car)
	define("first", car)
	define("cdr", cdr)
	define("rest", cdr)
	define("cons", cons)
	define("nth", nth)
	define("length", length)
	define("null?", isNull)
	define("is_null", isNull)
	define("concat", concat)
	define("range", rangeList)

	out := o.output
	define("print", func(args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expects 1 argument, got %d", len(args))
		}
		if _, err := io.WriteString(out, args[0].String()+"\n"); err != nil {
			return nil, err
		}
		return args[0], nil
	})

	return env
}

func arith(intOp func(a, b int64) (int64, error), floatOp func(a, b float64) float64, identity int64) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		var acc Value = Int(identity)
		for _, arg := range args {
			next, err := combine(acc, arg, intOp, floatOp)
			if err != nil {
				return nil, err
			}
			acc = next
		}
		return acc, nil
	}
}

func combine(a, b Value, intOp func(a, b int64) (int64, error), floatOp func(a, b float64) float64) (Value, error) {
	ai, aInt := a.(Int)
	bi, bInt := b.(Int)
	if aInt && bInt {
		v, err := intOp(int64(ai), int64(bi))
		if err != nil {
			return nil, err
		}
		return Int(v), nil
	}

	af, ok := toFloat(a)
	if !ok {
		return nil, fmt.Errorf("expected a number, got %s", TypeName(a))
	}
	bf, ok := toFloat(b)
	if !ok {
		return nil, fmt.Errorf("expected a number, got %s", TypeName(b))
	}
	return Float(floatOp(af, bf)), nil
}

func minus(args []Value) (Value, error) {
	sub := func(a, b int64) (int64, error) { return a - b, nil }
	subf := func(a, b float64) float64 { return a - b }

	switch len(args) {
	case 0:
		return nil, errors.New("expects at least 1 argument")
	case 1:
		return combine(Int(0), args[0], sub, subf)
	}

	acc := args[0]
	for _, arg := range args[1:] {
		next, err := combine(acc, arg, sub, subf)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

func divide(args []Value) (Value, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("expects at least 2 arguments, got %d", len(args))
	}

	div := func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errDivisionByZero
		}
		return a / b, nil
	}
	divf := func(a, b float64) float64 { return a / b }

	acc := args[0]
	for _, arg := range args[1:] {
		next, err := combine(acc, arg, div, divf)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

func modulo(args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expects 2 arguments, got %d", len(args))
	}
	return combine(args[0], args[1], func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errDivisionByZero
		}
		return a % b, nil
	}, math.Mod)
}

func compareAll(cmp func(a, b Value) (bool, error)) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("expects at least 2 arguments, got %d", len(args))
		}
		for i := 1; i < len(args); i++ {
			ok, err := cmp(args[i-1], args[i])
			if err != nil {
				return nil, err
			}
			if !ok {
				return Bool(false), nil
			}
		}
		return Bool(true), nil
	}
}

func numericCmp(accept func(c int) bool) func(a, b Value) (bool, error) {
	return func(a, b Value) (bool, error) {
		if as, ok := a.(Str); ok {
			if bs, ok := b.(Str); ok {
				return accept(strings.Compare(string(as), string(bs))), nil
			}
		}

		af, ok := toFloat(a)
		if !ok {
			return false, fmt.Errorf("expected a number, got %s", TypeName(a))
		}
		bf, ok := toFloat(b)
		if !ok {
			return false, fmt.Errorf("expected a number, got %s", TypeName(b))
		}

		switch {
		case af < bf:
			return accept(-1), nil
		case af > bf:
			return accept(1), nil
		default:
			return accept(0), nil
		}
	}
}

func notEqual(args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expects 2 arguments, got %d", len(args))
	}
	return Bool(!Equal(args[0], args[1])), nil
}

func not(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expects 1 argument, got %d", len(args))
	}
	return Bool(!Truthy(args[0])), nil
}

func listArg(args []Value, n int) (List, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expects %d argument(s), got %d", n, len(args))
	}
	l, ok := args[0].(List)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %s", TypeName(args[0]))
	}
	return l, nil
}

func car(args []Value) (Value, error) {
	l, err := listArg(args, 1)
	if err != nil {
		return nil, err
	}
	if len(l) == 0 {
		return Nil, nil
	}
	return l[0], nil
}

func cdr(args []Value) (Value, error) {
	l, err := listArg(args, 1)
	if err != nil {
		return nil, err
	}
	if len(l) <= 1 {
		return Nil, nil
	}
	return append(List{}, l[1:]...), nil
}

func cons(args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expects 2 arguments, got %d", len(args))
	}
	tail, ok := args[1].(List)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %s", TypeName(args[1]))
	}
	return append(List{args[0]}, tail...), nil
}

func nth(args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expects 2 arguments, got %d", len(args))
	}
	idx, ok := args[0].(Int)
	if !ok {
		return nil, fmt.Errorf("expected an int index, got %s", TypeName(args[0]))
	}
	l, ok := args[1].(List)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %s", TypeName(args[1]))
	}
	if idx < 0 || int(idx) >= len(l) {
		return Nil, nil
	}
	return l[idx], nil
}

func length(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expects 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case List:
		return Int(len(v)), nil
	case Str:
		return Int(len([]rune(string(v)))), nil
	default:
		return nil, fmt.Errorf("expected a list or string, got %s", TypeName(v))
	}
}

func isNull(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expects 1 argument, got %d", len(args))
	}
	l, ok := args[0].(List)
	return Bool(ok && len(l) == 0), nil
}

func concat(args []Value) (Value, error) {
	if len(args) == 0 {
		return Str(""), nil
	}

	if _, ok := args[0].(List); ok {
		out := List{}
		for _, arg := range args {
			l, ok := arg.(List)
			if !ok {
				return nil, fmt.Errorf("expected a list, got %s", TypeName(arg))
			}
			out = append(out, l...)
		}
		return out, nil
	}

	var sb strings.Builder
	for _, arg := range args {
		if s, ok := arg.(Str); ok {
			sb.WriteString(string(s))
			continue
		}
		sb.WriteString(arg.String())
	}
	return Str(sb.String()), nil
}

func rangeList(args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expects 2 arguments, got %d", len(args))
	}
	start, ok := args[0].(Int)
	if !ok {
		return nil, fmt.Errorf("expected an int, got %s", TypeName(args[0]))
	}
	end, ok := args[1].(Int)
	if !ok {
		return nil, fmt.Errorf("expected an int, got %s", TypeName(args[1]))
	}

	if end <= start {
		return List{}, nil
	}
	// Unsigned arithmetic keeps the span exact for any pair of int64 bounds.
	span := uint64(end) - uint64(start)
	if span > maxRangeLen {
		return nil, fmt.Errorf("range longer than %d", maxRangeLen)
	}

	out := make(List, 0, span)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out, nil
}
