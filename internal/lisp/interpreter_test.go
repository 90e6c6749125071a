package lisp

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalAll(t *testing.T, env *Env, src string, opts ...Option) (Value, error) {
	t.Helper()

	exprs, err := ParseAll(src)
	require.NoError(t, err)

	in := NewInterpreter(opts...)
	var result Value = Nil
	for _, expr := range exprs {
		result, err = in.Eval(context.Background(), env, expr)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func TestEvalExpressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want string
	}{
		{src: "(+ 1 2)", want: "3"},
		{src: "(+ 1 2.5)", want: "3.5"},
		{src: "(- 5)", want: "-5"},
		{src: "(- 10 3 2)", want: "5"},
		{src: "(* 2 3 4)", want: "24"},
		{src: "(/ 7 2)", want: "3"},
		{src: "(/ 7.0 2)", want: "3.5"},
		{src: "(% 7 3)", want: "1"},
		{src: "(< 1 2 3)", want: "T"},
		{src: "(>= 1 2)", want: "F"},
		{src: "(= '(1 2) (list 1 2))", want: "T"},
		{src: "(!= 1 2)", want: "T"},
		{src: "(not NIL)", want: "T"},
		{src: "(if (< 1 2) \"yes\" \"no\")", want: "\"yes\""},
		{src: "(if F 1)", want: "NIL"},
		{src: "(cond ((= 1 2) 'a) ((= 1 1) 'b))", want: "b"},
		{src: "(car '(1 2 3))", want: "1"},
		{src: "(cdr '(1 2 3))", want: "(2 3)"},
		{src: "(cons 0 '(1))", want: "(0 1)"},
		{src: "(nth 1 '(a b c))", want: "b"},
		{src: "(length \"héllo\")", want: "5"},
		{src: "(null? '())", want: "T"},
		{src: "(concat \"a\" \"b\" 1)", want: "\"ab1\""},
		{src: "(concat '(1) '(2 3))", want: "(1 2 3)"},
		{src: "(range 0 3)", want: "(0 1 2)"},
		{src: "(let ((x 2) (y 3)) (* x y))", want: "6"},
		{src: "(and 1 2)", want: "2"},
		{src: "(or F NIL)", want: "F"},
		{src: "(begin 1 2 3)", want: "3"},
		{src: "(define x 10) (set x 11) x", want: "11"},
		{src: "(defun sq (x) (* x x)) (sq 9)", want: "81"},
		{src: "(define (inc n) (+ n 1)) (inc 1)", want: "2"},
		{src: "(define fib (lambda (n) (if (< n 2) n (+ (fib (- n 1)) (fib (- n 2)))))) (fib 10)", want: "55"},
		{src: "((lambda (a b) (list b a)) 1 2)", want: "(2 1)"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()

			got, err := evalAll(t, DefaultEnv(WithOutput(&bytes.Buffer{})), tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestEvalRuntimeErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"undefined":        "undefined symbol undefined",
		"(1 2)":            "1 is not a function",
		"(+ 1 \"a\")":      "+: expected a number, got string",
		"(/ 1 0)":          "/: division by zero",
		"(car 1)":          "car: expected a list, got int",
		"(set nope 1)":     "symbol nope is not defined",
		"((lambda (x) x))": "expects 1 arguments, got 0",
		"(if)":             "if expects 2 or 3 arguments",
	}

	for src, wantMsg := range tests {
		_, err := evalAll(t, DefaultEnv(), src)
		var rerr *RuntimeError
		require.ErrorAs(t, err, &rerr, src)
		assert.Contains(t, rerr.Error(), wantMsg, src)
	}
}

func TestRangeRejectsSpansPastLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end Int
	}{
		{name: "just past limit", start: 0, end: maxRangeLen + 1},
		{name: "full int64 span", start: -9223372036854775807, end: 9223372036854775807},
		{name: "min to max", start: math.MinInt64, end: math.MaxInt64},
		{name: "negative start", start: -maxRangeLen - 1, end: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rangeList([]Value{tt.start, tt.end})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "range longer than")
		})
	}

	_, err := evalAll(t, DefaultEnv(), "(range -9223372036854775807 9223372036854775807)")
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Error(), "range: range longer than 65536")
}

func TestRangeBounds(t *testing.T) {
	t.Parallel()

	got, err := rangeList([]Value{Int(5), Int(2)})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = rangeList([]Value{Int(0), Int(maxRangeLen)})
	require.NoError(t, err)
	assert.Len(t, got, maxRangeLen)

	got, err = rangeList([]Value{Int(math.MaxInt64 - 2), Int(math.MaxInt64)})
	require.NoError(t, err)
	assert.Equal(t, List{Int(math.MaxInt64 - 2), Int(math.MaxInt64 - 1)}, got)
}

func TestPrintWritesToConfiguredOutput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	got, err := evalAll(t, DefaultEnv(WithOutput(&out)), "(print (list 1 \"a\"))")
	require.NoError(t, err)

	assert.Equal(t, "(1 \"a\")\n", out.String())
	assert.Equal(t, "(1 \"a\")", got.String())
}

func TestEnvScopes(t *testing.T) {
	t.Parallel()

	root := NewEnv(nil)
	root.Define("x", Int(1))
	child := NewEnv(root)
	child.Define("y", Int(2))

	v, ok := child.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, Int(1), v)

	require.NoError(t, child.Set("x", Int(5)))
	v, _ = root.Lookup("x")
	assert.Equal(t, Int(5), v)

	child.Undefine("y")
	_, ok = child.Lookup("y")
	assert.False(t, ok)
}

func TestStepLimit(t *testing.T) {
	t.Parallel()

	src := "(define loop (lambda (n) (loop (+ n 1)))) (loop 0)"
	_, err := evalAll(t, DefaultEnv(), src, WithStepLimit(500), WithMaxDepth(1_000_000))
	require.ErrorIs(t, err, ErrBudgetExceeded)

	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Error(), "step limit of 500 exceeded")
}

func TestDepthLimit(t *testing.T) {
	t.Parallel()

	src := "(define down (lambda (n) (+ 1 (down n)))) (down 0)"
	_, err := evalAll(t, DefaultEnv(), src, WithMaxDepth(50))
	require.ErrorIs(t, err, ErrBudgetExceeded)
}

func TestContextDeadline(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	exprs, err := ParseAll("(define loop (lambda (n) (loop n))) (loop 0)")
	require.NoError(t, err)

	env := DefaultEnv()
	in := NewInterpreter(WithMaxDepth(1 << 30))
	_, err = in.Eval(context.Background(), env, exprs[0])
	require.NoError(t, err)

	_, err = in.Eval(ctx, env, exprs[1])
	require.ErrorIs(t, err, ErrBudgetExceeded)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
