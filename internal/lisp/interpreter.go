package lisp

import (
	"context"
	"errors"
	"fmt"
)

const (
	defaultMaxDepth = 1000
	ctxCheckEvery   = 256
)

// ErrBudgetExceeded is wrapped by the RuntimeError returned when an
// evaluation runs out of steps, stack depth or time.
var ErrBudgetExceeded = errors.New("evaluation budget exceeded")

// RuntimeError is an evaluation failure. Its message is what gets shown to
// the user in place of a result.
type RuntimeError struct {
	Msg string
	Err error
}

func (e *RuntimeError) Error() string { return e.Msg }

func (e *RuntimeError) Unwrap() error { return e.Err }

func runtimeErrorf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}

type Option func(*Interpreter)

// WithStepLimit caps the number of evaluation steps of one Eval call.
// Zero means no limit.
func WithStepLimit(n int) Option {
	return func(in *Interpreter) { in.maxSteps = n }
}

// WithMaxDepth caps the nesting depth of evaluation.
func WithMaxDepth(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxDepth = n
		}
	}
}

// Interpreter evaluates expressions. It is not safe for concurrent use.
type Interpreter struct {
	maxSteps int
	maxDepth int
	steps    int
}

func NewInterpreter(opts ...Option) *Interpreter {
	in := &Interpreter{maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Eval evaluates expr in env. The step budget is reset on every call.
func (in *Interpreter) Eval(ctx context.Context, env *Env, expr Value) (Value, error) {
	in.steps = 0
	return in.eval(ctx, env, expr, 0)
}

func (in *Interpreter) tick(ctx context.Context, depth int) error {
	in.steps++
	if in.maxSteps > 0 && in.steps > in.maxSteps {
		return &RuntimeError{Msg: fmt.Sprintf("step limit of %d exceeded", in.maxSteps), Err: ErrBudgetExceeded}
	}
	if depth > in.maxDepth {
		return &RuntimeError{Msg: fmt.Sprintf("recursion deeper than %d", in.maxDepth), Err: ErrBudgetExceeded}
	}
	if in.steps%ctxCheckEvery == 0 {
		if err := ctx.Err(); err != nil {
			return &RuntimeError{Msg: "evaluation timed out", Err: fmt.Errorf("%w: %w", ErrBudgetExceeded, err)}
		}
	}
	return nil
}

func (in *Interpreter) eval(ctx context.Context, env *Env, expr Value, depth int) (Value, error) {
	if err := in.tick(ctx, depth); err != nil {
		return nil, err
	}

	switch x := expr.(type) {
	case Symbol:
		v, ok := env.Lookup(x)
		if !ok {
			return nil, runtimeErrorf("undefined symbol %s", x)
		}
		return v, nil
	case List:
		if len(x) == 0 {
			return Nil, nil
		}
		if head, ok := x[0].(Symbol); ok {
			if form, ok := specialForms[head]; ok {
				return form(in, ctx, env, x[1:], depth)
			}
		}
		return in.call(ctx, env, x, depth)
	default:
		return expr, nil
	}
}

func (in *Interpreter) call(ctx context.Context, env *Env, x List, depth int) (Value, error) {
	fn, err := in.eval(ctx, env, x[0], depth+1)
	if err != nil {
		return nil, err
	}

	args := make([]Value, 0, len(x)-1)
	for _, arg := range x[1:] {
		v, err := in.eval(ctx, env, arg, depth+1)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	return in.apply(ctx, fn, args, depth)
}

func (in *Interpreter) apply(ctx context.Context, fn Value, args []Value, depth int) (Value, error) {
	switch f := fn.(type) {
	case *Builtin:
		v, err := f.Fn(args)
		if err != nil {
			var rerr *RuntimeError
			if errors.As(err, &rerr) {
				return nil, rerr
			}
			return nil, &RuntimeError{Msg: fmt.Sprintf("%s: %v", f.Name, err), Err: err}
		}
		return v, nil
	case *Lambda:
		if len(args) != len(f.Params) {
			return nil, runtimeErrorf("%s expects %d arguments, got %d", f, len(f.Params), len(args))
		}
		scope := NewEnv(f.Env)
		for i, param := range f.Params {
			scope.Define(param, args[i])
		}
		return in.body(ctx, scope, f.Body, depth+1)
	default:
		return nil, runtimeErrorf("%s is not a function", fn)
	}
}

func (in *Interpreter) body(ctx context.Context, env *Env, body []Value, depth int) (Value, error) {
	var result Value = Nil
	for _, expr := range body {
		v, err := in.eval(ctx, env, expr, depth)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}
