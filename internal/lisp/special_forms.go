package lisp

import "context"

type specialForm func(in *Interpreter, ctx context.Context, env *Env, args List, depth int) (Value, error)

var specialForms map[Symbol]specialForm

func init() {
	specialForms = map[Symbol]specialForm{
		"quote":  evalQuote,
		"if":     evalIf,
		"cond":   evalCond,
		"define": evalDefine,
		"defun":  evalDefun,
		"set":    evalSet,
		"lambda": evalLambda,
		"let":    evalLet,
		"begin":  evalBegin,
		"and":    evalAnd,
		"or":     evalOr,
	}
}

func evalQuote(_ *Interpreter, _ context.Context, _ *Env, args List, _ int) (Value, error) {
	if len(args) != 1 {
		return nil, runtimeErrorf("quote expects 1 argument, got %d", len(args))
	}
	return args[0], nil
}

func evalIf(in *Interpreter, ctx context.Context, env *Env, args List, depth int) (Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, runtimeErrorf("if expects 2 or 3 arguments, got %d", len(args))
	}

	cond, err := in.eval(ctx, env, args[0], depth+1)
	if err != nil {
		return nil, err
	}
	if Truthy(cond) {
		return in.eval(ctx, env, args[1], depth+1)
	}
	if len(args) == 3 {
		return in.eval(ctx, env, args[2], depth+1)
	}
	return Nil, nil
}

func evalCond(in *Interpreter, ctx context.Context, env *Env, args List, depth int) (Value, error) {
	for _, clause := range args {
		c, ok := clause.(List)
		if !ok || len(c) == 0 {
			return nil, runtimeErrorf("cond clause must be a non-empty list, got %s", clause)
		}

		test, err := in.eval(ctx, env, c[0], depth+1)
		if err != nil {
			return nil, err
		}
		if !Truthy(test) {
			continue
		}
		if len(c) == 1 {
			return test, nil
		}
		return in.body(ctx, env, c[1:], depth+1)
	}
	return Nil, nil
}

func evalDefine(in *Interpreter, ctx context.Context, env *Env, args List, depth int) (Value, error) {
	if len(args) < 2 {
		return nil, runtimeErrorf("define expects a name and a value")
	}

	// (define (name params...) body...)
	if sig, ok := args[0].(List); ok {
		if len(sig) == 0 {
			return nil, runtimeErrorf("define expects a function name")
		}
		name, ok := sig[0].(Symbol)
		if !ok {
			return nil, runtimeErrorf("function name must be a symbol, got %s", sig[0])
		}
		fn, err := newLambda(string(name), sig[1:], args[1:], env)
		if err != nil {
			return nil, err
		}
		env.Define(name, fn)
		return fn, nil
	}

	name, ok := args[0].(Symbol)
	if !ok {
		return nil, runtimeErrorf("define expects a symbol, got %s", args[0])
	}
	if len(args) != 2 {
		return nil, runtimeErrorf("define expects 2 arguments, got %d", len(args))
	}

	v, err := in.eval(ctx, env, args[1], depth+1)
	if err != nil {
		return nil, err
	}
	if l, ok := v.(*Lambda); ok && l.Name == "" {
		l.Name = string(name)
	}
	env.Define(name, v)
	return v, nil
}

func evalDefun(_ *Interpreter, _ context.Context, env *Env, args List, _ int) (Value, error) {
	if len(args) < 3 {
		return nil, runtimeErrorf("defun expects a name, parameters and a body")
	}
	name, ok := args[0].(Symbol)
	if !ok {
		return nil, runtimeErrorf("defun expects a symbol, got %s", args[0])
	}
	params, ok := args[1].(List)
	if !ok {
		return nil, runtimeErrorf("defun parameters must be a list, got %s", args[1])
	}

	fn, err := newLambda(string(name), params, args[2:], env)
	if err != nil {
		return nil, err
	}
	env.Define(name, fn)
	return fn, nil
}

func evalSet(in *Interpreter, ctx context.Context, env *Env, args List, depth int) (Value, error) {
	if len(args) != 2 {
		return nil, runtimeErrorf("set expects 2 arguments, got %d", len(args))
	}
	name, ok := args[0].(Symbol)
	if !ok {
		return nil, runtimeErrorf("set expects a symbol, got %s", args[0])
	}

	v, err := in.eval(ctx, env, args[1], depth+1)
	if err != nil {
		return nil, err
	}
	if err := env.Set(name, v); err != nil {
		return nil, &RuntimeError{Msg: err.Error(), Err: err}
	}
	return v, nil
}

func evalLambda(_ *Interpreter, _ context.Context, env *Env, args List, _ int) (Value, error) {
	if len(args) < 2 {
		return nil, runtimeErrorf("lambda expects parameters and a body")
	}
	params, ok := args[0].(List)
	if !ok {
		return nil, runtimeErrorf("lambda parameters must be a list, got %s", args[0])
	}
	return newLambda("", params, args[1:], env)
}

func evalLet(in *Interpreter, ctx context.Context, env *Env, args List, depth int) (Value, error) {
	if len(args) < 2 {
		return nil, runtimeErrorf("let expects bindings and a body")
	}
	bindings, ok := args[0].(List)
	if !ok {
		return nil, runtimeErrorf("let bindings must be a list, got %s", args[0])
	}

	scope := NewEnv(env)
	for _, binding := range bindings {
		pair, ok := binding.(List)
		if !ok || len(pair) != 2 {
			return nil, runtimeErrorf("let binding must be (name value), got %s", binding)
		}
		name, ok := pair[0].(Symbol)
		if !ok {
			return nil, runtimeErrorf("let binding name must be a symbol, got %s", pair[0])
		}
		v, err := in.eval(ctx, env, pair[1], depth+1)
		if err != nil {
			return nil, err
		}
		scope.Define(name, v)
	}

	return in.body(ctx, scope, args[1:], depth+1)
}

func evalBegin(in *Interpreter, ctx context.Context, env *Env, args List, depth int) (Value, error) {
	return in.body(ctx, env, args, depth+1)
}

func evalAnd(in *Interpreter, ctx context.Context, env *Env, args List, depth int) (Value, error) {
	var result Value = Bool(true)
	for _, arg := range args {
		v, err := in.eval(ctx, env, arg, depth+1)
		if err != nil {
			return nil, err
		}
		if !Truthy(v) {
			return v, nil
		}
		result = v
	}
	return result, nil
}

func evalOr(in *Interpreter, ctx context.Context, env *Env, args List, depth int) (Value, error) {
	for _, arg := range args {
		v, err := in.eval(ctx, env, arg, depth+1)
		if err != nil {
			return nil, err
		}
		if Truthy(v) {
			return v, nil
		}
	}
	return Bool(false), nil
}

func newLambda(name string, params List, body []Value, env *Env) (*Lambda, error) {
	syms := make([]Symbol, 0, len(params))
	for _, p := range params {
		sym, ok := p.(Symbol)
		if !ok {
			return nil, runtimeErrorf("parameter must be a symbol, got %s", p)
		}
		syms = append(syms, sym)
	}
	if len(body) == 0 {
		return nil, runtimeErrorf("function body is empty")
	}
	return &Lambda{Name: name, Params: syms, Body: body, Env: env}, nil
}
