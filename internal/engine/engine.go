// Package engine evaluates session code and formats the results.
package engine

import (
	"bytes"
	"context"

	"github.com/bnema/lisp-sessions/internal/lisp"
)

// Engine is safe for concurrent use. Every call builds its own
// interpreter and environment.
type Engine struct {
	cfg Config
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) RenderOptions() RenderOptions {
	return RenderOptions{
		EchoSource:  e.cfg.EchoSource,
		EchoLimit:   e.cfg.EchoLimit,
		ResultLimit: e.cfg.ResultLimit,
	}
}

// EvaluateBuffer evaluates every expression of source that parses, in
// order, in one shared environment. Expressions that fail to parse are
// counted in Skipped and otherwise ignored.
func (e *Engine) EvaluateBuffer(ctx context.Context, source string) Report {
	run := e.newRun(ctx)
	defer run.cancel()

	var report Report
	for expr, err := range lisp.Parse(source) {
		if err != nil {
			report.Skipped++
			continue
		}
		report.Records = append(report.Records, run.eval(expr))
	}
	return report
}

// EvaluateSingle evaluates source only when it holds exactly one
// well-formed expression. Anything else yields a diagnostic.
func (e *Engine) EvaluateSingle(ctx context.Context, source string) Report {
	type parsed struct {
		expr lisp.Value
		err  error
	}

	var items []parsed
	for expr, err := range lisp.Parse(source) {
		items = append(items, parsed{expr: expr, err: err})
	}

	switch {
	case len(items) == 0:
		return Report{Diagnostic: &Diagnostic{Kind: MissingExpression}}
	case len(items) > 1:
		return Report{Diagnostic: &Diagnostic{Kind: TooManyExpressions, Count: len(items)}}
	case items[0].err != nil:
		return Report{Diagnostic: &Diagnostic{Kind: InvalidExpression, Detail: items[0].err.Error()}}
	}

	run := e.newRun(ctx)
	defer run.cancel()

	return Report{Records: []Record{run.eval(items[0].expr)}}
}

type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	interp *lisp.Interpreter
	env    *lisp.Env
	output *bytes.Buffer
}

func (e *Engine) newRun(ctx context.Context) *run {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	output := &bytes.Buffer{}
	return &run{
		ctx:    ctx,
		cancel: cancel,
		interp: lisp.NewInterpreter(lisp.WithStepLimit(e.cfg.StepBudget)),
		env:    lisp.DefaultEnv(lisp.WithOutput(output)),
		output: output,
	}
}

func (r *run) eval(expr lisp.Value) Record {
	defer r.output.Reset()

	rec := Record{Source: expr.String()}
	v, err := r.interp.Eval(r.ctx, r.env, expr)
	rec.Output = r.output.String()
	if err != nil {
		rec.Err = err
	} else {
		rec.Value = v
	}
	return rec
}
