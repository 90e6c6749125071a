package engine

import (
	"fmt"
	"strings"

	"github.com/bnema/lisp-sessions/internal/lisp"
)

type DiagnosticKind int

const (
	MissingExpression DiagnosticKind = iota + 1
	TooManyExpressions
	InvalidExpression
)

// Diagnostic explains why single-expression input was not evaluated.
type Diagnostic struct {
	Kind   DiagnosticKind
	Count  int
	Detail string
}

func (d *Diagnostic) Error() string {
	switch d.Kind {
	case MissingExpression:
		return "Missing S-expression"
	case TooManyExpressions:
		return fmt.Sprintf("Wrong number of S-expressions, %d", d.Count)
	case InvalidExpression:
		return "Invalid S-expression, " + d.Detail
	default:
		return "unknown diagnostic"
	}
}

// Record is the outcome of one top-level expression. Output holds what
// the expression printed, and exactly one of Value and Err is set.
type Record struct {
	Source string
	Output string
	Value  lisp.Value
	Err    error
}

func (r Record) Result() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if r.Value == nil {
		return lisp.Nil.String()
	}
	return r.Value.String()
}

// Report is the result of one evaluation call. Skipped counts expressions
// that failed to parse in whole-buffer mode; they are never rendered.
type Report struct {
	Records    []Record
	Diagnostic *Diagnostic
	Skipped    int
}

func (r Report) Failed() bool {
	return r.Diagnostic != nil
}

type RenderOptions struct {
	EchoSource  bool
	EchoLimit   int
	ResultLimit int
}

// Render formats the records in order. Each record is an optional
// "; source" comment line, the captured output, then the truncated result,
// followed by a line break. A diagnostic renders as its message.
func (r Report) Render(opts RenderOptions) string {
	if r.Diagnostic != nil {
		return r.Diagnostic.Error()
	}

	var sb strings.Builder
	for _, rec := range r.Records {
		if opts.EchoSource {
			sb.WriteString("; ")
			sb.WriteString(Truncate(rec.Source, opts.EchoLimit))
			sb.WriteByte('\n')
		}
		sb.WriteString(rec.Output)
		sb.WriteString(Truncate(rec.Result(), opts.ResultLimit))
		sb.WriteByte('\n')
	}
	return sb.String()
}
