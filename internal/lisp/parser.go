package lisp

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"unicode"
)

// ParseError describes malformed source at a byte offset.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Msg, e.Pos)
}

// Parse returns the top-level expressions of src in order. A stray ")" is
// reported as an error and parsing resumes after it. An unterminated list
// or string is reported once and ends the sequence.
func Parse(src string) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		p := &parser{src: src}
		for {
			p.skipSpace()
			if p.eof() {
				return
			}

			if p.peek() == ')' {
				err := &ParseError{Pos: p.pos, Msg: "unexpected )"}
				p.pos++
				if !yield(nil, err) {
					return
				}
				continue
			}

			v, err := p.expr()
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// ParseAll collects every expression of src, stopping at the first error.
func ParseAll(src string) ([]Value, error) {
	var out []Value
	for v, err := range Parse(src) {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.peek()
		switch {
		case c == ';':
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) expr() (Value, error) {
	p.skipSpace()
	if p.eof() {
		return nil, &ParseError{Pos: p.pos, Msg: "unexpected end of input"}
	}

	switch p.peek() {
	case '(':
		return p.list()
	case ')':
		return nil, &ParseError{Pos: p.pos, Msg: "unexpected )"}
	case '\'':
		p.pos++
		quoted, err := p.expr()
		if err != nil {
			return nil, err
		}
		return List{Symbol("quote"), quoted}, nil
	case '"':
		return p.str()
	default:
		return p.atom(), nil
	}
}

func (p *parser) list() (Value, error) {
	start := p.pos
	p.pos++

	items := List{}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, &ParseError{Pos: start, Msg: "unterminated list"}
		}
		if p.peek() == ')' {
			p.pos++
			return items, nil
		}

		item, err := p.expr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func (p *parser) str() (Value, error) {
	start := p.pos
	p.pos++

	var sb strings.Builder
	for !p.eof() {
		c := p.peek()
		p.pos++
		switch c {
		case '"':
			return Str(sb.String()), nil
		case '\\':
			if p.eof() {
				return nil, &ParseError{Pos: start, Msg: "unterminated string"}
			}
			esc := p.peek()
			p.pos++
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(esc)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return nil, &ParseError{Pos: start, Msg: "unterminated string"}
}

func (p *parser) atom() Value {
	start := p.pos
	for !p.eof() && !isDelimiter(p.peek()) {
		p.pos++
	}
	return parseAtom(p.src[start:p.pos])
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '\'', '"', ';', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func parseAtom(tok string) Value {
	switch tok {
	case "T", "true":
		return Bool(true)
	case "F", "false":
		return Bool(false)
	case "nil", "NIL":
		return Nil
	}

	if looksNumeric(tok) {
		if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return Int(i)
		}
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return Float(f)
		}
	}
	return Symbol(tok)
}

func looksNumeric(tok string) bool {
	s := strings.TrimLeft(tok, "+-")
	if len(tok)-len(s) > 1 {
		return false
	}
	s = strings.TrimPrefix(s, ".")
	return s != "" && unicode.IsDigit(rune(s[0]))
}
