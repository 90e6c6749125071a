package domain

import "strings"

const (
	fence       = "```"
	inlineFence = "`"
	indentUnit  = "\t"
)

// fenceLanguageTags are the tags accepted on the first line of a fenced
// block. The tag line is consumed, never kept in the buffer.
var fenceLanguageTags = map[string]struct{}{
	"lisp":    {},
	"scheme":  {},
	"clojure": {},
	"racket":  {},
	"elisp":   {},
	"cl":      {},
}

// CodeBuffer holds the source text of a session. Lines are separated by
// "\n" and indented with tabs.
type CodeBuffer struct {
	text string
}

func NewCodeBuffer(text string) CodeBuffer {
	return CodeBuffer{text: text}
}

func (b CodeBuffer) Text() string {
	return b.text
}

func (b CodeBuffer) IsEmpty() bool {
	return b.text == ""
}

func (b CodeBuffer) Lines() []string {
	if b.text == "" {
		return nil
	}
	return strings.Split(b.text, "\n")
}

// Append strips fence decoration from fragment and merges it line by line.
//
// A line starting with ")" continues the last line of the buffer: the run
// of closers is glued onto it and whatever follows starts a new line. Every
// new line is indented with one tab per unmatched "(" at that point.
// Lines that were already written are never re-indented.
func (b *CodeBuffer) Append(fragment string) {
	code := ExtractCode(fragment)
	if code == "" {
		return
	}

	depth := parenDelta(b.text)

	var sb strings.Builder
	sb.Grow(len(b.text) + len(code) + 16)
	sb.WriteString(b.text)

	for _, line := range strings.Split(code, "\n") {
		rest := strings.TrimLeft(strings.TrimRight(line, "\r"), " \t")

		i := 0
		for i < len(rest) {
			switch rest[i] {
			case ')':
				sb.WriteByte(')')
				depth--
				i++
				continue
			case ' ', '\t':
				i++
				continue
			}
			break
		}

		remainder := strings.TrimRight(rest[i:], " \t")
		if remainder == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		if depth > 0 {
			sb.WriteString(strings.Repeat(indentUnit, depth))
		}
		sb.WriteString(remainder)
		depth += parenDelta(remainder)
	}

	b.text = sb.String()
}

// Balance counts unmatched parentheses over the whole buffer.
func (b CodeBuffer) Balance() Balance {
	return BalanceOf(b.text)
}

// Delete removes one line using reverse numbering: 0 is the last line, 1
// the one before it. It returns the trimmed content of the removed line.
// An index past the first line deletes nothing and is not an error; a
// negative index is rejected.
func (b *CodeBuffer) Delete(index int) (string, bool, error) {
	if index < 0 {
		return "", false, ErrNegativeLineIndex
	}

	lines := b.Lines()
	pos := len(lines) - index - 1
	if pos < 0 || pos >= len(lines) {
		return "", false, nil
	}

	deleted := strings.TrimSpace(lines[pos])
	lines = append(lines[:pos], lines[pos+1:]...)
	b.text = strings.Join(lines, "\n")

	return deleted, true, nil
}

// Render wraps the buffer in a fenced block for display.
func (b CodeBuffer) Render() string {
	return fence + "lisp\n" + b.text + "\n" + fence
}

func (b CodeBuffer) String() string {
	return b.Render()
}

// ExtractCode removes chat code decoration from a fragment: a leading
// "```" with an optional language tag line, or a single leading backtick,
// and the matching trailing markers. Each marker is optional.
func ExtractCode(fragment string) string {
	s := strings.TrimSpace(fragment)

	if rest, ok := strings.CutPrefix(s, fence); ok {
		s = stripLanguageTag(rest)
	} else {
		s = strings.TrimPrefix(s, inlineFence)
	}

	s = strings.TrimSpace(s)
	if rest, ok := strings.CutSuffix(s, fence); ok {
		s = rest
	} else {
		s = strings.TrimSuffix(s, inlineFence)
	}

	return strings.TrimSpace(s)
}

func stripLanguageTag(s string) string {
	tag, rest, found := strings.Cut(s, "\n")
	if !found {
		return s
	}
	if _, ok := fenceLanguageTags[strings.ToLower(strings.TrimSpace(tag))]; !ok {
		return s
	}
	return rest
}

func parenDelta(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			n++
		case ')':
			n--
		}
	}
	return n
}
