// Package names generates readable session keys.
package names

import (
	"math/rand/v2"
	"strings"

	"github.com/bnema/lisp-sessions/internal/ports"
	"github.com/google/uuid"
)

var adjectives = []string{
	"brave", "calm", "clever", "curious", "eager", "gentle", "happy", "lazy",
	"lucky", "mellow", "nested", "quiet", "quick", "recursive", "shy", "tail",
}

var nouns = []string{
	"atom", "car", "cdr", "closure", "cons", "form", "lambda", "list",
	"macro", "paren", "quote", "reader", "symbol", "thunk", "tree", "value",
}

type Generator struct {
	pick func(n int) int
	id   func() uuid.UUID
}

var _ ports.NameGenerator = (*Generator)(nil)

func NewGenerator() *Generator {
	return &Generator{pick: rand.IntN, id: uuid.New}
}

// Next returns a name like "brave-lambda-1f3a9c2e".
func (g *Generator) Next() string {
	suffix := strings.ReplaceAll(g.id().String(), "-", "")[:8]
	return adjectives[g.pick(len(adjectives))] + "-" + nouns[g.pick(len(nouns))] + "-" + suffix
}
