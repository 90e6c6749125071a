package domain

import "fmt"

type BalanceState int

const (
	Balanced BalanceState = iota
	MissingClosers
	ExtraClosers
)

// Balance is the parenthesis balance of a piece of source. Count is the
// number of missing or extra closers and is zero when balanced.
type Balance struct {
	State BalanceState
	Count int
}

func BalanceOf(text string) Balance {
	n := parenDelta(text)
	switch {
	case n > 0:
		return Balance{State: MissingClosers, Count: n}
	case n < 0:
		return Balance{State: ExtraClosers, Count: -n}
	default:
		return Balance{State: Balanced}
	}
}

func (b Balance) IsBalanced() bool {
	return b.State == Balanced
}

func (b Balance) String() string {
	switch b.State {
	case MissingClosers:
		return fmt.Sprintf("missing %d %s", b.Count, plural(b.Count, "closing parenthesis", "closing parentheses"))
	case ExtraClosers:
		return fmt.Sprintf("%d extra %s", b.Count, plural(b.Count, "closing parenthesis", "closing parentheses"))
	default:
		return "balanced"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
