package engine

const ellipsis = "..."

// MinLimit is the smallest limit that leaves room for the ellipsis on both
// sides of the cut.
const MinLimit = 2 * len(ellipsis)

// Truncate shortens s to at most limit runes by keeping ceil(limit/2)
// runes from the start and floor(limit/2)-3 from the end around "...".
// Strings of at most limit runes are returned unchanged. Below MinLimit
// there is no room for the ellipsis and s is cut to its first limit runes.
func Truncate(s string, limit int) string {
	head := (limit + 1) / 2
	tail := max(limit/2-len(ellipsis), 0)
	return truncateRunes(s, limit, head, tail)
}

// TruncateHeadTail is the fixed 64 rune form: first 32 and last 29 runes.
func TruncateHeadTail(s string) string {
	return truncateRunes(s, 64, 32, 29)
}

func truncateRunes(s string, limit, head, tail int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit < MinLimit {
		return string(runes[:limit])
	}
	return string(runes[:head]) + ellipsis + string(runes[len(runes)-tail:])
}
