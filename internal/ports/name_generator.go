package ports

// NameGenerator produces keys for sessions started without an explicit
// name.
type NameGenerator interface {
	Next() string
}
