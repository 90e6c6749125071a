package toml

import "fmt"

const currentSchemaVersion = 1

type sessionFileSchema struct {
	Version int           `toml:"version"`
	Session sessionSchema `toml:"session"`
}

func (s *sessionFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s sessionFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported session schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	Key          string   `toml:"key"`
	Participants []string `toml:"participants"`
	Code         string   `toml:"code,multiline"`
	CreatedAt    string   `toml:"created_at"`
	UpdatedAt    string   `toml:"updated_at"`
}
