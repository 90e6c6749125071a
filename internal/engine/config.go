package engine

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultResultLimit = 64
	DefaultEchoLimit   = 32
	DefaultStepBudget  = 100_000
	DefaultTimeout     = 2 * time.Second
)

var ErrInvalidConfig = errors.New("invalid engine config")

// Config bounds a single evaluation run. Zero values are replaced by the
// defaults above.
type Config struct {
	StepBudget  int
	Timeout     time.Duration
	ResultLimit int
	EchoSource  bool
	EchoLimit   int
}

func (c Config) Validate() error {
	switch {
	case c.StepBudget < 0:
		return fmt.Errorf("%w: step budget must not be negative", ErrInvalidConfig)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	case c.ResultLimit < 0:
		return fmt.Errorf("%w: result limit must not be negative", ErrInvalidConfig)
	case c.ResultLimit > 0 && c.ResultLimit < MinLimit:
		return fmt.Errorf("%w: result limit must be at least %d", ErrInvalidConfig, MinLimit)
	case c.EchoLimit < 0:
		return fmt.Errorf("%w: echo limit must not be negative", ErrInvalidConfig)
	case c.EchoLimit > 0 && c.EchoLimit < MinLimit:
		return fmt.Errorf("%w: echo limit must be at least %d", ErrInvalidConfig, MinLimit)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.StepBudget == 0 {
		c.StepBudget = DefaultStepBudget
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ResultLimit == 0 {
		c.ResultLimit = DefaultResultLimit
	}
	if c.EchoLimit == 0 {
		c.EchoLimit = DefaultEchoLimit
	}
}
