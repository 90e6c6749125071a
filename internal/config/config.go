package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bnema/lisp-sessions/internal/engine"
)

const (
	DriverTOML   = "toml"
	DriverBadger = "badger"
	DriverSQLite = "sqlite"

	dirName = ".lses"
)

var validate = validator.New()

type Config struct {
	Store StoreConfig `mapstructure:"store"`
	Log   LogConfig   `mapstructure:"log"`
	Eval  EvalConfig  `mapstructure:"eval"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" env:"LSES_STORE_DRIVER" validate:"required,oneof=toml badger sqlite"`
	Path   string `mapstructure:"path" env:"LSES_STORE_PATH"`
	// LockDir holds the per-session lock files shared by every lses process.
	LockDir string `mapstructure:"lock_dir" env:"LSES_STORE_LOCK_DIR"`
}

type LogConfig struct {
	Level string `mapstructure:"level" env:"LSES_LOG_LEVEL" validate:"required,oneof=DEBUG INFO WARN ERROR"`
}

type EvalConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" env:"LSES_EVAL_TIMEOUT" validate:"gt=0"`
	StepBudget  int           `mapstructure:"step_budget" env:"LSES_EVAL_STEP_BUDGET" validate:"gt=0"`
	ResultLimit int           `mapstructure:"result_limit" env:"LSES_EVAL_RESULT_LIMIT" validate:"gte=6"`
	EchoSource  bool          `mapstructure:"echo_source" env:"LSES_EVAL_ECHO_SOURCE"`
	EchoLimit   int           `mapstructure:"echo_limit" env:"LSES_EVAL_ECHO_LIMIT" validate:"eq=0|gte=6"`
}

// Engine maps the evaluation settings onto the engine configuration.
func (c Config) Engine() engine.Config {
	return engine.Config{
		ResultLimit: c.Eval.ResultLimit,
		EchoLimit:   c.Eval.EchoLimit,
		StepBudget:  c.Eval.StepBudget,
		Timeout:     c.Eval.Timeout,
		EchoSource:  c.Eval.EchoSource,
	}
}

// Load resolves the configuration for a user whose home directory is home.
//
// Precedence, lowest first: built-in defaults, <home>/.lses/config.toml,
// a .env file in the working directory, then LSES_* environment variables.
// The returned viper instance carries the resolved store keys for adapters
// that read their settings from it.
func Load(home string) (Config, *viper.Viper, error) {
	_ = godotenv.Load()

	base := filepath.Join(home, dirName)

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(base)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, nil, fmt.Errorf("decode config: %w", err)
	}

	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, nil, fmt.Errorf("read environment: %w", err)
	}

	cfg.Log.Level = strings.ToUpper(strings.TrimSpace(cfg.Log.Level))
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath(base, cfg.Store.Driver)
	}
	cfg.Store.Path = expandHome(cfg.Store.Path, home)
	if cfg.Store.LockDir == "" {
		cfg.Store.LockDir = filepath.Join(base, "locks")
	}
	cfg.Store.LockDir = expandHome(cfg.Store.LockDir, home)

	if err := validate.Struct(cfg); err != nil {
		return Config{}, nil, fmt.Errorf("invalid config: %w", err)
	}

	v.Set("store.driver", cfg.Store.Driver)
	v.Set("store.path", cfg.Store.Path)

	return cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", DriverTOML)
	v.SetDefault("store.path", "")
	v.SetDefault("store.lock_dir", "")
	v.SetDefault("log.level", "WARN")
	v.SetDefault("eval.timeout", engine.DefaultTimeout)
	v.SetDefault("eval.step_budget", engine.DefaultStepBudget)
	v.SetDefault("eval.result_limit", engine.DefaultResultLimit)
	v.SetDefault("eval.echo_source", false)
	v.SetDefault("eval.echo_limit", engine.DefaultEchoLimit)
}

func defaultStorePath(base, driver string) string {
	switch driver {
	case DriverBadger:
		return filepath.Join(base, "badger")
	case DriverSQLite:
		return filepath.Join(base, "sessions.db")
	default:
		return filepath.Join(base, "sessions")
	}
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~"+string(os.PathSeparator)); ok {
		return filepath.Join(home, rest)
	}
	return path
}
