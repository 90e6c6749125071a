package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_BINARY reuses a prebuilt lses binary instead of building one.
	Binary string `envconfig:"E2E_BINARY"`
	// E2E_STORE_DRIVERS lists the store drivers the smoke flow runs against.
	StoreDrivers []string `envconfig:"E2E_STORE_DRIVERS" default:"toml,badger,sqlite"`
	User         string   `envconfig:"E2E_USER" default:"alice"`
	// E2E_APPENDERS is how many lses processes race on one session.
	Appenders int `envconfig:"E2E_APPENDERS" default:"16"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
