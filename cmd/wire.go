package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/viper"

	"github.com/bnema/lisp-sessions/internal/adapters/lock"
	"github.com/bnema/lisp-sessions/internal/adapters/names"
	sessionrender "github.com/bnema/lisp-sessions/internal/adapters/render/session"
	badgerrepo "github.com/bnema/lisp-sessions/internal/adapters/repo/badger"
	sqliterepo "github.com/bnema/lisp-sessions/internal/adapters/repo/sqlite"
	tomlrepo "github.com/bnema/lisp-sessions/internal/adapters/repo/toml"
	"github.com/bnema/lisp-sessions/internal/application"
	"github.com/bnema/lisp-sessions/internal/config"
	"github.com/bnema/lisp-sessions/internal/domain"
	"github.com/bnema/lisp-sessions/internal/engine"
	"github.com/bnema/lisp-sessions/internal/ports"
)

type app struct {
	cfg             config.Config
	viper           *viper.Viper
	log             *slog.Logger
	engine          *engine.Engine
	names           ports.NameGenerator
	clock           ports.Clock
	sessionRenderer func(application.SessionView, sessionrender.RenderOptions) (string, error)
	openStore       func(ctx context.Context) (ports.SessionRepository, func() error, error)
	locker          *lock.FileLocker
	now             func() time.Time
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg, v, err := config.Load(homeDir)
	if err != nil {
		return nil, err
	}

	log := logs.GetLoggerFromString(cfg.Log.Level)

	eng, err := engine.New(cfg.Engine())
	if err != nil {
		return nil, fmt.Errorf("wire evaluation engine: %w", err)
	}

	a := &app{
		cfg:             cfg,
		viper:           v,
		log:             log,
		engine:          eng,
		names:           names.NewGenerator(),
		clock:           ports.SystemClock{},
		sessionRenderer: sessionrender.Render,
		locker:          lock.NewFileLocker(cfg.Store.LockDir),
		now:             time.Now,
	}
	a.openStore = a.openConfiguredStore

	return a, nil
}

// openConfiguredStore opens the session store selected by store.driver. The
// returned func releases it. Badger admits one process per directory, so
// other processes wait on a store-wide file lock instead of failing.
func (a *app) openConfiguredStore(ctx context.Context) (ports.SessionRepository, func() error, error) {
	noop := func() error { return nil }

	switch a.cfg.Store.Driver {
	case config.DriverBadger:
		release, err := a.locker.LockPath(ctx, filepath.Join(a.locker.Dir(), "badger.lock"))
		if err != nil {
			return nil, nil, fmt.Errorf("wait for badger session store: %w", err)
		}
		repo, err := badgerrepo.Open(a.cfg.Store.Path, a.log)
		if err != nil {
			_ = release()
			return nil, nil, fmt.Errorf("wire badger session store: %w", err)
		}
		return repo, func() error {
			return errors.Join(repo.Close(), release())
		}, nil
	case config.DriverSQLite:
		repo, err := sqliterepo.Open(ctx, a.cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("wire sqlite session store: %w", err)
		}
		return repo, repo.Close, nil
	default:
		repo, err := tomlrepo.NewRepository(a.viper)
		if err != nil {
			return nil, nil, fmt.Errorf("wire toml session store: %w", err)
		}
		return repo, noop, nil
	}
}

// withService opens the store for the duration of fn.
func (a *app) withService(ctx context.Context, fn func(svc *application.Service) error) (err error) {
	repo, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil && err == nil {
			err = fmt.Errorf("close session store: %w", closeErr)
		}
	}()

	return fn(application.NewService(repo, a.engine, a.names, a.clock, a.log,
		application.WithSessionLocker(a.locker),
	))
}

// resolveCaller picks the acting participant: the --as flag, then
// $LSES_USER, then $USER.
func resolveCaller(flag string) domain.ParticipantID {
	for _, candidate := range []string{flag, os.Getenv("LSES_USER"), os.Getenv("USER")} {
		if value := strings.TrimSpace(candidate); value != "" {
			return domain.ParticipantID(value)
		}
	}
	return ""
}
