package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/raulshma/uniarr-sub005/internal/config"
	logpkg "github.com/raulshma/uniarr-sub005/internal/log"
	"github.com/raulshma/uniarr-sub005/internal/storage"
)

type commandDeps struct {
	out        io.Writer
	build      BuildInfo
	configPath string
	dbPath     string
}

// withStore loads configuration, opens the database, builds the logger, and
// runs fn with all three. The store and log writer are closed on return.
func withStore(cmdCtx context.Context, deps *commandDeps, fn func(ctx context.Context, cfg config.Config, logger *slog.Logger, store *storage.Store) error) error {
	cfg, err := config.Load(config.LoadOptions{ConfigPath: deps.configPath})
	if err != nil {
		return mapCommandError(fmt.Errorf("load config: %w", err))
	}
	if deps.dbPath != "" {
		cfg.Storage.Path = deps.dbPath
	}

	logOpts := logpkg.Options{Level: cfg.Logging.Level}
	if cfg.Logging.File != "" {
		logOpts.Rotation = &logpkg.RotationConfig{
			File:      cfg.Logging.File,
			MaxSizeMB: cfg.Logging.MaxSizeMB,
			MaxFiles:  cfg.Logging.MaxFiles,
		}
	}
	logger, logCloser, err := logpkg.New(logOpts)
	if err != nil {
		return mapCommandError(fmt.Errorf("configure logging: %w", err))
	}
	defer func() { _ = logCloser.Close() }()

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return mapCommandError(err)
	}
	defer func() { _ = store.Close() }()

	return mapCommandError(fn(cmdCtx, cfg, logger, store))
}

func producerString(build BuildInfo) string {
	return "uniarr/" + build.Version
}
