package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexrdz/retro-flow/internal/config"
	"github.com/alexrdz/retro-flow/internal/core"
	"github.com/alexrdz/retro-flow/internal/store"
	"github.com/alexrdz/retro-flow/internal/store/postgres"
	"github.com/alexrdz/retro-flow/internal/store/sqlite"
	transporthttp "github.com/alexrdz/retro-flow/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("db_driver", cfg.DBDriver).Msg("database initialized")

	hub := core.NewHub(logger)
	server := transporthttp.NewServer(hub, st, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// OpenStore opens the configured database and applies the schema.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		st, err := sqlite.New(cfg.DBDSN, nil)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return st, nil
	case "postgres":
		st, err := postgres.New(ctx, cfg.DBDSN, nil)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}

// Run starts the hub and HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("starting retro-flow server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
