package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexrdz/retro-flow/internal/app"
	"github.com/alexrdz/retro-flow/internal/config"
	"github.com/alexrdz/retro-flow/internal/log"
)

type flags struct {
	configPath        string
	envFile           string
	addr              string
	logLevel          string
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "retro-server",
		Short:         "Realtime retrospective board server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(&f)
			if err != nil {
				return err
			}
			logger := log.New(cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, &cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("failed to start")
				return err
			}
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "path to config.yaml (default ./config.yaml)")
	pf.StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before reading config")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address")
	root.Flags().DurationVar(&f.readHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	root.Flags().DurationVar(&f.shutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")

	root.AddCommand(newMigrateCmd(&f))
	return root
}

func newMigrateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			logger := log.New(cfg.LogLevel, cfg.LogFormat)

			st, err := app.OpenStore(cmd.Context(), &cfg)
			if err != nil {
				logger.Error().Err(err).Msg("migration failed")
				return err
			}
			logger.Info().Str("db_driver", cfg.DBDriver).Msg("schema applied")
			return st.Close()
		},
	}
}

// loadConfig resolves configuration; flags win over env and file values.
func loadConfig(f *flags) (config.Config, error) {
	bootstrap := log.New("info", "console")
	config.LoadDotEnv(bootstrap, f.envFile)

	cfg, path, err := config.Load(bootstrap, f.configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.UpdateFrom(config.Config{
		Addr:              f.addr,
		LogLevel:          f.logLevel,
		ReadHeaderTimeout: f.readHeaderTimeout,
		ShutdownTimeout:   f.shutdownTimeout,
	})
	return cfg, nil
}
