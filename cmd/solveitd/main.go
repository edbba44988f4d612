package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	solveitengine "github.com/abdallemo/solveit-engine"
	"github.com/abdallemo/solveit-engine/internal/config"
	"github.com/abdallemo/solveit-engine/internal/notify"
	"github.com/abdallemo/solveit-engine/internal/repository"
	"github.com/abdallemo/solveit-engine/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:           "solveitd",
		Short:         "Task lifecycle and dispute resolution engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), sweepCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// engine bundles everything a command needs after startup.
type engine struct {
	cfg     *config.Config
	store   repository.Store
	sweeper *service.Sweeper
	close   func()
}

func start(ctx context.Context) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	migrationsFS, err := fs.Sub(solveitengine.MigrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		pool.Close()
		return nil, err
	}

	store := repository.NewPostgres(pool)

	var notifier notify.Notifier = notify.Logger{}
	closeNotify := func() {}
	if cfg.NATSURL != "" {
		pub, err := notify.NewNATSPublisher(cfg.NATSURL, cfg.NotifySubject)
		if err != nil {
			pool.Close()
			return nil, err
		}
		notifier = pub
		closeNotify = pub.Close
	}

	alerts, err := notify.NewAlerts(cfg)
	if err != nil {
		slog.Warn("staff alerts disabled", "error", err)
	}

	return &engine{
		cfg:     cfg,
		store:   store,
		sweeper: service.NewSweeper(store, notifier, alerts),
		close: func() {
			closeNotify()
			pool.Close()
		},
	}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with the scheduled deadline sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, err := start(ctx)
			if err != nil {
				return err
			}
			defer eng.close()

			c := cron.New()
			if _, err := c.AddFunc(eng.cfg.SweepSchedule, func() {
				if err := eng.sweeper.SweepAll(context.Background()); err != nil {
					slog.Error("scheduled deadline sweep", "error", err)
				}
			}); err != nil {
				return err
			}
			c.Start()
			slog.Info("engine started", "sweep_schedule", eng.cfg.SweepSchedule)

			<-ctx.Done()
			slog.Info("shutting down")
			<-c.Stop().Done()
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one deadline sweep over all active assignments and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, err := start(ctx)
			if err != nil {
				return err
			}
			defer eng.close()

			return eng.sweeper.SweepAll(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			migrationsFS, err := fs.Sub(solveitengine.MigrationsFS, "migrations")
			if err != nil {
				return err
			}
			return repository.RunMigrations(cfg.DatabaseURL, migrationsFS)
		},
	}
}
