package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shareframe/backend/internal/config"
	"github.com/shareframe/backend/internal/db"
	"github.com/shareframe/backend/internal/handlers"
	"github.com/shareframe/backend/internal/httpserver"
	"github.com/shareframe/backend/internal/logging"
	"github.com/shareframe/backend/internal/middleware"
	"github.com/shareframe/backend/internal/repositories"
	"github.com/shareframe/backend/internal/storage"
	"github.com/shareframe/backend/internal/videos"
)

// Run bootstraps the ShareFrame backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or sweep")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.SlogLevel())
	slog.SetDefault(logger)

	switch args[0] {
	case "serve":
		return serve(ctx, cfg, logger)
	case "migrate":
		return runMigrations(ctx, cfg, args[1:], os.Stdout)
	case "sweep":
		return runSweep(ctx, cfg, args[1:], logger)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	deps, cleanup, err := buildDependencies(ctx, pool, cfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	handler := middleware.RequestLogger(logger)(mux)

	srv := httpserver.New(cfg.AppPort, handler, cfg.WriteTimeout)

	logger.Info("starting http server", "port", cfg.AppPort, "storageDriver", cfg.ObjectStore.Driver)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := cleanup(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

func runMigrations(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	pool, err := connect(ctx, cfg.DatabaseURL, slog.Default())
	if err != nil {
		return err
	}
	defer pool.Close()

	switch command {
	case "up", "":
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil
	case "status":
		return db.MigrationStatus(ctx, pool, out)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

// runSweep removes stored objects that no video references any more.
func runSweep(ctx context.Context, cfg config.Config, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "report orphaned objects without deleting them")
	grace := fs.Duration("grace", cfg.SweepGrace, "skip objects younger than this")
	all := fs.Bool("all", false, "sweep the whole bucket when no upload folder is configured")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if storage.NormalizeFolder(cfg.ObjectStore.Folder) == "" && !*all {
		return videos.ErrUnscopedSweep
	}

	store, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return err
	}

	pool, err := connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	sweeper := videos.NewSweeper(store, repositories.NewPostgresVideoRepository(pool), videos.SweepConfig{
		Prefix: cfg.ObjectStore.Folder,
		Grace:  *grace,
		DryRun: *dryRun,
		All:    *all,
	}, logger)

	_, err = sweeper.Run(ctx)
	return err
}

const (
	connectMaxRetries  = 5
	connectBaseBackoff = 200 * time.Millisecond
	connectMaxBackoff  = 3 * time.Second
)

// connect opens the pool and waits for the database to answer, backing off
// between attempts so the service can start alongside its database.
func connect(ctx context.Context, databaseURL string, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	backoff := connectBaseBackoff
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			return pool, nil
		}
		if attempt == connectMaxRetries {
			break
		}

		logger.Warn("database not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			pool.Close()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, connectMaxBackoff)
	}

	pool.Close()
	return nil, fmt.Errorf("ping database after %d attempts: %w", connectMaxRetries, err)
}
