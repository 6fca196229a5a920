package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okian/scorekeep/internal/adapters/catalog"
	"github.com/okian/scorekeep/internal/adapters/http/api"
	"github.com/okian/scorekeep/internal/adapters/http/swagger"
	"github.com/okian/scorekeep/internal/adapters/repository"
	app "github.com/okian/scorekeep/internal/app"
	"github.com/okian/scorekeep/internal/config"
	"github.com/okian/scorekeep/internal/identity"
	"github.com/okian/scorekeep/pkg/logger"
)

// HTTP server timeout constants. WriteTimeout stays zero so /scores/live
// connections are not cut.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	catalogWarmup     = 10 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithFormat(cfg.LogFormat, os.Stdout); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "scorekeep exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is cancelled and then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, l logger.Logger) error {
	store, err := openStore(ctx, cfg, l)
	if err != nil {
		return err
	}

	src := catalog.NewHTTPSource(cfg.CatalogURL,
		catalog.WithTimeout(cfg.CatalogTimeout()),
		catalog.WithLogger(l.Named("catalog")),
	)

	svc := app.New(store, src,
		app.WithLogger(l.Named("service")),
		app.WithStoreKind(cfg.Store),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithLocale(cfg.Locale),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go warmCatalog(ctx, src, l)

	mux, err := newMux(ctx, cfg, svc)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		l.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("%w: %w", api.ErrServe, err)
		}
	}
	l.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	l.Info(ctx, "server stopped")
	return nil
}

// newMux builds the verifier and limiter from cfg and registers every
// route on a fresh mux.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) (*http.ServeMux, error) {
	verifier, err := identity.NewVerifier(cfg.AuthSecret, identity.WithIssuerName(cfg.AuthIssuer))
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}
	limiter, err := api.NewRateLimiter(cfg.SubmitRatePerSec, cfg.SubmitBurst)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, verifier, limiter).Register(ctx, mux)
	return mux, nil
}

// openStore opens the record store selected by cfg.Store.
func openStore(ctx context.Context, cfg *config.Config, l logger.Logger) (repository.Store, error) {
	opts := []repository.Option{
		repository.WithNotifyBuffer(cfg.NotifyBuffer),
		repository.WithLogger(l.Named("store")),
	}

	switch cfg.Store {
	case config.StoreMemory:
		return repository.NewMemoryStore(opts...), nil
	case config.StoreSQLite:
		s, err := repository.OpenSQLite(ctx, cfg.SQLitePath, opts...)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case config.StoreRedis:
		opts = append(opts, repository.WithKeyPrefix(cfg.RedisKeyPrefix))
		s, err := repository.OpenRedis(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
	}
}

// warmCatalog fetches the catalog once so the first submission does not
// pay for it. Failures are logged; the next caller retries.
func warmCatalog(ctx context.Context, src catalog.Source, l logger.Logger) {
	ctx, cancel := context.WithTimeout(ctx, catalogWarmup)
	defer cancel()

	entries, err := src.Fetch(ctx)
	if err != nil {
		l.Warn(ctx, "catalog warmup failed", logger.Error(err))
		return
	}
	l.Debug(ctx, "catalog warmed", logger.Int("entries", len(entries)))
}
