package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/roombook/internal/booking"
	"github.com/example/roombook/internal/config"
	httptransport "github.com/example/roombook/internal/http"
	"github.com/example/roombook/internal/logging"
	"github.com/example/roombook/internal/persistence"
	"github.com/example/roombook/internal/persistence/memory"
	"github.com/example/roombook/internal/persistence/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	// A missing .env is not an error; it only matters in local development.
	_ = godotenv.Load()

	logger := logging.NewLogger(slog.LevelInfo)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, logger); err != nil {
		logger.Error("service exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	backend, closeBackend, err := openBackend(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	registry, err := booking.NewResourceRegistry(ctx, backend, logger)
	if err != nil {
		return err
	}
	if cfg.Seed.Enabled {
		if err := registry.EnsureDefaultSeed(ctx); err != nil {
			return err
		}
	}

	store, err := booking.NewReservationStore(ctx, backend, registry, time.Now, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	routerCfg := httptransport.RouterConfig{
		Resources:    httptransport.NewResourceHandler(registry, logger),
		Reservations: httptransport.NewReservationHandler(store, logger),
		Virtual:      httptransport.NewVirtualHandler(store, logger),
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	}

	if notifier, ok := backend.(persistence.ChangeNotifier); ok {
		feed := httptransport.NewChangeFeed(notifier, []string{
			persistence.CollectionResources,
			persistence.CollectionRoomReservations,
			persistence.CollectionVirtualReservations,
		}, logger)
		defer feed.Close()
		routerCfg.ChangeFeed = feed
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           httptransport.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservation API listening", "addr", server.Addr, "storage", cfg.Storage.Driver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openBackend(cfg config.StorageConfig, logger *slog.Logger) (persistence.CollectionStore, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using the in-memory backend; reservations are lost on restart")
		return memory.Open(), func() {}, nil
	default:
		store, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if cerr := store.Close(); cerr != nil {
				logger.Error("failed to close storage", "error", cerr)
			}
		}
		return store, closeFn, nil
	}
}
