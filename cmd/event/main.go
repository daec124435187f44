package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/text/language"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rx3lixir/event-listing/event-grpc/server"
	"github.com/rx3lixir/event-listing/internal/calendar"
	"github.com/rx3lixir/event-listing/internal/config"
	"github.com/rx3lixir/event-listing/internal/dataloader"
	"github.com/rx3lixir/event-listing/internal/db"
	"github.com/rx3lixir/event-listing/internal/httpapi"
	osclient "github.com/rx3lixir/event-listing/internal/opensearch/client"
	"github.com/rx3lixir/event-listing/internal/opensearch/indexing"
	"github.com/rx3lixir/event-listing/internal/opensearch/mapping"
	"github.com/rx3lixir/event-listing/internal/opensearch/source"
	"github.com/rx3lixir/event-listing/internal/service"
	"github.com/rx3lixir/event-listing/internal/snapshot"
	"github.com/rx3lixir/event-listing/pkg/health"
	"github.com/rx3lixir/event-listing/pkg/logger"
	"github.com/rx3lixir/event-listing/pkg/metrics"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config.yaml")
	publicURL := pflag.String("public-url", "", "base URL used for links in the calendar feed")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, *publicURL, log); err != nil {
		log.Error("Service stopped with error", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, publicURL string, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.SetServiceInfo(cfg.App.Version, cfg.App.Name, cfg.App.Environment)

	store, pinger, closeStore, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer closeStore()

	healthSrv := health.NewServer(log,
		health.WithService(cfg.App.Name, cfg.App.Version),
		health.WithAddr(cfg.Health.Addr),
	)
	healthSrv.AddCheck("database", health.PingChecker(pinger))

	// OpenSearch необязателен: без него снимок читается из базы, а запись не зеркалируется.
	var indexer service.Indexer
	var snapSrc snapshot.Source = snapshot.NewStoreSource(store)
	extraMetr := map[string]http.Handler{}
	if cfg.OpenSearch.Enabled {
		osCfg := cfg.OpenSearch
		osClient, err := osclient.New(&osCfg, log.With("component", "opensearch"))
		if err != nil {
			return fmt.Errorf("failed to create opensearch client: %w", err)
		}

		if err := osClient.WaitReady(ctx, 10, 3*time.Second); err != nil {
			return err
		}
		healthSrv.AddCheck("opensearch", health.PingChecker(osClient.Ping))

		mappingMgr := mapping.NewManager(osClient, log)
		if err := mappingMgr.EnsureIndex(ctx); err != nil {
			return fmt.Errorf("failed to ensure opensearch index: %w", err)
		}

		osIndexer := indexing.NewIndexer(osClient, indexing.NewRetryLogic(log), log)
		osSource := source.New(osClient, log)
		indexer = osIndexer

		loader := dataloader.NewLoader(store, osIndexer, osSource, mappingMgr, osCfg.BatchSize, log)
		if osCfg.SyncOnStart {
			if _, err := loader.InitializeOpenSearchData(ctx); err != nil {
				log.Warn("Initial OpenSearch sync failed", "error", err)
			}
		}
		extraMetr["/sync/status"] = syncStatusHandler(loader, log)

		if cfg.Snapshot.Source == "opensearch" {
			snapSrc = osSource
		}
	}

	cache := snapshot.NewCache(snapSrc, log.With("component", "snapshot"))
	if _, err := cache.Refresh(ctx); err != nil {
		// Сервис поднимается с пустым снимком; планировщик повторит загрузку.
		log.Warn("Initial snapshot load failed", "error", err)
	}
	healthSrv.AddCheck("snapshot", health.FreshnessChecker(cache.Loaded, cfg.Snapshot.MaxAge))

	settings, err := querySettings(cfg.Query)
	if err != nil {
		return err
	}

	listing := service.NewListing(cache, settings, log.With("component", "listing"))
	views := service.NewViews(cache, settings, cfg.Views.TTL, cfg.Views.MaxViews, log.With("component", "views"))
	events := service.NewEvents(store, indexer, service.RefresherFunc(func(ctx context.Context) error {
		_, err := cache.Refresh(ctx)
		return err
	}), log.With("component", "events"))
	registrations := service.NewRegistrations(store, store, log.With("component", "registrations"))

	cache.OnRefresh(func(s *snapshot.Snapshot) { views.SetRecords(s.Events) })

	scheduler := snapshot.NewScheduler(cache, 30*time.Second, log)
	if err := scheduler.Schedule(cfg.Snapshot.RefreshSchedule); err != nil {
		return err
	}
	if err := scheduler.AddJob(cfg.Views.PruneSchedule, func() { views.Prune() }); err != nil {
		return err
	}
	scheduler.Start()

	router, err := httpapi.NewRouter(cfg.App.Environment, httpapi.Deps{
		Listing:       listing,
		Events:        events,
		Registrations: registrations,
		Views:         views,
		Calendar:      calendar.Feed{Name: cfg.App.Name, BaseURL: publicURL},
		Health:        healthSrv.Health(),
		Logger:        log.With("component", "http"),
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 4)

	var httpSrv *http.Server
	if cfg.HTTP.Enabled {
		httpSrv = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		go func() {
			log.Info("HTTP server is listening", "address", cfg.HTTP.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server failed: %w", err)
			}
		}()
	}

	var (
		grpcSrv    *grpc.Server
		grpcHealth *grpchealth.Server
	)
	if cfg.GRPC.Enabled {
		grpcSrv, grpcHealth = server.NewGRPCServer(server.NewServer(listing, log.With("component", "grpc")), cfg.App.Name)

		listener, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("failed to start grpc listener: %w", err)
		}
		go func() {
			log.Info("gRPC server is listening", "address", cfg.GRPC.Addr)
			if err := grpcSrv.Serve(listener); err != nil {
				errCh <- fmt.Errorf("grpc server failed: %w", err)
			}
		}()
	}

	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, cfg.App.Name, log, extraMetr)
		go func() {
			if err := metricsSrv.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	if cfg.Health.Enabled {
		go func() {
			if err := healthSrv.Start(); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-errCh:
		log.Error("Server failed, shutting down", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", "error", err)
		}
	}
	if grpcSrv != nil {
		grpcHealth.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(shutdownCtx, grpcSrv)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("Metrics server shutdown failed", "error", err)
		}
	}
	if cfg.Health.Enabled {
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("Health server shutdown failed", "error", err)
		}
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Warn("Scheduler did not stop in time", "error", err)
	}

	log.Info("Service stopped")
	return runErr
}

// openStore открывает хранилище по драйверу из конфигурации.
func openStore(ctx context.Context, cfg config.StoreConfig, log logger.Logger) (db.Store, func(context.Context) error, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := db.CreatePostgresPool(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		store := db.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("failed to migrate postgres schema: %w", err)
		}
		log.Info("Connected to PostgreSQL")
		return store, store.Ping, pool.Close, nil

	case "sqlite":
		store, err := db.OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("Opened SQLite store", "dsn", cfg.DSN)
		return store, store.Ping, func() {
			if err := store.Close(); err != nil {
				log.Warn("Failed to close SQLite store", "error", err)
			}
		}, nil
	}

	return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func querySettings(cfg config.QueryConfig) (service.Settings, error) {
	tz, err := cfg.Location()
	if err != nil {
		return service.Settings{}, fmt.Errorf("invalid query timezone: %w", err)
	}
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return service.Settings{}, fmt.Errorf("invalid query locale: %w", err)
	}

	return service.Settings{
		PageSize:   cfg.PageSize,
		PageWindow: cfg.PageWindow,
		Latest:     cfg.Latest,
		TZ:         tz,
		Collation:  tag,
	}, nil
}

// stopGRPC ждет завершения активных вызовов, но не дольше ctx.
func stopGRPC(ctx context.Context, srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
	}
}
