package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/app/service"
	"starknet_portfolio/internal/infrastructure/catalog"
	"starknet_portfolio/internal/infrastructure/configloader"
	"starknet_portfolio/internal/infrastructure/httpclient"
	"starknet_portfolio/internal/infrastructure/messaging"
	clientprovider "starknet_portfolio/internal/infrastructure/network/client"
	networkdefinition "starknet_portfolio/internal/infrastructure/network/definition"
	"starknet_portfolio/internal/infrastructure/policyloader"
	"starknet_portfolio/internal/infrastructure/restapi"
	"starknet_portfolio/internal/infrastructure/scheduler"
	"starknet_portfolio/internal/infrastructure/storage/sqlstore"
	"starknet_portfolio/internal/infrastructure/tokenloader"
	"starknet_portfolio/internal/pkg/logger"
	"starknet_portfolio/internal/pkg/metrics"
)

func main() {
	cfg, err := configloader.Load(configloader.DefaultPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, zapLogger); err != nil {
		logger.Error("Portfolio service stopped with error", "error", err)
		_ = zapLogger.Sync()
		os.Exit(1)
	}
	logger.Info("Portfolio service stopped")
}

func run(cfg *configloader.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting portfolio service",
		"network", cfg.Starknet.Network,
		"catalog_source", cfg.Catalog.Source,
		"database_driver", cfg.Database.Driver,
		"max_concurrent_routines", cfg.Performance.MaxConcurrentRoutines,
	)

	m := metrics.New(prometheus.DefaultRegisterer)

	netDef, err := networkdefinition.NewNetworkDefinitionProvider(logger.Named("network")).
		Resolve(cfg.Starknet.Network, cfg.Starknet.RPCURLs)
	if err != nil {
		return err
	}
	chain, err := clientprovider.NewStarknetClient(netDef, clientprovider.Options{
		ConnectTimeout: time.Duration(cfg.Starknet.ConnectTimeoutMs) * time.Millisecond,
		CallTimeout:    time.Duration(cfg.Starknet.RPCCallTimeoutMs) * time.Millisecond,
		RateLimit:      cfg.Starknet.RateLimit,
		Burst:          cfg.Starknet.BurstLimit,
		MaxBatchSize:   cfg.Starknet.MaxBatchSize,
	}, logger.Named("starknet"), m)
	if err != nil {
		return fmt.Errorf("failed to connect to starknet: %w", err)
	}
	defer chain.Close()

	feedTimeout := time.Duration(cfg.PriceFeed.RequestTimeoutMillis) * time.Millisecond
	feed := httpclient.NewAVNUClient(cfg.PriceFeed.BaseURL, cfg.PriceFeed.PathTemplate, feedTimeout, zapLogger.Named("avnu"))
	oracle := service.NewPriceOracle(feed, feedTimeout, logger.Named("price_oracle"))
	pricer := service.NewAssetPricer(chain, oracle, logger.Named("asset_pricer"), m)
	balances := service.NewBalanceReader(chain, logger.Named("balance_reader"))

	store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, logger.Named("sqlstore"))
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	assetSource, err := setupCatalog(ctx, cfg, store)
	if err != nil {
		return err
	}
	policies, err := setupPolicies(ctx, cfg, store)
	if err != nil {
		return err
	}
	assets := catalog.NewCachedCatalog(assetSource, time.Duration(cfg.Catalog.CacheTTLSeconds)*time.Second, logger.Named("catalog"))

	portfolios := service.NewPortfolioService(assets, pricer, balances, logger.Named("portfolio"), m, cfg.Performance.MaxConcurrentRoutines)

	categories, err := cfg.Categories()
	if err != nil {
		return err
	}
	planner := service.NewRebalancePlanner(categories, cfg.Rebalance.DefaultToleranceBand)

	executor, closeExecutor, err := setupExecutor(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeExecutor()

	if cfg.Rebalance.Enabled {
		sweeper := service.NewRebalanceSweeper(policies, portfolios, planner, executor, store,
			logger.Named("rebalance"), m, cfg.Rebalance.MaxConcurrentWallets)
		job := scheduler.NewRebalanceJob(ctx, sweeper,
			time.Duration(cfg.Rebalance.SweepTimeoutSeconds)*time.Second, logger.Named("rebalance_job"))

		sched := scheduler.New(logger.Named("scheduler"))
		if err := sched.AddJob(cfg.Rebalance.Schedule, job); err != nil {
			return fmt.Errorf("invalid rebalance schedule %q: %w", cfg.Rebalance.Schedule, err)
		}
		sched.Start()
		defer sched.Stop()

		if cfg.Rebalance.RunOnStartup {
			go func() {
				if err := sched.RunNow(job.Name()); err != nil {
					logger.Error("Startup rebalance sweep failed", "error", err)
				}
			}()
		}
	} else {
		logger.Info("Rebalance sweep disabled")
	}

	handler := restapi.NewPortfolioHandler(portfolios, planner, policies, assets, store, logger.Named("restapi"))
	deposits := service.NewDepositService(store, oracle, portfolios, logger.Named("deposits"), service.DefaultDepositWindow)
	router := restapi.SetupRouter(handler, restapi.NewDepositHandler(deposits, logger.Named("restapi")),
		zapLogger.Named("http"), prometheus.DefaultGatherer)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:  cfg.Server.IdleTimeoutDuration(),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server forced to shut down", "error", err)
	}
	return nil
}

// setupCatalog returns the asset source selected by catalog.source. With the
// SQL source, an existing catalog file is seeded into the store first.
func setupCatalog(ctx context.Context, cfg *configloader.Config, store *sqlstore.Store) (port.AssetCatalog, error) {
	fileLoader := tokenloader.NewAssetFileLoader(cfg.Catalog.File, logger.Named("tokenloader"))
	if cfg.Catalog.Source == "file" {
		return fileLoader, nil
	}

	if _, err := os.Stat(cfg.Catalog.File); err == nil {
		n, err := fileLoader.SeedInto(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("failed to seed asset catalog: %w", err)
		}
		logger.Info("Asset catalog seeded", "count", n, "file", cfg.Catalog.File)
	}
	return store, nil
}

// setupPolicies serves policies straight from the YAML file when
// database.policySource is file. Otherwise the store serves them, seeded from
// the file when one is configured.
func setupPolicies(ctx context.Context, cfg *configloader.Config, store *sqlstore.Store) (port.PolicyStore, error) {
	if cfg.Database.PoliciesFile == "" {
		return store, nil
	}
	fileLoader := policyloader.NewPolicyFileLoader(cfg.Database.PoliciesFile, logger.Named("policyloader"))
	if cfg.Database.PolicySource == "file" {
		logger.Info("Allocation policies served from file", "file", cfg.Database.PoliciesFile)
		return fileLoader, nil
	}

	n, err := fileLoader.SeedInto(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("failed to seed policies: %w", err)
	}
	logger.Info("Allocation policies seeded", "count", n)
	return store, nil
}

// setupExecutor picks the JetStream executor when NATS is configured and the
// dry-run executor otherwise.
func setupExecutor(ctx context.Context, cfg *configloader.Config) (port.ActionExecutor, func(), error) {
	if cfg.NATS.URL == "" {
		logger.Warn("NATS is not configured, rebalance actions will only be logged")
		return messaging.NewLogExecutor(logger.Named("dry_run")), func() {}, nil
	}

	executor, err := messaging.NewNATSExecutor(cfg.NATS.URL, cfg.NATS.Stream, cfg.NATS.SubjectPrefix, logger.Named("nats"))
	if err != nil {
		return nil, nil, err
	}
	if err := executor.EnsureStream(ctx); err != nil {
		executor.Close()
		return nil, nil, err
	}
	return executor, executor.Close, nil
}
