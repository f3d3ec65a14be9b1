package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/observability"
	"solana-price-history/internal/orchestrator"
	"solana-price-history/internal/pricesync"
	"solana-price-history/internal/solana"
	"solana-price-history/internal/storage"
	chstore "solana-price-history/internal/storage/clickhouse"
	"solana-price-history/internal/storage/memory"
	"solana-price-history/internal/storage/migrations"
	pgstore "solana-price-history/internal/storage/postgres"
	redisstore "solana-price-history/internal/storage/redis"
	"solana-price-history/internal/venue"
)

func main() {
	// .env is optional; explicit flags win over it
	_ = godotenv.Load()

	// Parse flags
	rpcEndpoint := flag.String("rpc-endpoint", envOr("RPC_ENDPOINT", ""), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", envOr("WS_ENDPOINT", ""), "Solana WebSocket endpoint (follow mode)")
	postgresDSN := flag.String("postgres-dsn", envOr("POSTGRES_DSN", ""), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", envOr("CLICKHOUSE_DSN", ""), "ClickHouse connection string for chart points")
	redisAddr := flag.String("redis-addr", envOr("REDIS_ADDR", ""), "Redis address for the token/cursor store")
	redisPassword := flag.String("redis-password", envOr("REDIS_PASSWORD", ""), "Redis password")
	registryURL := flag.String("registry-url", envOr("REGISTRY_URL", "https://api-v3.raydium.io"), "Pool registry API base URL (empty disables registry lookups)")
	registryRateLimit := flag.Int("registry-rate-limit", 30, "Registry requests per minute (0 disables limiting)")
	mints := flag.String("mint", "", "Comma-separated mints to add to the tracked set before syncing")
	interval := flag.Duration("interval", 0, "Re-sync interval (0 runs a single pass and exits)")
	follow := flag.Bool("follow", false, "Subscribe to venue logs and re-sync on new activity")
	concurrency := flag.Int("concurrency", orchestrator.DefaultConcurrency, "Parallel token syncs per pass")
	batchSize := flag.Int("batch-size", pricesync.DefaultBatchSize, "Signatures per transaction batch request")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[sync] ", log.LstdFlags|log.Lshortfile)

	metrics := observability.NewMetrics("")

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err := run(ctx, logger, metrics, runConfig{
		rpcEndpoint:       *rpcEndpoint,
		wsEndpoint:        *wsEndpoint,
		postgresDSN:       *postgresDSN,
		clickhouseDSN:     *clickhouseDSN,
		redisAddr:         *redisAddr,
		redisPassword:     *redisPassword,
		registryURL:       *registryURL,
		registryRateLimit: *registryRateLimit,
		mints:             splitMints(*mints),
		interval:          *interval,
		follow:            *follow,
		concurrency:       *concurrency,
		batchSize:         *batchSize,
		useMemory:         *useMemory,
	})

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

type runConfig struct {
	rpcEndpoint       string
	wsEndpoint        string
	postgresDSN       string
	clickhouseDSN     string
	redisAddr         string
	redisPassword     string
	registryURL       string
	registryRateLimit int
	mints             []string
	interval          time.Duration
	follow            bool
	concurrency       int
	batchSize         int
	useMemory         bool
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitMints parses the comma-separated -mint flag.
func splitMints(raw string) []string {
	var mints []string
	for _, m := range strings.Split(raw, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			mints = append(mints, m)
		}
	}
	return mints
}

func run(ctx context.Context, logger *log.Logger, metrics *observability.Metrics, cfg runConfig) error {
	if cfg.rpcEndpoint == "" {
		return fmt.Errorf("--rpc-endpoint is required")
	}
	if cfg.follow && cfg.wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required for follow mode")
	}

	// Require --postgres-dsn unless --use-memory is explicitly set
	if !cfg.useMemory && cfg.postgresDSN == "" {
		return fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create stores (use interfaces)
	var tokenStore storage.TokenStore = memory.NewTokenStore()
	var tradeStore storage.TradeStore = memory.NewTradeStore()
	var chartStore storage.ChartPointStore = memory.NewChartPointStore()

	if !cfg.useMemory {
		pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}

		tokenStore = pgstore.NewTokenStore(pool)
		tradeStore = pgstore.NewTradeStore(pool)
	}

	// Redis replaces the relational token store when configured: short-lived
	// workers share the tracked set and cursors without a SQL database.
	if cfg.redisAddr != "" {
		client, err := redisstore.NewClient(ctx, cfg.redisAddr, cfg.redisPassword, 0)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer client.Close()

		tokenStore = redisstore.NewTokenStore(client)
	}

	// Chart points go to ClickHouse when configured, otherwise they stay in
	// memory alongside whatever trade store is in use.
	if cfg.clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		defer conn.Close()

		chartStore = chstore.NewChartPointStore(conn)
	}

	// Register requested mints before the first pass
	for _, mint := range cfg.mints {
		if err := tokenStore.Upsert(ctx, &domain.TrackedToken{Mint: mint}); err != nil {
			return fmt.Errorf("track mint %s: %w", mint, err)
		}
		logger.Printf("Tracking mint %s", mint)
	}

	// Wire the sync pipeline
	var registry venue.Registry
	if cfg.registryURL != "" {
		httpRegistry := venue.NewHTTPRegistry(venue.HTTPRegistryConfig{
			BaseURL:   cfg.registryURL,
			RateLimit: cfg.registryRateLimit,
			Logger:    logger,
		})
		defer httpRegistry.Close()
		registry = httpRegistry
	}

	resolver := venue.NewResolver(venue.ResolverOptions{
		Registry: registry,
		Logger:   logger,
	})

	rpc := solana.NewHTTPClient(cfg.rpcEndpoint)
	observer := observability.NewPipelineObserver(metrics)

	syncer := pricesync.NewSyncer(pricesync.SyncerOptions{
		Resolver: resolver,
		Walker: pricesync.NewHistoryWalker(pricesync.WalkerOptions{
			RPC:      rpc,
			Observer: observer,
			Logger:   logger,
		}),
		Fetcher: pricesync.NewBatchFetcher(pricesync.FetcherOptions{
			RPC:      rpc,
			Observer: observer,
			Logger:   logger,
		}),
		BatchSize: cfg.batchSize,
		Observer:  observer,
		Logger:    logger,
	})

	orch := orchestrator.New(orchestrator.Options{
		TokenStore:  tokenStore,
		TradeStore:  tradeStore,
		ChartStore:  chartStore,
		Syncer:      syncer,
		Concurrency: cfg.concurrency,
		Logger:      logger,
	})

	runPass := func() error {
		start := time.Now()
		result, err := orch.Run(ctx)
		metrics.SyncDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			metrics.SyncRunsTotal.WithLabelValues("error").Inc()
			return err
		}
		if len(result.Errors) > 0 {
			metrics.SyncRunsTotal.WithLabelValues("partial").Inc()
			for _, msg := range result.Errors {
				logger.Printf("Sync error: %s", msg)
			}
			return nil
		}
		metrics.SyncRunsTotal.WithLabelValues("ok").Inc()
		metrics.LastSuccessfulSync.SetToCurrentTime()
		return nil
	}

	if cfg.follow {
		return runFollow(ctx, logger, cfg, tokenStore, resolver, runPass)
	}

	if cfg.interval > 0 {
		return runInterval(ctx, logger, cfg.interval, runPass)
	}

	logger.Println("Starting sync pass...")
	return runPass()
}

// runInterval runs sync passes on a fixed ticker until cancelled.
func runInterval(ctx context.Context, logger *log.Logger, interval time.Duration, runPass func() error) error {
	logger.Printf("Starting periodic sync every %v", interval)

	if err := runPass(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := runPass(); err != nil {
				return err
			}
		}
	}
}

// followDebounce coalesces bursts of venue activity into one sync pass.
const followDebounce = 5 * time.Second

// runFollow runs an initial pass, subscribes to logs on every tracked
// token's venue, and re-syncs whenever new activity lands. Notifications
// only signal that there is something to fetch; the pass itself re-walks
// from each token's cursor, so dropped notifications are harmless.
func runFollow(ctx context.Context, logger *log.Logger, cfg runConfig, tokenStore storage.TokenStore, resolver *venue.Resolver, runPass func() error) error {
	if err := runPass(); err != nil {
		return err
	}

	tokens, err := tokenStore.List(ctx)
	if err != nil {
		return fmt.Errorf("list tracked tokens: %w", err)
	}
	if len(tokens) == 0 {
		return fmt.Errorf("follow mode needs at least one tracked token (use --mint)")
	}

	ws, err := solana.NewWSClient(ctx, cfg.wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	// One subscription per venue, all funneled into a single trigger channel.
	trigger := make(chan struct{}, 1)
	for _, token := range tokens {
		addr, fallback, err := resolver.Resolve(ctx, token.Mint)
		if err != nil {
			return fmt.Errorf("resolve venue for %s: %w", token.Mint, err)
		}

		notifications, err := ws.SubscribeLogs(ctx, addr)
		if err != nil {
			return fmt.Errorf("subscribe to venue %s: %w", addr, err)
		}
		logger.Printf("Following %s at venue %s (fallback=%v)", token.Mint, addr, fallback)

		go func(mint string, ch <-chan solana.LogNotification) {
			for n := range ch {
				if n.Err != nil {
					continue
				}
				select {
				case trigger <- struct{}{}:
				default:
				}
			}
		}(token.Mint, notifications)
	}

	logger.Println("Following venue activity...")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-trigger:
			// Let the burst settle so one pass covers it
			timer := time.NewTimer(followDebounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}

			if err := runPass(); err != nil {
				return err
			}
		}
	}
}
