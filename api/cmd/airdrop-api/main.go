package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/malbeclabs/airdrop/api/config"
	"github.com/malbeclabs/airdrop/api/handlers"
	"github.com/malbeclabs/airdrop/api/metrics"
	"github.com/malbeclabs/airdrop/api/server"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
	"github.com/malbeclabs/airdrop/ledger/pkg/events"
	"github.com/malbeclabs/airdrop/ledger/pkg/memhost"
	"github.com/malbeclabs/airdrop/ledger/pkg/postgres"
	"github.com/malbeclabs/airdrop/utils/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultListenAddr  = "0.0.0.0:8080"
	defaultMetricsAddr = ""
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "Enable verbose (debug) logging")
	jsonLogsFlag := flag.Bool("json-logs", false, "Emit JSON logs (or set LOG_FORMAT=json env var)")
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "Address to listen on for the API (or set LISTEN_ADDR env var)")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Separate address for prometheus metrics, empty to serve them only on the API listener")
	programIDFlag := flag.String("program-id", "", "Program ID used to derive scope addresses (or set AIRDROP_PROGRAM_ID env var)")
	memoryFlag := flag.Bool("memory", false, "Use the in-memory ledger instead of PostgreSQL (development only)")
	allowedOriginsFlag := flag.String("allowed-origins", "*", "Comma separated CORS origins (or set ALLOWED_ORIGINS env var)")
	eventBufferFlag := flag.Int("event-buffer", 64, "Per-subscriber event buffer size")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 15*time.Second, "Maximum time to wait for in-flight requests during graceful shutdown")

	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if env := os.Getenv("LISTEN_ADDR"); env != "" {
		*listenAddrFlag = env
	}
	if env := os.Getenv("AIRDROP_PROGRAM_ID"); env != "" {
		*programIDFlag = env
	}
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		*allowedOriginsFlag = env
	}
	if os.Getenv("LOG_FORMAT") == "json" {
		*jsonLogsFlag = true
	}

	log := logger.NewWithOptions(logger.Options{Verbose: *verboseFlag, JSON: *jsonLogsFlag, Service: "airdrop-api"})

	if *programIDFlag == "" {
		return errors.New("--program-id is required")
	}
	programID, err := solana.PublicKeyFromBase58(*programIDFlag)
	if err != nil {
		return fmt.Errorf("invalid --program-id: %w", err)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		env := os.Getenv("SENTRY_ENVIRONMENT")
		if env == "" {
			env = "development"
		}
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: env,
			Release:     version,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
		log.Info("sentry initialized", "environment", env)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	host, ready, closeHost, err := newHost(ctx, log, *memoryFlag)
	if err != nil {
		return err
	}
	defer closeHost()

	broadcaster, err := events.NewBroadcaster(events.BroadcasterConfig{Logger: log, BufferSize: *eventBufferFlag})
	if err != nil {
		return err
	}

	proc, err := airdrop.NewProcessor(airdrop.ProcessorConfig{
		Logger: log,
		Host:   host,
		Events: events.Multi{events.LogSink{Logger: log}, broadcaster},
	})
	if err != nil {
		return err
	}

	h, err := handlers.New(ctx, handlers.Config{
		Logger:    log,
		Processor: proc,
		ProgramID: programID,
		Events:    broadcaster,
	})
	if err != nil {
		return err
	}

	versionInfo := handlers.VersionInfo{Version: version, Commit: commit, Date: date}
	srv, err := server.New(server.Config{
		Logger:          log,
		ListenAddr:      *listenAddrFlag,
		ShutdownTimeout: *shutdownTimeoutFlag,
		VersionInfo:     versionInfo,
		AllowedOrigins:  strings.Split(*allowedOriginsFlag, ","),
		Handler:         h,
		Ready:           ready,
	})
	if err != nil {
		return err
	}

	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if *metricsAddrFlag != "" {
		g.Go(func() error {
			return serveMetrics(ctx, log, *metricsAddrFlag)
		})
	}

	log.Info("airdrop api started", "version", version, "commit", commit, "program_id", programID.String(), "memory", *memoryFlag)
	return g.Wait()
}

// newHost returns the ledger host with its readiness probe and cleanup.
func newHost(ctx context.Context, log *slog.Logger, memory bool) (airdrop.Host, func(context.Context) error, func(), error) {
	if memory {
		log.Warn("using in-memory ledger, state is lost on exit")
		return memhost.New(), nil, func() {}, nil
	}

	pgCfg, err := config.PgConfigFromEnv()
	if err != nil {
		return nil, nil, nil, err
	}
	pool, err := config.LoadPostgres(ctx, log, pgCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	host, err := postgres.NewHost(postgres.HostConfig{Logger: log, Pool: pool})
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	return host, pool.Ping, pool.Close, nil
}

func serveMetrics(ctx context.Context, log *slog.Logger, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start prometheus metrics server listener: %w", err)
	}
	log.Info("prometheus metrics server listening", "address", listener.Addr().String())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}
