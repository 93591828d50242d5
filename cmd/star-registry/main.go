package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/starregistry/internal/ledger"
	"github.com/goodnatureofminers/starregistry/internal/logging"
	"github.com/goodnatureofminers/starregistry/internal/metrics"
	"github.com/goodnatureofminers/starregistry/internal/ownership"
	"github.com/goodnatureofminers/starregistry/internal/ownership/bitcoin"
	"github.com/goodnatureofminers/starregistry/internal/repository/clickhouse"
	"github.com/goodnatureofminers/starregistry/internal/service/snapshot"
	"github.com/goodnatureofminers/starregistry/internal/transport"
	"github.com/goodnatureofminers/starregistry/pkg/batcher"
)

const shutdownTimeout = 10 * time.Second

var config struct {
	Addr    string `long:"addr" env:"STAR_REGISTRY_ADDR" description:"REST and metrics listen addr" default:":8000"`
	Network string `long:"network" env:"STAR_REGISTRY_NETWORK" description:"bitcoin network of wallet addresses (mainnet, testnet3, regtest, signet)" default:"testnet3"`

	ChallengeWindow             time.Duration `long:"challenge-window" env:"STAR_REGISTRY_CHALLENGE_WINDOW" description:"how long a challenge stays valid" default:"5m"`
	ValidationWorkers           int           `long:"validation-workers" env:"STAR_REGISTRY_VALIDATION_WORKERS" description:"workers used to validate long chains" default:"4"`
	ValidationParallelThreshold int           `long:"validation-parallel-threshold" env:"STAR_REGISTRY_VALIDATION_PARALLEL_THRESHOLD" description:"chain length from which validation runs in parallel" default:"512"`

	ClickhouseDSN         string        `long:"clickhouse-dsn" env:"STAR_REGISTRY_CLICKHOUSE_DSN" description:"ClickHouse DSN; the chain is kept in memory only when empty"`
	SnapshotFlushSize     int           `long:"snapshot-flush-size" env:"STAR_REGISTRY_SNAPSHOT_FLUSH_SIZE" description:"blocks per snapshot flush" default:"100"`
	SnapshotFlushInterval time.Duration `long:"snapshot-flush-interval" env:"STAR_REGISTRY_SNAPSHOT_FLUSH_INTERVAL" description:"max delay before a committed block is persisted" default:"1s"`
	SnapshotRPS           int           `long:"snapshot-rps" env:"STAR_REGISTRY_SNAPSHOT_RPS" description:"max snapshot flushes per second" default:"10"`

	LogJSON bool   `long:"log-json" env:"STAR_REGISTRY_LOG_JSON" description:"log in JSON"`
	LogFile string `long:"log-file" env:"STAR_REGISTRY_LOG_FILE" description:"also write logs to this rotating file"`
}

func main() {
	if _, err := flags.Parse(&config); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		log.Fatalf("failed to parse flags: %v", err)
	}

	logger, err := logging.New(logging.Config{JSON: config.LogJSON, File: config.LogFile, MaxSizeMB: 100, MaxAgeDays: 7})
	if err != nil {
		log.Fatalf("can't initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Fatal("star registry stopped", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	verifier, err := bitcoin.NewMessageVerifier(config.Network)
	if err != nil {
		return err
	}

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithMetrics(metrics.NewLedger()),
		ledger.WithValidator(ledger.NewValidator(config.ValidationWorkers, config.ValidationParallelThreshold)),
	}

	store, closeStore, err := openStore(ctx, logger, opts)
	if err != nil {
		return err
	}
	defer closeStore()

	registrar, err := ownership.NewService(store, verifier, metrics.NewOwnership(config.Network), logger, config.ChallengeWindow)
	if err != nil {
		return err
	}
	handler, err := transport.NewHandler(store, registrar, metrics.NewHTTP(), logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	s := &http.Server{
		Addr:              config.Addr,
		Handler:           cors.Default().Handler(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down the http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown http server", zap.Error(err))
		}
	}()

	logger.Info("Starting HTTP server", zap.String("addr", config.Addr), zap.String("network", config.Network))
	if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

// openStore restores the chain from ClickHouse and mirrors new blocks into it,
// or starts an in-memory chain when no DSN is configured.
func openStore(ctx context.Context, logger *zap.Logger, opts []ledger.Option) (*ledger.Store, func(), error) {
	if config.ClickhouseDSN == "" {
		store := ledger.New(opts...)
		if err := store.Initialize(); err != nil {
			return nil, nil, err
		}
		logger.Warn("no ClickHouse DSN configured, the chain is not persisted")
		return store, func() {}, nil
	}

	repo, err := clickhouse.NewRepository(config.ClickhouseDSN, metrics.NewClickhouseRepository())
	if err != nil {
		return nil, nil, err
	}

	snapshotMetrics := metrics.NewSnapshot()
	writer, err := snapshot.NewWriter(repo, snapshotMetrics, logger, snapshot.WriterConfig{
		Batch: batcher.Config{
			FlushSize:     config.SnapshotFlushSize,
			FlushInterval: config.SnapshotFlushInterval,
			RPS:           config.SnapshotRPS,
		},
	})
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	writer.Start(ctx)

	closeFn := func() {
		writer.Stop()
		if err := repo.Close(); err != nil {
			logger.Error("close clickhouse", zap.Error(err))
		}
	}

	store, err := snapshot.Restore(ctx, repo, snapshotMetrics, logger, append(opts, ledger.WithCommitHook(writer.Enqueue))...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}
