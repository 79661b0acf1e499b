// Package main provides the bookpipe command that normalizes crawled book
// items and stores them in the libri table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookpipe/internal/config"
	"bookpipe/internal/logger"
	"bookpipe/internal/metrics"
	"bookpipe/internal/normalizer"
	"bookpipe/internal/pipeline"
	"bookpipe/internal/report"
	"bookpipe/internal/store"

	"github.com/google/uuid"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, stdin io.Reader, stdout io.Writer) int {
	// 1. Define Command-Line Flags
	// ---------------------------
	fs := flag.NewFlagSet("bookpipe", flag.ContinueOnError)
	configFile := fs.String("config", "", "Path to YAML configuration file")
	inputPath := fs.String("input", "-", "Item feed (JSON Lines or JSON array), '-' for stdin")
	envFile := fs.String("env", ".env", "Optional dotenv file with BOOKPIPE_* overrides")
	dbPath := fs.String("db", "", "SQLite database path (overrides config)")
	rate := fs.Float64("rate", 0, "Exchange rate applied to prices (overrides config)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	// 2. Configuration
	// ----------------
	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configFile, *dbPath, *rate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		return 1
	}

	runID := uuid.NewString()
	log := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}).With("run_id", runID)

	log.Info("🚀 Starting book pipeline", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	if cfg.Metrics.Enabled {
		srv := serveMetrics(cfg.Metrics.Listen, reg, log)
		defer shutdownMetrics(srv)
	}

	// 3. Input
	// --------
	in := stdin
	if *inputPath != "-" {
		f, openErr := os.Open(*inputPath)
		if openErr != nil {
			log.Error("❌ Failed to open input", "path", *inputPath, "error", openErr)
			return 1
		}
		defer f.Close()

		in = f
	}

	// 4. Storage
	// ----------
	st, err := store.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("❌ Failed to open store", "error", err)
		return 1
	}

	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error("❌ Failed to close store", "error", closeErr)
		}
	}()

	// 5. Processing
	// -------------
	processor := normalizer.NewProcessor(cfg.Normalizer.ExchangeRate, log)
	p := pipeline.New(processor, st, reg, log, runID)

	summary, err := p.Run(ctx, in)
	if err != nil {
		log.Error("❌ Pipeline stopped", "error", err, "stored", summary.Stored)

		if cfg.Report.Enabled {
			fmt.Fprint(stdout, report.Summary(summary))
		}

		return 1
	}

	log.Info("✨ Pipeline complete",
		"received", summary.Received,
		"stored", summary.Stored,
		"dropped", summary.Dropped,
		"invalid", summary.Invalid,
	)

	if cfg.Report.Enabled {
		fmt.Fprint(stdout, report.Summary(summary))
	}

	return 0
}

// loadConfig builds the configuration from the optional file, the
// environment and finally the command-line overrides.
func loadConfig(path, dbPath string, rate float64) (*config.Config, error) {
	var cfg *config.Config

	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	} else {
		cfg = config.Default()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
	}

	if dbPath != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.DBPath = dbPath
	}

	if rate != 0 {
		cfg.Normalizer.ExchangeRate = rate
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func serveMetrics(addr string, reg *metrics.Registry, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()

	log.Info("📈 Serving metrics", "addr", addr)

	return srv
}

func shutdownMetrics(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
}
