package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lukaszgryglicki/polycubes/internal/ledger"
	"github.com/lukaszgryglicki/polycubes/internal/polycubes"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		cpuProfile string
		flagCfg    = polycubes.DefaultConfig()
	)
	cmd := &cobra.Command{
		Use:   "polycubes",
		Short: "Enumerate polycubes generation by generation",
		Long: `polycubes grows every polycube of n cells by one cube in every direction,
deduplicates the results under the cube's symmetry group and prints
"n: count" for each generation.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := polycubes.DefaultConfig()
			if configPath != "" {
				fileCfg, err := polycubes.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = fileCfg
			}
			overlayFlags(cmd, &cfg, flagCfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cpuProfile != "" {
				f, err := os.Create(cpuProfile)
				if err != nil {
					return err
				}
				if err := pprof.StartCPUProfile(f); err != nil {
					_ = f.Close()
					return err
				}
				defer func() {
					pprof.StopCPUProfile()
					_ = f.Close()
				}()
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file")
	f.StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
	f.IntVarP(&flagCfg.Generations, "generations", "n", flagCfg.Generations, "last generation to compute (0 = no limit)")
	f.StringVar(&flagCfg.Symmetry, "symmetry", flagCfg.Symmetry, "symmetry group: rotations or full")
	f.StringVar(&flagCfg.Canonicalizer, "canonicalizer", flagCfg.Canonicalizer, "fingerprint strategy: bound or sorted")
	f.StringVar(&flagCfg.Store, "store", flagCfg.Store, "generation store: memory, disk or badger")
	f.StringVar(&flagCfg.Dir, "dir", flagCfg.Dir, "data directory for the disk and badger stores")
	f.BoolVar(&flagCfg.Strict, "strict", flagCfg.Strict, "confirm fingerprint matches with an exact comparison")
	f.IntVarP(&flagCfg.Workers, "workers", "w", flagCfg.Workers, "worker goroutines (0 = NumCPU)")
	f.StringVar(&flagCfg.Ledger, "ledger", flagCfg.Ledger, "SQLite ledger file recording each run")
	f.StringVar(&flagCfg.MetricsAddr, "metrics-addr", flagCfg.MetricsAddr, "serve Prometheus metrics on this address")
	f.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel, "debug, info, warn or error")
	f.StringVar(&flagCfg.LogFormat, "log-format", flagCfg.LogFormat, "text or json")
	return cmd
}

// overlayFlags copies every flag the user set explicitly onto cfg.
func overlayFlags(cmd *cobra.Command, cfg *polycubes.Config, flags polycubes.Config) {
	set := cmd.Flags().Changed
	if set("generations") {
		cfg.Generations = flags.Generations
	}
	if set("symmetry") {
		cfg.Symmetry = flags.Symmetry
	}
	if set("canonicalizer") {
		cfg.Canonicalizer = flags.Canonicalizer
	}
	if set("store") {
		cfg.Store = flags.Store
	}
	if set("dir") {
		cfg.Dir = flags.Dir
	}
	if set("strict") {
		cfg.Strict = flags.Strict
	}
	if set("workers") {
		cfg.Workers = flags.Workers
	}
	if set("ledger") {
		cfg.Ledger = flags.Ledger
	}
	if set("metrics-addr") {
		cfg.MetricsAddr = flags.MetricsAddr
	}
	if set("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	if set("log-format") {
		cfg.LogFormat = flags.LogFormat
	}
}

// errInterrupted is recorded in the ledger for runs stopped by a signal.
var errInterrupted = errors.New("interrupted")

func run(ctx context.Context, cfg polycubes.Config, out, errOut io.Writer) (err error) {
	logger, err := cfg.NewLogger(errOut)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	metrics := polycubes.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	engine, err := cfg.Build(logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	// an interrupted run exits cleanly but is not recorded as complete
	interrupted := false
	report := func(p polycubes.Progress) error {
		_, werr := fmt.Fprintf(out, "%d: %d\n", p.Generation, p.Count)
		return werr
	}
	if cfg.Ledger != "" {
		l, runID, lerr := startLedgerRun(ctx, cfg, engine)
		if lerr != nil {
			return lerr
		}
		defer l.Close()
		logger.Info("ledger run started", slog.String("run_id", runID), slog.String("ledger", cfg.Ledger))
		// finished generations are recorded even after the run context is cancelled
		record := l.Reporter(context.Background(), runID)
		printLine := report
		report = func(p polycubes.Progress) error {
			if err := printLine(p); err != nil {
				return err
			}
			return record(p)
		}
		defer func() {
			runErr := err
			if interrupted {
				runErr = errInterrupted
			}
			// the run context may already be cancelled here
			if ferr := l.FinishRun(context.Background(), runID, runErr); ferr != nil && err == nil {
				err = ferr
			}
		}()
	}

	err = engine.Enumerate(ctx, cfg.Generations, report)
	if errors.Is(err, context.Canceled) {
		interrupted = true
		logger.Info("interrupted")
		return nil
	}
	return err
}

func startLedgerRun(ctx context.Context, cfg polycubes.Config, engine *polycubes.Engine) (*ledger.Ledger, string, error) {
	l, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return nil, "", err
	}
	runID, err := l.StartRun(ctx, ledger.RunInfo{
		Symmetry:      engine.Canonicalizer().Group().Name,
		Canonicalizer: engine.Canonicalizer().Name(),
		Store:         engine.Store().Name(),
		Strict:        cfg.Strict,
		Workers:       cfg.Workers,
	})
	if err != nil {
		_ = l.Close()
		return nil, "", err
	}
	return l, runID, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", addr))
	return srv
}
