package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/discochess/lrusim"
	statslogger "github.com/discochess/lrusim/internal/stats/logger"
)

// flags holds the command-line values. Only flags the user set override
// the configuration file.
type flags struct {
	configPath  string
	clients     int
	length      int
	seedFile    string
	capacity    int
	keys        int64
	writeRatio  float64
	pattern     string
	variant     string
	pageSize    int
	latency     time.Duration
	jitter      time.Duration
	iops        float64
	storeKind   string
	dataFile    string
	metricsAddr string
	flush       bool
	verbose     bool
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var f flags
	def := lrusim.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "lrusim",
		Short: "Simulate a shared LRU page cache under concurrent load",
		Long: `lrusim runs N client workers against one fixed-capacity LRU page cache
backed by a slow simulated disk, then prints the hit rate and throughput.

Examples:
  # Four clients for five seconds
  lrusim -c 4 -l 5

  # Preload pages from a seed file and use a skewed workload
  lrusim -c 8 -l 10 -s pages.jsonl.zst --pattern zipf

  # Use a real file as the backing store and expose metrics
  lrusim -c 4 --store file --data-file /tmp/pages.dat --metrics-addr :9100

  # Calibrate latency with the iobench tool, then feed it in
  lrusim -c 16 --latency 180us --jitter 40us`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, &f, stdout)
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.PrintErrln(c.UsageString())
		return err
	})

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fl.IntVarP(&f.clients, "clients", "c", def.Workers, "number of concurrent client workers")
	fl.IntVarP(&f.length, "length", "l", int(def.Duration/time.Second), "simulation length in seconds")
	fl.StringVarP(&f.seedFile, "seed", "s", "", "JSON-lines seed file (.gz/.zst accepted) written to the store before the run")
	fl.IntVar(&f.capacity, "capacity", def.Capacity, "cache capacity in pages")
	fl.Int64Var(&f.keys, "keys", def.Keys, "size of the key space")
	fl.Float64Var(&f.writeRatio, "write-ratio", def.WriteRatio, "fraction of operations that are puts")
	fl.StringVar(&f.pattern, "pattern", def.Pattern, "key pattern: sequential, uniform, zipf")
	fl.StringVar(&f.variant, "variant", def.Variant, "LRU variant: arena, golang-lru")
	fl.IntVar(&f.pageSize, "page-size", def.PageSize, "page size in bytes")
	fl.DurationVar(&f.latency, "latency", def.Store.Latency, "simulated fixed store latency")
	fl.DurationVar(&f.jitter, "jitter", def.Store.Jitter, "simulated random store latency added on top")
	fl.Float64Var(&f.iops, "iops", 0, "store operations per second ceiling (0 = unlimited)")
	fl.StringVar(&f.storeKind, "store", def.Store.Kind, "backing store: memory, file, s3, gcs, redis")
	fl.StringVar(&f.dataFile, "data-file", "", "data file for --store file")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	fl.BoolVar(&f.flush, "flush", false, "write dirty pages back to the store when the run ends")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "enable verbose output")

	return cmd
}

func runSimulation(cmd *cobra.Command, f *flags, stdout io.Writer) error {
	cfg, err := buildConfig(cmd, f)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(f.verbose)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []lrusim.Option{lrusim.WithLogger(logger)}
	var totals *statslogger.Collector
	if f.verbose && cfg.MetricsAddr == "" {
		totals = statslogger.New(logger.Named("stats"))
		opts = append(opts, lrusim.WithStats(totals))
	}

	sim, err := lrusim.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}

	report, runErr := sim.Run(ctx)
	if report != nil {
		if err := report.WriteText(stdout); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("writing report: %w", err))
		}
	}
	if totals != nil {
		totals.LogTotals()
	}
	if err := sim.Close(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

// buildConfig loads the configuration file, if any, and applies the flags
// the user set on top of it.
func buildConfig(cmd *cobra.Command, f *flags) (lrusim.Config, error) {
	cfg := lrusim.DefaultConfig()
	if f.configPath != "" {
		var err error
		cfg, err = lrusim.LoadConfig(f.configPath)
		if err != nil {
			return cfg, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("clients") {
		cfg.Workers = f.clients
	}
	if changed("length") {
		cfg.Duration = time.Duration(f.length) * time.Second
	}
	if changed("seed") {
		cfg.SeedFile = f.seedFile
	}
	if changed("capacity") {
		cfg.Capacity = f.capacity
	}
	if changed("keys") {
		cfg.Keys = f.keys
	}
	if changed("write-ratio") {
		cfg.WriteRatio = f.writeRatio
	}
	if changed("pattern") {
		cfg.Pattern = f.pattern
	}
	if changed("variant") {
		cfg.Variant = f.variant
	}
	if changed("page-size") {
		cfg.PageSize = f.pageSize
	}
	if changed("latency") {
		cfg.Store.Latency = f.latency
	}
	if changed("jitter") {
		cfg.Store.Jitter = f.jitter
	}
	if changed("iops") {
		cfg.Store.IOPS = f.iops
	}
	if changed("store") {
		cfg.Store.Kind = f.storeKind
	}
	if changed("data-file") {
		cfg.Store.Path = f.dataFile
		if !changed("store") && f.configPath == "" {
			cfg.Store.Kind = lrusim.StoreFile
		}
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if changed("flush") {
		cfg.FlushOnClose = f.flush
	}
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}

