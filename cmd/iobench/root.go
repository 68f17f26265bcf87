package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags.
	filePath string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "iobench",
	Short: "Measure storage throughput and latency",
	Long: `iobench issues fixed-size reads or writes against a file or block device
and reports throughput and per-operation latency. The mean latency is a
good starting value for lrusim --latency.

Examples:
  # 4 KB random writes against a scratch file
  iobench run --file-path /tmp/scratch --io-size 4 --random --write

  # Run every line of an experiment file
  iobench experiments --file-path /dev/sdb --experiment-file experiments.txt`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&filePath, "file-path", "", "file or device to benchmark")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.MarkPersistentFlagRequired("file-path")
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}
