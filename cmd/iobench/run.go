package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/discochess/lrusim/internal/iobench"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single benchmark",
	Long: `Run one benchmark. Sizes are in KB.

Offsets are aligned down to 4096 bytes and wrap at 512 MB. Each write is
followed by an fsync. The scratch file is removed afterwards unless it is
under /dev/ or --keep is given.`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

var (
	ioSizeKB  int64
	strideKB  int64
	random    bool
	write     bool
	totalKB   int64
	targetKB  int64
	keep      bool
	benchSeed uint64
)

func init() {
	runCmd.Flags().Int64Var(&ioSizeKB, "io-size", 4, "size of each operation in KB")
	runCmd.Flags().Int64Var(&strideKB, "stride", 0, "gap between sequential operations in KB")
	runCmd.Flags().BoolVar(&random, "random", false, "use random offsets")
	runCmd.Flags().BoolVar(&write, "write", false, "write instead of read")
	runCmd.Flags().Int64Var(&totalKB, "total-size", iobench.DefaultTotalSize>>10, "random offset range in KB")
	runCmd.Flags().Int64Var(&targetKB, "target", 0, "bytes to transfer in KB (default total-size)")
	runCmd.Flags().BoolVar(&keep, "keep", false, "keep the scratch file")
	runCmd.Flags().Uint64Var(&benchSeed, "seed", 1, "random offset seed")
	rootCmd.AddCommand(runCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := iobench.Options{
		FilePath:  filePath,
		IOSize:    ioSizeKB << 10,
		Stride:    strideKB << 10,
		Random:    random,
		Write:     write,
		TotalSize: totalKB << 10,
		Target:    targetKB << 10,
		Keep:      keep,
		Seed:      benchSeed,
		Logger:    logger,
	}
	res, err := iobench.Run(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), iobench.Summary(opts, res))
	return nil
}
