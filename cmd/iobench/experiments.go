package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/discochess/lrusim/internal/iobench"
)

var experimentsCmd = &cobra.Command{
	Use:   "experiments",
	Short: "Run benchmarks listed in an experiment file",
	Long: `Run each benchmark listed in an experiment file and write one MB/s
figure per line to the output file.

Each line has six fields, sizes in KB:
  io_kb stride_kb random|sequential write|read total_kb target_kb

Lines starting with '#' are ignored.`,
	Args: cobra.NoArgs,
	RunE: runExperiments,
}

var (
	experimentFile string
	outputFile     string
)

func init() {
	experimentsCmd.Flags().StringVar(&experimentFile, "experiment-file", "", "file listing the experiments")
	experimentsCmd.Flags().StringVarP(&outputFile, "output", "o", "results.txt", "file to write results to")
	experimentsCmd.MarkFlagRequired("experiment-file")
	rootCmd.AddCommand(experimentsCmd)
}

func runExperiments(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	in, err := os.Open(experimentFile)
	if err != nil {
		return fmt.Errorf("opening experiment file: %w", err)
	}
	defer in.Close()

	exps, err := iobench.ParseExperiments(in)
	if err != nil {
		return err
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := iobench.RunExperiments(ctx, filePath, exps, out, logger)
	if err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Ran %d experiments, results in %s\n", len(results), outputFile)
	return nil
}
