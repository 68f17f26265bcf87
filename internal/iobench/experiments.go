package iobench

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrInvalidExperiment is returned for a malformed experiment line.
var ErrInvalidExperiment = errors.New("iobench: invalid experiment")

// Experiment is one line of an experiment file:
//
//	io_kb stride_kb random|sequential write|read total_kb target_kb
//
// Sizes are in KiB.
type Experiment struct {
	IOSizeKB int64
	StrideKB int64
	Random   bool
	Write    bool
	TotalKB  int64
	TargetKB int64
	Line     int
}

// Options returns benchmark options for the experiment against path.
func (e Experiment) Options(path string) Options {
	return Options{
		FilePath:  path,
		IOSize:    e.IOSizeKB << 10,
		Stride:    e.StrideKB << 10,
		Random:    e.Random,
		Write:     e.Write,
		TotalSize: e.TotalKB << 10,
		Target:    e.TargetKB << 10,
	}
}

// ParseExperiments reads experiments from r. Blank lines and lines starting
// with '#' are skipped.
func ParseExperiments(r io.Reader) ([]Experiment, error) {
	var exps []Experiment
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := parseExperiment(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidExperiment, n, err)
		}
		e.Line = n
		exps = append(exps, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading experiments: %w", err)
	}
	return exps, nil
}

func parseExperiment(line string) (Experiment, error) {
	fields := strings.Fields(line)
	if len(fields) != 6 {
		return Experiment{}, fmt.Errorf("want 6 fields, got %d", len(fields))
	}

	var (
		e   Experiment
		err error
	)
	sizes := []struct {
		dst  *int64
		text string
	}{
		{&e.IOSizeKB, fields[0]},
		{&e.StrideKB, fields[1]},
		{&e.TotalKB, fields[4]},
		{&e.TargetKB, fields[5]},
	}
	for _, s := range sizes {
		if *s.dst, err = strconv.ParseInt(s.text, 10, 64); err != nil {
			return Experiment{}, err
		}
		if *s.dst < 0 {
			return Experiment{}, fmt.Errorf("negative size %d", *s.dst)
		}
	}

	if e.Random, err = parseChoice(fields[2], "random", "sequential"); err != nil {
		return Experiment{}, err
	}
	if e.Write, err = parseChoice(fields[3], "write", "read"); err != nil {
		return Experiment{}, err
	}
	return e, nil
}

// parseChoice accepts yes or no by name, or as a boolean ("1", "true", ...).
func parseChoice(s, yes, no string) (bool, error) {
	switch strings.ToLower(s) {
	case yes:
		return true, nil
	case no:
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("want %s or %s, got %q", yes, no, s)
	}
	return v, nil
}

// RunExperiments runs each experiment against path in order and writes one
// MB/s figure per line to out.
func RunExperiments(ctx context.Context, path string, exps []Experiment, out io.Writer, logger *zap.Logger) ([]*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]*Result, 0, len(exps))
	for _, e := range exps {
		opts := e.Options(path)
		opts.Logger = logger
		res, err := Run(ctx, opts)
		if err != nil {
			return results, fmt.Errorf("experiment on line %d: %w", e.Line, err)
		}
		if _, err := fmt.Fprintf(out, "%.2f\n", res.MBPerSecond()); err != nil {
			return results, fmt.Errorf("writing result: %w", err)
		}
		results = append(results, res)
	}
	return results, nil
}
