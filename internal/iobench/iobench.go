// Package iobench measures raw file or block device throughput with fixed
// size sequential or random reads and writes. Its per-operation latency is
// what the simulator's store latency is calibrated from.
package iobench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

const (
	// Alignment is the boundary every offset is rounded down to.
	Alignment = 4096

	// DefaultDeviceLimit is the size of the test device; offsets wrap below it.
	DefaultDeviceLimit = 512 << 20

	// DefaultTotalSize is the default random offset range.
	DefaultTotalSize = 1 << 30
)

// ErrInvalidOptions is returned for options that cannot be benchmarked.
var ErrInvalidOptions = errors.New("iobench: invalid options")

// Options describes one benchmark. Sizes are in bytes.
type Options struct {
	// FilePath is the scratch file or device to benchmark.
	FilePath string
	// IOSize is the size of each read or write.
	IOSize int64
	// Stride is the gap left between sequential operations.
	Stride int64
	// Random picks offsets uniformly in [0, TotalSize) instead of sequentially.
	Random bool
	// Write writes and fsyncs each block; otherwise blocks are read.
	Write bool
	// TotalSize bounds random offsets. Zero means DefaultTotalSize.
	TotalSize int64
	// Target is the number of bytes to transfer. Zero means TotalSize.
	Target int64
	// DeviceLimit is where offsets wrap. Zero means DefaultDeviceLimit.
	DeviceLimit int64
	// Keep leaves a scratch file in place. Paths under /dev/ are never removed.
	Keep bool
	// Seed makes random offsets reproducible.
	Seed uint64

	Logger *zap.Logger
}

// Result is the outcome of a benchmark.
type Result struct {
	Ops     int64
	Bytes   int64
	Elapsed time.Duration
	// Throughput is in bytes per second.
	Throughput float64
	// MeanLatency, P50Latency and P99Latency describe single operations.
	MeanLatency time.Duration
	P50Latency  time.Duration
	P99Latency  time.Duration
}

// MBPerSecond returns the throughput in MiB per second.
func (r *Result) MBPerSecond() float64 {
	return r.Throughput / (1 << 20)
}

func (o *Options) setDefaults() error {
	if o.FilePath == "" {
		return fmt.Errorf("%w: file path required", ErrInvalidOptions)
	}
	if o.IOSize <= 0 {
		return fmt.Errorf("%w: io size must be positive, got %d", ErrInvalidOptions, o.IOSize)
	}
	if o.Stride < 0 {
		return fmt.Errorf("%w: stride must not be negative, got %d", ErrInvalidOptions, o.Stride)
	}
	if o.TotalSize == 0 {
		o.TotalSize = DefaultTotalSize
	}
	if o.Target == 0 {
		o.Target = o.TotalSize
	}
	if o.DeviceLimit == 0 {
		o.DeviceLimit = DefaultDeviceLimit
	}
	if o.Random && o.TotalSize <= o.IOSize {
		return fmt.Errorf("%w: total size %d must exceed io size %d for random access", ErrInvalidOptions, o.TotalSize, o.IOSize)
	}
	if o.IOSize > o.DeviceLimit {
		return fmt.Errorf("%w: io size %d exceeds device limit %d", ErrInvalidOptions, o.IOSize, o.DeviceLimit)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return nil
}

// offsets yields the aligned offset of each operation.
type offsets struct {
	opts Options
	rng  *rand.Rand
	next int64
}

func newOffsets(opts Options) *offsets {
	return &offsets{
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5bd1e995)),
		next: -opts.IOSize,
	}
}

func (o *offsets) Next() int64 {
	var off int64
	if o.opts.Random {
		slots := (o.opts.TotalSize - o.opts.IOSize) / o.opts.IOSize
		off = o.rng.Int64N(slots+1) * o.opts.IOSize
	} else {
		o.next += o.opts.IOSize + o.opts.Stride
		off = o.next
	}

	if off+o.opts.IOSize > o.opts.DeviceLimit {
		off %= o.opts.DeviceLimit
		if !o.opts.Random {
			o.next = off
		}
	}
	off -= off % Alignment
	// Alignment can still leave a tail past the limit for unaligned IO sizes.
	if off+o.opts.IOSize > o.opts.DeviceLimit {
		off = 0
		if !o.opts.Random {
			o.next = 0
		}
	}
	return off
}

// Run performs the benchmark described by opts.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	f, err := os.OpenFile(opts.FilePath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", opts.FilePath, err)
	}
	defer func() {
		f.Close()
		if !opts.Keep && !strings.HasPrefix(opts.FilePath, "/dev/") {
			if err := os.Remove(opts.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Warn("removing scratch file", zap.String("path", opts.FilePath), zap.Error(err))
			}
		}
	}()

	buf := make([]byte, opts.IOSize)
	next := newOffsets(opts)
	latencies := make([]float64, 0, opts.Target/opts.IOSize+1)

	var res Result
	start := time.Now()
	for res.Bytes < opts.Target {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		off := next.Next()
		if ce := logger.Check(zap.DebugLevel, "io"); ce != nil {
			ce.Write(zap.Int64("offset", off))
		}

		opStart := time.Now()
		if opts.Write {
			if _, err := f.WriteAt(buf, off); err != nil {
				return nil, fmt.Errorf("writing at %d: %w", off, err)
			}
			if err := f.Sync(); err != nil {
				return nil, fmt.Errorf("syncing: %w", err)
			}
		} else {
			// Reading past the end of a fresh scratch file is not an error.
			if _, err := f.ReadAt(buf, off); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("reading at %d: %w", off, err)
			}
		}
		latencies = append(latencies, time.Since(opStart).Seconds())

		res.Ops++
		res.Bytes += opts.IOSize
	}
	res.Elapsed = time.Since(start)

	if res.Elapsed > 0 {
		res.Throughput = float64(res.Bytes) / res.Elapsed.Seconds()
	}
	if len(latencies) > 0 {
		res.MeanLatency = seconds(stat.Mean(latencies, nil))
		slices.Sort(latencies)
		res.P50Latency = seconds(stat.Quantile(0.50, stat.Empirical, latencies, nil))
		res.P99Latency = seconds(stat.Quantile(0.99, stat.Empirical, latencies, nil))
	}

	logger.Info("benchmark finished",
		zap.String("path", opts.FilePath),
		zap.Bool("write", opts.Write),
		zap.Bool("random", opts.Random),
		zap.Int64("ops", res.Ops),
		zap.Duration("elapsed", res.Elapsed),
		zap.Float64("mbPerSecond", res.MBPerSecond()),
	)
	return &res, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Summary formats the result the way the benchmark prints it.
func Summary(opts Options, r *Result) string {
	var b strings.Builder
	kind, mode := "Read", "Sequential"
	if opts.Write {
		kind = "Write"
	}
	if opts.Random {
		mode = "Random"
	}
	fmt.Fprintf(&b, "%s Test\n", kind)
	fmt.Fprintf(&b, "IO Size: %.2f KB, Stride: %.2f KB, Mode: %s\n", float64(opts.IOSize)/1024, float64(opts.Stride)/1024, mode)
	fmt.Fprintf(&b, "Throughput: %.2f MB/s\n", r.MBPerSecond())
	fmt.Fprintf(&b, "Time Taken: %.2f seconds\n", r.Elapsed.Seconds())
	fmt.Fprintf(&b, "Latency: mean %s, p50 %s, p99 %s\n", r.MeanLatency, r.P50Latency, r.P99Latency)
	return b.String()
}
