package iobench

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name   string
		random bool
		write  bool
	}{
		{"sequential read", false, false},
		{"sequential write", false, true},
		{"random read", true, false},
		{"random write", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scratch")
			res, err := Run(context.Background(), Options{
				FilePath:  path,
				IOSize:    4096,
				Random:    tt.random,
				Write:     tt.write,
				TotalSize: 64 << 10,
				Target:    32 << 10,
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Ops != 8 {
				t.Errorf("Ops = %d, want 8", res.Ops)
			}
			if res.Bytes != 32<<10 {
				t.Errorf("Bytes = %d, want %d", res.Bytes, 32<<10)
			}
			if res.Throughput <= 0 {
				t.Errorf("Throughput = %v, want > 0", res.Throughput)
			}
			if res.P99Latency < res.P50Latency {
				t.Errorf("P99Latency %v < P50Latency %v", res.P99Latency, res.P50Latency)
			}
			if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("scratch file not removed: %v", err)
			}
		})
	}
}

func TestRun_Keep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scratch")
	_, err := Run(context.Background(), Options{
		FilePath: path,
		IOSize:   4096,
		Write:    true,
		Target:   8192,
		Keep:     true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != 8192 {
		t.Errorf("size = %d, want 8192", info.Size())
	}
}

func TestRun_InvalidOptions(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		opts Options
	}{
		{"no path", Options{IOSize: 4096}},
		{"zero io size", Options{FilePath: filepath.Join(dir, "a")}},
		{"negative stride", Options{FilePath: filepath.Join(dir, "b"), IOSize: 4096, Stride: -1}},
		{"random range too small", Options{FilePath: filepath.Join(dir, "c"), IOSize: 4096, TotalSize: 4096, Random: true}},
		{"io larger than device", Options{FilePath: filepath.Join(dir, "d"), IOSize: 8192, DeviceLimit: 4096}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.opts)
			if !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("Run() error = %v, want ErrInvalidOptions", err)
			}
		})
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{
		FilePath: filepath.Join(t.TempDir(), "scratch"),
		IOSize:   4096,
		Target:   4096,
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestOffsets_Sequential(t *testing.T) {
	o := newOffsets(Options{IOSize: 4096, Stride: 4096, DeviceLimit: 32 << 10})

	want := []int64{4096, 12288, 20480, 28672, 4096, 12288}
	for i, w := range want {
		if got := o.Next(); got != w {
			t.Errorf("Next() #%d = %d, want %d", i, got, w)
		}
	}
}

func TestOffsets_Random(t *testing.T) {
	opts := Options{IOSize: 4096, TotalSize: 1 << 20, DeviceLimit: 256 << 10, Random: true, Seed: 7}
	o := newOffsets(opts)

	for range 1000 {
		off := o.Next()
		if off%Alignment != 0 {
			t.Fatalf("offset %d not aligned", off)
		}
		if off < 0 || off+opts.IOSize > opts.DeviceLimit {
			t.Fatalf("offset %d outside device", off)
		}
	}
}

func TestOffsets_UnalignedIOSize(t *testing.T) {
	o := newOffsets(Options{IOSize: 6000, DeviceLimit: 16 << 10})

	for range 100 {
		off := o.Next()
		if off%Alignment != 0 {
			t.Fatalf("offset %d not aligned", off)
		}
		if off+6000 > 16<<10 {
			t.Fatalf("offset %d runs past device", off)
		}
	}
}

func TestParseExperiments(t *testing.T) {
	input := `# io stride mode op total target
4 0 sequential write 1024 512

16 4 random read 2048 1024
8 0 1 0 64 64
`
	exps, err := ParseExperiments(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseExperiments() error = %v", err)
	}

	want := []Experiment{
		{IOSizeKB: 4, StrideKB: 0, Random: false, Write: true, TotalKB: 1024, TargetKB: 512, Line: 2},
		{IOSizeKB: 16, StrideKB: 4, Random: true, Write: false, TotalKB: 2048, TargetKB: 1024, Line: 4},
		{IOSizeKB: 8, StrideKB: 0, Random: true, Write: false, TotalKB: 64, TargetKB: 64, Line: 5},
	}
	if len(exps) != len(want) {
		t.Fatalf("ParseExperiments() returned %d experiments, want %d", len(exps), len(want))
	}
	for i := range want {
		if exps[i] != want[i] {
			t.Errorf("experiment %d = %+v, want %+v", i, exps[i], want[i])
		}
	}
}

func TestParseExperiments_Invalid(t *testing.T) {
	tests := []string{
		"4 0 sequential write 1024",
		"x 0 sequential write 1024 512",
		"4 0 sideways write 1024 512",
		"4 0 sequential erase 1024 512",
		"4 -1 sequential write 1024 512",
	}

	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			_, err := ParseExperiments(strings.NewReader(line))
			if !errors.Is(err, ErrInvalidExperiment) {
				t.Errorf("ParseExperiments() error = %v, want ErrInvalidExperiment", err)
			}
		})
	}
}

func TestRunExperiments(t *testing.T) {
	exps := []Experiment{
		{IOSizeKB: 4, Write: true, TotalKB: 64, TargetKB: 16, Line: 1},
		{IOSizeKB: 4, Random: true, TotalKB: 64, TargetKB: 16, Line: 2},
	}
	var out bytes.Buffer

	results, err := RunExperiments(context.Background(), filepath.Join(t.TempDir(), "scratch"), exps, &out, nil)
	if err != nil {
		t.Fatalf("RunExperiments() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("RunExperiments() returned %d results, want 2", len(results))
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("output has %d lines, want 2: %q", len(lines), out.String())
	}
}

func TestSummary(t *testing.T) {
	opts := Options{IOSize: 4096, Stride: 1024, Random: true, Write: true}
	got := Summary(opts, &Result{Throughput: 2 << 20})

	for _, want := range []string{"Write Test", "IO Size: 4.00 KB, Stride: 1.00 KB, Mode: Random", "Throughput: 2.00 MB/s"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() missing %q:\n%s", want, got)
		}
	}
}
