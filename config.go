package lrusim

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/discochess/lrusim/internal/cache"
	"github.com/discochess/lrusim/internal/store/redisstore"
	"github.com/discochess/lrusim/internal/workload"
)

// ErrInvalidConfiguration is returned for a configuration that cannot run.
// Nothing is started when it is returned.
var ErrInvalidConfiguration = errors.New("lrusim: invalid configuration")

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreS3     = "s3"
	StoreGCS    = "gcs"
	StoreRedis  = "redis"
)

// StoreKinds lists the known backing store kinds.
var StoreKinds = []string{StoreMemory, StoreFile, StoreS3, StoreGCS, StoreRedis}

// Codec names for object and redis stores.
const (
	CodecNone = "none"
	CodecGzip = "gzip"
	CodecZstd = "zstd"
)

// Config describes one simulation run.
type Config struct {
	// Workers is the number of concurrent clients.
	Workers int `yaml:"workers"`
	// Duration is how long workers issue operations.
	Duration time.Duration `yaml:"duration"`

	// Capacity is the number of pages the cache holds.
	Capacity int `yaml:"capacity"`
	// PageSize is the page size in bytes.
	PageSize int `yaml:"page_size"`
	// Variant selects the recency strategy (see cache.Variants).
	Variant string `yaml:"variant"`

	// Keys is the size of the key space workers draw from.
	Keys int64 `yaml:"keys"`
	// WriteRatio is the probability that an operation is a put.
	WriteRatio float64 `yaml:"write_ratio"`
	// Pattern selects the key distribution (see workload.Patterns).
	Pattern string `yaml:"pattern"`
	// ZipfS is the zipf exponent when Pattern is "zipf".
	ZipfS float64 `yaml:"zipf_s"`
	// RandomSeed seeds the workload generators.
	RandomSeed uint64 `yaml:"random_seed"`

	// SeedFile is a JSON-lines page file written to the store before the run.
	SeedFile string `yaml:"seed_file"`
	// FlushOnClose writes dirty pages back when the coordinator is closed.
	FlushOnClose bool `yaml:"flush_on_close"`
	// MetricsAddr, if set, serves Prometheus metrics during the run.
	MetricsAddr string `yaml:"metrics_addr"`

	Store StoreConfig `yaml:"store"`
}

// StoreConfig describes the backing store stack.
type StoreConfig struct {
	Kind string `yaml:"kind"`

	// Latency and Jitter simulate device access time: each call waits
	// Latency plus a uniform random duration below Jitter.
	Latency time.Duration `yaml:"latency"`
	Jitter  time.Duration `yaml:"jitter"`
	// IOPS caps store calls per second. Zero means unlimited.
	IOPS  float64 `yaml:"iops"`
	Burst int     `yaml:"burst"`

	// Path is the data file for the file store.
	Path string `yaml:"path"`
	// Sync fsyncs after each file store write.
	Sync bool `yaml:"sync"`

	// Bucket, Prefix, Region and Endpoint configure the object stores.
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	// Codec compresses pages in object and redis stores.
	Codec string `yaml:"codec"`

	Redis redisstore.Config `yaml:"redis"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Workers:    1,
		Duration:   10 * time.Second,
		Capacity:   64,
		PageSize:   4096,
		Variant:    cache.VariantArena,
		Keys:       256,
		WriteRatio: 0.2,
		Pattern:    workload.PatternUniform,
		ZipfS:      workload.DefaultZipfS,
		RandomSeed: 1,
		Store: StoreConfig{
			Kind:    StoreMemory,
			Latency: 100 * time.Microsecond,
			Jitter:  50 * time.Microsecond,
			Codec:   CodecZstd,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfiguration, path, err)
	}
	return cfg, nil
}

// Validate reports the first problem that would prevent a run.
func (c Config) Validate() error {
	var problem string
	switch {
	case c.Workers <= 0:
		problem = fmt.Sprintf("workers must be positive, got %d", c.Workers)
	case c.Duration <= 0:
		problem = fmt.Sprintf("duration must be positive, got %s", c.Duration)
	case c.Capacity <= 0:
		problem = fmt.Sprintf("capacity must be positive, got %d", c.Capacity)
	case c.PageSize <= 0:
		problem = fmt.Sprintf("page size must be positive, got %d", c.PageSize)
	case c.Keys <= 0:
		problem = fmt.Sprintf("key space must be positive, got %d", c.Keys)
	case c.WriteRatio < 0 || c.WriteRatio > 1:
		problem = fmt.Sprintf("write ratio must be in [0, 1], got %v", c.WriteRatio)
	case !slices.Contains(workload.Patterns, c.Pattern):
		problem = fmt.Sprintf("unknown pattern %q", c.Pattern)
	case c.Pattern == workload.PatternZipf && c.ZipfS <= 1:
		problem = fmt.Sprintf("zipf exponent must be > 1, got %v", c.ZipfS)
	case !slices.Contains(cache.Variants, c.Variant):
		problem = fmt.Sprintf("unknown variant %q", c.Variant)
	default:
		return c.Store.validate()
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, problem)
}

func (s StoreConfig) validate() error {
	var problem string
	switch {
	case !slices.Contains(StoreKinds, s.Kind):
		problem = fmt.Sprintf("unknown store kind %q", s.Kind)
	case s.Latency < 0 || s.Jitter < 0:
		problem = "store latency and jitter must not be negative"
	case s.IOPS < 0:
		problem = fmt.Sprintf("iops must not be negative, got %v", s.IOPS)
	case s.Kind == StoreFile && s.Path == "":
		problem = "file store needs a path"
	case (s.Kind == StoreS3 || s.Kind == StoreGCS) && s.Bucket == "":
		problem = s.Kind + " store needs a bucket"
	case s.Kind == StoreRedis && s.Redis.Address == "":
		problem = "redis store needs an address"
	case s.Codec != "" && !slices.Contains([]string{CodecNone, CodecGzip, CodecZstd}, s.Codec):
		problem = fmt.Sprintf("unknown codec %q", s.Codec)
	default:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, problem)
}
