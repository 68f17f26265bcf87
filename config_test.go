package lrusim

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lrusim.yaml")
	content := `
workers: 8
duration: 2s
capacity: 128
variant: golang-lru
pattern: zipf
zipf_s: 1.3
write_ratio: 0.5
flush_on_close: true
store:
  kind: redis
  latency: 250us
  codec: gzip
  redis:
    address: localhost:6379
    namespace: "sim:"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.Duration != 2*time.Second {
		t.Errorf("Duration = %v, want 2s", cfg.Duration)
	}
	if cfg.Variant != "golang-lru" || cfg.Pattern != "zipf" || cfg.ZipfS != 1.3 {
		t.Errorf("workload = %s/%s/%v", cfg.Variant, cfg.Pattern, cfg.ZipfS)
	}
	if cfg.Store.Latency != 250*time.Microsecond {
		t.Errorf("Store.Latency = %v, want 250µs", cfg.Store.Latency)
	}
	if cfg.Store.Redis.Address != "localhost:6379" || cfg.Store.Redis.Namespace != "sim:" {
		t.Errorf("Store.Redis = %+v", cfg.Store.Redis)
	}

	// Unset fields keep their defaults.
	if cfg.PageSize != DefaultConfig().PageSize {
		t.Errorf("PageSize = %d, want default %d", cfg.PageSize, DefaultConfig().PageSize)
	}
	if cfg.Store.Jitter != DefaultConfig().Store.Jitter {
		t.Errorf("Store.Jitter = %v, want default", cfg.Store.Jitter)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing) error = %v, want os.ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("workers: [1, 2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadConfig(bad); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("LoadConfig(bad) error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestValidate_Store(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		wantErr bool
	}{
		{"memory", StoreConfig{Kind: StoreMemory}, false},
		{"file", StoreConfig{Kind: StoreFile, Path: "/tmp/pages"}, false},
		{"gcs", StoreConfig{Kind: StoreGCS, Bucket: "b", Codec: CodecNone}, false},
		{"negative latency", StoreConfig{Kind: StoreMemory, Latency: -1}, true},
		{"negative iops", StoreConfig{Kind: StoreMemory, IOPS: -5}, true},
		{"gcs without bucket", StoreConfig{Kind: StoreGCS}, true},
		{"bad codec", StoreConfig{Kind: StoreMemory, Codec: "lz4"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Store = tt.store
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}
