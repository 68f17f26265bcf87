package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/discochess/lrusim"
)

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-h"}, &stdout, &stderr); code != 0 {
		t.Fatalf("run(-h) = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "--clients") {
		t.Errorf("help output missing --clients:\n%s", stdout.String())
	}
}

func TestRun_UnknownOption(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--bogus"}, &stdout, &stderr); code != 1 {
		t.Fatalf("run(--bogus) = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Usage:") {
		t.Errorf("stderr missing usage:\n%s", stderr.String())
	}
}

func TestRun_InvalidConfiguration(t *testing.T) {
	tests := [][]string{
		{"-c", "0"},
		{"-l", "0"},
		{"--capacity", "-1"},
		{"--write-ratio", "2"},
		{"--variant", "clock"},
	}
	for _, args := range tests {
		var stdout, stderr bytes.Buffer
		if code := run(args, &stdout, &stderr); code != 1 {
			t.Errorf("run(%v) = %d, want 1", args, code)
		}
		if !strings.Contains(stderr.String(), "invalid configuration") {
			t.Errorf("run(%v) stderr = %q", args, stderr.String())
		}
		if stdout.Len() != 0 {
			t.Errorf("run(%v) printed a report for an invalid configuration", args)
		}
	}
}

func TestRun_Simulation(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := []string{"-c", "2", "-l", "1", "--latency", "0s", "--jitter", "0s", "--capacity", "8", "--keys", "32"}
	if code := run(args, &stdout, &stderr); code != 0 {
		t.Fatalf("run(%v) = %d, want 0; stderr:\n%s", args, code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"Total operations:", "Hit rate:", "Elapsed:", "Workers:   2"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestBuildConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	if err := os.WriteFile(path, []byte("workers: 6\ncapacity: 99\nstore:\n  latency: 1ms\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cmd := newRootCmd(&bytes.Buffer{})
	if err := cmd.ParseFlags([]string{"--config", path, "-c", "3", "--data-file", "/tmp/x"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	var f flags
	f.configPath = path
	f.clients = 3
	f.dataFile = "/tmp/x"

	cfg, err := buildConfig(cmd, &f)
	if err != nil {
		t.Fatalf("buildConfig() error = %v", err)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want flag value 3", cfg.Workers)
	}
	if cfg.Capacity != 99 {
		t.Errorf("Capacity = %d, want file value 99", cfg.Capacity)
	}
	if cfg.Store.Latency != time.Millisecond {
		t.Errorf("Store.Latency = %v, want 1ms", cfg.Store.Latency)
	}
	if cfg.Store.Path != "/tmp/x" || cfg.Store.Kind != lrusim.StoreMemory {
		t.Errorf("Store = %s at %q, want memory kind kept from file with path set", cfg.Store.Kind, cfg.Store.Path)
	}
}

func TestBuildConfig_DataFileSelectsFileStore(t *testing.T) {
	cmd := newRootCmd(&bytes.Buffer{})
	if err := cmd.ParseFlags([]string{"--data-file", "/tmp/pages"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	cfg, err := buildConfig(cmd, &flags{dataFile: "/tmp/pages"})
	if err != nil {
		t.Fatalf("buildConfig() error = %v", err)
	}
	if cfg.Store.Kind != lrusim.StoreFile {
		t.Errorf("Store.Kind = %q, want %q", cfg.Store.Kind, lrusim.StoreFile)
	}
}
