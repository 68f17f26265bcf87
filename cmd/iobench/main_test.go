package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scratch")

	out, err := execute(t, "run", "--file-path", path, "--io-size", "4", "--write", "--total-size", "64", "--target", "16")
	if err != nil {
		t.Fatalf("run error = %v\n%s", err, out)
	}
	for _, want := range []string{"Write Test", "Mode: Sequential", "Throughput:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExperimentsCommand(t *testing.T) {
	dir := t.TempDir()
	expFile := filepath.Join(dir, "experiments.txt")
	resFile := filepath.Join(dir, "results.txt")
	content := "# io stride mode op total target\n4 0 sequential write 64 16\n4 0 random read 64 16\n"
	if err := os.WriteFile(expFile, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	out, err := execute(t, "experiments", "--file-path", filepath.Join(dir, "scratch"),
		"--experiment-file", expFile, "--output", resFile)
	if err != nil {
		t.Fatalf("experiments error = %v\n%s", err, out)
	}

	data, err := os.ReadFile(resFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 2 {
		t.Errorf("results has %d lines, want 2:\n%s", len(lines), data)
	}
}

func TestExperimentsCommand_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	expFile := filepath.Join(dir, "experiments.txt")
	if err := os.WriteFile(expFile, []byte("4 0 sequential\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := execute(t, "experiments", "--file-path", filepath.Join(dir, "scratch"),
		"--experiment-file", expFile, "--output", filepath.Join(dir, "results.txt")); err == nil {
		t.Error("experiments error = nil, want parse error")
	}
}
