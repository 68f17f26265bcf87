// Package main provides the iobench CLI, which measures file or block
// device throughput and per-operation latency.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
