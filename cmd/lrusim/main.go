// Package main provides the lrusim CLI, which runs a concurrent LRU page
// cache simulation and prints a summary.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
