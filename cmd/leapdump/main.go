// Package main provides the CLI for leapdump.
package main

import (
	"os"

	"github.com/leapstack-labs/leapdump/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
