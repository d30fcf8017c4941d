// Package main provides the mzfresh CLI for Materialize freshness diagnostics.
package main

import (
	"os"

	"github.com/leapstack-labs/mzfresh/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
