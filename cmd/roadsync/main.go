// Package main provides the roadsync command.
package main

import (
	"os"

	"github.com/leapstack-labs/roadsync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
