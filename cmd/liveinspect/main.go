// Package main provides the liveinspect command.
package main

import (
	"os"

	"github.com/leapstack-labs/liveinspect/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
