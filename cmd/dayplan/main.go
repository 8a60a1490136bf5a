// Package main provides the entry point for the dayplan CLI.
package main

import (
	"os"

	"dayplan/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
