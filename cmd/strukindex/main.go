// Package main provides the entry point for the strukindex CLI.
package main

import (
	"os"

	"github.com/sa-retail/strukindex/cmd/strukindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
