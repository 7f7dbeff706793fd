// Package main is the imi CLI entry point.
package main

import (
	"os"

	"github.com/hyperjump/imi/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
